package persona

import "context"

// Store is the persona catalog. Writes are last-writer-wins.
type Store interface {
	List(ctx context.Context, filter Filter) ([]Persona, error)
	Get(ctx context.Context, id string) (*Persona, error)
	Create(ctx context.Context, in Input) (*Persona, error)
	Update(ctx context.Context, id string, u Update) (*Persona, error)
	SoftDelete(ctx context.Context, id string) (bool, error)
}

func ListActive(ctx context.Context, s Store) ([]Persona, error) {
	return s.List(ctx, Filter{ActiveOnly: true})
}
