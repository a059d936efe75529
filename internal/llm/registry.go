package llm

import (
	"fmt"
	"log/slog"
	"sort"
)

// Factory constructs a provider on demand.
type Factory func() (Provider, error)

// Resolution records which provider a name resolved to.
type Resolution struct {
	Requested string
	Used      string
	FellBack  bool
}

// Registry maps provider names to factories. Unknown names resolve to the
// fallback provider.
type Registry struct {
	factories map[string]Factory
	fallback  string
	logger    *slog.Logger
}

func NewRegistry(fallback string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		factories: make(map[string]Factory),
		fallback:  fallback,
		logger:    logger,
	}
}

func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Resolve(name string) (Provider, Resolution, error) {
	res := Resolution{Requested: name, Used: name}

	factory, ok := r.factories[name]
	if !ok {
		factory, ok = r.factories[r.fallback]
		if !ok {
			return nil, res, fmt.Errorf("unknown provider %q and no fallback %q registered", name, r.fallback)
		}
		r.logger.Warn("Unknown LLM provider, using fallback", "requested", name, "fallback", r.fallback)
		res.Used = r.fallback
		res.FellBack = true
	}

	p, err := factory()
	if err != nil {
		return nil, res, fmt.Errorf("create %s provider: %w", res.Used, err)
	}
	return p, res, nil
}
