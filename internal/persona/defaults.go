package persona

import (
	"context"
	"fmt"
	"log/slog"
)

// Defaults returns the built-in catalog seeded on first use.
func Defaults() []Input {
	return []Input{
		{
			Name: "Sarah", Type: Interviewer, Specialty: "Python", VoiceID: "Ruth", Language: "en",
			Traits:      []string{"encouraging", "patient", "detail-oriented"},
			Description: "A Python expert who loves teaching and encouraging candidates. Specializes in backend development and data science.",
		},
		{
			Name: "Marcus", Type: Interviewer, Specialty: "Java Spring Boot", VoiceID: "Kevin", Language: "en",
			Traits:      []string{"professional", "serious", "thorough"},
			Description: "A seasoned Java architect with deep Spring Boot expertise. Very professional and detail-focused.",
		},
		{
			Name: "Alex", Type: Interviewer, Specialty: "JavaScript React", VoiceID: "Justin", Language: "en",
			Traits:      []string{"dynamic", "modern", "enthusiastic"},
			Description: "A frontend specialist passionate about modern JavaScript and React. Energetic and up-to-date with latest trends.",
		},
		{
			Name: "Emma", Type: Interviewer, Specialty: "DevOps", VoiceID: "Ivy", Language: "en",
			Traits:      []string{"practical", "direct", "solution-oriented"},
			Description: "A DevOps engineer focused on practical solutions and real-world scenarios. Direct and efficient communication style.",
		},
		{
			Name: "David", Type: Interviewer, Specialty: "Finance", VoiceID: "Stephen", Language: "en",
			Traits:      []string{"analytical", "precise", "methodical"},
			Description: "A finance expert with strong analytical skills. Precise and methodical in his approach.",
		},
		{
			Name: "Sophie", Type: Interviewer, Specialty: "Marketing", VoiceID: "Salli", Language: "en",
			Traits:      []string{"creative", "enthusiastic", "persuasive"},
			Description: "A marketing professional with creative flair. Enthusiastic and persuasive communication style.",
		},
		{
			Name: "Jean", Type: Interviewer, Specialty: "Droit", VoiceID: "Remy", Language: "fr",
			Traits:      []string{"précis", "méthodique", "rigoureux"},
			Description: "Un expert en droit des affaires. Très précis et méthodique dans ses questions.",
		},
		{
			Name: "Lisa", Type: Candidate, VoiceID: "Lea", Language: "fr",
			Traits:      []string{"confiante", "articulée", "adaptable"},
			Description: "Une candidate polyvalente avec une bonne capacité d'adaptation.",
		},
		{
			Name: "Mike", Type: Candidate, VoiceID: "Kevin", Language: "en",
			Traits:      []string{"curious", "analytical", "eager-to-learn"},
			Description: "A tech-savvy candidate with strong problem-solving skills and eagerness to learn.",
		},
		{
			Name: "Claire", Type: Candidate, VoiceID: "Ruth", Language: "en",
			Traits:      []string{"adaptable", "confident", "strategic"},
			Description: "A business professional with strategic thinking and excellent communication skills.",
		},
	}
}

// Initialize seeds the default personas, skipping any whose name, type and
// language already exist in the catalog. It returns the personas it created.
func Initialize(ctx context.Context, store Store) ([]Persona, error) {
	existing, err := store.List(ctx, Filter{})
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}

	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[seedKey(p.Name, p.Type, p.Language)] = true
	}

	var created []Persona
	for _, in := range Defaults() {
		if seen[seedKey(in.Name, in.Type, in.Language)] {
			continue
		}
		p, err := store.Create(ctx, in)
		if err != nil {
			return created, fmt.Errorf("create persona %s: %w", in.Name, err)
		}
		created = append(created, *p)
	}

	slog.Info("Persona catalog initialized", "created", len(created), "existing", len(existing))
	return created, nil
}

func seedKey(name string, t Type, lang string) string {
	return name + "|" + string(t) + "|" + lang
}
