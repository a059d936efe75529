// Package audio turns a transcript into one audio file per turn plus a
// concatenated track.
package audio

import (
	"fmt"
	"sort"
	"strings"

	"interviewcast/internal/script"
)

const (
	ConclusionFile = "99_conclusion.mp3"
	FinalFile      = "final_complete.mp3"

	// ConclusionNumber orders the closing line after every question.
	ConclusionNumber = 99
)

// FileName is the per-turn file the downstream tools expect.
func FileName(turn script.DialogueTurn) string {
	return fmt.Sprintf("%02d_%s.mp3", turn.QuestionNumber, strings.ToLower(string(turn.Role)))
}

// Entry is one file to synthesize.
type Entry struct {
	QuestionNumber int
	Role           script.Role
	Text           string
	File           string
	Conclusion     bool
}

// Plan orders turns by question number, keeping emission order within a
// number, and assigns each a file. Names that repeat within the plan (the
// two opening interviewer lines, a reaction sharing its question's number)
// get a _2, _3 suffix so no turn is overwritten. A non-empty conclusion is
// appended last, spoken by the interviewer.
func Plan(turns []script.DialogueTurn, conclusion string) []Entry {
	ordered := make([]script.DialogueTurn, len(turns))
	copy(ordered, turns)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].QuestionNumber < ordered[j].QuestionNumber
	})

	seen := make(map[string]int, len(ordered))
	entries := make([]Entry, 0, len(ordered)+1)
	for _, t := range ordered {
		name := FileName(t)
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d.mp3", strings.TrimSuffix(name, ".mp3"), n)
		}
		entries = append(entries, Entry{
			QuestionNumber: t.QuestionNumber,
			Role:           t.Role,
			Text:           t.Text,
			File:           name,
		})
	}

	if strings.TrimSpace(conclusion) != "" {
		entries = append(entries, Entry{
			QuestionNumber: ConclusionNumber,
			Role:           script.RoleInterviewer,
			Text:           conclusion,
			File:           ConclusionFile,
			Conclusion:     true,
		})
	}
	return entries
}
