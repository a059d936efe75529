package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"interviewcast/internal/app"
	"interviewcast/internal/persona"
	"interviewcast/internal/script"
)

var (
	genTopic       string
	genQuestions   int
	genLanguage    string
	genModel       string
	genProvider    string
	genSeed        int64
	genInterviewer string
	genCandidate   string
	genRender      bool
	genQuiet       bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate and store an interview script",
	Long: `Select personas for the topic, write the interview with the configured LLM
and store the transcript. With --render the audio and video are produced as well.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genTopic, "topic", "t", "", "Interview topic")
	generateCmd.Flags().IntVarP(&genQuestions, "questions", "n", 0, "Number of questions (1-20, default from config)")
	generateCmd.Flags().StringVarP(&genLanguage, "lang", "l", "", "Language code (en, fr)")
	generateCmd.Flags().StringVarP(&genModel, "model", "m", "", "Model override")
	generateCmd.Flags().StringVarP(&genProvider, "provider", "p", "", "LLM provider override")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 0, "Seed for interjection and reaction draws")
	generateCmd.Flags().StringVar(&genInterviewer, "interviewer", "", "Interviewer persona id")
	generateCmd.Flags().StringVar(&genCandidate, "candidate", "", "Candidate persona id")
	generateCmd.Flags().BoolVarP(&genRender, "render", "r", false, "Render audio and video after generation")
	generateCmd.Flags().BoolVarP(&genQuiet, "quiet", "q", false, "Do not print turns while generating")
	_ = generateCmd.MarkFlagRequired("topic")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if genQuestions != 0 && (genQuestions < script.MinQuestions || genQuestions > script.MaxQuestions) {
		return fmt.Errorf("--questions must be between %d and %d", script.MinQuestions, script.MaxQuestions)
	}

	ctx := cmd.Context()
	service, cleanup, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	pipeline := app.NewPipeline(service)
	if !genQuiet {
		pipeline.OnTurn = printTurn
	}

	req := app.GenerateRequest{
		Topic:         genTopic,
		Questions:     genQuestions,
		Language:      genLanguage,
		Model:         genModel,
		Provider:      genProvider,
		InterviewerID: genInterviewer,
		CandidateID:   genCandidate,
		Render:        genRender,
	}
	if cmd.Flags().Changed("seed") {
		req.Seed = &genSeed
	}

	slog.Info("Generating interview...", "topic", genTopic)
	result, err := pipeline.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, persona.ErrInsufficientPersonas) {
			fmt.Println(warnStyle.Render("No usable personas even after initialization; add some with `interviewcast personas add`."))
		}
		if result == nil {
			return err
		}
		slog.Error("Render failed", "video_id", result.VideoID, "error", err)
	}

	fmt.Println()
	fmt.Println(titleStyle.Render(result.Title))
	fmt.Println(successStyle.Render("✓ Stored as " + result.VideoID))
	fmt.Println(infoStyle.Render(fmt.Sprintf("%s interviews %s, %d turns",
		result.Script.Interviewer.Name, result.Script.Candidate.Name, len(result.Script.Turns()))))

	if r := result.Render; r != nil {
		fmt.Println(successStyle.Render(fmt.Sprintf("✓ Rendered %.1fs to %s", r.Duration, r.OutputDir)))
		for name, url := range r.Artifacts {
			fmt.Println(dimStyle.Render(fmt.Sprintf("  %s → %s", name, url)))
		}
	}
	return err
}

func printTurn(t script.DialogueTurn) {
	label := interviewerStyle.Render(fmt.Sprintf("[%02d] INTERVIEWER", t.QuestionNumber))
	if t.Role == script.RoleCandidate {
		label = candidateStyle.Render(fmt.Sprintf("[%02d] CANDIDATE", t.QuestionNumber))
	}
	fmt.Printf("%s\n%s\n\n", label, t.Text)
}
