package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"interviewcast/internal/audio"
	"interviewcast/internal/script"
	"interviewcast/internal/transcript"
)

var (
	videosLimit    int
	videosRequests bool
)

var videosCmd = &cobra.Command{
	Use:     "videos",
	Aliases: []string{"video"},
	Short:   "Inspect stored transcripts",
}

var videosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored videos, newest first",
	RunE:  runVideosList,
}

var videosShowCmd = &cobra.Command{
	Use:   "show VIDEO_ID",
	Short: "Print a stored transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runVideosShow,
}

func init() {
	videosListCmd.Flags().IntVarP(&videosLimit, "limit", "n", 20, "Maximum rows")
	videosListCmd.Flags().BoolVar(&videosRequests, "requests", false, "List generation requests instead of videos")

	videosCmd.AddCommand(videosListCmd, videosShowCmd)
	rootCmd.AddCommand(videosCmd)
}

func runVideosList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	service, cleanup, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if videosRequests {
		reqs, err := service.Sink().Requests(ctx, videosLimit)
		if err != nil {
			return err
		}
		fmt.Println(titleStyle.Render(fmt.Sprintf("Generation requests (%d)", len(reqs))))
		for _, r := range reqs {
			line := fmt.Sprintf("%s  %-9s %s  %q", r.CreatedAt.Format("2006-01-02 15:04"), r.Status, r.Language, r.Topic)
			if r.Status == transcript.RequestFailed {
				fmt.Println(warnStyle.Render(line))
				fmt.Println(dimStyle.Render(fmt.Sprintf("  phase=%s  %s", r.Phase, r.Error)))
				continue
			}
			fmt.Println(infoStyle.Render(line))
			fmt.Println(dimStyle.Render("  video=" + r.VideoID))
		}
		return nil
	}

	videos, err := service.Sink().List(ctx, videosLimit)
	if err != nil {
		return err
	}
	if len(videos) == 0 {
		fmt.Println(warnStyle.Render("No videos stored yet"))
		return nil
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("Videos (%d)", len(videos))))
	for _, v := range videos {
		fmt.Println(infoStyle.Render(fmt.Sprintf("%s  %-12s %s", v.CreatedAt.Format("2006-01-02 15:04"), v.Status, v.Title)))
		fmt.Println(dimStyle.Render(fmt.Sprintf("  %s  %s × %s  %s", v.ID, v.Interviewer.Name, v.Candidate.Name, v.Language)))
	}
	return nil
}

func runVideosShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	service, cleanup, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	t, err := service.Sink().Fetch(ctx, args[0])
	if err != nil {
		return err
	}
	v := t.Video

	fmt.Println(titleStyle.Render(v.Title))
	fmt.Println(dimStyle.Render(fmt.Sprintf("%s  status=%s  provider=%s  seed=%d", v.ID, v.Status, v.Metadata.Provider, v.Metadata.Seed)))
	fmt.Println(v.Description)
	fmt.Println()

	for _, d := range t.Dialogues {
		printTurn(d.Turn())
	}
	if v.Conclusion != "" {
		printTurn(script.DialogueTurn{QuestionNumber: audio.ConclusionNumber, Role: script.RoleInterviewer, Text: v.Conclusion})
	}
	if v.Metadata.VideoPath != "" {
		fmt.Println(successStyle.Render("video: " + v.Metadata.VideoPath))
	}
	return nil
}
