package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"interviewcast/internal/app"
)

var renderCmd = &cobra.Command{
	Use:   "render VIDEO_ID",
	Short: "Render audio and video for a stored transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	service, cleanup, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	var result *app.RenderResult
	err = runWithSpinner("Rendering "+args[0], func() error {
		var renderErr error
		result, renderErr = app.NewPipeline(service).Render(ctx, args[0])
		return renderErr
	})
	if err != nil {
		return err
	}

	fmt.Println(infoStyle.Render(fmt.Sprintf("%d segments, %.1fs", result.Segments, result.Duration)))
	fmt.Println(dimStyle.Render("audio:     " + result.AudioPath))
	fmt.Println(dimStyle.Render("subtitles: " + result.SubtitlePath))
	if result.VideoPath != "" {
		fmt.Println(dimStyle.Render("video:     " + result.VideoPath))
	}
	for name, url := range result.Artifacts {
		fmt.Println(dimStyle.Render(fmt.Sprintf("uploaded:  %s → %s", name, url)))
	}
	return nil
}
