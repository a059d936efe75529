package video

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Stitcher joins turn audio files into one MP3 with a fixed pause between
// consecutive files.
type Stitcher struct {
	runner Runner
	ffmpeg string
}

func NewStitcher(runner Runner, ffmpegPath string) *Stitcher {
	if runner == nil {
		runner = ExecRunner{}
	}
	if ffmpegPath == "" {
		ffmpegPath = DefaultFFmpegPath
	}
	return &Stitcher{runner: runner, ffmpeg: ffmpegPath}
}

func (s *Stitcher) Concat(ctx context.Context, inputs []string, pause time.Duration, output string) error {
	args, err := ConcatArgs(inputs, pause, output)
	if err != nil {
		return err
	}
	if _, err := s.runner.Run(ctx, s.ffmpeg, args...); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %w", err)
	}
	return nil
}

// ConcatArgs pads every input but the last with pause of silence and runs
// them through the concat filter. Inputs may mix WAV and MP3.
func ConcatArgs(inputs []string, pause time.Duration, output string) ([]string, error) {
	if len(inputs) == 0 {
		return nil, errors.New("no audio files to concatenate")
	}

	args := []string{"-y"}
	for _, in := range inputs {
		args = append(args, "-i", in)
	}

	var filters []string
	var labels strings.Builder
	for i := range inputs {
		chain := fmt.Sprintf("[%d:a]aresample=44100,aformat=channel_layouts=mono", i)
		if i < len(inputs)-1 && pause > 0 {
			chain += fmt.Sprintf(",apad=pad_dur=%.3f", pause.Seconds())
		}
		filters = append(filters, fmt.Sprintf("%s[a%d]", chain, i))
		fmt.Fprintf(&labels, "[a%d]", i)
	}
	filters = append(filters, fmt.Sprintf("%sconcat=n=%d:v=0:a=1[out]", labels.String(), len(inputs)))

	args = append(args,
		"-filter_complex", strings.Join(filters, ";"),
		"-map", "[out]",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		output,
	)
	return args, nil
}
