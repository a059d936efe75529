package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove rendered output",
	Long:  `Delete every rendered session under the configured audio output directory. Stored transcripts are kept.`,
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Skip confirmation")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}

	dir := cfg.Audio.OutputDir
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) || len(entries) == 0 {
		fmt.Println(infoStyle.Render("Nothing to clear in " + dir))
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}

	if !clearYes {
		if !interactive() {
			return fmt.Errorf("refusing to delete %d entries from %s without --yes", len(entries), dir)
		}
		confirmed := false
		err := huh.NewConfirm().
			Title(fmt.Sprintf("Delete %d entries from %s?", len(entries), dir)).
			Value(&confirmed).
			Run()
		if err != nil && !errors.Is(err, huh.ErrUserAborted) {
			return err
		}
		if !confirmed {
			return nil
		}
	}

	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Cleared %d entries", len(entries))))
	return nil
}
