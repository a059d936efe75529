package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	successStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	interviewerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	candidateStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// interactive reports whether stdin and stdout are both terminals, so that
// forms and spinners can draw.
func interactive() bool {
	isTTY := func(f *os.File) bool {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return isTTY(os.Stdin) && isTTY(os.Stdout)
}

func runWithSpinner(title string, fn func() error) error {
	var err error
	if interactive() {
		_ = spinner.New().
			Title(title).
			Action(func() { err = fn() }).
			Run()
	} else {
		fmt.Println(dimStyle.Render(title))
		err = fn()
	}
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ " + title))
	return nil
}
