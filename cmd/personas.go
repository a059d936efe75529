package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"interviewcast/internal/persona"
)

var (
	personaLang string
	personaType string
	personaAll  bool

	addName        string
	addType        string
	addSpecialty   string
	addVoice       string
	addLanguage    string
	addTraits      string
	addDescription string
)

var personasCmd = &cobra.Command{
	Use:     "personas",
	Aliases: []string{"persona"},
	Short:   "Manage the persona catalog",
}

var personasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List personas",
	RunE:  runPersonasList,
}

var personasInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Seed the default personas",
	RunE:  runPersonasInit,
}

var personasAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a persona",
	Long:  "Add a persona from flags. Without --name an interactive form is shown.",
	RunE:  runPersonasAdd,
}

var personasRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Deactivate a persona",
	Args:  cobra.ExactArgs(1),
	RunE:  runPersonasRemove,
}

func init() {
	personasListCmd.Flags().StringVarP(&personaLang, "lang", "l", "", "Filter by language")
	personasListCmd.Flags().StringVar(&personaType, "type", "", "Filter by type (interviewer, candidate)")
	personasListCmd.Flags().BoolVarP(&personaAll, "all", "a", false, "Include inactive personas")

	personasAddCmd.Flags().StringVar(&addName, "name", "", "Display name")
	personasAddCmd.Flags().StringVar(&addType, "type", "interviewer", "Persona type (interviewer, candidate)")
	personasAddCmd.Flags().StringVar(&addSpecialty, "specialty", "", "Specialty (interviewers only)")
	personasAddCmd.Flags().StringVar(&addVoice, "voice", "", "Voice id")
	personasAddCmd.Flags().StringVar(&addLanguage, "lang", "en", "Language code")
	personasAddCmd.Flags().StringVar(&addTraits, "traits", "", "Comma separated personality traits")
	personasAddCmd.Flags().StringVar(&addDescription, "description", "", "Free text description")

	personasCmd.AddCommand(personasListCmd, personasInitCmd, personasAddCmd, personasRemoveCmd)
	rootCmd.AddCommand(personasCmd)
}

func runPersonasList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	service, cleanup, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	filter := persona.Filter{ActiveOnly: !personaAll, Language: strings.ToLower(personaLang)}
	if personaType != "" {
		if filter.Type, err = persona.ParseType(personaType); err != nil {
			return err
		}
	}

	list, err := service.Personas().List(ctx, filter)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println(warnStyle.Render("No personas found. Run `interviewcast personas init` to seed the defaults."))
		return nil
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Personas (%d)", len(list))))
	for _, p := range list {
		style := interviewerStyle
		if p.Type == persona.Candidate {
			style = candidateStyle
		}
		line := fmt.Sprintf("%-11s %-24s %-3s", p.Type, p.Name, p.Language)
		if p.Specialty != "" {
			line += " " + p.Specialty
		}
		if !p.Active {
			line += " (inactive)"
		}
		fmt.Println(style.Render(line))
		fmt.Println(dimStyle.Render(fmt.Sprintf("  %s  voice=%s  %s", p.ID, p.VoiceID, p.TraitList())))
	}
	return nil
}

func runPersonasInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	service, cleanup, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	var created []persona.Persona
	err = runWithSpinner("Seeding personas...", func() error {
		var initErr error
		created, initErr = persona.Initialize(ctx, service.Personas())
		return initErr
	})
	if err != nil {
		return err
	}
	if len(created) == 0 {
		fmt.Println(infoStyle.Render("Catalog already holds every default persona"))
		return nil
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Created %d personas", len(created))))
	return nil
}

func runPersonasAdd(cmd *cobra.Command, args []string) error {
	if addName == "" {
		if !interactive() {
			return errors.New("--name is required when not running in a terminal")
		}
		if err := personaForm().Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return err
		}
	}

	typ, err := persona.ParseType(addType)
	if err != nil {
		return err
	}
	in := persona.Input{
		Name:        addName,
		Type:        typ,
		Specialty:   addSpecialty,
		VoiceID:     addVoice,
		Language:    addLanguage,
		Traits:      strings.Split(addTraits, ","),
		Description: addDescription,
	}.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	service, cleanup, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := service.Personas().Create(ctx, in)
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Added %s %s (%s)", strings.ToLower(string(p.Type)), p.Name, p.ID)))
	return nil
}

func personaForm() *huh.Form {
	notEmpty := func(field string) func(string) error {
		return func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", field)
			}
			return nil
		}
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(&addName).Validate(notEmpty("name")),
			huh.NewSelect[string]().
				Title("Type").
				Options(
					huh.NewOption("Interviewer", "interviewer"),
					huh.NewOption("Candidate", "candidate"),
				).
				Value(&addType),
			huh.NewInput().Title("Language").Value(&addLanguage).Validate(notEmpty("language")),
			huh.NewInput().Title("Voice id").Value(&addVoice).Validate(notEmpty("voice id")),
		),
		huh.NewGroup(
			huh.NewInput().Title("Specialty").Description("Ignored for candidates").Value(&addSpecialty),
			huh.NewInput().Title("Traits").Description("Comma separated").Value(&addTraits),
			huh.NewText().Title("Description").Value(&addDescription),
		),
	)
}

func runPersonasRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	service, cleanup, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	ok, err := service.Personas().SoftDelete(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", persona.ErrNotFound, args[0])
	}
	fmt.Println(successStyle.Render("✓ Deactivated " + args[0]))
	return nil
}
