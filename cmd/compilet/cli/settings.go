package cli

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/yutopp/compilet/pkg/config"
	"github.com/yutopp/compilet/pkg/domain"
	"github.com/yutopp/compilet/pkg/language"
)

var saveLocation string
var force bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Write a settings file with the default languages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := config.NewSettingsFromFile(settingsPath)

		settings, err := repo.Load()
		if err != nil {
			return err
		}
		if force {
			settings = domain.DefaultSettings()
		}
		if cmd.Flags().Changed("save-location") {
			settings.Preferences.SaveLocation = saveLocation
		}
		for _, name := range []domain.LanguageName{
			domain.LanguageCpp, domain.LanguageC, domain.LanguagePython, domain.LanguageRust,
		} {
			flag := string(name) + "-args"
			if !cmd.Flags().Changed(flag) {
				continue
			}
			v, err := cmd.Flags().GetStringSlice(flag)
			if err != nil {
				return err
			}
			if settings.Preferences.Args == nil {
				settings.Preferences.Args = map[domain.LanguageName][]string{}
			}
			settings.Preferences.Args[name] = v
		}

		if _, err := language.NewTable(settings.Extensions); err != nil {
			return errors.Wrap(err, "refusing to save")
		}
		if err := repo.Save(settings); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "settings written to %s\n", settingsPath)
		return nil
	},
}

func init() {
	settingsCmd.Flags().StringVar(&saveLocation, "save-location", "", "directory for compiled binaries (empty: next to the source)")
	settingsCmd.Flags().BoolVar(&force, "reset", false, "start from the default settings")
	settingsCmd.Flags().StringSlice("cpp-args", nil, "extra g++ arguments")
	settingsCmd.Flags().StringSlice("c-args", nil, "extra gcc arguments")
	settingsCmd.Flags().StringSlice("python-args", nil, "extra python arguments")
	settingsCmd.Flags().StringSlice("rust-args", nil, "extra rustc arguments")

	rootCmd.AddCommand(settingsCmd)
}
