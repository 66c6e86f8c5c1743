package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yutopp/compilet/pkg/config"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported languages and their file extensions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := config.NewSettingsFromFile(settingsPath).LoadTable()
		if err != nil {
			return err
		}

		for _, e := range table.Entries() {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s (.%s)\n", e.Language, e.Extension); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}
