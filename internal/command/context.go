package command

import (
	"github.com/adamavenir/hark/internal/app"
	"github.com/spf13/cobra"
)

// CommandContext provides shared command resources.
type CommandContext struct {
	*app.App
	JSONMode bool
}

// GetContext opens hark's services for a command. Callers must Close it.
func GetContext(cmd *cobra.Command) (*CommandContext, error) {
	configPath, _ := cmd.Flags().GetString("config")
	jsonMode, _ := cmd.Flags().GetBool("json")
	debug, _ := cmd.Flags().GetBool("debug")

	a, err := app.Open(app.Options{ConfigPath: configPath, Debug: debug})
	if err != nil {
		return nil, err
	}
	return &CommandContext{App: a, JSONMode: jsonMode}, nil
}
