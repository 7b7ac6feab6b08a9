package command

import (
	"errors"
	"fmt"
	"os"

	"github.com/adamavenir/hark/internal/core"
	"github.com/spf13/cobra"
)

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           core.AppName,
		Short:         "hark - your mentions inbox in the terminal",
		Long:          "hark shows the messages that mention you across your servers, with filters for role and @everyone mentions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(core.AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("config", "", "path to config.toml")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")
	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	cmd.AddCommand(
		NewMentionsCmd(),
		NewGuildCmd(),
		NewConfigCmd(),
	)

	return cmd
}

func Execute() error {
	cmd := NewRootCmd(Version)
	err := cmd.Execute()
	var reported *reportedError
	if err != nil && !errors.As(err, &reported) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
	}
	return err
}
