package command

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/adamavenir/hark/internal/core"
	"github.com/adamavenir/hark/internal/db"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config [key] [value]",
		Short: "Get or set configuration",
		Long:  "Without arguments prints every setting. Keys use dots for sections, e.g. rate_limit.rps or toasts.desktop.",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			if len(args) == 0 {
				entries := ctx.Config.Entries()
				cached, err := db.GetAllConfig(ctx.DB)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				if ctx.JSONMode {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
						"path":   ctx.ConfigPath,
						"config": entries,
						"cache":  cached,
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Configuration (%s):\n", ctx.ConfigPath)
				for _, entry := range entries {
					fmt.Fprintf(out, "  %s: %s\n", entry.Key, entry.Value)
				}
				if len(cached) > 0 {
					fmt.Fprintln(out, "Cached:")
					for _, entry := range cached {
						fmt.Fprintf(out, "  %s: %s\n", entry.Key, entry.Value)
					}
				}
				return nil
			}

			key := normalizeConfigKey(args[0])
			if len(args) == 1 {
				entry, ok := findEntry(ctx.Config.Entries(), key)
				if !ok {
					return writeCommandError(cmd, errors.Errorf("config key '%s' not found", args[0]))
				}
				if ctx.JSONMode {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{entry.Key: entry.Value})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", entry.Key, entry.Value)
				return nil
			}

			fileCfg, err := core.LoadConfigFile(ctx.ConfigPath)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if err := fileCfg.Set(key, args[1]); err != nil {
				return writeCommandError(cmd, err)
			}
			if err := core.SaveConfig(ctx.ConfigPath, *fileCfg); err != nil {
				return writeCommandError(cmd, errors.Wrap(err, "save config"))
			}
			if key == "token" {
				// A new token may belong to another user.
				if err := db.SetConfig(ctx.DB, db.ConfigSelfUserID, ""); err != nil {
					return writeCommandError(cmd, err)
				}
			}

			shown := args[1]
			if key == "token" {
				shown = "<set>"
			}
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{key: shown})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, shown)
			return nil
		},
	}

	return cmd
}

func findEntry(entries []core.ConfigEntry, key string) (core.ConfigEntry, bool) {
	for _, entry := range entries {
		if entry.Key == key {
			return entry, true
		}
	}
	return core.ConfigEntry{}, false
}

func normalizeConfigKey(value string) string {
	return strings.ReplaceAll(strings.TrimSpace(value), "-", "_")
}
