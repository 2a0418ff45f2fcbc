package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/conexus/pkg/cli"
	"github.com/newtron-network/conexus/pkg/settings"
	"github.com/newtron-network/conexus/pkg/util"
)

func newSettingsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage persistent settings",
		Long: `Manage persistent settings stored in ~/.conexus/settings.json
(or the file named by CONEXUS_SETTINGS).

Settings are defaults for the flags of the same name. A flag or
environment variable always wins over a setting. The password is never
stored.

Examples:
  conexus settings show
  conexus settings set os-auth-url https://keystone.example.net:5000/v3
  conexus settings set backend lab
  conexus settings clear`,
	}
	cmd.AddCommand(
		newSettingsShowCmd(app),
		newSettingsGetCmd(app),
		newSettingsSetCmd(app),
		newSettingsClearCmd(app),
		newSettingsPathCmd(app),
	)
	return cmd
}

func loadSettings() (*settings.Settings, error) {
	s, err := settings.Load()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return s, nil
}

func newSettingsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}

			fmt.Fprintf(app.out, "Settings file: %s\n\n", cli.Bold(settings.DefaultSettingsPath()))

			t := cli.NewTable("SETTING", "VALUE").WithWriter(app.out)
			for _, key := range settings.Keys {
				value, _ := s.Get(key)
				if value == "" {
					value = cli.Dim("(not set)")
				}
				t.Row(key, value)
			}
			t.Flush()
			return nil
		},
	}
}

func newSettingsGetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "get <setting>",
		Short: "Get a setting value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			value, err := s.Get(args[0])
			if err != nil {
				return err
			}
			if value == "" {
				value = "(not set)"
			}
			fmt.Fprintln(app.out, value)
			return nil
		},
	}
}

func newSettingsSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <setting> <value>",
		Short: "Set a setting value",
		Long: `Set a persistent setting value. An empty value unsets it.

Available settings:
  ` + strings.Join(settings.Keys, "\n  "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if err := checkSetting(key, value); err != nil {
				return err
			}

			s, err := settings.Load()
			if err != nil {
				s = &settings.Settings{}
			}
			if err := s.Set(key, value); err != nil {
				return err
			}
			if err := s.Save(); err != nil {
				return fmt.Errorf("saving settings: %w", err)
			}
			fmt.Fprintf(app.out, "%s set to: %s\n", key, value)
			return nil
		},
	}
}

// checkSetting rejects values the matching flag would reject.
func checkSetting(key, value string) error {
	if value == "" {
		return nil
	}
	switch key {
	case flagBackend:
		if value != backendOpenStack && value != backendLab {
			return fmt.Errorf("%w: unknown backend %q (valid: %s, %s)", util.ErrInvalidConfig, value, backendOpenStack, backendLab)
		}
	case flagNaming:
		if _, err := util.ParseNamingScheme(value); err != nil {
			return err
		}
	}
	return nil
}

func newSettingsClearCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Reset all settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := &settings.Settings{}
			s.Clear()
			if err := s.Save(); err != nil {
				return fmt.Errorf("saving settings: %w", err)
			}
			fmt.Fprintln(app.out, "Settings cleared.")
			return nil
		},
	}
}

func newSettingsPathCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the settings file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(app.out, settings.DefaultSettingsPath())
		},
	}
}
