package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcmate/rcmate/internal/settings"
)

func newSettingsCommand() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:           "settings",
		Short:         "Inspect per-remote operation settings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	showCmd := &cobra.Command{
		Use:           "show <remote>",
		Short:         "Show the stored settings for a remote",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          settingsShow,
	}

	deleteCmd := &cobra.Command{
		Use:           "delete <remote>",
		Short:         "Delete the stored settings for a remote",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          settingsDelete,
	}

	settingsCmd.AddCommand(showCmd, deleteCmd)
	return settingsCmd
}

func settingsShow(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	app, err := newApp(cmd)
	if err != nil {
		return out.Error("Failed to connect to backend", err)
	}
	defer app.cleanup()

	rs, err := app.settings.Load(cmd.Context(), args[0])
	if err != nil {
		return out.Error("Failed to load settings", err)
	}

	if out.jsonMode {
		return out.Print(rs)
	}

	fmt.Printf("Settings for %s (%s):\n", rs.Name, rs.Type)
	printOperation("mount", rs.Mount.AutoStart, rs.Mount.Source != nil || rs.Mount.MountPoint != "")
	printTransfer("sync", rs.Sync)
	printTransfer("copy", rs.Copy)
	printTransfer("bisync", rs.Bisync)
	printTransfer("move", rs.Move)
	return nil
}

func printTransfer(name string, cfg settings.TransferConfig) {
	printOperation(name, cfg.AutoStart, cfg.Source != nil || cfg.Dest != nil)
}

func printOperation(name string, autoStart, configured bool) {
	state := "not configured"
	if configured {
		state = "configured"
	}
	if autoStart {
		state += ", auto-start"
	}
	fmt.Printf("  %-8s %s\n", name, state)
}

func settingsDelete(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	app, err := newApp(cmd)
	if err != nil {
		return out.Error("Failed to connect to backend", err)
	}
	defer app.cleanup()

	if err := app.settings.Delete(cmd.Context(), args[0]); err != nil {
		return out.Error("Failed to delete settings", err)
	}
	return out.Success(fmt.Sprintf("Settings for %s deleted", args[0]), map[string]interface{}{
		"remote": args[0],
	})
}
