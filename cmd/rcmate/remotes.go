package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/rcmate/rcmate/internal/flow"
	"github.com/rcmate/rcmate/internal/remotes"
	"github.com/rcmate/rcmate/internal/settings"
	"github.com/rcmate/rcmate/internal/validate"
)

func newRemotesCommand() *cobra.Command {
	remotesCmd := &cobra.Command{
		Use:           "remotes",
		Short:         "Inspect and configure backend remotes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	listCmd := &cobra.Command{
		Use:           "list",
		Short:         "List configured remotes",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          remotesList,
	}
	listCmd.Flags().Bool("long", false, "Show remote types and parameters")

	providersCmd := &cobra.Command{
		Use:           "providers",
		Short:         "List remote types the backend supports",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          remotesProviders,
	}
	providersCmd.Flags().Bool("refresh", false, "Drop the cached provider list and fetch a fresh one")

	createCmd := &cobra.Command{
		Use:           "create <name>",
		Short:         "Create a remote",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          remotesCreate,
	}
	createCmd.Example = `  # One-shot creation for providers that need no interaction
  rcmate remotes create backup --type sftp --param host=nas.local --param user=sync

  # Guided creation for OAuth-style providers
  rcmate remotes create gdrive --type drive --interactive`
	createCmd.Flags().String("type", "", "Provider type (see 'rcmate remotes providers')")
	createCmd.Flags().StringArray("param", nil, "Provider parameter key=value (repeatable)")
	createCmd.Flags().Bool("interactive", false, "Walk through the provider's configuration questions")
	createCmd.Flags().Bool("obscure", false, "Obscure password parameters before sending")
	createCmd.Flags().Bool("no-obscure", false, "Send password parameters as-is")

	updateCmd := &cobra.Command{
		Use:           "update <name>",
		Short:         "Update parameters of an existing remote",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          remotesUpdate,
	}
	updateCmd.Flags().StringArray("param", nil, "Provider parameter key=value (repeatable)")

	deleteCmd := &cobra.Command{
		Use:           "delete <name>",
		Short:         "Delete a remote",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          remotesDelete,
	}

	remotesCmd.AddCommand(listCmd, providersCmd, createCmd, updateCmd, deleteCmd)
	return remotesCmd
}

func remotesList(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)
	long, _ := cmd.Flags().GetBool("long")

	app, err := newApp(cmd)
	if err != nil {
		return out.Error("Failed to connect to backend", err)
	}
	defer app.cleanup()

	ctx := cmd.Context()

	if long {
		configured, err := app.remotes.ListConfigured(ctx)
		if err != nil {
			return out.Error("Failed to list remotes", err)
		}
		if out.jsonMode {
			return out.Print(map[string]interface{}{"remotes": configured})
		}
		if len(configured) == 0 {
			fmt.Println("No remotes configured")
			return nil
		}
		for _, r := range configured {
			fmt.Printf("%s (%s)\n", r.Name, r.Type)
			for k, v := range r.Params {
				fmt.Printf("    %s = %v\n", k, v)
			}
		}
		return nil
	}

	names, err := app.remotes.List(ctx)
	if err != nil {
		return out.Error("Failed to list remotes", err)
	}
	if out.jsonMode {
		return out.Print(map[string]interface{}{"remotes": names})
	}
	if len(names) == 0 {
		fmt.Println("No remotes configured")
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func remotesProviders(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)
	refresh, _ := cmd.Flags().GetBool("refresh")

	app, err := newApp(cmd)
	if err != nil {
		return out.Error("Failed to connect to backend", err)
	}
	defer app.cleanup()

	ctx := cmd.Context()
	if refresh {
		dropCachedProviders(ctx, app.store, app.connName)
	}

	providers, err := app.remotes.Providers(ctx)
	if err != nil {
		if !refresh {
			if cached, ok := cachedProviders(ctx, app.store, app.connName); ok {
				fmt.Fprintln(os.Stderr, "Backend unreachable, showing cached provider list")
				return printProviders(out, cached)
			}
		}
		return out.Error("Failed to list providers", err)
	}
	cacheProviders(ctx, app.store, app.connName, providers)

	return printProviders(out, providers)
}

func printProviders(out *OutputFormatter, providers []remotes.Provider) error {
	if out.jsonMode {
		return out.Print(map[string]interface{}{"providers": providers})
	}

	for _, p := range providers {
		if p.Description != "" {
			fmt.Printf("%-16s %s\n", p.Name, p.Description)
		} else {
			fmt.Println(p.Name)
		}
	}
	return nil
}

func remotesCreate(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)
	name := args[0]

	if !validate.RemoteName(name) {
		return out.Error("Invalid remote name", fmt.Errorf("%q must start with a letter or digit and contain only letters, digits, dots, hyphens and underscores", name))
	}

	typ, _ := cmd.Flags().GetString("type")
	if typ == "" {
		return out.Error("Missing provider type", fmt.Errorf("--type is required"))
	}

	rawParams, _ := cmd.Flags().GetStringArray("param")
	params, err := parseParams(rawParams)
	if err != nil {
		return out.Error("Invalid --param value", err)
	}

	app, err := newApp(cmd)
	if err != nil {
		return out.Error("Failed to connect to backend", err)
	}
	defer app.cleanup()

	interactive, _ := cmd.Flags().GetBool("interactive")
	if !interactive {
		if err := app.remotes.Create(cmd.Context(), name, typ, params); err != nil {
			return out.Error("Failed to create remote", err)
		}
		return out.Success(fmt.Sprintf("Remote %s created", name), map[string]interface{}{
			"name": name,
			"type": typ,
		})
	}

	obscure, _ := cmd.Flags().GetBool("obscure")
	noObscure, _ := cmd.Flags().GetBool("no-obscure")
	flags := remotes.Flags{Obscure: obscure, NoObscure: noObscure, All: true}

	if err := runInteractiveCreate(cmd.Context(), app, name, typ, params, flags); err != nil {
		return out.Error("Interactive configuration failed", err)
	}
	return out.Success(fmt.Sprintf("Remote %s configured", name), map[string]interface{}{
		"name": name,
		"type": typ,
	})
}

// runInteractiveCreate walks the provider's question rounds on the
// terminal. EOF or an explicit "q" answer cancels without persisting.
func runInteractiveCreate(ctx context.Context, app *app, name, typ string, params map[string]any, flags remotes.Flags) error {
	f := flow.New(app.remotes, app.settings, app.jobs, flow.WithFlags(flags))
	staged := settings.RemoteSettings{Name: name, Type: typ}

	if err := f.Start(ctx, staged, params); err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	for f.Active() {
		q := f.Question()
		printQuestion(q)

		answer, cancelled, err := promptAnswer(reader, q.Option, f.Answer())
		if err != nil {
			f.Cancel(ctx)
			return err
		}
		if cancelled {
			f.Cancel(ctx)
			fmt.Println("Configuration cancelled")
			return nil
		}

		f.SetAnswer(answer)
		if !f.CanContinue() {
			fmt.Println("An answer is required for this question.")
			continue
		}
		if err := f.Submit(ctx); err != nil {
			return err
		}
	}

	return nil
}

func printQuestion(q *remotes.Question) {
	if q == nil || q.Option == nil {
		return
	}
	opt := q.Option

	fmt.Println()
	if opt.Help != "" {
		fmt.Println(opt.Help)
	}
	for _, ex := range opt.Examples {
		if ex.Help != "" {
			fmt.Printf("  %s - %s\n", ex.Value, ex.Help)
		} else {
			fmt.Printf("  %s\n", ex.Value)
		}
	}
}

// promptAnswer reads one answer from the terminal. Password questions are
// read without echo. An empty line keeps the suggested default.
func promptAnswer(reader *bufio.Reader, opt *remotes.Option, suggested any) (any, bool, error) {
	label := "answer"
	if opt != nil && opt.Name != "" {
		label = opt.Name
	}

	if opt != nil && opt.IsPassword {
		fmt.Printf("%s (input hidden): ", label)
		raw, err := terminal.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return nil, false, fmt.Errorf("read password: %w", err)
		}
		return string(raw), false, nil
	}

	if suggested != nil && suggested != "" {
		fmt.Printf("%s [%v] (q to cancel): ", label, suggested)
	} else {
		fmt.Printf("%s (q to cancel): ", label)
	}

	line, err := reader.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			return nil, true, nil
		}
		return nil, false, err
	}

	line = strings.TrimSpace(line)
	switch {
	case line == "q":
		return nil, true, nil
	case line == "":
		return suggested, false, nil
	}

	if opt != nil && opt.Type == "bool" {
		switch strings.ToLower(line) {
		case "y", "yes", "true":
			return true, false, nil
		case "n", "no", "false":
			return false, false, nil
		}
	}
	return line, false, nil
}

func remotesUpdate(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)
	name := args[0]

	rawParams, _ := cmd.Flags().GetStringArray("param")
	params, err := parseParams(rawParams)
	if err != nil {
		return out.Error("Invalid --param value", err)
	}
	if len(params) == 0 {
		return out.Error("Nothing to update", fmt.Errorf("at least one --param is required"))
	}

	app, err := newApp(cmd)
	if err != nil {
		return out.Error("Failed to connect to backend", err)
	}
	defer app.cleanup()

	if err := app.remotes.Update(cmd.Context(), name, params); err != nil {
		return out.Error("Failed to update remote", err)
	}
	return out.Success(fmt.Sprintf("Remote %s updated", name), map[string]interface{}{
		"name": name,
	})
}

func remotesDelete(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)
	name := args[0]

	app, err := newApp(cmd)
	if err != nil {
		return out.Error("Failed to connect to backend", err)
	}
	defer app.cleanup()

	if err := app.remotes.Delete(cmd.Context(), name); err != nil {
		return out.Error("Failed to delete remote", err)
	}
	return out.Success(fmt.Sprintf("Remote %s deleted", name), map[string]interface{}{
		"name": name,
	})
}
