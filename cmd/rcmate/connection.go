package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/rcmate/rcmate/internal/config/store"
	"github.com/rcmate/rcmate/internal/validate"
)

func newConnectionCommand() *cobra.Command {
	connectionCmd := &cobra.Command{
		Use:           "connection",
		Short:         "Manage stored backend connections",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	listCmd := &cobra.Command{
		Use:           "list",
		Short:         "List stored connections",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          connectionList,
	}

	addCmd := &cobra.Command{
		Use:           "add <name>",
		Short:         "Add or update a connection",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          connectionAdd,
	}
	addCmd.Flags().String("url", "", "Backend base URL (e.g. http://localhost:5572)")
	addCmd.Flags().String("token", "", "API token (omit to be prompted without echo)")
	addCmd.Flags().String("engine-url", "", "Engine control channel URL (advanced)")
	addCmd.Flags().Bool("use", false, "Make this the default connection")
	addCmd.Flags().Bool("prompt-token", false, "Prompt for the API token without echo")

	useCmd := &cobra.Command{
		Use:           "use <name>",
		Short:         "Make the named connection the default",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          connectionUse,
	}

	removeCmd := &cobra.Command{
		Use:           "remove <name>",
		Short:         "Remove a stored connection",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          connectionRemove,
	}

	connectionCmd.AddCommand(listCmd, addCmd, useCmd, removeCmd)
	return connectionCmd
}

func openConnectionStore() (*store.Store, context.Context, context.CancelFunc, error) {
	s, err := store.Open(store.Options{})
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	return s, ctx, cancel, nil
}

func connectionList(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	s, ctx, cancel, err := openConnectionStore()
	if err != nil {
		return out.Error("Failed to open configuration store", err)
	}
	defer s.Close()
	defer cancel()

	connections, err := s.Connections(ctx)
	if err != nil {
		return out.Error("Failed to list connections", err)
	}

	if out.jsonMode {
		masked := make([]map[string]interface{}, 0, len(connections))
		for _, c := range connections {
			masked = append(masked, map[string]interface{}{
				"name":       c.Name,
				"base_url":   c.BaseURL,
				"engine_url": c.EngineURL,
				"has_token":  c.APIToken != "",
				"is_default": c.IsDefault,
			})
		}
		return out.Print(map[string]interface{}{"connections": masked})
	}

	if len(connections) == 0 {
		fmt.Println("No stored connections")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tURL\tTOKEN\tDEFAULT")
	for _, c := range connections {
		url := c.BaseURL
		if c.EngineURL != "" {
			url = c.EngineURL + " (engine)"
		}
		token := "-"
		if c.APIToken != "" {
			token = "set"
		}
		def := ""
		if c.IsDefault {
			def = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Name, url, token, def)
	}
	return w.Flush()
}

func connectionAdd(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)
	name := args[0]

	url, _ := cmd.Flags().GetString("url")
	token, _ := cmd.Flags().GetString("token")
	engineURL, _ := cmd.Flags().GetString("engine-url")
	makeDefault, _ := cmd.Flags().GetBool("use")
	promptToken, _ := cmd.Flags().GetBool("prompt-token")

	if url == "" && engineURL == "" {
		return out.Error("Missing backend address", fmt.Errorf("--url or --engine-url is required"))
	}
	if url != "" {
		if err := validate.HTTPURL(url); err != nil {
			return out.Error("Invalid backend URL", err)
		}
	}
	if engineURL != "" {
		if err := validate.EngineURL(engineURL); err != nil {
			return out.Error("Invalid engine URL", err)
		}
	}

	if promptToken && token == "" {
		fmt.Print("API token (input hidden): ")
		raw, err := terminal.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return out.Error("Failed to read token", err)
		}
		token = strings.TrimSpace(string(raw))
	}

	s, ctx, cancel, err := openConnectionStore()
	if err != nil {
		return out.Error("Failed to open configuration store", err)
	}
	defer s.Close()
	defer cancel()

	conn := store.Connection{
		Name:      name,
		BaseURL:   url,
		APIToken:  token,
		EngineURL: engineURL,
		IsDefault: makeDefault,
	}
	if err := s.SaveConnection(ctx, conn); err != nil {
		return out.Error("Failed to save connection", err)
	}
	if makeDefault {
		if err := s.ActivateConnection(ctx, name); err != nil {
			return out.Error("Failed to activate connection", err)
		}
	}

	return out.Success(fmt.Sprintf("Connection %s saved", name), map[string]interface{}{
		"name":    name,
		"default": makeDefault,
	})
}

func connectionUse(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	s, ctx, cancel, err := openConnectionStore()
	if err != nil {
		return out.Error("Failed to open configuration store", err)
	}
	defer s.Close()
	defer cancel()

	if err := s.ActivateConnection(ctx, args[0]); err != nil {
		return out.Error("Failed to activate connection", err)
	}
	return out.Success(fmt.Sprintf("Connection %s is now the default", args[0]), map[string]interface{}{
		"name": args[0],
	})
}

func connectionRemove(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	s, ctx, cancel, err := openConnectionStore()
	if err != nil {
		return out.Error("Failed to open configuration store", err)
	}
	defer s.Close()
	defer cancel()

	if err := s.DeleteConnection(ctx, args[0]); err != nil {
		return out.Error("Failed to remove connection", err)
	}
	return out.Success(fmt.Sprintf("Connection %s removed", args[0]), map[string]interface{}{
		"name": args[0],
	})
}
