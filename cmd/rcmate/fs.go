package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rcmate/rcmate/internal/commands"
	"github.com/rcmate/rcmate/internal/dispatch"
	rcmateversion "github.com/rcmate/rcmate/internal/version"
)

type listEntry struct {
	Path    string `json:"Path"`
	Name    string `json:"Name"`
	Size    int64  `json:"Size"`
	IsDir   bool   `json:"IsDir"`
	ModTime string `json:"ModTime"`
}

type diskUsage struct {
	Total int64 `json:"total"`
	Used  int64 `json:"used"`
	Free  int64 `json:"free"`
}

type backendVersion struct {
	Version string `json:"version"`
}

func newLsCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "ls <remote:path>",
		Short:         "List a directory on a remote",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          listPath,
	}
}

func listPath(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	app, err := newApp(cmd)
	if err != nil {
		return out.Error("Failed to connect to backend", err)
	}
	defer app.cleanup()

	type listResult struct {
		List []listEntry `json:"list"`
	}
	result, err := dispatch.Call[listResult](cmd.Context(), app.dispatcher, commands.ListPath, map[string]any{
		"path": args[0],
	})
	if err != nil {
		return out.Error("Failed to list path", err)
	}

	if out.jsonMode {
		return out.Print(result)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, entry := range result.List {
		if entry.IsDir {
			fmt.Fprintf(w, "-\t%s/\n", entry.Name)
		} else {
			fmt.Fprintf(w, "%s\t%s\n", formatBytes(entry.Size), entry.Name)
		}
	}
	return w.Flush()
}

func newAboutCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "about <remote:>",
		Short:         "Show filesystem info and disk usage of a remote",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          aboutRemote,
	}
}

func aboutRemote(cmd *cobra.Command, args []string) error {
	out := newOutputFormatter(cmd)

	app, err := newApp(cmd)
	if err != nil {
		return out.Error("Failed to connect to backend", err)
	}
	defer app.cleanup()

	ctx := cmd.Context()
	info, err := fetchFsInfo(ctx, app, args[0])
	if err != nil {
		return out.Error("Failed to fetch filesystem info", err)
	}

	usage, usageErr := dispatch.Call[diskUsage](ctx, app.dispatcher, commands.GetDiskUsage, map[string]any{
		"path": args[0],
	})
	backend, backendErr := dispatch.Call[backendVersion](ctx, app.dispatcher, commands.GetBackendVersion, nil)
	if backendErr == nil {
		if warning := rcmateversion.CheckBackendMismatch(backend.Version); warning != "" {
			fmt.Fprintln(os.Stderr, warning)
		}
	}

	if out.jsonMode {
		payload := map[string]interface{}{"info": info}
		if usageErr == nil {
			payload["usage"] = usage
		}
		if backendErr == nil {
			payload["backend"] = backend.Version
		}
		return out.Print(payload)
	}

	fmt.Printf("Name: %v\n", info["Name"])
	if features, ok := info["Features"].(map[string]any); ok {
		fmt.Printf("Features: %d reported\n", len(features))
	}
	if backendErr == nil && backend.Version != "" {
		fmt.Printf("Backend: %s\n", backend.Version)
	}
	if usageErr == nil {
		if usage.Total > 0 {
			fmt.Printf("Total: %s\n", formatBytes(usage.Total))
		}
		if usage.Used > 0 {
			fmt.Printf("Used: %s\n", formatBytes(usage.Used))
		}
		if usage.Free > 0 {
			fmt.Printf("Free: %s\n", formatBytes(usage.Free))
		}
	}
	return nil
}

func fetchFsInfo(ctx context.Context, app *app, path string) (map[string]any, error) {
	return dispatch.Call[map[string]any](ctx, app.dispatcher, commands.GetFsInfo, map[string]any{
		"path": path,
	})
}
