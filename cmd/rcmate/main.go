package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcmate/rcmate/internal/config"
	"github.com/rcmate/rcmate/internal/config/store"
	"github.com/rcmate/rcmate/internal/dispatch"
	"github.com/rcmate/rcmate/internal/eventbus"
	"github.com/rcmate/rcmate/internal/jobs"
	"github.com/rcmate/rcmate/internal/remotes"
	"github.com/rcmate/rcmate/internal/settings"
	"github.com/rcmate/rcmate/internal/sse"
	"github.com/rcmate/rcmate/internal/transport/bridge"
	"github.com/rcmate/rcmate/internal/transport/httprpc"
	rcmateversion "github.com/rcmate/rcmate/internal/version"
)

const dialTimeout = 10 * time.Second

// Global variables for use across commands
var rootCmd *cobra.Command

// OutputFormatter handles output in JSON or human-readable format
type OutputFormatter struct {
	jsonMode bool
}

// newOutputFormatter creates a new formatter based on the command's --json flag
func newOutputFormatter(cmd *cobra.Command) *OutputFormatter {
	jsonMode, _ := cmd.Flags().GetBool("json")
	return &OutputFormatter{jsonMode: jsonMode}
}

// Print outputs data in the appropriate format
func (f *OutputFormatter) Print(data interface{}) error {
	if f.jsonMode {
		jsonBytes, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(jsonBytes))
	} else {
		switch v := data.(type) {
		case string:
			fmt.Println(v)
		default:
			// Fallback to JSON for unknown types
			jsonBytes, _ := json.MarshalIndent(data, "", "  ")
			fmt.Println(string(jsonBytes))
		}
	}
	return nil
}

// Success outputs a success message
func (f *OutputFormatter) Success(message string, data map[string]interface{}) error {
	if f.jsonMode {
		output := map[string]interface{}{
			"success": true,
			"message": message,
		}
		for k, v := range data {
			output[k] = v
		}
		return f.Print(output)
	}
	fmt.Println(message)
	return nil
}

// Error outputs an error message
func (f *OutputFormatter) Error(message string, err error) error {
	if f.jsonMode {
		output := map[string]interface{}{
			"success": false,
			"error":   message,
		}
		if err != nil {
			output["details"] = err.Error()
		}
		jsonBytes, _ := json.MarshalIndent(output, "", "  ")
		fmt.Fprintln(os.Stderr, string(jsonBytes))
	} else {
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", message, err)
		} else {
			fmt.Fprintln(os.Stderr, message)
		}
	}
	return fmt.Errorf("%s: %w", message, err)
}

func init() {
	rootCmd = &cobra.Command{
		Use:   "rcmate",
		Short: "rcmate - Manage rclone remotes, transfers and mounts from the terminal",
		Long: `rcmate talks to a running rclone backend (rclone rcd) and lets you
configure remotes, launch sync/copy/move/bisync jobs, mount remotes and
follow live job events.

Connections are stored locally; environment variables RCMATE_BASE_URL,
RCMATE_API_TOKEN and RCMATE_ENGINE_URL override the stored connection.`,
	}
	rootCmd.Version = rcmateversion.String()
	rootCmd.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().String("connection", "", "Use the named stored connection")
}

// app bundles the dispatcher with the services built on top of it.
// cleanup must be called when the command is done.
type app struct {
	dispatcher *dispatch.Dispatcher
	remotes    *remotes.Service
	settings   *settings.Service
	jobs       *jobs.Service
	store      *store.Store
	connName   string
	cleanup    func()
}

// resolveConnection loads the connection profile for this run. The stored
// profile is the base; environment variables override field by field. The
// store handle stays open for the command's lifetime (local caching); it
// is nil when the store could not be opened, and the caller must close it.
func resolveConnection(name string) (store.Connection, *store.Store, error) {
	var conn store.Connection

	s, err := store.Open(store.Options{})
	if err != nil {
		// A broken local store should not block env-configured runs.
		log.Printf("[CLI] WARNING: could not open configuration store: %v", err)
		s = nil
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if name != "" {
			conn, err = s.GetConnection(ctx, name)
			if err != nil {
				s.Close()
				return store.Connection{}, nil, err
			}
		} else if stored, err := s.DefaultConnection(ctx); err == nil {
			conn = stored
		} else if !store.IsNotFound(err) {
			s.Close()
			return store.Connection{}, nil, err
		}
	}

	env := config.EnvConnection()
	if env.BaseURL != "" {
		conn.BaseURL = env.BaseURL
	}
	if env.APIToken != "" {
		conn.APIToken = env.APIToken
	}
	if env.EngineURL != "" {
		conn.EngineURL = env.EngineURL
	}

	return conn, s, nil
}

// newApp builds the dispatcher for the resolved connection. An engine URL
// selects the attached control channel; otherwise commands go over HTTP
// with events arriving on the SSE stream.
func newApp(cmd *cobra.Command) (*app, error) {
	connName, _ := cmd.Flags().GetString("connection")
	conn, st, err := resolveConnection(connName)
	if err != nil {
		return nil, err
	}

	name := conn.Name
	if name == "" {
		name = config.DefaultConnection
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	bus := eventbus.New(eventbus.WithLogger(logger))
	cfg := dispatch.Config{Bus: bus, Logger: logger}
	cleanup := func() { st.Close() }

	if conn.EngineURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()

		br, err := bridge.Dial(ctx, conn.EngineURL, conn.APIToken, bus, logger)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("connect to engine at %s: %w", conn.EngineURL, err)
		}
		cfg.Engine = br
		cleanup = func() {
			br.Close()
			st.Close()
		}
	} else {
		if conn.BaseURL == "" {
			st.Close()
			return nil, fmt.Errorf("no backend configured: set RCMATE_BASE_URL or store a connection with 'rcmate connection add'")
		}
		hc := httprpc.New(conn.BaseURL, conn.APIToken, nil)
		cfg.HTTP = hc
		cfg.Stream = sse.New(sse.DeriveURL(conn.BaseURL), conn.APIToken, hc.StreamingClient(), bus, sse.WithLogger(logger))
	}

	d, err := dispatch.New(cfg)
	if err != nil {
		cleanup()
		return nil, err
	}

	return &app{
		dispatcher: d,
		remotes:    remotes.NewService(d),
		settings:   settings.NewService(d),
		jobs:       jobs.NewService(d),
		store:      st,
		connName:   name,
		cleanup: func() {
			d.Close()
			cleanup()
		},
	}, nil
}

func main() {
	rootCmd.AddCommand(
		newRemotesCommand(),
		newJobsCommand(),
		newSyncCommand(),
		newCopyCommand(),
		newMoveCommand(),
		newBisyncCommand(),
		newMountCommand(),
		newUnmountCommand(),
		newLsCommand(),
		newAboutCommand(),
		newSettingsCommand(),
		newEventsCommand(),
		newConnectionCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		// Error is already printed by command handlers
		os.Exit(1)
	}
}
