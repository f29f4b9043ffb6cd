package commands_test

import (
	"testing"

	"github.com/rcmate/rcmate/internal/commands"
)

func TestRouteKnownCommands(t *testing.T) {
	cases := []struct {
		name commands.Name
		path string
	}{
		{commands.GetRemotes, "/remotes"},
		{commands.CreateRemote, "/create-remote"},
		{commands.ContinueRemoteConfigInteractive, "/remotes/config/continue"},
		{commands.StopJob, "/jobs/stop"},
		{commands.GetBackendVersion, "/version"},
	}

	for _, tc := range cases {
		path, ok := commands.Route(tc.name)
		if !ok {
			t.Fatalf("expected route for %s", tc.name)
		}
		if path != tc.path {
			t.Fatalf("route for %s: expected %s, got %s", tc.name, tc.path, path)
		}
	}
}

func TestWriteSetMembership(t *testing.T) {
	if !commands.IsWrite(commands.CreateRemote) {
		t.Fatal("create_remote should be a write command")
	}
	if !commands.IsWrite(commands.StartRemoteConfigInteractive) {
		t.Fatal("start_remote_config_interactive should be a write command")
	}
	if commands.IsWrite(commands.GetRemotes) {
		t.Fatal("get_remotes should not be a write command")
	}
	if commands.IsWrite(commands.GetJobStatus) {
		t.Fatal("get_job_status should not be a write command")
	}
}

func TestDerivedPath(t *testing.T) {
	got := commands.DerivedPath(commands.Name("export_remote_config"))
	if got != "/export-remote-config" {
		t.Fatalf("unexpected derived path: %s", got)
	}

	// Names without underscores pass through with just the leading slash.
	if got := commands.DerivedPath(commands.Name("noop")); got != "/noop" {
		t.Fatalf("unexpected derived path: %s", got)
	}
}
