package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetHomeHonoursOverride(t *testing.T) {
	custom := t.TempDir()
	t.Setenv("RCMATE_HOME", custom)

	if got := GetHome(); got != custom {
		t.Fatalf("GetHome() = %q, want %q", got, custom)
	}
}

func TestGetPathsLayout(t *testing.T) {
	home := t.TempDir()
	t.Setenv("RCMATE_HOME", home)

	paths := GetPaths()
	if paths.Home != home {
		t.Fatalf("Home = %q, want %q", paths.Home, home)
	}
	if paths.ConfigDB != filepath.Join(home, "config.db") {
		t.Fatalf("ConfigDB = %q", paths.ConfigDB)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	cases := map[string]string{
		"":            "",
		"~":           home,
		"~/downloads": filepath.Join(home, "downloads"),
		"/abs/path":   "/abs/path",
		"relative":    "relative",
	}
	for in, want := range cases {
		if got := ExpandPath(in); got != want {
			t.Errorf("ExpandPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnsureDirs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("RCMATE_HOME", home)

	paths, err := EnsureDirs()
	if err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	for _, dir := range []string{paths.Home, paths.Logs, paths.TempDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("stat %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("%s is not a directory", dir)
		}
	}
}

func TestEnvConnection(t *testing.T) {
	t.Setenv("RCMATE_BASE_URL", "http://localhost:5572")
	t.Setenv("RCMATE_API_TOKEN", "secret")
	t.Setenv("RCMATE_ENGINE_URL", "")

	env := EnvConnection()
	if env.BaseURL != "http://localhost:5572" || env.APIToken != "secret" || env.EngineURL != "" {
		t.Fatalf("EnvConnection() = %+v", env)
	}
}
