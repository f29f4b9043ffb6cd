package version

import (
	"strings"
	"testing"
)

func TestStringReflectsBuildVersion(t *testing.T) {
	cleanup := ForTesting("1.2.3-test")
	t.Cleanup(cleanup)

	if got := String(); got != "1.2.3-test" {
		t.Fatalf("expected version 1.2.3-test, got %s", got)
	}
}

func TestFormatVersion(t *testing.T) {
	cases := map[string]string{
		"":       "",
		"dev":    "dev",
		"0.3.0":  "v0.3.0",
		"v0.3.0": "v0.3.0",
	}
	for in, want := range cases {
		if got := FormatVersion(in); got != want {
			t.Errorf("FormatVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCheckBackendMismatch(t *testing.T) {
	tests := []struct {
		name           string
		clientVersion  string
		backendVersion string
		wantWarning    bool
	}{
		{"same version no warning", "0.3.0", "0.3.0", false},
		{"different version warning", "0.3.0", "0.2.0", true},
		{"backend dev skip", "0.3.0", "dev", false},
		{"client dev skip", "dev", "0.3.0", false},
		{"v prefix equal", "0.3.0", "v0.3.0", false},
		{"git describe suffix equal", "0.3.0", "v0.3.0-5-gabcdef", false},
		{"empty backend skip", "0.3.0", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := ForTesting(tt.clientVersion)
			t.Cleanup(cleanup)

			warning := CheckBackendMismatch(tt.backendVersion)
			if tt.wantWarning && warning == "" {
				t.Fatal("expected a warning, got none")
			}
			if !tt.wantWarning && warning != "" {
				t.Fatalf("unexpected warning: %s", warning)
			}
			if tt.wantWarning && !strings.Contains(warning, "rcmate") {
				t.Fatalf("warning missing binary name: %s", warning)
			}
		})
	}
}
