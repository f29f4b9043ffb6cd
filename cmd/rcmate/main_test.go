package main

import (
	"errors"
	"testing"

	"github.com/rcmate/rcmate/internal/jobs"
)

func TestOutputFormatterErrorWrapsCause(t *testing.T) {
	out := &OutputFormatter{jsonMode: true}
	cause := errors.New("connection refused")

	err := out.Error("Failed to connect", cause)
	if err == nil {
		t.Fatal("Error returned nil")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("returned error does not wrap cause: %v", err)
	}
}

func TestResolveConnectionEnvOverrides(t *testing.T) {
	t.Setenv("RCMATE_HOME", t.TempDir())
	t.Setenv("RCMATE_BASE_URL", "http://override:5572")
	t.Setenv("RCMATE_API_TOKEN", "env-token")
	t.Setenv("RCMATE_ENGINE_URL", "")

	conn, st, err := resolveConnection("")
	if err != nil {
		t.Fatalf("resolveConnection: %v", err)
	}
	defer st.Close()
	if conn.BaseURL != "http://override:5572" {
		t.Fatalf("BaseURL = %q, want env override", conn.BaseURL)
	}
	if conn.APIToken != "env-token" {
		t.Fatalf("APIToken = %q, want env override", conn.APIToken)
	}
}

func TestResolveConnectionFallsBackToStore(t *testing.T) {
	t.Setenv("RCMATE_HOME", t.TempDir())
	t.Setenv("RCMATE_BASE_URL", "")
	t.Setenv("RCMATE_API_TOKEN", "")
	t.Setenv("RCMATE_ENGINE_URL", "")

	conn, st, err := resolveConnection("")
	if err != nil {
		t.Fatalf("resolveConnection: %v", err)
	}
	defer st.Close()
	// The store seeds a default connection pointing at a local backend.
	if conn.BaseURL != "http://localhost:5572" {
		t.Fatalf("BaseURL = %q, want seeded default", conn.BaseURL)
	}
}

func TestJobState(t *testing.T) {
	cases := []struct {
		job  jobs.Job
		want string
	}{
		{jobs.Job{Finished: false}, "running"},
		{jobs.Job{Finished: true, Success: true}, "finished"},
		{jobs.Job{Finished: true, Success: false}, "failed"},
	}
	for _, tc := range cases {
		if got := jobState(tc.job); got != tc.want {
			t.Errorf("jobState(%+v) = %q, want %q", tc.job, got, tc.want)
		}
	}
}
