package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rcmate/rcmate/internal/commands"
	"github.com/rcmate/rcmate/internal/dispatch"
	"github.com/rcmate/rcmate/internal/eventbus"
	"github.com/rcmate/rcmate/internal/transport/httprpc"
	rcmateversion "github.com/rcmate/rcmate/internal/version"
)

func TestBackendVersionQuery(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"version": "0.9.0"},
		})
	}))
	defer server.Close()

	d, err := dispatch.New(dispatch.Config{
		HTTP:   httprpc.New(server.URL, "", nil),
		Bus:    eventbus.New(),
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}
	defer d.Close()

	backend, err := dispatch.Call[backendVersion](context.Background(), d, commands.GetBackendVersion, nil)
	if err != nil {
		t.Fatalf("backend version query: %v", err)
	}
	if gotPath != "/version" {
		t.Fatalf("request path = %q, want /version", gotPath)
	}
	if backend.Version != "0.9.0" {
		t.Fatalf("backend version = %q", backend.Version)
	}

	restore := rcmateversion.ForTesting("1.0.0")
	defer restore()
	if warning := rcmateversion.CheckBackendMismatch(backend.Version); warning == "" {
		t.Fatal("expected a mismatch warning for differing versions")
	}
}
