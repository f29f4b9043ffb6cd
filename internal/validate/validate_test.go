package validate

import (
	"strings"
	"testing"
)

func TestRemoteName(t *testing.T) {
	valid := []string{"gd", "my-remote", "nas_backup", "s3.archive", "0box"}
	for _, name := range valid {
		if !RemoteName(name) {
			t.Errorf("RemoteName(%q) = false, want true", name)
		}
	}

	invalid := []string{"", "-leading", ".leading", "has space", "has:colon", strings.Repeat("a", MaxRemoteNameLen+1)}
	for _, name := range invalid {
		if RemoteName(name) {
			t.Errorf("RemoteName(%q) = true, want false", name)
		}
	}
}

func TestHTTPURL(t *testing.T) {
	valid := []string{"http://localhost:5572", "https://nas.local"}
	for _, u := range valid {
		if err := HTTPURL(u); err != nil {
			t.Errorf("HTTPURL(%q) = %v, want nil", u, err)
		}
	}

	invalid := []string{"file:///etc/passwd", "ftp://host", "localhost:5572", "http://"}
	for _, u := range invalid {
		if err := HTTPURL(u); err == nil {
			t.Errorf("HTTPURL(%q) = nil, want error", u)
		}
	}
}

func TestEngineURL(t *testing.T) {
	valid := []string{"ws://localhost:5573", "wss://nas.local", "http://localhost:5573"}
	for _, u := range valid {
		if err := EngineURL(u); err != nil {
			t.Errorf("EngineURL(%q) = %v, want nil", u, err)
		}
	}

	if err := EngineURL("unix:///tmp/engine.sock"); err == nil {
		t.Error("EngineURL accepted unix scheme")
	}
}
