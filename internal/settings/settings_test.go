package settings_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rcmate/rcmate/internal/commands"
	"github.com/rcmate/rcmate/internal/rcpath"
	"github.com/rcmate/rcmate/internal/settings"
)

func TestAutoStartsGating(t *testing.T) {
	rs := settings.RemoteSettings{
		Name: "gdrive",
		Mount: settings.MountConfig{
			AutoStart:  true,
			Source:     &rcpath.Selection{Kind: rcpath.KindCurrentRemote, Path: "media"},
			MountPoint: "/mnt/gdrive",
		},
		Sync: settings.TransferConfig{
			// autoStart set but no destination: must not qualify.
			AutoStart: true,
			Source:    &rcpath.Selection{Kind: rcpath.KindCurrentRemote, Path: "docs"},
		},
		Copy: settings.TransferConfig{
			AutoStart: true,
			Source:    &rcpath.Selection{Kind: rcpath.KindCurrentRemote, Path: "photos"},
			Dest:      &rcpath.Selection{Kind: rcpath.KindLocal, Path: "/backup/photos"},
		},
		Move: settings.TransferConfig{
			// both endpoints present but autoStart unset: must not qualify.
			Source: &rcpath.Selection{Kind: rcpath.KindCurrentRemote, Path: "tmp"},
			Dest:   &rcpath.Selection{Kind: rcpath.KindLocal, Path: "/tmp/spill"},
		},
	}

	starts := rs.AutoStarts()
	if len(starts) != 2 {
		t.Fatalf("expected 2 qualifying operations, got %d: %+v", len(starts), starts)
	}

	byOp := map[settings.Operation]settings.AutoStart{}
	for _, s := range starts {
		byOp[s.Op] = s
	}

	mount, ok := byOp[settings.OpMount]
	if !ok {
		t.Fatal("mount should qualify")
	}
	if mount.Source != "gdrive:media" || mount.Dest != "/mnt/gdrive" {
		t.Fatalf("unexpected mount endpoints: %+v", mount)
	}

	cp, ok := byOp[settings.OpCopy]
	if !ok {
		t.Fatal("copy should qualify")
	}
	if cp.Source != "gdrive:photos" || cp.Dest != "/backup/photos" {
		t.Fatalf("unexpected copy endpoints: %+v", cp)
	}
}

func TestAutoStartsEmptyWhenNothingFlagged(t *testing.T) {
	rs := settings.RemoteSettings{Name: "gdrive"}
	if starts := rs.AutoStarts(); len(starts) != 0 {
		t.Fatalf("expected no auto-starts, got %+v", starts)
	}
}

type fakeInvoker struct {
	lastName commands.Name
	lastArgs map[string]any
	response json.RawMessage
}

func (f *fakeInvoker) Invoke(ctx context.Context, name commands.Name, args map[string]any) (json.RawMessage, error) {
	f.lastName = name
	f.lastArgs = args
	return f.response, nil
}

func TestSaveSendsSettingsPayload(t *testing.T) {
	invoker := &fakeInvoker{}
	service := settings.NewService(invoker)

	rs := settings.RemoteSettings{Name: "gdrive", Type: "drive"}
	if err := service.Save(context.Background(), rs); err != nil {
		t.Fatalf("save: %v", err)
	}

	if invoker.lastName != commands.SaveSettings {
		t.Fatalf("unexpected command: %s", invoker.lastName)
	}
	if invoker.lastArgs["remote"] != "gdrive" {
		t.Fatalf("unexpected args: %v", invoker.lastArgs)
	}
}

func TestSaveRejectsEmptyName(t *testing.T) {
	service := settings.NewService(&fakeInvoker{})
	if err := service.Save(context.Background(), settings.RemoteSettings{}); err == nil {
		t.Fatal("expected error for empty remote name")
	}
}

func TestLoadFillsNameWhenBackendOmitsIt(t *testing.T) {
	invoker := &fakeInvoker{response: json.RawMessage(`{"type": "drive"}`)}
	service := settings.NewService(invoker)

	rs, err := service.Load(context.Background(), "gdrive")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rs.Name != "gdrive" || rs.Type != "drive" {
		t.Fatalf("unexpected settings: %+v", rs)
	}
}
