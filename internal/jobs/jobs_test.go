package jobs_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rcmate/rcmate/internal/commands"
	"github.com/rcmate/rcmate/internal/jobs"
)

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

func TestStartMapsKindToCommand(t *testing.T) {
	cases := []struct {
		kind    jobs.Kind
		command commands.Name
	}{
		{jobs.KindSync, commands.StartSync},
		{jobs.KindCopy, commands.StartCopy},
		{jobs.KindMove, commands.StartMove},
		{jobs.KindBisync, commands.StartBisync},
	}

	for _, tc := range cases {
		invoker := &fakeInvoker{response: json.RawMessage(`{"jobid": 9}`)}
		service := jobs.NewService(invoker)

		id, err := service.Start(context.Background(), tc.kind, "gdrive:docs", "/backup/docs", nil)
		if err != nil {
			t.Fatalf("%s: %v", tc.kind, err)
		}
		if id != 9 {
			t.Fatalf("%s: unexpected job id %d", tc.kind, id)
		}
		if invoker.lastName != tc.command {
			t.Fatalf("%s: expected %s, got %s", tc.kind, tc.command, invoker.lastName)
		}
		if invoker.lastArgs["source"] != "gdrive:docs" || invoker.lastArgs["dest"] != "/backup/docs" {
			t.Fatalf("%s: unexpected args %v", tc.kind, invoker.lastArgs)
		}
	}
}

func TestStartRejectsUnknownKindAndEmptyEndpoints(t *testing.T) {
	service := jobs.NewService(&fakeInvoker{})

	if _, err := service.Start(context.Background(), jobs.Kind("shred"), "a", "b", nil); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if _, err := service.Start(context.Background(), jobs.KindSync, "", "/backup", nil); err == nil {
		t.Fatal("expected error for empty source")
	}
}

func TestMountForwardsOptions(t *testing.T) {
	invoker := &fakeInvoker{}
	service := jobs.NewService(invoker)

	err := service.Mount(context.Background(), "gdrive:media", "/mnt/gdrive", map[string]any{"vfs-cache-mode": "full"})
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if invoker.lastName != commands.MountRemote {
		t.Fatalf("unexpected command: %s", invoker.lastName)
	}
	opts, ok := invoker.lastArgs["options"].(map[string]any)
	if !ok || opts["vfs-cache-mode"] != "full" {
		t.Fatalf("options not forwarded: %v", invoker.lastArgs)
	}
}

func TestStatusDecodesJob(t *testing.T) {
	invoker := &fakeInvoker{response: json.RawMessage(`{"jobid": 4, "finished": true, "success": false, "error": "quota"}`)}
	service := jobs.NewService(invoker)

	job, err := service.Status(context.Background(), 4)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !job.Finished || job.Success || job.Error != "quota" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if invoker.lastArgs["jobid"] != int64(4) {
		t.Fatalf("unexpected args: %v", invoker.lastArgs)
	}
}
