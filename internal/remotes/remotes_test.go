package remotes_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rcmate/rcmate/internal/commands"
	"github.com/rcmate/rcmate/internal/remotes"
)

type fakeInvoker struct {
	calls []struct {
		name commands.Name
		args map[string]any
	}
	responses map[commands.Name]json.RawMessage
	err       error
}

func (f *fakeInvoker) Invoke(ctx context.Context, name commands.Name, args map[string]any) (json.RawMessage, error) {
	f.calls = append(f.calls, struct {
		name commands.Name
		args map[string]any
	}{name, args})
	if f.err != nil {
		return nil, f.err
	}
	return f.responses[name], nil
}

func TestListDecodesNames(t *testing.T) {
	invoker := &fakeInvoker{responses: map[commands.Name]json.RawMessage{
		commands.GetRemotes: json.RawMessage(`["gdrive", "s3-backup"]`),
	}}
	service := remotes.NewService(invoker)

	names, err := service.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 2 || names[1] != "s3-backup" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestCreateSendsParameters(t *testing.T) {
	invoker := &fakeInvoker{responses: map[commands.Name]json.RawMessage{}}
	service := remotes.NewService(invoker)

	err := service.Create(context.Background(), "gdrive", "drive", map[string]any{"scope": "drive"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if len(invoker.calls) != 1 || invoker.calls[0].name != commands.CreateRemote {
		t.Fatalf("unexpected calls: %+v", invoker.calls)
	}
	args := invoker.calls[0].args
	if args["name"] != "gdrive" || args["type"] != "drive" {
		t.Fatalf("unexpected args: %v", args)
	}
	params, ok := args["parameters"].(map[string]any)
	if !ok || params["scope"] != "drive" {
		t.Fatalf("parameters not forwarded: %v", args["parameters"])
	}
}

func TestStartInteractiveDecodesQuestion(t *testing.T) {
	invoker := &fakeInvoker{responses: map[commands.Name]json.RawMessage{
		commands.StartRemoteConfigInteractive: json.RawMessage(`{
			"State": "*oauth-islocal,teamdrive,,",
			"Option": {
				"Name": "config_is_local",
				"Type": "bool",
				"Required": true,
				"Default": true,
				"Examples": [{"Value": "true", "Help": "Yes"}, {"Value": "false", "Help": "No"}]
			}
		}`),
	}}
	service := remotes.NewService(invoker)

	q, err := service.StartInteractive(context.Background(), "gdrive", "drive", nil, remotes.Flags{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if q.Terminal() {
		t.Fatal("question with state must not be terminal")
	}
	if q.Option == nil || q.Option.Name != "config_is_local" || !q.Option.Required {
		t.Fatalf("unexpected option: %+v", q.Option)
	}
	if len(q.Option.Examples) != 2 {
		t.Fatalf("unexpected examples: %+v", q.Option.Examples)
	}
}

func TestContinueInteractiveForwardsStateAndAnswer(t *testing.T) {
	invoker := &fakeInvoker{responses: map[commands.Name]json.RawMessage{
		commands.ContinueRemoteConfigInteractive: json.RawMessage(`{"State": ""}`),
	}}
	service := remotes.NewService(invoker)

	q, err := service.ContinueInteractive(context.Background(), "gdrive", "*oauth-islocal", "true", remotes.Flags{})
	if err != nil {
		t.Fatalf("continue: %v", err)
	}
	if !q.Terminal() {
		t.Fatal("empty state must be terminal")
	}

	args := invoker.calls[0].args
	if args["state"] != "*oauth-islocal" || args["result"] != "true" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestTerminalQuestion(t *testing.T) {
	var nilQuestion *remotes.Question
	if !nilQuestion.Terminal() {
		t.Fatal("nil question is terminal")
	}
	if !(&remotes.Question{State: "  "}).Terminal() {
		t.Fatal("blank state is terminal")
	}
	if (&remotes.Question{State: "*postcode"}).Terminal() {
		t.Fatal("non-empty state is not terminal")
	}
}

func TestErrorsAreWrapped(t *testing.T) {
	sentinel := errors.New("backend down")
	service := remotes.NewService(&fakeInvoker{err: sentinel})

	if _, err := service.List(context.Background()); !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
	if err := service.Delete(context.Background(), "gdrive"); !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
}
