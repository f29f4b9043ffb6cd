// Package remotes exposes the backend's remote-management surface:
// listing, one-shot creation, and the interactive configuration
// sub-protocol used by provider types that need multi-step setup.
package remotes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rcmate/rcmate/internal/commands"
)

// Invoker is the dispatch surface the service calls through.
type Invoker interface {
	Invoke(ctx context.Context, name commands.Name, args map[string]any) (json.RawMessage, error)
}

// Remote is one configured backend remote.
type Remote struct {
	Name   string         `json:"name"`
	Type   string         `json:"type"`
	Params map[string]any `json:"parameters,omitempty"`
}

// Provider describes a remote type the backend can configure.
type Provider struct {
	Name        string   `json:"Name"`
	Description string   `json:"Description"`
	Options     []Option `json:"Options,omitempty"`
}

// OptionExample is one suggested value for an option.
type OptionExample struct {
	Value string `json:"Value"`
	Help  string `json:"Help"`
}

// Option mirrors the backend's option descriptor used both in provider
// metadata and in interactive questions.
type Option struct {
	Name       string          `json:"Name"`
	Help       string          `json:"Help"`
	Type       string          `json:"Type"`
	Required   bool            `json:"Required"`
	IsPassword bool            `json:"IsPassword"`
	Default    any             `json:"Default"`
	DefaultStr string          `json:"DefaultStr"`
	Value      any             `json:"Value"`
	ValueStr   string          `json:"ValueStr"`
	Exclusive  bool            `json:"Exclusive"`
	Examples   []OptionExample `json:"Examples,omitempty"`
}

// Question is one round of the interactive configuration exchange. An
// empty State token signals that the exchange is complete.
type Question struct {
	State  string  `json:"State"`
	Option *Option `json:"Option"`
	Error  string  `json:"Error"`
	Result string  `json:"Result"`
}

// Terminal reports whether the question ends the exchange.
func (q *Question) Terminal() bool {
	return q == nil || strings.TrimSpace(q.State) == ""
}

// Flags carry the config-session switches of the interactive protocol.
type Flags struct {
	Obscure   bool `json:"obscure,omitempty"`
	NoObscure bool `json:"noObscure,omitempty"`
	All       bool `json:"all,omitempty"`
}

// Service wraps remote management commands behind typed methods.
type Service struct {
	invoker Invoker
}

// NewService builds a remote-management service over the dispatcher.
func NewService(invoker Invoker) *Service {
	return &Service{invoker: invoker}
}

// List returns the names of all configured remotes.
func (s *Service) List(ctx context.Context) ([]string, error) {
	data, err := s.invoker.Invoke(ctx, commands.GetRemotes, nil)
	if err != nil {
		return nil, fmt.Errorf("list remotes: %w", err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("decode remote list: %w", err)
	}
	return names, nil
}

// ListConfigured returns all remotes with their full configuration.
func (s *Service) ListConfigured(ctx context.Context) ([]Remote, error) {
	data, err := s.invoker.Invoke(ctx, commands.GetConfiguredRemotes, nil)
	if err != nil {
		return nil, fmt.Errorf("list configured remotes: %w", err)
	}
	var remotes []Remote
	if err := json.Unmarshal(data, &remotes); err != nil {
		return nil, fmt.Errorf("decode configured remotes: %w", err)
	}
	return remotes, nil
}

// Providers returns the remote types the backend supports.
func (s *Service) Providers(ctx context.Context) ([]Provider, error) {
	data, err := s.invoker.Invoke(ctx, commands.GetRemoteTypes, nil)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	var providers []Provider
	if err := json.Unmarshal(data, &providers); err != nil {
		return nil, fmt.Errorf("decode providers: %w", err)
	}
	return providers, nil
}

// Create performs one-shot remote creation for provider types that need no
// interactive exchange.
func (s *Service) Create(ctx context.Context, name, typ string, params map[string]any) error {
	_, err := s.invoker.Invoke(ctx, commands.CreateRemote, map[string]any{
		"name":       name,
		"type":       typ,
		"parameters": params,
	})
	if err != nil {
		return fmt.Errorf("create remote %s: %w", name, err)
	}
	return nil
}

// Update changes parameters of an existing remote.
func (s *Service) Update(ctx context.Context, name string, params map[string]any) error {
	_, err := s.invoker.Invoke(ctx, commands.UpdateRemote, map[string]any{
		"name":       name,
		"parameters": params,
	})
	if err != nil {
		return fmt.Errorf("update remote %s: %w", name, err)
	}
	return nil
}

// Delete removes a remote from the backend configuration.
func (s *Service) Delete(ctx context.Context, name string) error {
	_, err := s.invoker.Invoke(ctx, commands.DeleteRemote, map[string]any{"name": name})
	if err != nil {
		return fmt.Errorf("delete remote %s: %w", name, err)
	}
	return nil
}

// StartInteractive opens an interactive configuration exchange.
func (s *Service) StartInteractive(ctx context.Context, name, typ string, params map[string]any, flags Flags) (*Question, error) {
	data, err := s.invoker.Invoke(ctx, commands.StartRemoteConfigInteractive, map[string]any{
		"name":       name,
		"type":       typ,
		"parameters": params,
		"flags":      flags,
	})
	if err != nil {
		return nil, fmt.Errorf("start interactive config for %s: %w", name, err)
	}
	return decodeQuestion(data)
}

// ContinueInteractive submits one answer and returns the next question.
// The state token identifies the round being answered; answer must already
// be in the canonical wire form.
func (s *Service) ContinueInteractive(ctx context.Context, name, state string, answer any, flags Flags) (*Question, error) {
	data, err := s.invoker.Invoke(ctx, commands.ContinueRemoteConfigInteractive, map[string]any{
		"name":   name,
		"state":  state,
		"result": answer,
		"flags":  flags,
	})
	if err != nil {
		return nil, fmt.Errorf("continue interactive config for %s: %w", name, err)
	}
	return decodeQuestion(data)
}

// StopAuth asks the backend to abandon any pending authentication for the
// named remote's configuration session.
func (s *Service) StopAuth(ctx context.Context, name string) error {
	_, err := s.invoker.Invoke(ctx, commands.QuitRemoteConfig, map[string]any{"name": name})
	if err != nil {
		return fmt.Errorf("quit interactive config for %s: %w", name, err)
	}
	return nil
}

func decodeQuestion(data json.RawMessage) (*Question, error) {
	if len(data) == 0 || string(data) == "null" {
		return &Question{}, nil
	}
	var q Question
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("decode config question: %w", err)
	}
	return &q, nil
}
