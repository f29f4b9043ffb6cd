// Package settings models the per-remote configuration staged during
// remote creation (operation configs, profile references) and persists it
// through the backend's settings surface.
package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rcmate/rcmate/internal/commands"
	"github.com/rcmate/rcmate/internal/rcpath"
)

// Invoker is the dispatch surface the service calls through.
type Invoker interface {
	Invoke(ctx context.Context, name commands.Name, args map[string]any) (json.RawMessage, error)
}

// Operation identifies one of the per-remote operation slots.
type Operation string

const (
	OpMount  Operation = "mount"
	OpSync   Operation = "sync"
	OpCopy   Operation = "copy"
	OpBisync Operation = "bisync"
	OpMove   Operation = "move"
)

// MountConfig stages the mount operation for a remote. Mount destinations
// are always local paths.
type MountConfig struct {
	AutoStart  bool              `json:"autoStart"`
	Source     *rcpath.Selection `json:"source,omitempty"`
	MountPoint string            `json:"mountPoint,omitempty"`
	Options    map[string]any    `json:"options,omitempty"`
}

// TransferConfig stages one transfer-style operation (sync/copy/bisync/move).
type TransferConfig struct {
	AutoStart bool              `json:"autoStart"`
	Source    *rcpath.Selection `json:"source,omitempty"`
	Dest      *rcpath.Selection `json:"dest,omitempty"`
	Options   map[string]any    `json:"options,omitempty"`
}

// RemoteSettings is the fully resolved settings payload staged before an
// interactive exchange begins and persisted once it reaches a terminal
// state. It is owned by a single remote-creation attempt.
type RemoteSettings struct {
	Name string `json:"name"`
	Type string `json:"type"`

	Mount  MountConfig    `json:"mount"`
	Sync   TransferConfig `json:"sync"`
	Copy   TransferConfig `json:"copy"`
	Bisync TransferConfig `json:"bisync"`
	Move   TransferConfig `json:"move"`

	Filter  map[string]any `json:"filter,omitempty"`
	Backend map[string]any `json:"backend,omitempty"`
	VFS     map[string]any `json:"vfs,omitempty"`
}

// AutoStart is one operation eligible to run immediately after creation.
type AutoStart struct {
	Op      Operation
	Source  string
	Dest    string
	Options map[string]any
}

// AutoStarts resolves which operations should fire after the remote is
// persisted. Each operation qualifies independently: its autoStart flag
// must be set and both its resolved source and destination must be
// non-empty.
func (rs *RemoteSettings) AutoStarts() []AutoStart {
	var out []AutoStart

	if rs.Mount.AutoStart {
		source := rcpath.Build(rs.Mount.Source, rs.Name)
		dest := rcpath.Build(rs.Mount.MountPoint, rs.Name)
		if source != "" && dest != "" {
			out = append(out, AutoStart{Op: OpMount, Source: source, Dest: dest, Options: rs.Mount.Options})
		}
	}

	transfers := []struct {
		op  Operation
		cfg TransferConfig
	}{
		{OpCopy, rs.Copy},
		{OpSync, rs.Sync},
		{OpBisync, rs.Bisync},
		{OpMove, rs.Move},
	}
	for _, t := range transfers {
		if !t.cfg.AutoStart {
			continue
		}
		source := rcpath.Build(t.cfg.Source, rs.Name)
		dest := rcpath.Build(t.cfg.Dest, rs.Name)
		if source == "" || dest == "" {
			continue
		}
		out = append(out, AutoStart{Op: t.op, Source: source, Dest: dest, Options: t.cfg.Options})
	}

	return out
}

// Service persists per-remote settings through the dispatcher.
type Service struct {
	invoker Invoker
}

// NewService builds a settings service over the dispatcher.
func NewService(invoker Invoker) *Service {
	return &Service{invoker: invoker}
}

// Save upserts the settings sections for a remote.
func (s *Service) Save(ctx context.Context, rs RemoteSettings) error {
	if rs.Name == "" {
		return fmt.Errorf("save settings: remote name is empty")
	}
	_, err := s.invoker.Invoke(ctx, commands.SaveSettings, map[string]any{
		"remote":   rs.Name,
		"settings": rs,
	})
	if err != nil {
		return fmt.Errorf("save settings for %s: %w", rs.Name, err)
	}
	return nil
}

// Load fetches the stored settings for a remote.
func (s *Service) Load(ctx context.Context, remote string) (*RemoteSettings, error) {
	data, err := s.invoker.Invoke(ctx, commands.GetSettings, map[string]any{"remote": remote})
	if err != nil {
		return nil, fmt.Errorf("load settings for %s: %w", remote, err)
	}
	var rs RemoteSettings
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &rs); err != nil {
			return nil, fmt.Errorf("decode settings for %s: %w", remote, err)
		}
	}
	if rs.Name == "" {
		rs.Name = remote
	}
	return &rs, nil
}

// Delete removes the stored settings for a remote.
func (s *Service) Delete(ctx context.Context, remote string) error {
	_, err := s.invoker.Invoke(ctx, commands.DeleteSettings, map[string]any{"remote": remote})
	if err != nil {
		return fmt.Errorf("delete settings for %s: %w", remote, err)
	}
	return nil
}
