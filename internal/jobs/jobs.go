// Package jobs exposes the backend's job-management surface: starting
// transfer operations, mounting, and querying job state.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rcmate/rcmate/internal/commands"
)

// Invoker is the dispatch surface the service calls through.
type Invoker interface {
	Invoke(ctx context.Context, name commands.Name, args map[string]any) (json.RawMessage, error)
}

// Kind identifies a transfer operation.
type Kind string

const (
	KindSync   Kind = "sync"
	KindCopy   Kind = "copy"
	KindMove   Kind = "move"
	KindBisync Kind = "bisync"
)

var startCommands = map[Kind]commands.Name{
	KindSync:   commands.StartSync,
	KindCopy:   commands.StartCopy,
	KindMove:   commands.StartMove,
	KindBisync: commands.StartBisync,
}

// Job describes one backend job.
type Job struct {
	ID       int64   `json:"jobid"`
	Kind     string  `json:"kind"`
	Source   string  `json:"source"`
	Dest     string  `json:"dest"`
	Finished bool    `json:"finished"`
	Success  bool    `json:"success"`
	Error    string  `json:"error"`
	Duration float64 `json:"duration"`
	Bytes    int64   `json:"bytes"`
	Speed    float64 `json:"speed"`
}

// Service wraps job commands behind typed methods.
type Service struct {
	invoker Invoker
}

// NewService builds a job service over the dispatcher.
func NewService(invoker Invoker) *Service {
	return &Service{invoker: invoker}
}

// Start launches a transfer job and returns its backend id.
func (s *Service) Start(ctx context.Context, kind Kind, source, dest string, opts map[string]any) (int64, error) {
	command, ok := startCommands[kind]
	if !ok {
		return 0, fmt.Errorf("start job: unsupported kind %q", kind)
	}
	if source == "" || dest == "" {
		return 0, fmt.Errorf("start %s job: source and destination are required", kind)
	}

	args := map[string]any{"source": source, "dest": dest}
	if len(opts) > 0 {
		args["options"] = opts
	}

	data, err := s.invoker.Invoke(ctx, command, args)
	if err != nil {
		return 0, fmt.Errorf("start %s job: %w", kind, err)
	}

	var resp struct {
		JobID int64 `json:"jobid"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("decode %s job response: %w", kind, err)
	}
	return resp.JobID, nil
}

// Mount attaches a remote path to a local mount point.
func (s *Service) Mount(ctx context.Context, source, mountPoint string, opts map[string]any) error {
	if source == "" || mountPoint == "" {
		return fmt.Errorf("mount: source and mount point are required")
	}
	args := map[string]any{"source": source, "mountPoint": mountPoint}
	if len(opts) > 0 {
		args["options"] = opts
	}
	if _, err := s.invoker.Invoke(ctx, commands.MountRemote, args); err != nil {
		return fmt.Errorf("mount %s: %w", source, err)
	}
	return nil
}

// Unmount detaches a mount point.
func (s *Service) Unmount(ctx context.Context, mountPoint string) error {
	if _, err := s.invoker.Invoke(ctx, commands.UnmountRemote, map[string]any{"mountPoint": mountPoint}); err != nil {
		return fmt.Errorf("unmount %s: %w", mountPoint, err)
	}
	return nil
}

// List returns all known jobs.
func (s *Service) List(ctx context.Context) ([]Job, error) {
	data, err := s.invoker.Invoke(ctx, commands.GetJobs, nil)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	var jobs []Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("decode job list: %w", err)
	}
	return jobs, nil
}

// Status fetches the state of one job.
func (s *Service) Status(ctx context.Context, id int64) (*Job, error) {
	data, err := s.invoker.Invoke(ctx, commands.GetJobStatus, map[string]any{"jobid": id})
	if err != nil {
		return nil, fmt.Errorf("job status %d: %w", id, err)
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job status %d: %w", id, err)
	}
	return &job, nil
}

// Stop requests termination of a running job.
func (s *Service) Stop(ctx context.Context, id int64) error {
	if _, err := s.invoker.Invoke(ctx, commands.StopJob, map[string]any{"jobid": id}); err != nil {
		return fmt.Errorf("stop job %d: %w", id, err)
	}
	return nil
}
