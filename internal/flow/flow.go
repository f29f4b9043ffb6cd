// Package flow drives the multi-round question/answer exchange required
// when creating remotes whose provider needs step-by-step setup (OAuth and
// similar). The flow stages the remote's settings up front and guarantees
// they are persisted once the exchange reaches any terminal state,
// including errors: a failed round never strands a half-configured remote.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/rcmate/rcmate/internal/jobs"
	"github.com/rcmate/rcmate/internal/remotes"
	"github.com/rcmate/rcmate/internal/settings"
)

// Phase labels the flow's lifecycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseAwaiting   Phase = "awaiting-answer"
	PhaseSubmitting Phase = "submitting"
	PhaseFinalizing Phase = "finalizing"
)

var (
	// ErrAlreadyActive is returned by Start while an exchange is in progress.
	ErrAlreadyActive = errors.New("flow: interactive configuration already active")
	// ErrNotAwaiting is returned by Submit when there is no question to answer.
	ErrNotAwaiting = errors.New("flow: no question awaiting an answer")
	// ErrRoundFailed wraps backend failures during start/continue. The staged
	// configuration has still been persisted when this is returned.
	ErrRoundFailed = errors.New("flow: interactive round failed")
)

// ConfigClient is the interactive sub-protocol surface of the remotes service.
type ConfigClient interface {
	StartInteractive(ctx context.Context, name, typ string, params map[string]any, flags remotes.Flags) (*remotes.Question, error)
	ContinueInteractive(ctx context.Context, name, state string, answer any, flags remotes.Flags) (*remotes.Question, error)
	StopAuth(ctx context.Context, name string) error
}

// SettingsStore persists the staged remote settings.
type SettingsStore interface {
	Save(ctx context.Context, rs settings.RemoteSettings) error
}

// JobStarter launches the auto-start operations after finalize.
type JobStarter interface {
	Start(ctx context.Context, kind jobs.Kind, source, dest string, opts map[string]any) (int64, error)
	Mount(ctx context.Context, source, mountPoint string, opts map[string]any) error
}

// Flow holds one interactive remote-creation attempt. Rounds are strictly
// sequential: Submit only issues a new continue call after the previous
// round's response was processed.
type Flow struct {
	config  ConfigClient
	store   SettingsStore
	starter JobStarter
	logger  *log.Logger
	flags   remotes.Flags

	mu            sync.Mutex
	phase         Phase
	staged        settings.RemoteSettings
	question      *remotes.Question
	answer        any
	authCancelled bool
}

// Option customises a flow.
type Option func(*Flow)

// WithLogger overrides the logger used for auto-start and cancel warnings.
func WithLogger(logger *log.Logger) Option {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithFlags sets the config-session flags sent on every round.
func WithFlags(flags remotes.Flags) Option {
	return func(f *Flow) {
		f.flags = flags
	}
}

// New builds an idle flow.
func New(config ConfigClient, store SettingsStore, starter JobStarter, opts ...Option) *Flow {
	f := &Flow{
		config:  config,
		store:   store,
		starter: starter,
		logger:  log.Default(),
		phase:   PhaseIdle,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Phase returns the current lifecycle phase.
func (f *Flow) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Active reports whether an exchange is in progress.
func (f *Flow) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase == PhaseAwaiting || f.phase == PhaseSubmitting
}

// Question returns the last question received from the backend, if any.
func (f *Flow) Question() *remotes.Question {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.question
}

// Answer returns the current answer value.
func (f *Flow) Answer() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.answer
}

// SetAnswer records the user's in-progress answer. Edits are only accepted
// while a question is awaiting an answer.
func (f *Flow) SetAnswer(value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase == PhaseAwaiting {
		f.answer = value
	}
}

// CanContinue reports whether the continue action is currently allowed.
func (f *Flow) CanContinue() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return CanContinue(f.phase == PhaseSubmitting || f.phase == PhaseFinalizing, f.authCancelled, f.question, f.answer)
}

// Start opens the exchange for the staged remote. If the backend needs no
// interaction (empty initial state token) the flow finalizes immediately
// and never becomes active. A backend failure also finalizes, so the
// staged configuration is persisted either way.
func (f *Flow) Start(ctx context.Context, staged settings.RemoteSettings, params map[string]any) error {
	f.mu.Lock()
	if f.phase != PhaseIdle {
		f.mu.Unlock()
		return ErrAlreadyActive
	}
	f.phase = PhaseSubmitting
	f.staged = staged
	f.authCancelled = false
	f.question = nil
	f.answer = nil
	f.mu.Unlock()

	q, err := f.config.StartInteractive(ctx, staged.Name, staged.Type, params, f.flags)
	if err != nil {
		finalizeErr := f.finalize(ctx)
		return joinRoundError(err, finalizeErr)
	}
	if q.Terminal() {
		return f.finalize(ctx)
	}

	f.mu.Lock()
	f.question = q
	f.answer = DefaultAnswer(q.Option)
	f.phase = PhaseAwaiting
	f.mu.Unlock()
	return nil
}

// Submit sends the current answer and either stores the next question or,
// on a terminal response, finalizes. Boolean answers are canonicalized to
// the string form the backend expects.
func (f *Flow) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.phase != PhaseAwaiting || f.question == nil {
		f.mu.Unlock()
		return ErrNotAwaiting
	}
	f.phase = PhaseSubmitting
	state := f.question.State
	answer := CanonicalAnswer(f.answer)
	f.mu.Unlock()

	q, err := f.config.ContinueInteractive(ctx, f.staged.Name, state, answer, f.flags)

	f.mu.Lock()
	if f.phase != PhaseSubmitting {
		// Cancelled while the round was in flight; the late response is ignored.
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()

	if err != nil {
		finalizeErr := f.finalize(ctx)
		return joinRoundError(err, finalizeErr)
	}
	if q.Terminal() {
		return f.finalize(ctx)
	}

	f.mu.Lock()
	f.question = q
	f.answer = DefaultAnswer(q.Option)
	f.phase = PhaseAwaiting
	f.mu.Unlock()
	return nil
}

// Cancel abandons the exchange without finalizing. The backend is asked to
// tear down any pending authentication; that request is best-effort.
func (f *Flow) Cancel(ctx context.Context) {
	f.mu.Lock()
	if f.phase == PhaseIdle {
		f.mu.Unlock()
		return
	}
	name := f.staged.Name
	f.authCancelled = true
	f.reset()
	f.mu.Unlock()

	if err := f.config.StopAuth(ctx, name); err != nil {
		f.logger.Printf("[flow] stop auth for %s: %v", name, err)
	}
}

// finalize persists the staged configuration and fires qualifying
// auto-start operations. Auto-start failures are logged, never propagated.
func (f *Flow) finalize(ctx context.Context) error {
	f.mu.Lock()
	f.phase = PhaseFinalizing
	staged := f.staged
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.reset()
		f.mu.Unlock()
	}()

	if err := f.store.Save(ctx, staged); err != nil {
		return fmt.Errorf("flow: persist settings for %s: %w", staged.Name, err)
	}

	for _, auto := range staged.AutoStarts() {
		if auto.Op == settings.OpMount {
			if err := f.starter.Mount(ctx, auto.Source, auto.Dest, auto.Options); err != nil {
				f.logger.Printf("[flow] auto-start mount %s: %v", auto.Source, err)
			}
			continue
		}
		if _, err := f.starter.Start(ctx, jobs.Kind(auto.Op), auto.Source, auto.Dest, auto.Options); err != nil {
			f.logger.Printf("[flow] auto-start %s %s: %v", auto.Op, auto.Source, err)
		}
	}
	return nil
}

// reset returns the flow to idle. Caller holds f.mu.
func (f *Flow) reset() {
	f.phase = PhaseIdle
	f.question = nil
	f.answer = nil
}

func joinRoundError(roundErr, finalizeErr error) error {
	if finalizeErr != nil {
		return fmt.Errorf("%w: %v (and finalize failed: %v)", ErrRoundFailed, roundErr, finalizeErr)
	}
	return fmt.Errorf("%w: %v", ErrRoundFailed, roundErr)
}

// CanonicalAnswer converts boolean answers to the "true"/"false" strings
// the backend expects; everything else passes through unchanged.
func CanonicalAnswer(answer any) any {
	if b, ok := answer.(bool); ok {
		if b {
			return "true"
		}
		return "false"
	}
	return answer
}

// DefaultAnswer computes the initial answer for a question: an explicit
// current value first, then the string-typed default, then the typed
// default, then true for boolean questions; otherwise the first example
// value, or an empty string.
func DefaultAnswer(opt *remotes.Option) any {
	if opt == nil {
		return ""
	}
	if opt.Value != nil {
		return opt.Value
	}
	if opt.DefaultStr != "" {
		return opt.DefaultStr
	}
	if opt.Default != nil {
		return opt.Default
	}
	if opt.Type == "bool" {
		return true
	}
	if len(opt.Examples) > 0 {
		return opt.Examples[0].Value
	}
	return ""
}

// CanContinue implements the continue-button enablement rule: disabled
// while a submission is processing, after authentication was cancelled, or
// when a required question has no usable answer.
func CanContinue(processing, authCancelled bool, q *remotes.Question, answer any) bool {
	if processing || authCancelled {
		return false
	}
	if q == nil || q.Option == nil || !q.Option.Required {
		return true
	}
	switch v := answer.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	default:
		return true
	}
}
