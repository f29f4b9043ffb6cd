package eventbus

import (
	"encoding/json"
	"time"
)

// Event names a logical channel on the bus. Backend transports publish
// whatever event names the engine emits; the constants below cover the
// events the client itself reacts to. Unknown names are valid topics.
type Event string

const (
	EventJobProgress   Event = "job.progress"
	EventJobFinished   Event = "job.finished"
	EventMountState    Event = "mount.state"
	EventRemoteChanged Event = "remote.changed"
	EventSettingsSaved Event = "settings.saved"
	EventNotice        Event = "notice"
	// EventMessage wraps well-formed frames that do not carry the expected
	// {event, payload} shape, so no data is silently lost.
	EventMessage Event = "message"
	// EventStreamState is published locally when the event stream client
	// changes connection state.
	EventStreamState Event = "stream.state"
)

// Source describes which transport produced an event.
type Source string

const (
	SourceStream  Source = "stream"
	SourceBridge  Source = "bridge"
	SourceClient  Source = "client"
	SourceUnknown Source = "unknown"
)

// Envelope wraps every message published on the bus. Payloads are kept as
// raw JSON; both transports deliver JSON frames and subscribers decode the
// shapes they care about.
type Envelope struct {
	Event     Event
	Timestamp time.Time
	Source    Source
	Payload   json.RawMessage
}

// JobProgressEvent is the payload shape of job.progress frames.
type JobProgressEvent struct {
	JobID     int64   `json:"jobid"`
	Name      string  `json:"name"`
	Group     string  `json:"group"`
	Bytes     int64   `json:"bytes"`
	Speed     float64 `json:"speed"`
	Transfers int64   `json:"transfers"`
	Errors    int64   `json:"errors"`
	Finished  bool    `json:"finished"`
}

// JobFinishedEvent is the payload shape of job.finished frames.
type JobFinishedEvent struct {
	JobID    int64   `json:"jobid"`
	Success  bool    `json:"success"`
	Error    string  `json:"error"`
	Duration float64 `json:"duration"`
}

// MountStateEvent notifies about mount/unmount transitions.
type MountStateEvent struct {
	Remote     string `json:"remote"`
	MountPoint string `json:"mountPoint"`
	Mounted    bool   `json:"mounted"`
}

// RemoteChangedEvent signals that the backend's remote list changed.
type RemoteChangedEvent struct {
	Remote string `json:"remote"`
	Change string `json:"change"` // "created", "updated", "deleted"
}

// StreamStateEvent reports event-stream connection transitions.
type StreamStateEvent struct {
	State   string `json:"state"`
	Attempt int    `json:"attempt"`
	LastErr string `json:"lastError,omitempty"`
}
