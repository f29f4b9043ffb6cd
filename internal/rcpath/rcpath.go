// Package rcpath builds the canonical "remote:path" strings the backend
// engine expects from structured path selections.
package rcpath

import "strings"

// Kind tags which filesystem a path selection refers to.
type Kind string

const (
	// KindLocal is a plain local filesystem path.
	KindLocal Kind = "local"
	// KindCurrentRemote is a path on the remote currently being configured.
	KindCurrentRemote Kind = "currentRemote"
	// KindOtherRemote is a path on some other configured remote. The tag
	// form "otherRemote:<name>" carries the remote name inline.
	KindOtherRemote Kind = "otherRemote"
)

// Selection describes one source or destination path.
type Selection struct {
	Kind  Kind   `json:"pathType"`
	Other string `json:"otherRemote,omitempty"`
	Path  string `json:"path"`
}

// Build produces the engine path string for a selection. Bare strings pass
// through unchanged (mount destinations are always local). Unknown or
// unsupported kinds yield an empty string; selections are expected to be
// validated before this runs.
func Build(sel any, currentRemote string) string {
	switch v := sel.(type) {
	case string:
		return v
	case Selection:
		return buildSelection(v, currentRemote)
	case *Selection:
		if v == nil {
			return ""
		}
		return buildSelection(*v, currentRemote)
	default:
		return ""
	}
}

func buildSelection(sel Selection, currentRemote string) string {
	kind, other := splitKind(sel.Kind)
	if other == "" {
		other = sel.Other
	}

	switch kind {
	case KindLocal:
		return sel.Path
	case KindCurrentRemote:
		if currentRemote == "" {
			return ""
		}
		return currentRemote + ":" + sel.Path
	case KindOtherRemote:
		if other == "" {
			return ""
		}
		return other + ":" + sel.Path
	default:
		return ""
	}
}

// splitKind separates the tagged form "otherRemote:<name>".
func splitKind(kind Kind) (Kind, string) {
	raw := string(kind)
	if name, ok := strings.CutPrefix(raw, string(KindOtherRemote)+":"); ok {
		return KindOtherRemote, name
	}
	return kind, ""
}
