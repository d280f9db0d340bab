// Package workflow holds the image selection and verification state machine. State is an
// immutable value; the only way to change it is Reduce.
package workflow

import "strings"

// Phase is the lifecycle of the most recent verification request.
type Phase int

const (
	// Idle means nothing has been submitted since launch.
	Idle Phase = iota
	// InFlight means a request was sent and its answer is pending.
	InFlight
	// Succeeded means the latest request returned a label.
	Succeeded
	// Failed means the latest request could not be completed or decoded.
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case InFlight:
		return "in_flight"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// PermissionStatus records the outcome of the photo library consent prompt.
type PermissionStatus int

const (
	PermissionUnknown PermissionStatus = iota
	PermissionGranted
	PermissionDenied
	// PermissionNotRequired is reported on platforms that never ask.
	PermissionNotRequired
)

func (p PermissionStatus) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	case PermissionNotRequired:
		return "not_required"
	default:
		return "unknown"
	}
}

// SelectedImage is a reference to the picked image. URI is what gets submitted and may be a
// data URI carrying the base64 payload.
type SelectedImage struct {
	URI      string
	Base64   string
	MIMEType string
	// Source is a human readable origin (file name) for the image well.
	Source string
}

// IsDataURI reports whether the reference embeds its payload.
func (i SelectedImage) IsDataURI() bool {
	return strings.HasPrefix(i.URI, "data:")
}

// Submission is the verification half of the state.
type Submission struct {
	Phase     Phase
	Result    string
	Err       error
	Token     uint64
	RequestID string
}

// State is the whole screen state. Treat it as a value: Reduce never mutates its input.
type State struct {
	Image      *SelectedImage
	Submission Submission
	Permission PermissionStatus
	// Notice is a one-off message for the user (permission warning, failed pick).
	Notice string
	// LatestToken is the token of the newest submit; older completions are stale.
	LatestToken uint64
	// Picking is true while the picker UI is open.
	Picking bool
}

// Initial returns the state at launch.
func Initial() State {
	return State{}
}

// BaseString is the request field value for the current image: nil when nothing was picked.
func (s State) BaseString() *string {
	if s.Image == nil {
		return nil
	}
	uri := s.Image.URI
	return &uri
}

// Pending reports whether a verification answer is awaited.
func (s State) Pending() bool {
	return s.Submission.Phase == InFlight
}

// Complete reports whether the latest verification produced a label.
func (s State) Complete() bool {
	return s.Submission.Phase == Succeeded
}
