package workflow

// Event is anything that can move the state machine.
type Event interface {
	Name() string
}

// PermissionResolved is the answer of the photo library consent prompt.
type PermissionResolved struct {
	Granted bool
	// Required is false on platforms that never prompt.
	Required bool
}

// PickRequested is emitted when the user taps the image well.
type PickRequested struct{}

// PickResolved carries the reference returned by the picker.
type PickResolved struct {
	Image SelectedImage
}

// PickCancelled is emitted when the user closes the picker without choosing.
type PickCancelled struct{}

// PickFailed is emitted when the picker errors out.
type PickFailed struct {
	Err error
}

// SubmitRequested is emitted synchronously when Verify is tapped, before any I/O.
type SubmitRequested struct {
	Token     uint64
	RequestID string
}

// SubmitResolved carries the label for the submission stamped with Token.
type SubmitResolved struct {
	Token  uint64
	Result string
}

// SubmitFailed carries the error for the submission stamped with Token.
type SubmitFailed struct {
	Token uint64
	Err   error
}

// NoticeDismissed clears the one-off user message.
type NoticeDismissed struct{}

func (PermissionResolved) Name() string { return "permission_resolved" }
func (PickRequested) Name() string      { return "pick_requested" }
func (PickResolved) Name() string       { return "pick_resolved" }
func (PickCancelled) Name() string      { return "pick_cancelled" }
func (PickFailed) Name() string         { return "pick_failed" }
func (SubmitRequested) Name() string    { return "submit_requested" }
func (SubmitResolved) Name() string     { return "submit_resolved" }
func (SubmitFailed) Name() string       { return "submit_failed" }
func (NoticeDismissed) Name() string    { return "notice_dismissed" }
