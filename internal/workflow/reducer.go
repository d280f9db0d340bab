package workflow

import "fmt"

const (
	// PermissionDeniedNotice is shown once when photo library access is refused.
	PermissionDeniedNotice = "Sorry, we need camera roll permissions to make this work!"
	pickFailedNotice       = "Could not load the image (%v). Tap the image well to try again."
)

// Reduce applies e to s and returns the next state. Events that do not apply (stale tokens,
// unknown events) return s unchanged.
func Reduce(s State, e Event) State {
	next, _ := Transition(s, e)
	return next
}

// Transition is Reduce that also reports whether the event was applied. A false result for a
// SubmitResolved or SubmitFailed means the completion was stale and got discarded.
func Transition(s State, e Event) (State, bool) {
	switch ev := e.(type) {
	case PermissionResolved:
		switch {
		case !ev.Required:
			s.Permission = PermissionNotRequired
		case ev.Granted:
			s.Permission = PermissionGranted
		default:
			s.Permission = PermissionDenied
			s.Notice = PermissionDeniedNotice
		}
		return s, true

	case PickRequested:
		s.Picking = true
		s.Notice = ""
		return s, true

	case PickResolved:
		image := ev.Image
		s.Image = &image
		s.Picking = false
		return s, true

	case PickCancelled:
		s.Picking = false
		return s, true

	case PickFailed:
		s.Picking = false
		s.Notice = fmt.Sprintf(pickFailedNotice, ev.Err)
		return s, true

	case SubmitRequested:
		if ev.Token <= s.LatestToken {
			return s, false
		}
		s.LatestToken = ev.Token
		s.Submission = Submission{Phase: InFlight, Token: ev.Token, RequestID: ev.RequestID}
		return s, true

	case SubmitResolved:
		if !s.awaiting(ev.Token) {
			return s, false
		}
		s.Submission.Phase = Succeeded
		s.Submission.Result = ev.Result
		s.Submission.Err = nil
		return s, true

	case SubmitFailed:
		if !s.awaiting(ev.Token) {
			return s, false
		}
		s.Submission.Phase = Failed
		s.Submission.Result = ""
		s.Submission.Err = ev.Err
		return s, true

	case NoticeDismissed:
		s.Notice = ""
		return s, true
	}
	return s, false
}

func (s State) awaiting(token uint64) bool {
	return s.Submission.Phase == InFlight && s.Submission.Token == token && token == s.LatestToken
}
