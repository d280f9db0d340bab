package workflow

import "fmt"

const (
	Title            = "Forgery Detection"
	TriggerLabel     = "Verify"
	Placeholder      = "Tap to choose image"
	WaitingMessage   = "Please wait predicting..."
	failedStatusText = "Verification failed: %v. Tap Verify to try again."
	maxWellURI       = 48
)

// Screen is what the single screen shows for a given state.
type Screen struct {
	Title          string
	ImageWell      string
	HasImage       bool
	TriggerLabel   string
	TriggerEnabled bool
	// HasStatus is false only before the first submission. Status may be empty while HasStatus is
	// true when the service answered with an empty label.
	HasStatus bool
	Status    string
	Notice    string
}

// Render maps a state onto the screen. It has no side effects.
func Render(s State) Screen {
	screen := Screen{
		Title:        Title,
		ImageWell:    Placeholder,
		TriggerLabel: TriggerLabel,
		// Verify stays enabled while a request is pending: a new tap supersedes the old request.
		TriggerEnabled: true,
		Notice:         s.Notice,
	}

	if s.Image != nil {
		screen.HasImage = true
		screen.ImageWell = describeImage(*s.Image)
	}

	screen.HasStatus = s.Submission.Phase != Idle
	switch s.Submission.Phase {
	case InFlight:
		screen.Status = WaitingMessage
	case Succeeded:
		screen.Status = s.Submission.Result
	case Failed:
		screen.Status = fmt.Sprintf(failedStatusText, s.Submission.Err)
	}
	return screen
}

func describeImage(img SelectedImage) string {
	name := img.Source
	if name == "" {
		name = shorten(img.URI, maxWellURI)
	}
	if img.MIMEType == "" {
		return name
	}
	if img.Base64 != "" {
		return fmt.Sprintf("%s [%s, %d bytes]", name, img.MIMEType, decodedLen(img.Base64))
	}
	return fmt.Sprintf("%s [%s]", name, img.MIMEType)
}

func decodedLen(b64 string) int {
	n := len(b64) / 4 * 3
	for i := len(b64) - 1; i >= 0 && b64[i] == '='; i-- {
		n--
	}
	return n
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
