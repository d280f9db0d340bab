package acquisition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Prompter asks the user one question and returns the typed answer. io.EOF or ErrPromptAborted
// mean the user backed out.
type Prompter interface {
	Prompt(question string) (string, error)
}

// ErrPromptAborted is returned by prompters when the user hits Ctrl+C.
var ErrPromptAborted = errors.New("prompt aborted")

// StaticPermission answers from configuration without asking anybody.
type StaticPermission struct {
	Granted  bool
	Required bool
}

// RequestPermission implements PermissionRequester.
func (p StaticPermission) RequestPermission(context.Context, PermissionKind) (PermissionResult, error) {
	return PermissionResult{Granted: p.Granted || !p.Required, Required: p.Required}, nil
}

// PromptPermission is the consent dialog, rendered as a yes/no question.
type PromptPermission struct {
	prompter Prompter
	library  string
}

// NewPromptPermission asks through prompter about access to library.
func NewPromptPermission(prompter Prompter, library string) *PromptPermission {
	return &PromptPermission{prompter: prompter, library: library}
}

// RequestPermission implements PermissionRequester. Anything but an explicit yes is a denial.
func (p *PromptPermission) RequestPermission(ctx context.Context, kind PermissionKind) (PermissionResult, error) {
	if err := ctx.Err(); err != nil {
		return PermissionResult{}, err
	}

	question := fmt.Sprintf("Allow access to your %s (%s)? [y/N] ", describeKind(kind), p.library)
	answer, err := p.prompter.Prompt(question)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, ErrPromptAborted) {
			return PermissionResult{Granted: false, Required: true}, nil
		}
		return PermissionResult{}, err
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return PermissionResult{Granted: true, Required: true}, nil
	default:
		return PermissionResult{Granted: false, Required: true}, nil
	}
}

func describeKind(kind PermissionKind) string {
	if kind == PhotoLibrary {
		return "photo library"
	}
	return strings.ReplaceAll(string(kind), "_", " ")
}
