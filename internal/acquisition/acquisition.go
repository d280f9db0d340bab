// Package acquisition negotiates photo library access and lets the user pick one image.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/example/forgery-check/internal/logging"
	"github.com/example/forgery-check/internal/workflow"
)

// ErrPickFailed wraps every picker failure that is not a cancellation.
var ErrPickFailed = errors.New("image pick failed")

// PermissionKind names the platform permission being asked for.
type PermissionKind string

// PhotoLibrary is the only permission the client needs.
const PhotoLibrary PermissionKind = "photo_library"

// PermissionResult is the platform's answer.
type PermissionResult struct {
	Granted bool
	// Required is false when the platform grants access without asking.
	Required bool
}

// PermissionRequester is the platform permission API.
type PermissionRequester interface {
	RequestPermission(ctx context.Context, kind PermissionKind) (PermissionResult, error)
}

// MediaTypes filters what the picker offers.
type MediaTypes int

const (
	MediaImages MediaTypes = 1 << iota
	MediaVideos
	MediaAll = MediaImages | MediaVideos
)

// PickOptions are handed to the picker unchanged.
type PickOptions struct {
	MediaTypes    MediaTypes
	AllowsEditing bool
	// Aspect is the width:height ratio requested from the editing step.
	Aspect [2]int
	// Base64 asks the picker to embed the payload in the returned URI.
	Base64 bool
}

// DefaultPickOptions is a single image or video, editable, 4:3, with an embedded payload.
func DefaultPickOptions() PickOptions {
	return PickOptions{
		MediaTypes:    MediaAll,
		AllowsEditing: true,
		Aspect:        [2]int{4, 3},
		Base64:        true,
	}
}

// PickResult is either Cancelled or a reference.
type PickResult struct {
	Cancelled bool
	URI       string
	Base64    string
	MIMEType  string
	Source    string
}

// Picker is the platform image picker.
type Picker interface {
	Pick(ctx context.Context, opts PickOptions) (PickResult, error)
}

// Acquirer runs the permission prompt and the picker on behalf of the session.
type Acquirer struct {
	permissions PermissionRequester
	picker      Picker
	options     PickOptions
	logger      *zap.Logger

	mu       sync.Mutex
	answered *PermissionResult
}

// NewAcquirer wires the two platform collaborators.
func NewAcquirer(permissions PermissionRequester, picker Picker, options PickOptions, logger *zap.Logger) *Acquirer {
	return &Acquirer{
		permissions: permissions,
		picker:      picker,
		options:     options,
		logger:      logger.Named("acquisition"),
	}
}

// RequestLibraryPermission asks for photo library access at most once per session; later calls
// return the remembered answer. A failing prompt counts as denied and is not remembered.
func (a *Acquirer) RequestLibraryPermission(ctx context.Context) (PermissionResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.answered != nil {
		return *a.answered, nil
	}
	if a.permissions == nil {
		result := PermissionResult{Granted: true}
		a.answered = &result
		return result, nil
	}

	opLogger := logging.WithOperation(a.logger, "acquisition.request_permission", "")
	result, err := a.permissions.RequestPermission(ctx, PhotoLibrary)
	if err != nil {
		wrapped := logging.NewOperationError("acquisition.request_permission", "", err)
		opLogger.Warn("permission prompt failed, treating as denied", zap.Error(wrapped))
		return PermissionResult{Granted: false, Required: true}, wrapped
	}
	if result.Required && !result.Granted {
		opLogger.Warn("photo library permission denied")
	} else {
		opLogger.Info("photo library permission resolved", zap.Bool("granted", result.Granted), zap.Bool("required", result.Required))
	}
	a.answered = &result
	return result, nil
}

// PickImage opens the picker. It returns (nil, nil) when the user cancels and wraps every failure,
// including a panicking picker, in ErrPickFailed.
func (a *Acquirer) PickImage(ctx context.Context) (image *workflow.SelectedImage, err error) {
	opLogger := logging.WithOperation(a.logger, "acquisition.pick_image", "")
	defer func() {
		if r := recover(); r != nil {
			image = nil
			err = logging.NewOperationError("acquisition.pick_image", "", fmt.Errorf("%w: picker panicked: %v", ErrPickFailed, r))
			opLogger.Error("picker panicked", zap.Error(err))
		}
	}()

	result, err := a.picker.Pick(ctx, a.options)
	if err != nil {
		wrapped := logging.NewOperationError("acquisition.pick_image", "", fmt.Errorf("%w: %w", ErrPickFailed, err))
		opLogger.Error("image pick failed", zap.Error(wrapped))
		return nil, wrapped
	}
	if result.Cancelled {
		opLogger.Debug("image pick cancelled")
		return nil, nil
	}
	if result.URI == "" {
		wrapped := logging.NewOperationError("acquisition.pick_image", "", fmt.Errorf("%w: picker returned an empty reference", ErrPickFailed))
		opLogger.Error("image pick failed", zap.Error(wrapped))
		return nil, wrapped
	}

	opLogger.Info("image selected",
		zap.String("source", result.Source),
		zap.String("mime_type", result.MIMEType),
		logging.Payload("uri", &result.URI),
	)
	return &workflow.SelectedImage{
		URI:      result.URI,
		Base64:   result.Base64,
		MIMEType: result.MIMEType,
		Source:   result.Source,
	}, nil
}
