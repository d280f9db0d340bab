// Package session drives the screen state: it owns the current workflow.State, runs the
// acquisition and classification collaborators and feeds their outcomes back through
// workflow.Reduce.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/forgery-check/internal/acquisition"
	"github.com/example/forgery-check/internal/classifier"
	"github.com/example/forgery-check/internal/logging"
	"github.com/example/forgery-check/internal/workflow"
)

// ImageSource is the part of the acquisition component the session needs.
type ImageSource interface {
	RequestLibraryPermission(ctx context.Context) (acquisition.PermissionResult, error)
	PickImage(ctx context.Context) (*workflow.SelectedImage, error)
}

// Observer is notified with the new state after every applied transition, from whichever
// goroutine caused the change. It must not call back into methods that change the state.
type Observer func(workflow.State)

// Session is the single-screen controller.
type Session struct {
	images     ImageSource
	classifier classifier.Client
	logger     *zap.Logger
	newID      func() string

	mu       sync.Mutex
	state    workflow.State
	token    uint64
	stats    Stats
	observer Observer

	notifyMu sync.Mutex
	inflight sync.WaitGroup
}

// New constructs a session in the launch state.
func New(images ImageSource, client classifier.Client, logger *zap.Logger) *Session {
	return &Session{
		images:     images,
		classifier: client,
		logger:     logger.Named("session"),
		newID:      uuid.NewString,
		state:      workflow.Initial(),
	}
}

// OnChange registers the observer that redraws the screen.
func (s *Session) OnChange(observer Observer) {
	s.mu.Lock()
	s.observer = observer
	s.mu.Unlock()
}

// State returns the current state value.
func (s *Session) State() workflow.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start runs the startup permission negotiation. A denial only produces a notice.
func (s *Session) Start(ctx context.Context) error {
	result, err := s.images.RequestLibraryPermission(ctx)
	s.dispatch(workflow.PermissionResolved{Granted: result.Granted, Required: result.Required})
	return err
}

// TapImageWell opens the picker and applies its outcome. Pick failures are logged, shown as a
// notice and returned; the selected image is untouched on cancel or failure.
func (s *Session) TapImageWell(ctx context.Context) error {
	s.dispatch(workflow.PickRequested{})
	s.count(func(st *Stats) { st.Picks++ })

	image, err := s.images.PickImage(ctx)
	switch {
	case err != nil:
		s.logger.Warn("image pick failed", zap.Error(err))
		s.count(func(st *Stats) { st.PickFailures++ })
		s.dispatch(workflow.PickFailed{Err: logging.Cause(err)})
		return err
	case image == nil:
		s.count(func(st *Stats) { st.PickCancels++ })
		s.dispatch(workflow.PickCancelled{})
		return nil
	default:
		s.dispatch(workflow.PickResolved{Image: *image})
		return nil
	}
}

// DismissNotice clears the notice line.
func (s *Session) DismissNotice() {
	s.dispatch(workflow.NoticeDismissed{})
}

// Submit starts one verification of the current image. The state is InFlight when Submit
// returns, before the request leaves. A later Submit supersedes this one: its answer is then
// discarded, but Pending.Wait still reports it.
func (s *Session) Submit(ctx context.Context) *Pending {
	requestID := s.newID()

	s.mu.Lock()
	s.token++
	token := s.token
	baseString := s.state.BaseString()
	s.stats.Submitted++
	s.mu.Unlock()

	opLogger := logging.WithOperation(s.logger, "session.submit", requestID)
	opLogger.Info("submitting image for verification",
		zap.Uint64("token", token),
		logging.Payload("baseString", baseString),
	)
	s.dispatch(workflow.SubmitRequested{Token: token, RequestID: requestID})

	pending := &Pending{Token: token, RequestID: requestID, done: make(chan struct{})}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer close(pending.done)

		result, err := s.classifier.Classify(ctx, requestID, baseString)
		if err != nil {
			pending.err = logging.NewOperationError("session.submit", requestID, err)
			opLogger.Error("verification failed", zap.Error(err), zap.Uint64("token", token))
			if !s.dispatch(workflow.SubmitFailed{Token: token, Err: logging.Cause(err)}) {
				s.discarded(opLogger, token)
				return
			}
			s.count(func(st *Stats) { st.Failed++ })
			return
		}

		pending.result = result.Label
		if !s.dispatch(workflow.SubmitResolved{Token: token, Result: result.Label}) {
			s.discarded(opLogger, token)
			return
		}
		s.count(func(st *Stats) { st.Succeeded++ })
	}()
	return pending
}

// Wait blocks until every submitted request has completed.
func (s *Session) Wait() {
	s.inflight.Wait()
}

func (s *Session) discarded(opLogger *zap.Logger, token uint64) {
	s.count(func(st *Stats) { st.Discarded++ })
	opLogger.Info("discarding superseded verification answer", zap.Uint64("token", token))
}

// dispatch applies e and notifies the observer. It reports whether the event was applied.
func (s *Session) dispatch(e workflow.Event) bool {
	// notifyMu keeps observer calls in the same order as the transitions they report.
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	next, applied := workflow.Transition(s.state, e)
	if applied {
		s.state = next
	}
	observer := s.observer
	s.mu.Unlock()

	if !applied {
		return false
	}
	s.logger.Debug("state transition",
		zap.String("event", e.Name()),
		zap.Stringer("phase", next.Submission.Phase),
		zap.Bool("has_image", next.Image != nil),
	)
	if observer != nil {
		observer(next)
	}
	return true
}

func (s *Session) count(fn func(*Stats)) {
	s.mu.Lock()
	fn(&s.stats)
	s.mu.Unlock()
}

// Pending is the handle of one submission.
type Pending struct {
	Token     uint64
	RequestID string

	done   chan struct{}
	result string
	err    error
}

// Done is closed when the request has completed.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the request completes and returns its label or error. The error is returned
// even when a newer submission superseded this one.
func (p *Pending) Wait() (string, error) {
	<-p.done
	return p.result, p.err
}

// IsSuperseded reports whether a newer submission replaced p, so its answer never reached the
// screen.
func (s *Session) IsSuperseded(p *Pending) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return p.Token != s.state.LatestToken
}
