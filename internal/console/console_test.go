package console

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/forgery-check/internal/acquisition"
	"github.com/example/forgery-check/internal/classifier"
	"github.com/example/forgery-check/internal/session"
	"github.com/example/forgery-check/internal/stubservice"
	"github.com/example/forgery-check/internal/workflow"
)

type scriptedReader struct {
	mu      sync.Mutex
	lines   []string
	prompts []string
}

func (r *scriptedReader) SetPrompt(prompt string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
}

func (r *scriptedReader) Readline() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	if line == "^C" {
		return "", ErrInterrupt
	}
	return line, nil
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newLibrary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 3))))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.png"), buf.Bytes(), 0o600))
	return dir
}

func newStubEndpoint(t *testing.T, verdict stubservice.Verdict) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	stubservice.RegisterRoutes(router, stubservice.NewService(verdict, 0, zap.NewNop()))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv.URL + "/"
}

type harness struct {
	console *Console
	session *session.Session
	reader  *scriptedReader
	out     *lockedBuffer
}

func newHarness(t *testing.T, endpoint string, perms acquisition.PermissionRequester, lines ...string) *harness {
	t.Helper()
	reader := &scriptedReader{lines: lines}
	out := &lockedBuffer{}
	logger := zap.NewNop()

	c := New(reader, out, logger)
	if perms == nil {
		perms = acquisition.NewPromptPermission(c.Prompter(), "library")
	}
	dir := newLibrary(t)
	acq := acquisition.NewAcquirer(perms, acquisition.NewLibraryPicker(dir, c.Prompter(), out), acquisition.DefaultPickOptions(), logger)
	sess := session.New(acq, classifier.NewHTTPClient(classifier.Options{Endpoint: endpoint}, logger), logger)
	c.Bind(sess)
	return &harness{console: c, session: sess, reader: reader, out: out}
}

func TestEndToEndDeniedPermissionStillVerifies(t *testing.T) {
	endpoint := newStubEndpoint(t, stubservice.FixedVerdict("forged"))
	h := newHarness(t, endpoint, nil, "n", "tap", "1", "verify", "quit")

	require.NoError(t, h.console.Run(context.Background()))
	h.session.Wait()

	out := h.out.String()
	steps := []string{
		"[ Tap to choose image ]",
		"! " + workflow.PermissionDeniedNotice,
		"1) photo.png (image/png)",
		"[ image: photo.png [image/png,",
		"Please wait predicting...",
		"forged",
	}
	pos := 0
	for _, step := range steps {
		idx := strings.Index(out[pos:], step)
		require.GreaterOrEqual(t, idx, 0, "missing %q after offset %d in:\n%s", step, pos, out)
		pos += idx + len(step)
	}

	st := h.session.State()
	require.Equal(t, workflow.PermissionDenied, st.Permission)
	require.Equal(t, workflow.Succeeded, st.Submission.Phase)
	require.Equal(t, "forged", st.Submission.Result)
	require.Contains(t, h.reader.prompts, "Allow access to your photo library (library)? [y/N] ")
}

func TestVerifyWithoutImageShowsServiceAnswer(t *testing.T) {
	endpoint := newStubEndpoint(t, stubservice.FixedVerdict("forged"))
	h := newHarness(t, endpoint, acquisition.StaticPermission{Granted: true, Required: true}, "verify", "quit")

	require.NoError(t, h.console.Run(context.Background()))
	h.session.Wait()

	require.Equal(t, stubservice.NoImageLabel, h.session.State().Submission.Result)
	require.Contains(t, h.out.String(), stubservice.NoImageLabel)
}

func TestEmptyLabelReplacesWaitingLine(t *testing.T) {
	endpoint := newStubEndpoint(t, stubservice.FixedVerdict(""))
	h := newHarness(t, endpoint, acquisition.StaticPermission{Required: false}, "tap", "1", "verify", "quit")

	require.NoError(t, h.console.Run(context.Background()))
	h.session.Wait()

	st := h.session.State()
	require.Equal(t, workflow.Succeeded, st.Submission.Phase)
	require.Empty(t, st.Submission.Result)

	out := h.out.String()
	wait := strings.Index(out, workflow.WaitingMessage)
	require.GreaterOrEqual(t, wait, 0, out)
	require.Contains(t, out[wait:], EmptyResult+"\n")
}

func TestFormatChangesPrintsEveryStatusChange(t *testing.T) {
	inflight := workflow.Reduce(workflow.Initial(), workflow.SubmitRequested{Token: 1})
	done := workflow.Reduce(inflight, workflow.SubmitResolved{Token: 1, Result: ""})

	require.Equal(t, workflow.WaitingMessage+"\n", formatChanges(workflow.Render(workflow.Initial()), workflow.Render(inflight)))
	require.Equal(t, EmptyResult+"\n", formatChanges(workflow.Render(inflight), workflow.Render(done)))
	require.Empty(t, formatChanges(workflow.Render(done), workflow.Render(done)))
}

func TestVerifyFailureIsShown(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1/", acquisition.StaticPermission{Required: false}, "verify", "quit")

	require.NoError(t, h.console.Run(context.Background()))
	h.session.Wait()

	require.Equal(t, workflow.Failed, h.session.State().Submission.Phase)
	require.Contains(t, h.out.String(), "Verification failed:")
}

func TestCancelledPickKeepsPlaceholder(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1/", acquisition.StaticPermission{Required: false}, "tap", "", "status", "quit")

	require.NoError(t, h.console.Run(context.Background()))
	require.Nil(t, h.session.State().Image)
	require.Equal(t, 2, strings.Count(h.out.String(), "[ Tap to choose image ]"))
	require.Equal(t, int64(1), h.session.Stats().PickCancels)
}

func TestInterruptDuringPickCancels(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1/", acquisition.StaticPermission{Required: false}, "tap", "^C", "quit")

	require.NoError(t, h.console.Run(context.Background()))
	require.Nil(t, h.session.State().Image)
	require.Equal(t, int64(1), h.session.Stats().PickCancels)
}

func TestBadPickShowsNotice(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1/", acquisition.StaticPermission{Required: false}, "tap", "42", "quit")

	require.NoError(t, h.console.Run(context.Background()))
	require.Contains(t, h.out.String(), "! Could not load the image")
	require.Equal(t, int64(1), h.session.Stats().PickFailures)
}

func TestHelpStatsAndUnknownCommands(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1/", acquisition.StaticPermission{Required: false}, "help", "stats", "dance", "")

	require.NoError(t, h.console.Run(context.Background()))
	out := h.out.String()
	require.Contains(t, out, "Commands:")
	require.Contains(t, out, "submitted=0 succeeded=0")
	require.Contains(t, out, `Unknown command "dance"`)
}

func TestRunStopsOnInterrupt(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1/", acquisition.StaticPermission{Required: false}, "^C", "verify")

	require.NoError(t, h.console.Run(context.Background()))
	require.Equal(t, int64(0), h.session.Stats().Submitted)
}

func TestFormatScreen(t *testing.T) {
	screen := workflow.Screen{
		Title:          "Forgery Detection",
		ImageWell:      "cat.jpg [image/jpeg]",
		HasImage:       true,
		TriggerLabel:   "Verify",
		TriggerEnabled: true,
		HasStatus:      true,
		Status:         "authentic",
	}
	require.Equal(t, "==== Forgery Detection ====\n[ image: cat.jpg [image/jpeg] ]\n( Verify )\nauthentic\n", FormatScreen(screen))
}
