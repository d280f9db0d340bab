// Package console renders the verification screen in a terminal and maps typed commands onto
// taps.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/example/forgery-check/internal/acquisition"
	"github.com/example/forgery-check/internal/session"
	"github.com/example/forgery-check/internal/workflow"
)

// DefaultPrompt is shown while waiting for a command.
const DefaultPrompt = "> "

// ErrInterrupt is what a LineReader returns on Ctrl+C. The binary maps readline's own value onto it.
var ErrInterrupt = errors.New("interrupt")

const helpText = `Commands:
  tap, pick      open the photo library (the image well)
  verify, v      send the image to the detection service
  status, s      redraw the screen
  dismiss        clear the notice
  stats          show session counters
  help           this text
  quit, q        leave`

// LineReader is the input side of the terminal.
type LineReader interface {
	Readline() (string, error)
}

type promptSetter interface {
	SetPrompt(prompt string)
}

// Console is the terminal screen.
type Console struct {
	session *session.Session
	in      LineReader
	out     io.Writer
	logger  *zap.Logger

	readMu sync.Mutex

	mu   sync.Mutex
	last workflow.Screen
}

// New creates a console reading from in and drawing to out. Bind must be called before Run; the
// split lets the picker and permission dialog share the console's input before the session exists.
func New(in LineReader, out io.Writer, logger *zap.Logger) *Console {
	return &Console{in: in, out: out, logger: logger.Named("console")}
}

// Bind attaches the session whose state the console draws.
func (c *Console) Bind(sess *session.Session) {
	c.session = sess
	sess.OnChange(c.onChange)
}

// Prompter returns a prompter that shares the console's input, for the permission dialog and
// the picker.
func (c *Console) Prompter() acquisition.Prompter {
	return &linePrompter{console: c}
}

// Run draws the screen, negotiates permissions and processes commands until quit, EOF or ctx is
// done. It does not wait for pending verifications.
func (c *Console) Run(ctx context.Context) error {
	c.Redraw()
	if err := c.session.Start(ctx); err != nil {
		c.logger.Warn("permission negotiation failed", zap.Error(err))
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line, err := c.readLine(DefaultPrompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, ErrInterrupt) {
				return nil
			}
			return err
		}

		quit, err := c.Execute(ctx, line)
		if err != nil {
			c.logger.Debug("command failed", zap.String("command", line), zap.Error(err))
		}
		if quit {
			return nil
		}
	}
}

// Execute runs one command line. It reports whether the user asked to quit.
func (c *Console) Execute(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch strings.ToLower(fields[0]) {
	case "tap", "pick", "t":
		return false, c.session.TapImageWell(ctx)

	case "verify", "v":
		pending := c.session.Submit(ctx)
		go func() {
			if _, err := pending.Wait(); err != nil {
				c.logger.Debug("verification returned an error",
					zap.String("request_id", pending.RequestID),
					zap.Bool("superseded", c.session.IsSuperseded(pending)),
					zap.Error(err),
				)
			}
		}()
		return false, nil

	case "status", "s":
		c.Redraw()

	case "dismiss":
		c.session.DismissNotice()

	case "stats":
		c.printStats(c.session.Stats())

	case "help", "h", "?":
		c.println(helpText)

	case "quit", "exit", "q":
		return true, nil

	default:
		c.println(fmt.Sprintf("Unknown command %q. Type help for the list.", fields[0]))
	}
	return false, nil
}

// Redraw prints the whole screen for the current state.
func (c *Console) Redraw() {
	screen := workflow.Render(c.session.State())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = screen
	fmt.Fprint(c.out, FormatScreen(screen))
}

// onChange prints only the parts of the screen that changed.
func (c *Console) onChange(st workflow.State) {
	screen := workflow.Render(st)

	c.mu.Lock()
	defer c.mu.Unlock()
	if screen == c.last {
		return
	}
	fmt.Fprint(c.out, formatChanges(c.last, screen))
	c.last = screen
}

func (c *Console) printStats(st session.Stats) {
	c.println(fmt.Sprintf("submitted=%d succeeded=%d failed=%d discarded=%d picks=%d cancelled=%d pick_failures=%d success_rate=%.2f",
		st.Submitted, st.Succeeded, st.Failed, st.Discarded, st.Picks, st.PickCancels, st.PickFailures, st.SuccessRate()))
}

func (c *Console) println(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}

func (c *Console) readLine(prompt string) (string, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if ps, ok := c.in.(promptSetter); ok {
		ps.SetPrompt(prompt)
		defer ps.SetPrompt(DefaultPrompt)
	} else if prompt != DefaultPrompt {
		c.mu.Lock()
		fmt.Fprint(c.out, prompt)
		c.mu.Unlock()
	}
	return c.in.Readline()
}

type linePrompter struct {
	console *Console
}

func (p *linePrompter) Prompt(question string) (string, error) {
	line, err := p.console.readLine(question)
	if errors.Is(err, ErrInterrupt) {
		return "", acquisition.ErrPromptAborted
	}
	return line, err
}
