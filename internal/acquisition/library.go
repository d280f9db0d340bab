package acquisition

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrEmptyLibrary is returned when the library holds nothing the filter accepts.
	ErrEmptyLibrary = errors.New("photo library is empty")
	// ErrUnsupportedMedia is returned when the chosen file is outside the media type filter.
	ErrUnsupportedMedia = errors.New("unsupported media type")
	// ErrInvalidChoice is returned for an out of range entry number.
	ErrInvalidChoice = errors.New("invalid choice")
)

// LibraryPicker is the terminal picker: it lists a photo library directory and lets the user
// choose one entry by number or by path.
type LibraryPicker struct {
	dir      string
	prompter Prompter
	out      io.Writer
	tempDir  string

	mu      sync.Mutex
	written []string
}

// NewLibraryPicker lists dir and writes the listing to out.
func NewLibraryPicker(dir string, prompter Prompter, out io.Writer) *LibraryPicker {
	return &LibraryPicker{dir: dir, prompter: prompter, out: out, tempDir: os.TempDir()}
}

type libraryEntry struct {
	name     string
	path     string
	mimeType string
}

// Pick implements Picker.
func (p *LibraryPicker) Pick(ctx context.Context, opts PickOptions) (PickResult, error) {
	entries, err := p.list(opts.MediaTypes)
	if err != nil {
		return PickResult{}, err
	}
	if len(entries) == 0 {
		return PickResult{}, fmt.Errorf("%w: %s", ErrEmptyLibrary, p.dir)
	}

	fmt.Fprintf(p.out, "Photo library %s:\n", p.dir)
	for i, e := range entries {
		fmt.Fprintf(p.out, "  %2d) %s (%s)\n", i+1, e.name, e.mimeType)
	}

	answer, err := p.prompter.Prompt(fmt.Sprintf("Choose 1-%d or a path (empty to cancel): ", len(entries)))
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, ErrPromptAborted) {
			return PickResult{Cancelled: true}, nil
		}
		return PickResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return PickResult{}, err
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return PickResult{Cancelled: true}, nil
	}

	path := answer
	if n, convErr := strconv.Atoi(answer); convErr == nil {
		if n < 1 || n > len(entries) {
			return PickResult{}, fmt.Errorf("%w: %d", ErrInvalidChoice, n)
		}
		path = entries[n-1].path
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(p.dir, path)
	}

	return p.load(path, opts)
}

func (p *LibraryPicker) list(filter MediaTypes) ([]libraryEntry, error) {
	dirEntries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, err
	}

	var entries []libraryEntry
	for _, de := range dirEntries {
		if !de.Type().IsRegular() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		path := filepath.Join(p.dir, de.Name())
		mtype, err := mimetype.DetectFile(path)
		if err != nil {
			continue
		}
		if !acceptsMedia(filter, mtype.String()) {
			continue
		}
		entries = append(entries, libraryEntry{name: de.Name(), path: path, mimeType: mtype.String()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	return entries, nil
}

func (p *LibraryPicker) load(path string, opts PickOptions) (PickResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PickResult{}, err
	}
	mimeType := mimetype.Detect(data).String()
	if !acceptsMedia(opts.MediaTypes, mimeType) {
		return PickResult{}, fmt.Errorf("%w: %s is %s", ErrUnsupportedMedia, filepath.Base(path), mimeType)
	}

	edited := false
	if opts.AllowsEditing {
		data, mimeType, edited, err = cropToAspect(data, mimeType, opts.Aspect)
		if err != nil {
			return PickResult{}, fmt.Errorf("edit %s: %w", filepath.Base(path), err)
		}
	}

	result := PickResult{MIMEType: mimeType, Source: filepath.Base(path)}
	if opts.Base64 {
		result.Base64 = base64.StdEncoding.EncodeToString(data)
		result.URI = "data:" + mimeType + ";base64," + result.Base64
		return result, nil
	}

	if edited {
		path, err = p.writeEdited(data, mimeType)
		if err != nil {
			return PickResult{}, err
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return PickResult{}, err
	}
	result.URI = (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	return result, nil
}

func (p *LibraryPicker) writeEdited(data []byte, mimeType string) (string, error) {
	ext := ".png"
	if mimeType == "image/jpeg" {
		ext = ".jpg"
	}
	f, err := os.CreateTemp(p.tempDir, "forgery-check-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}

	p.mu.Lock()
	p.written = append(p.written, f.Name())
	p.mu.Unlock()
	return f.Name(), nil
}

// Close removes the edited copies written for file URLs. The URLs handed out before stop
// resolving.
func (p *LibraryPicker) Close() error {
	p.mu.Lock()
	written := p.written
	p.written = nil
	p.mu.Unlock()

	var errs []error
	for _, name := range written {
		if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func acceptsMedia(filter MediaTypes, mimeType string) bool {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return filter&MediaImages != 0
	case strings.HasPrefix(mimeType, "video/"):
		return filter&MediaVideos != 0
	default:
		return false
	}
}
