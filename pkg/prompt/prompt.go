// Package prompt implements explorer.UI on an interactive terminal with
// promptui, writing messages to the output stream and copying text to the
// system clipboard.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/greg-hellings/gitexplorer/pkg/explorer"
)

// pickPageSize is the number of items a selection list shows at once.
const pickPageSize = 12

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(s string) error {
	if clipboard.Unsupported {
		return errors.New("no clipboard utility available")
	}
	return clipboard.WriteAll(s)
}

// UI is the terminal implementation of explorer.UI.
type UI struct {
	in        io.ReadCloser
	out       io.WriteCloser
	clipboard Clipboard
	colors    bool

	// interactive is false when input is not a terminal; prompts then read
	// plain lines and selections accept the typed item.
	interactive bool
	reader      *bufio.Reader
}

// Option customizes a UI.
type Option func(*UI)

// WithIO replaces stdin and stdout. Streams that are not terminals switch
// the UI to line mode.
func WithIO(in io.ReadCloser, out io.WriteCloser) Option {
	return func(u *UI) {
		u.in = in
		u.out = out
	}
}

// WithClipboard replaces the system clipboard.
func WithClipboard(c Clipboard) Option {
	return func(u *UI) {
		u.clipboard = c
	}
}

// WithColors toggles ANSI colors in messages.
func WithColors(enabled bool) Option {
	return func(u *UI) {
		u.colors = enabled
	}
}

// New creates a terminal UI on stdin/stdout.
func New(opts ...Option) *UI {
	u := &UI{
		in:        os.Stdin,
		out:       os.Stdout,
		clipboard: systemClipboard{},
		colors:    true,
	}
	for _, opt := range opts {
		opt(u)
	}
	u.interactive = isTerminal(u.in)
	if !u.interactive {
		u.reader = bufio.NewReader(u.in)
	}
	return u
}

var _ explorer.UI = (*UI)(nil)

// Input implements explorer.UI.
func (u *UI) Input(label string, secret bool) (string, error) {
	if !u.interactive {
		return u.readLine(label)
	}

	p := promptui.Prompt{
		Label:  label,
		Stdin:  u.in,
		Stdout: u.out,
	}
	if secret {
		p.Mask = '*'
	}
	value, err := p.Run()
	if err != nil {
		return "", mapErr(err)
	}
	return strings.TrimSpace(value), nil
}

// Pick implements explorer.UI. The placeholder item starts selected.
func (u *UI) Pick(label string, items []string, placeholder string) (string, error) {
	if len(items) == 0 {
		return "", nil
	}
	if !u.interactive {
		return u.pickLine(label, items, placeholder)
	}

	s := promptui.Select{
		Label:    label,
		Items:    items,
		Size:     pickPageSize,
		Stdin:    u.in,
		Stdout:   u.out,
		Searcher: containsSearcher(items),
	}
	if i := indexOf(items, placeholder); i >= 0 {
		s.CursorPos = i
	}
	_, value, err := s.Run()
	if err != nil {
		return "", mapErr(err)
	}
	return value, nil
}

// Info implements explorer.UI.
func (u *UI) Info(msg string) {
	u.message(msg, text.FgCyan)
}

// Warn implements explorer.UI.
func (u *UI) Warn(msg string) {
	u.message("Warning: "+msg, text.FgYellow)
}

// Error implements explorer.UI.
func (u *UI) Error(msg string) {
	u.message("Error: "+msg, text.FgRed)
}

// WriteClipboard implements explorer.UI.
func (u *UI) WriteClipboard(s string) error {
	return u.clipboard.WriteAll(s)
}

// ShowDocument implements explorer.UI by printing a header followed by the
// content.
func (u *UI) ShowDocument(title, language, content string) error {
	header := fmt.Sprintf("── %s (%s) ──", title, language)
	if u.colors {
		header = text.Colors{text.Bold}.Sprint(header)
	}
	if _, err := fmt.Fprintln(u.out, header); err != nil {
		return fmt.Errorf("failed writing document header: %w", err)
	}
	if _, err := io.WriteString(u.out, content); err != nil {
		return fmt.Errorf("failed writing document: %w", err)
	}
	if !strings.HasSuffix(content, "\n") {
		if _, err := fmt.Fprintln(u.out); err != nil {
			return fmt.Errorf("failed writing document: %w", err)
		}
	}
	return nil
}

func (u *UI) message(msg string, c text.Color) {
	if u.colors {
		msg = text.Colors{c}.Sprint(msg)
	}
	_, _ = fmt.Fprintln(u.out, msg)
}

// readLine prompts once and reads a line; EOF cancels.
func (u *UI) readLine(label string) (string, error) {
	_, _ = fmt.Fprintf(u.out, "%s: ", label)
	line, err := u.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", explorer.ErrCancelled
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// pickLine lists the items and reads either an item or its 1-based number.
// An empty answer selects the placeholder.
func (u *UI) pickLine(label string, items []string, placeholder string) (string, error) {
	for i, item := range items {
		marker := " "
		if item == placeholder {
			marker = "*"
		}
		_, _ = fmt.Fprintf(u.out, "%s %2d) %s\n", marker, i+1, item)
	}
	answer, err := u.readLine(label)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return placeholder, nil
	}
	var n int
	if _, err := fmt.Sscanf(answer, "%d", &n); err == nil && fmt.Sprint(n) == answer {
		if n < 1 || n > len(items) {
			return "", fmt.Errorf("selection %d out of range", n)
		}
		return items[n-1], nil
	}
	return answer, nil
}

func containsSearcher(items []string) func(string, int) bool {
	return func(input string, index int) bool {
		return strings.Contains(strings.ToLower(items[index]), strings.ToLower(strings.TrimSpace(input)))
	}
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, promptui.ErrInterrupt), errors.Is(err, promptui.ErrEOF), errors.Is(err, promptui.ErrAbort):
		return explorer.ErrCancelled
	default:
		return err
	}
}

func indexOf(items []string, s string) int {
	if s == "" {
		return -1
	}
	for i, item := range items {
		if item == s {
			return i
		}
	}
	return -1
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
