package explorer

import "errors"

// ErrCancelled is returned by a UI when the user dismisses a prompt.
var ErrCancelled = errors.New("explorer: prompt cancelled")

// UI is the presentation boundary the explorer drives. Implementations
// return ErrCancelled (or an empty answer) when the user backs out.
type UI interface {
	// Input asks for a single line of text. Secret input is not echoed.
	Input(label string, secret bool) (string, error)
	// Pick asks the user to choose one of items. placeholder is the
	// preselected item and may be empty.
	Pick(label string, items []string, placeholder string) (string, error)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	WriteClipboard(text string) error
	// ShowDocument presents read-only content.
	ShowDocument(title, language, content string) error
}
