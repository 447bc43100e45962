// Package progress renders the cosmetic notice shown while a lock is slow to
// acquire. Nothing in here affects lock timing or correctness.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
)

// DocsURL points at the configuration reference for the hardlink_lock option.
const DocsURL = "https://github.com/bashhack/repolock#configuration"

var linkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Underline(true)

// Notifier is told when a lock attempt starts and when it is over.
type Notifier interface {
	Start()
	Stop()
}

// Disabled is a Notifier that does nothing.
type Disabled struct{}

// Start implements Notifier.
func (Disabled) Start() {}

// Stop implements Notifier.
func (Disabled) Stop() {}

// FormatLink renders href the way links are shown to the operator.
func FormatLink(href string) string {
	return "<" + linkStyle.Render(href) + ">"
}

// LockWaitMessage is the description shown while waiting for a lock.
func LockWaitMessage() string {
	return fmt.Sprintf("If repolock froze, see `hardlink_lock` in %s", FormatLink(DocsURL))
}

// Spinner shows a static description with a spinner on w until Stop.
type Spinner struct {
	mu          sync.Mutex
	w           io.Writer
	description string
	bar         *progressbar.ProgressBar
}

// NewSpinner returns a Spinner writing description to w (stderr when nil).
func NewSpinner(w io.Writer, description string) *Spinner {
	if w == nil {
		w = os.Stderr
	}
	return &Spinner{w: w, description: description}
}

// Start draws the notice. Calling Start on a running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bar != nil {
		return
	}

	s.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(s.w),
		progressbar.OptionSetDescription(s.description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionClearOnFinish(),
	)
	_ = s.bar.RenderBlank()
}

// Stop clears the notice.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bar == nil {
		return
	}

	_ = s.bar.Finish()
	s.bar = nil
}

// New returns a Spinner showing LockWaitMessage when enabled and Disabled otherwise.
func New(enabled bool, w io.Writer) Notifier {
	if !enabled {
		return Disabled{}
	}
	return NewSpinner(w, LockWaitMessage())
}
