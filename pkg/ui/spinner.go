package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

const clearLine = "\r\033[K"

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner is a terminal loader. It animates only when its writer is a
// terminal and is otherwise silent.
type Spinner struct {
	mu       sync.Mutex
	w        io.Writer
	title    string
	interval time.Duration
	animated bool
	visible  bool
	stop     chan struct{}
	done     chan struct{}
}

// SpinnerOption configures a Spinner
type SpinnerOption func(*Spinner)

// WithAnimation forces animation on or off regardless of the writer
func WithAnimation(animated bool) SpinnerOption {
	return func(s *Spinner) {
		s.animated = animated
	}
}

// NewSpinner creates a loader writing to w
func NewSpinner(w io.Writer, title string, opts ...SpinnerOption) *Spinner {
	s := &Spinner{
		w:        w,
		title:    title,
		interval: 100 * time.Millisecond,
		animated: IsTerminal(w),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Show implements interfaces.Loader
func (s *Spinner) Show() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.visible {
		return
	}
	s.visible = true

	if !s.animated {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.animate(s.stop, s.done)
}

// Hide implements interfaces.Loader
func (s *Spinner) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.visible {
		return
	}
	s.visible = false

	if !s.animated {
		return
	}
	close(s.stop)
	<-s.done
	_, _ = fmt.Fprint(s.w, clearLine)
}

// Visible reports whether the loader is currently shown
func (s *Spinner) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *Spinner) animate(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		_, _ = fmt.Fprintf(s.w, "%s%s %s", clearLine, spinnerFrames[frame%len(spinnerFrames)], s.title)
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

// IsTerminal reports whether v is an *os.File attached to a terminal
func IsTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
