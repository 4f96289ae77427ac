package formatter

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

const clearLine = "\r\033[K"

// Spinner redraws one status line on w while an upload, export or batch
// delete is in flight. It uses the Dot frames of the loading screen so both
// look alike, and shows the elapsed time once a call takes a second.
type Spinner struct {
	w       io.Writer
	label   string
	style   spinner.Spinner
	started time.Time

	once sync.Once
	stop chan struct{}
	done chan struct{}
}

// NewSpinner creates a spinner that draws label on w.
func NewSpinner(w io.Writer, label string) *Spinner {
	return &Spinner{
		w:     w,
		label: label,
		style: spinner.Dot,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start begins drawing. Stop must follow.
func (s *Spinner) Start() {
	s.started = time.Now()
	go s.run()
}

func (s *Spinner) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.style.FPS)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-s.stop:
			fmt.Fprint(s.w, clearLine)
			return
		case <-ticker.C:
			glyph := s.style.Frames[frame%len(s.style.Frames)]
			fmt.Fprintf(s.w, "\r  %s %s", StylePurple.Render(glyph), Dim(s.status()))
		}
	}
}

func (s *Spinner) status() string {
	elapsed := time.Since(s.started).Truncate(time.Second)
	if elapsed < time.Second {
		return s.label + "..."
	}
	return fmt.Sprintf("%s... %s", s.label, elapsed)
}

// Stop clears the line and waits for the last frame. Repeated calls are
// no-ops.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
	})
}

// StartSpinner starts a spinner on w and returns its Stop.
func StartSpinner(w io.Writer, label string) func() {
	s := NewSpinner(w, label)
	s.Start()
	return s.Stop
}
