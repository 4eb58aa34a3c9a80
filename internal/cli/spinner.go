package cli

import (
	"fmt"
	"io"
	"time"
)

// Spinner draws the "analysis in progress" indicator. On a terminal it
// animates a braille arrow in place; elsewhere it appends a dot per tick so
// logs stay readable.
type Spinner struct {
	w       io.Writer
	animate bool
	frames  []string
	index   int
}

// NewSpinner returns a Spinner writing to w.
func NewSpinner(w io.Writer, animate bool) *Spinner {
	return &Spinner{
		w:       w,
		animate: animate,
		frames: []string{
			"⣀⣀ ", "⣄⣀ ", "⣤⣀ ", "⣦⣄ ",
			"⣶⣤ ", "⣿⣦ ", "⣿⣷ ", "⣿⣿ ",
			"⣿⣿ ", "⣷⣿ ", "⣦⣿ ", "⣤⣷ ",
			"⣄⣦ ", "⣀⣤ ", "⣀⣄ ", "⣀⣀ ",
		},
	}
}

// Interval is how often Update should be called.
func (s *Spinner) Interval() time.Duration {
	if s.animate {
		return 120 * time.Millisecond
	}
	return 5 * time.Second
}

// Update draws the next frame.
func (s *Spinner) Update() {
	if !s.animate {
		fmt.Fprint(s.w, ".")
		return
	}
	if s.index == 0 {
		fmt.Fprint(s.w, "\033[?25l") // hide cursor
	}
	fmt.Fprintf(s.w, "\r%s", s.frames[s.index%len(s.frames)])
	s.index++
}

// Cleanup clears the indicator and restores the cursor.
func (s *Spinner) Cleanup() {
	if !s.animate {
		fmt.Fprintln(s.w)
		return
	}
	fmt.Fprint(s.w, "\r   \r")
	fmt.Fprint(s.w, "\033[?25h")
}
