package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// DefaultIndicatorInterval is the frame rate of an Indicator.
const DefaultIndicatorInterval = 120 * time.Millisecond

var indicatorFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Indicator animates a one-line "working" label until stopped. Stop
// erases the line, so output written afterwards starts at column zero.
type Indicator struct {
	writer   io.Writer
	label    string
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewIndicator creates an indicator that writes to w. If w is nil, it
// defaults to os.Stderr.
func NewIndicator(w io.Writer, label string) *Indicator {
	if w == nil {
		w = os.Stderr
	}
	return &Indicator{writer: w, label: label, interval: DefaultIndicatorInterval}
}

// Start begins the animation. Starting a running indicator does nothing.
func (ind *Indicator) Start() {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	if ind.running {
		return
	}
	ind.running = true
	ind.stopCh = make(chan struct{})
	ind.doneCh = make(chan struct{})
	go ind.run(ind.stopCh, ind.doneCh)
}

// Stop ends the animation and clears the line. It is safe to call on a
// stopped indicator.
func (ind *Indicator) Stop() {
	ind.mu.Lock()
	if !ind.running {
		ind.mu.Unlock()
		return
	}
	ind.running = false
	close(ind.stopCh)
	done := ind.doneCh
	ind.mu.Unlock()

	<-done
}

// Running reports whether the indicator is animating.
func (ind *Indicator) Running() bool {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	return ind.running
}

func (ind *Indicator) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(ind.interval)
	defer ticker.Stop()

	frame := 0
	ind.render(frame)
	for {
		select {
		case <-stop:
			fmt.Fprint(ind.writer, "\r\033[K")
			return
		case <-ticker.C:
			frame++
			ind.render(frame)
		}
	}
}

func (ind *Indicator) render(frame int) {
	fmt.Fprintf(ind.writer, "\r%s %s", indicatorFrames[frame%len(indicatorFrames)], ind.label)
}
