package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// ProgressIndicator prints a spinner followed by a status message which
// can be replaced while the indicator is running.
type ProgressIndicator struct {
	mu         sync.Mutex
	delay      time.Duration
	writer     io.Writer
	message    string
	lastOutput string
	StopMsg    string
	stopChan   chan struct{}
	doneChan   chan struct{}
}

// NewProgressIndicator instantiates a new progress indicator writing to stderr.
func NewProgressIndicator(msg string, d time.Duration) *ProgressIndicator {
	return NewProgressIndicatorWriter(os.Stderr, msg, d)
}

// NewProgressIndicatorWriter instantiates a new progress indicator writing to w.
func NewProgressIndicatorWriter(w io.Writer, msg string, d time.Duration) *ProgressIndicator {
	return &ProgressIndicator{
		delay:    d,
		writer:   w,
		message:  msg,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start starts the progress indicator.
func (pi *ProgressIndicator) Start() {
	go func() {
		defer close(pi.doneChan)
		for {
			for _, r := range `⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏` {
				select {
				case <-pi.stopChan:
					return
				default:
					pi.mu.Lock()
					pi.clear()
					output := fmt.Sprintf("\r%s%s %c%s", pi.message, SuccessColor, r, DefaultColor)
					fmt.Fprint(pi.writer, output)
					pi.lastOutput = output
					pi.mu.Unlock()

					time.Sleep(pi.delay)
				}
			}
		}
	}()
}

// SetMessage replaces the status message shown next to the spinner.
func (pi *ProgressIndicator) SetMessage(msg string) {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	pi.message = msg
}

// Stop stops the progress indicator and prints the stop message, if any.
// Stop must be called only once, after Start.
func (pi *ProgressIndicator) Stop() {
	close(pi.stopChan)
	<-pi.doneChan

	pi.mu.Lock()
	defer pi.mu.Unlock()

	pi.clear()
	if len(pi.StopMsg) > 0 {
		fmt.Fprint(pi.writer, pi.StopMsg)
	}
}

// clear deletes the last line. Caller must hold the locker.
func (pi *ProgressIndicator) clear() {
	if pi.lastOutput == "" {
		return
	}
	n := utf8.RuneCountInString(pi.lastOutput)
	fmt.Fprint(pi.writer, "\r"+strings.Repeat(" ", n)+"\r")
	pi.lastOutput = ""
}
