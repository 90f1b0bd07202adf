// Package status holds the transient status message shown to the user.
// A message is tagged success, error, or warning and clears itself
// after a fixed interval, matching single-shot UI notification areas.
package status

import (
	"fmt"
	"sync"
	"time"
)

// DefaultClearAfter is how long a message stays visible.
const DefaultClearAfter = 5 * time.Second

// Kind tags a status message.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Warning Kind = "warning"
)

// Message is a tagged transient status line.
type Message struct {
	Text string
	Kind Kind
}

// Area is the single status slot. Setting a new message replaces the
// previous one and re-arms the auto-clear timer.
type Area struct {
	// ClearAfter overrides the auto-clear interval. Zero means
	// DefaultClearAfter.
	ClearAfter time.Duration

	// OnChange, if set, is called after every set or clear.
	OnChange func()

	mu    sync.Mutex
	msg   *Message
	timer *time.Timer
}

// NewArea creates an empty status area.
func NewArea() *Area {
	return &Area{}
}

// Set replaces the current message and arms the auto-clear timer.
func (a *Area) Set(text string, kind Kind) {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.msg = &Message{Text: text, Kind: kind}
	after := a.ClearAfter
	if after <= 0 {
		after = DefaultClearAfter
	}
	msg := a.msg
	a.timer = time.AfterFunc(after, func() {
		a.clearIf(msg)
	})
	a.mu.Unlock()
	a.notify()
}

// Successf, Errorf, Warningf mirror the three message tags.

func (a *Area) Successf(format string, args ...any) { a.Set(fmt.Sprintf(format, args...), Success) }
func (a *Area) Errorf(format string, args ...any)   { a.Set(fmt.Sprintf(format, args...), Error) }
func (a *Area) Warningf(format string, args ...any) { a.Set(fmt.Sprintf(format, args...), Warning) }

// Current returns the visible message, if any.
func (a *Area) Current() (Message, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.msg == nil {
		return Message{}, false
	}
	return *a.msg, true
}

// Clear removes the current message immediately.
func (a *Area) Clear() {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.msg = nil
	a.mu.Unlock()
	a.notify()
}

// clearIf clears only if msg is still the visible message, so a timer
// from a replaced message cannot clear its successor.
func (a *Area) clearIf(msg *Message) {
	a.mu.Lock()
	if a.msg != msg {
		a.mu.Unlock()
		return
	}
	a.msg = nil
	a.timer = nil
	a.mu.Unlock()
	a.notify()
}

func (a *Area) notify() {
	if a.OnChange != nil {
		a.OnChange()
	}
}
