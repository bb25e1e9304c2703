// Package prompt tracks the state of the browser's deferred install
// prompt as an explicit state machine instead of a shared mutable
// reference: no-prompt -> prompt-captured -> consumed. The browser may
// fire a fresh install-available event after the prompt was consumed,
// which captures again.
package prompt

import (
	"errors"
	"sync"
)

type State int

const (
	NoPrompt State = iota
	Captured
	Consumed
)

func (s State) String() string {
	switch s {
	case NoPrompt:
		return "no-prompt"
	case Captured:
		return "prompt-captured"
	case Consumed:
		return "consumed"
	}
	return "unknown"
}

var (
	ErrAlreadyCaptured = errors.New("install prompt already captured")
	ErrNotCaptured     = errors.New("no install prompt captured")
)

// Holder owns the pending install prompt state. All transitions go through
// Capture and Consume.
type Holder struct {
	mutex sync.Mutex
	state State
}

func NewHolder() *Holder {
	return &Holder{state: NoPrompt}
}

// Capture records that the browser fired an install-available event and the
// prompt was deferred. Valid from no-prompt and consumed.
func (h *Holder) Capture() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.state == Captured {
		return ErrAlreadyCaptured
	}
	h.state = Captured
	return nil
}

// Consume records that the deferred prompt was shown to the user.
// Valid only from prompt-captured.
func (h *Holder) Consume() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.state != Captured {
		return ErrNotCaptured
	}
	h.state = Consumed
	return nil
}

func (h *Holder) State() State {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.state
}
