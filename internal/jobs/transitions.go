package jobs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition reports a move the state graph does not allow.
	ErrInvalidTransition = errors.New("invalid job transition")
	// ErrNotFound reports an unknown job id.
	ErrNotFound = errors.New("job not found")
)

var transitions = map[Status][]Status{
	StatusQueued:           {StatusSearching, StatusFailed},
	StatusSearching:        {StatusAdding, StatusAwaitingFallback, StatusFailed},
	StatusAwaitingFallback: {StatusAdding, StatusFailed},
	StatusAdding:           {StatusDownloading, StatusCompleted, StatusFailed},
	StatusDownloading:      {StatusCompleted, StatusFailed},
}

// CanTransition reports whether a job in from may move to to. Staying in
// the same status is always allowed so progress updates can be persisted.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
