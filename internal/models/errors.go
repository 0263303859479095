package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyQuery indicates the query was empty after cleaning. This is a
// user-caused validation condition, not a system fault.
var ErrEmptyQuery = errors.New("query is empty after cleaning")

// RateLimitError is returned when a user exceeds their request window.
// Recoverable by waiting; front-end adapters map it to a "please wait"
// message rather than logging it as an error.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %s", e.RetryAfter.Round(time.Second))
}

// RetrievalError indicates the retrieval dependency failed. Unrecoverable
// for the request: with no chunks there is nothing to ground an answer on.
type RetrievalError struct {
	Timeout bool
	Err     error
}

func (e *RetrievalError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("retrieval timed out: %v", e.Err)
	}
	return fmt.Sprintf("retrieval unavailable: %v", e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// GenerationError indicates the generation dependency failed. Recoverable:
// the orchestrator downgrades to a retrieval-only answer instead of
// surfacing this to the user.
type GenerationError struct {
	Timeout bool
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("generation timed out: %v", e.Err)
	}
	return fmt.Sprintf("generation unavailable: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
