package fal

import (
	"errors"
	"fmt"
)

// ErrMissingRequestID is wrapped by a SubmissionError when the queue accepted
// the job but did not hand back an identifier.
var ErrMissingRequestID = errors.New("fal: missing request_id in submit response")

// SubmissionError reports a failed job submission.
type SubmissionError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *SubmissionError) Error() string {
	switch {
	case errors.Is(e.Err, ErrMissingRequestID):
		return "Did not receive a request_id from Fal.ai API."
	case e.StatusCode != 0:
		return fmt.Sprintf("Fal.ai API request failed: %d - %s", e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("Fal.ai API request failed: %v", e.Err)
	}
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// PollError reports a status check that could not be completed.
type PollError struct {
	Attempt    int
	StatusCode int
	Body       string
	Err        error
}

func (e *PollError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("Fal.ai status check failed: %d - %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("Fal.ai status check failed: %v", e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }

// FetchError reports a completed job whose result could not be retrieved.
type FetchError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("Fal.ai result fetch failed: %d - %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("Fal.ai result fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// JobFailedError carries the error message reported by the queue for a job
// that reached the FAILED state.
type JobFailedError struct {
	Message string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("Fal.ai request failed: %s", e.Message)
}

// TimeoutError is returned when the attempt budget runs out before the job
// reaches a terminal state.
type TimeoutError struct {
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Fal.ai request timed out after %d attempts.", e.Attempts)
}
