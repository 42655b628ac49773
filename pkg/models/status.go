package models

// OutcomeStatus is the terminal state of a crawled page or fetch task
type OutcomeStatus string

const (
	StatusUnset   OutcomeStatus = ""        // Zero value = not yet attempted
	StatusSuccess OutcomeStatus = "success" // Fetched (frontier) or written to disk (pipeline)
	StatusSkipped OutcomeStatus = "skipped" // Not an error: non-HTML content, or run cancelled first
	StatusFailed  OutcomeStatus = "failed"  // Transport, render or filesystem error
)

// String implements fmt.Stringer for logging
func (s OutcomeStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}
