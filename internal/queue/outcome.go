package queue

import "github.com/maheshrc27/postflow/internal/models"

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetryable
	OutcomeTerminal
	OutcomeSkip
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable_failure"
	case OutcomeTerminal:
		return "terminal_failure"
	case OutcomeSkip:
		return "skip"
	}
	return "unknown"
}

// Transition is what one attempt does to its post.
type Transition struct {
	// Persist is false for a skip: the post is left exactly as found.
	Persist      bool
	PostStatus   string
	RetryCount   int
	RecordStatus string
	WillRetry    bool
}

// Decide maps an attempt outcome to the post transition. retryCount is the
// number of failed attempts before this one. A retryable failure counts
// against maxAttempts; a terminal failure fails the post without touching
// the counter.
func Decide(outcome Outcome, retryCount, maxAttempts int) Transition {
	switch outcome {
	case OutcomeSuccess:
		return Transition{
			Persist:      true,
			PostStatus:   models.PostStatusPublished,
			RetryCount:   retryCount,
			RecordStatus: models.ExecutionStatusPublished,
		}

	case OutcomeRetryable:
		n := retryCount + 1
		if n < maxAttempts {
			return Transition{
				Persist:      true,
				PostStatus:   models.PostStatusPending,
				RetryCount:   n,
				RecordStatus: models.ExecutionStatusRetrying,
				WillRetry:    true,
			}
		}
		return Transition{
			Persist:      true,
			PostStatus:   models.PostStatusFailed,
			RetryCount:   n,
			RecordStatus: models.ExecutionStatusFailed,
		}

	case OutcomeTerminal:
		return Transition{
			Persist:      true,
			PostStatus:   models.PostStatusFailed,
			RetryCount:   retryCount,
			RecordStatus: models.ExecutionStatusFailed,
		}
	}

	return Transition{RetryCount: retryCount, RecordStatus: models.ExecutionStatusSkipped}
}
