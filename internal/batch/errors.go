package batch

import "errors"

var (
	// ErrJobNotFound: trigger or lookup referenced a job name that was never
	// registered.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidParameters: a caller-supplied parameter failed coercion
	// against the job's declared parameter keys.
	ErrInvalidParameters = errors.New("invalid job parameters")

	// ErrQueueTimeout: the metadata lock was not acquired within the queue
	// timeout.
	ErrQueueTimeout = errors.New("timed out waiting for job queue")

	// ErrStorage: execution metadata could not be persisted after retries.
	ErrStorage = errors.New("execution storage failure")

	// ErrStopped is returned by a step handler that observed a stop request
	// and unwound early. The runner records the step STOPPED, not FAILED.
	ErrStopped = errors.New("stop requested")
)
