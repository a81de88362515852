package taskq

import "errors"

var (
	// Not found errors.
	ErrJobNotFound = errors.New("taskq: job not found")

	// Admission errors.
	ErrEmptyType        = errors.New("taskq: job type must not be empty")
	ErrJobAlreadyExists = errors.New("taskq: job already exists")
	ErrBatchTooLarge    = errors.New("taskq: bulk submission exceeds the maximum batch size")

	// State errors.
	ErrShutDown = errors.New("taskq: queue has been shut down")
)
