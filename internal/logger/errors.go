package logger

import (
	"errors"
	"fmt"
	"os"
)

var (
	// ErrMissingAppName is returned when [Log] AppName is empty.
	ErrMissingAppName = errors.New("logger: [Log] AppName is required, it tags every log event")

	// ErrMissingServiceName is returned when [Log] ServiceName is empty.
	ErrMissingServiceName = errors.New("logger: [Log] ServiceName is required, it labels the log metrics")
)

// reportWriteFailure is installed as zerolog.ErrorHandler.
// A log event that could not be written is counted and reported on stderr.
func reportWriteFailure(err error) {
	if writeFailures != nil {
		writeFailures.Inc()
	}

	_, _ = fmt.Fprintf(os.Stderr, "accessctl: dropped log event: %v\n", err)
}
