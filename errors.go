package mapreduce

import "errors"

var (
	// ErrNoInputFile is returned when the configuration omits input_file.
	ErrNoInputFile = errors.New("mapreduce: input_file is required")
	// ErrBadWorkerCount is returned when a mapper/reducer count is not >= 1.
	ErrBadWorkerCount = errors.New("mapreduce: worker count must be >= 1")
	// ErrUnknownMapFunc is returned when a map function name has no registration.
	ErrUnknownMapFunc = errors.New("mapreduce: unknown map function")
	// ErrUnknownReduceFunc is returned when a reduce function name has no registration.
	ErrUnknownReduceFunc = errors.New("mapreduce: unknown reduce function")
	// ErrWorkerFailed is the cause recorded in Supervisor.LastError when a
	// worker process exits badly after having reported Done.
	ErrWorkerFailed = errors.New("mapreduce: worker process failed")
	// ErrJobFailed wraps the first hard error observed by the coordinator.
	ErrJobFailed = errors.New("mapreduce: job failed")
)
