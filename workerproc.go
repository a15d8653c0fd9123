package mapreduce

import (
	"encoding/json"
	"io"
	"os"
	"time"
)

// statusWire is the newline-delimited JSON record a worker subprocess
// writes to stdout; it mirrors statusMsg, which is what the Supervisor
// decodes on the other end of the pipe.
type statusWire struct {
	Status         string `json:"status"`
	Timestamp      int64  `json:"ts"`
	ActiveReducers []int  `json:"active_reducers,omitempty"`
}

func emitStatus(w io.Writer, status string, activeReducers []int) {
	msg := statusWire{
		Status:         status,
		Timestamp:      time.Now().Unix(),
		ActiveReducers: activeReducers,
	}
	_ = json.NewEncoder(w).Encode(msg)
}

// RunMapWorkerProcess is the body of a map worker subprocess: announce
// InProgress, run the named map function over shard, announce Done with
// the active-reducer list on success. It deliberately does not announce
// Done on error: a failed worker must look, to the Supervisor, like one
// that never reported Done, so the liveness timeout handles it.
//
// Exported so both cmd/mapreduce's internal-worker subcommand and tests
// exercising the real subprocess wire format can share one implementation
// instead of drifting apart.
func RunMapWorkerProcess(shard, intermediateDir string, mapperID, numReducers int, mapFnName string) error {
	emitStatus(os.Stdout, "InProgress", nil)

	mapFn, err := MapFuncByName(mapFnName)
	if err != nil {
		return err
	}

	active, err := RunMapWorker(shard, intermediateDir, mapperID, numReducers, mapFn)
	if err != nil {
		return err
	}

	emitStatus(os.Stdout, "Done", active)
	return nil
}

// RunReduceWorkerProcess is the body of a reduce worker subprocess.
func RunReduceWorkerProcess(intermediateDir, outputDir string, reducerID, numMappers int, reduceFnName string) error {
	emitStatus(os.Stdout, "InProgress", nil)

	reduceFn, err := ReduceFuncByName(reduceFnName)
	if err != nil {
		return err
	}

	if err := RunReduceWorker(intermediateDir, outputDir, reducerID, numMappers, reduceFn); err != nil {
		return err
	}

	emitStatus(os.Stdout, "Done", nil)
	return nil
}
