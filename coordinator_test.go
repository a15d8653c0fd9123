package mapreduce_test

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	mapreduce "github.com/san-deep-reddy/map-reduce"
	_ "github.com/san-deep-reddy/map-reduce/functions/invertedindex"
	_ "github.com/san-deep-reddy/map-reduce/functions/wordcount"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCoordinator(t *testing.T, cfg *mapreduce.Config, killMapperIdx int) *mapreduce.Coordinator {
	t.Helper()
	co := mapreduce.NewCoordinator(cfg, killMapperIdx, zap.NewNop().Sugar())
	co.Supervisor.Factory = helperFactory(t)
	return co
}

func mergedOutput(t *testing.T, co *mapreduce.Coordinator) map[string]string {
	t.Helper()
	merged := make(map[string]string)
	for r := 0; r < co.Job.NumReduce; r++ {
		path := co.Job.OutputPath(r)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var out map[string]string
		require.NoError(t, json.Unmarshal(data, &out))
		for k, v := range out {
			merged[k] = v
		}
	}
	return merged
}

func TestCoordinatorRunWordCountEndToEnd(t *testing.T) {
	tmp := t.TempDir()
	corpus := writeCorpus(t, tmp, "a b a\nb c\n")

	cfg := &mapreduce.Config{
		InputFile:  corpus,
		NumMapper:  2,
		NumReducer: 2,
		MapFunc:    "wordcount",
		ReduceFunc: "wordcount",
		TmpRoot:    filepath.Join(tmp, "tmp"),
		OutRoot:    filepath.Join(tmp, "out"),
	}
	co := newTestCoordinator(t, cfg, -1)

	require.NoError(t, co.Run(context.Background()))

	merged := mergedOutput(t, co)
	assert.Equal(t, "2", merged["a"])
	assert.Equal(t, "2", merged["b"])
	assert.Equal(t, "1", merged["c"])

	_, err := os.Stat(co.Job.TmpDir())
	assert.True(t, os.IsNotExist(err), "temp root should be removed after a successful run")
}

func TestCoordinatorRunEmptyCorpusProducesEmptyOutputs(t *testing.T) {
	tmp := t.TempDir()
	corpus := writeCorpus(t, tmp, "")

	cfg := &mapreduce.Config{
		InputFile:  corpus,
		NumMapper:  2,
		NumReducer: 2,
		MapFunc:    "wordcount",
		ReduceFunc: "wordcount",
		TmpRoot:    filepath.Join(tmp, "tmp"),
		OutRoot:    filepath.Join(tmp, "out"),
	}
	co := newTestCoordinator(t, cfg, -1)

	require.NoError(t, co.Run(context.Background()))
	assert.Empty(t, mergedOutput(t, co))
}

func TestCoordinatorRunSingleMapperSingleReducerIsIdentityShaped(t *testing.T) {
	tmp := t.TempDir()
	corpus := writeCorpus(t, tmp, "one two three\n")

	cfg := &mapreduce.Config{
		InputFile:  corpus,
		NumMapper:  1,
		NumReducer: 1,
		MapFunc:    "wordcount",
		ReduceFunc: "wordcount",
		TmpRoot:    filepath.Join(tmp, "tmp"),
		OutRoot:    filepath.Join(tmp, "out"),
	}
	co := newTestCoordinator(t, cfg, -1)

	require.NoError(t, co.Run(context.Background()))

	merged := mergedOutput(t, co)
	assert.Equal(t, map[string]string{"one": "1", "two": "1", "three": "1"}, merged)
}

func TestCoordinatorRunSurvivesFaultInjectedMapper(t *testing.T) {
	tmp := t.TempDir()
	corpus := writeCorpus(t, tmp, "a b\nc d\ne f\n")

	cfg := &mapreduce.Config{
		InputFile:         corpus,
		NumMapper:         3,
		NumReducer:        2,
		MapFunc:           "wordcount",
		ReduceFunc:        "wordcount",
		TmpRoot:           filepath.Join(tmp, "tmp"),
		OutRoot:           filepath.Join(tmp, "out"),
		LivenessTimeoutMS: 500,
	}
	co := newTestCoordinator(t, cfg, 1)

	require.NoError(t, co.Run(context.Background()))

	merged := mergedOutput(t, co)
	for _, word := range []string{"a", "b", "c", "d", "e", "f"} {
		assert.Equal(t, "1", merged[word], "word %q missing after mapper 1 was killed and restarted", word)
	}
}

func TestCoordinatorRunInvertedIndex(t *testing.T) {
	tmp := t.TempDir()
	corpus := writeCorpus(t, tmp, "the cat sat\nthe dog ran\n")

	cfg := &mapreduce.Config{
		InputFile:  corpus,
		NumMapper:  1,
		NumReducer: 1,
		MapFunc:    "invertedindex",
		ReduceFunc: "invertedindex",
		TmpRoot:    filepath.Join(tmp, "tmp"),
		OutRoot:    filepath.Join(tmp, "out"),
	}
	co := newTestCoordinator(t, cfg, -1)

	require.NoError(t, co.Run(context.Background()))

	// Both lines land in the single mapper's shard, so "the" (document
	// index 0 and 1 within that shard) accumulates both ids.
	merged := mergedOutput(t, co)
	assert.Equal(t, "0,1", merged["the"])
}

func TestCoordinatorPartitionAssignmentIsStableAcrossRuns(t *testing.T) {
	tmp := t.TempDir()
	corpus := writeCorpus(t, tmp, "alpha beta gamma delta epsilon\n")

	run := func(root string) map[string]string {
		cfg := &mapreduce.Config{
			InputFile:  corpus,
			NumMapper:  2,
			NumReducer: 3,
			MapFunc:    "wordcount",
			ReduceFunc: "wordcount",
			TmpRoot:    filepath.Join(tmp, root, "tmp"),
			OutRoot:    filepath.Join(tmp, root, "out"),
		}
		co := newTestCoordinator(t, cfg, -1)
		require.NoError(t, co.Run(context.Background()))
		return mergedOutput(t, co)
	}

	first := run("run1")
	second := run("run2")
	assert.Equal(t, first, second)

	for _, word := range []string{"alpha", "beta", "gamma", "delta", "epsilon"} {
		assert.Equal(t, mapreduce.Partition(word, 3), mapreduce.Partition(word, 3))
		assert.Contains(t, first, word)
	}
}

func TestCoordinatorRunTimesOutWhenReducerNeverReports(t *testing.T) {
	// Exercises the documented limitation that a stuck reducer is not
	// restarted: the caller's context deadline is the only way out.
	tmp := t.TempDir()
	corpus := writeCorpus(t, tmp, "x\n")

	cfg := &mapreduce.Config{
		InputFile:         corpus,
		NumMapper:         1,
		NumReducer:        1,
		MapFunc:           "wordcount",
		ReduceFunc:        "wordcount",
		TmpRoot:           filepath.Join(tmp, "tmp"),
		OutRoot:           filepath.Join(tmp, "out"),
		LivenessTimeoutMS: 100,
	}
	co := newTestCoordinator(t, cfg, -1)
	co.Supervisor.Factory = hangingReducerFactory(t)

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	err := co.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, mapreduce.ErrJobFailed)
	assert.Contains(t, err.Error(), "context deadline exceeded")
}

// hangingReducerFactory runs real map workers but swaps every reducer's
// subprocess for the "hang" helper mode, so the reduce phase never reports
// Done and the only way out is the caller's context deadline.
func hangingReducerFactory(t *testing.T) mapreduce.CommandFactory {
	t.Helper()
	real := helperFactory(t)
	return func(args []string) *exec.Cmd {
		for _, a := range args {
			if a == "--mode=reduce" {
				return real([]string{"--mode=hang"})
			}
		}
		return real(args)
	}
}
