package mapreduce

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Job identifies one MapReduce run and owns its directory layout:
//
//	{tmpRoot}/{id}/input/{m}          mapper shards
//	{tmpRoot}/{id}/intermediate/      m{m}r{r} files
//	{outRoot}/{id}/{r}                reducer outputs
//
// The identifier is derived from wall-clock seconds at construction time:
// callers launching jobs faster than one per second either accept
// collision or set disambiguate to request a uuid suffix.
type Job struct {
	ID       string
	tmpRoot  string
	outRoot  string
	NumMap   int
	NumReduce int
}

// NewJob derives a job identifier and directory layout. disambiguate, when
// true, appends a short uuid suffix to the whole-second id so that two
// jobs launched within the same second do not collide on disk; the
// default leaves that collision possible.
func NewJob(tmpRoot, outRoot string, numMap, numReduce int, disambiguate bool) *Job {
	id := fmt.Sprintf("%d", time.Now().Unix())
	if disambiguate {
		id = fmt.Sprintf("%s-%s", id, uuid.NewString()[:8])
	}
	return &Job{
		ID:        id,
		tmpRoot:   tmpRoot,
		outRoot:   outRoot,
		NumMap:    numMap,
		NumReduce: numReduce,
	}
}

// TmpDir is the job's temporary root, {tmpRoot}/{id}.
func (j *Job) TmpDir() string {
	return filepath.Join(j.tmpRoot, j.ID)
}

// InputDir holds the N mapper shard files.
func (j *Job) InputDir() string {
	return filepath.Join(j.TmpDir(), "input")
}

// ShardPath is the path of mapper m's input shard.
func (j *Job) ShardPath(m int) string {
	return filepath.Join(j.InputDir(), fmt.Sprintf("%d", m))
}

// IntermediateDir holds the N*R m{m}r{r} bucket files.
func (j *Job) IntermediateDir() string {
	return filepath.Join(j.TmpDir(), "intermediate")
}

// BucketPath is the path of the intermediate bucket written by mapper m
// for reducer r.
func (j *Job) BucketPath(m, r int) string {
	return bucketFilePath(j.IntermediateDir(), m, r)
}

// OutputDir is the job's output root, {outRoot}/{id}.
func (j *Job) OutputDir() string {
	return filepath.Join(j.outRoot, j.ID)
}

// OutputPath is the path of reducer r's output file.
func (j *Job) OutputPath(r int) string {
	return outputFilePath(j.OutputDir(), r)
}

// bucketFilePath names the intermediate bucket for mapper m / reducer r
// within dir: m{m}r{r}. Shared by Job and by the worker kernels, which
// operate on bare directories rather than a *Job.
func bucketFilePath(dir string, m, r int) string {
	return filepath.Join(dir, fmt.Sprintf("m%dr%d", m, r))
}

// outputFilePath names reducer r's output file within dir.
func outputFilePath(dir string, r int) string {
	return filepath.Join(dir, fmt.Sprintf("%d", r))
}

// MakeDirs creates the input, intermediate and output directories.
func (j *Job) MakeDirs() error {
	for _, dir := range []string{j.InputDir(), j.IntermediateDir(), j.OutputDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mapreduce: create %s: %w", dir, err)
		}
	}
	return nil
}

// Cleanup removes the temporary root. The Coordinator only calls this
// after the reduce barrier succeeds.
func (j *Job) Cleanup() error {
	return os.RemoveAll(j.TmpDir())
}
