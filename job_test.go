package mapreduce

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobDirectoryLayout(t *testing.T) {
	tmp := t.TempDir()
	job := NewJob(filepath.Join(tmp, "tmp"), filepath.Join(tmp, "output"), 3, 2, false)

	assert.Equal(t, job.InputDir(), filepath.Join(job.TmpDir(), "input"))
	assert.Equal(t, job.IntermediateDir(), filepath.Join(job.TmpDir(), "intermediate"))
	assert.Equal(t, job.BucketPath(1, 0), filepath.Join(job.IntermediateDir(), "m1r0"))
	assert.Equal(t, job.OutputPath(1), filepath.Join(job.OutputDir(), "1"))
}

func TestJobMakeDirsAndCleanup(t *testing.T) {
	tmp := t.TempDir()
	job := NewJob(filepath.Join(tmp, "tmp"), filepath.Join(tmp, "output"), 2, 2, false)

	require.NoError(t, job.MakeDirs())
	for _, dir := range []string{job.InputDir(), job.IntermediateDir(), job.OutputDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// The temporary root is removed once the job completes successfully;
	// the output root is untouched by Cleanup.
	require.NoError(t, job.Cleanup())
	_, err := os.Stat(job.TmpDir())
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(job.OutputDir())
	assert.NoError(t, err)
}

func TestJobDisambiguateID(t *testing.T) {
	tmp := t.TempDir()
	a := NewJob(tmp, tmp, 1, 1, true)
	b := NewJob(tmp, tmp, 1, 1, true)
	assert.NotEqual(t, a.ID, b.ID)
}
