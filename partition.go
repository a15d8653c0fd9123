package mapreduce

import "github.com/cespare/xxhash/v2"

// Partition maps key to a reducer index in [0, numReducers). It is a pure
// function: same key, same numReducers, same answer, in every worker
// process of the same run.
//
// Go's built-in map iteration and hash/maphash are deliberately not used
// here: both are randomized per-process, which would make a map worker
// and a reduce worker disagree on where a key belongs. xxhash.Sum64 has
// no such randomization.
func Partition(key string, numReducers int) int {
	if numReducers <= 0 {
		return 0
	}
	sum := xxhash.Sum64String(key)
	return int(sum % uint64(numReducers))
}
