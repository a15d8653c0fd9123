package mapreduce

import (
	"bufio"
	"fmt"
	"os"
	"sort"
)

// RunMapWorker reads shardPath fully into memory, invokes mapFn once per
// line, buckets emitted pairs by partition, and persists one intermediate
// file per non-empty partition under intermediateDir.
//
// An empty shard (every mapper shard exists on disk, even with no
// assigned lines) produces zero intermediate buckets and an empty
// active-reducer list, not an error.
//
// RunMapWorker is the in-process kernel shared by tests and by the
// internal-worker subcommand that actually runs inside the isolated
// worker process; it has no knowledge of process boundaries, channels or
// timeouts — those belong to the Supervisor.
func RunMapWorker(shardPath, intermediateDir string, mapperID, numReducers int, mapFn MapFunc) ([]int, error) {
	lines, err := readShardLines(shardPath)
	if err != nil {
		return nil, err
	}

	partitions := make([]bucket, numReducers)
	emit := func(key, value string) {
		r := Partition(key, numReducers)
		if partitions[r] == nil {
			partitions[r] = make(bucket)
		}
		partitions[r][key] = append(partitions[r][key], value)
	}

	for i, line := range lines {
		mapFn(i, line, emit)
	}

	var active []int
	for r, b := range partitions {
		if len(b) == 0 {
			continue
		}
		active = append(active, r)
	}
	sort.Ints(active)

	for _, r := range active {
		path := bucketFilePath(intermediateDir, mapperID, r)
		if err := writeBucket(path, partitions[r]); err != nil {
			return nil, err
		}
	}

	return active, nil
}

// readShardLines reads path fully, returning its lines with trailing
// newlines stripped. A missing trailing newline on the last line is
// tolerated on read (the splitter guarantees one is always written, but
// the map kernel must not choke on a hand-edited or externally-produced
// shard).
func readShardLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapreduce: open shard %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("mapreduce: read shard %s: %w", path, err)
	}
	return lines, nil
}
