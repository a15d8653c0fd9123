package mapreduce

// RunReduceWorker loads every intermediate bucket destined for reducerID
// across numMappers mappers, groups values by key (concatenating in
// ascending mapper-index order), invokes reduceFn once per distinct key,
// and writes the reducer's output file.
//
// A missing m{m}r{reducerID} file means mapper m emitted nothing for this
// reducer and is silently skipped, not an error.
func RunReduceWorker(intermediateDir, outputDir string, reducerID, numMappers int, reduceFn ReduceFunc) error {
	merged := make(map[string][]string)

	for m := 0; m < numMappers; m++ {
		path := bucketFilePath(intermediateDir, m, reducerID)
		if !fileExists(path) {
			continue
		}
		b, err := readBucket(path)
		if err != nil {
			return err
		}
		for key, vals := range b {
			merged[key] = append(merged[key], vals...)
		}
	}

	out := make(output, len(merged))
	for key, vals := range merged {
		reduceFn(key, vals, func(k, v string) {
			out[k] = v // a reduceFn that calls emit more than once per key: last write wins
		})
	}

	return writeOutput(outputFilePath(outputDir, reducerID), out)
}
