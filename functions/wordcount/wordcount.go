// Package wordcount registers the canonical word-count map/reduce pair
// under the name "wordcount".
package wordcount

import (
	"strconv"
	"strings"

	mapreduce "github.com/san-deep-reddy/map-reduce"
)

func init() {
	mapreduce.RegisterMap("wordcount", mapFn)
	mapreduce.RegisterReduce("wordcount", reduceFn)
}

func mapFn(_ int, line string, emit mapreduce.Emit) {
	for _, word := range strings.Fields(line) {
		word = normalize(word)
		if word != "" {
			emit(word, "1")
		}
	}
}

func reduceFn(key string, values []string, emit mapreduce.EmitFinal) {
	total := 0
	for _, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		total += n
	}
	emit(key, strconv.Itoa(total))
}

// normalize lowercases word and strips everything but ASCII letters and
// digits.
func normalize(word string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
