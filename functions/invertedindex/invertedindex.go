// Package invertedindex registers the inverted-index map/reduce pair
// under the name "invertedindex".
package invertedindex

import (
	"sort"
	"strconv"
	"strings"

	mapreduce "github.com/san-deep-reddy/map-reduce"
)

func init() {
	mapreduce.RegisterMap("invertedindex", mapFn)
	mapreduce.RegisterReduce("invertedindex", reduceFn)
}

// mapFn treats the record index as the document id.
func mapFn(docID int, content string, emit mapreduce.Emit) {
	docIDStr := strconv.Itoa(docID)
	for _, word := range strings.Fields(content) {
		word = normalize(word)
		if word != "" {
			emit(word, docIDStr)
		}
	}
}

// reduceFn de-duplicates and sorts the document ids for a word.
func reduceFn(key string, values []string, emit mapreduce.EmitFinal) {
	seen := make(map[string]struct{}, len(values))
	unique := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		unique = append(unique, v)
	}
	sort.Strings(unique)
	emit(key, strings.Join(unique, ","))
}

func normalize(word string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
