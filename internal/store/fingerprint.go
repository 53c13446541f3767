package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Fingerprint derives the stable identity digest of a logical entry.
//
// Source ids are sorted ascending before hashing so the digest is
// independent of their order. Every field is length-prefixed (netstring
// style) and the id list is preceded by its count, so no field content can
// collide with the encoding itself.
func Fingerprint(sourceIDs []int64, issueKey, description string, durationSeconds int64, date string) string {
	sorted := make([]int64, len(sourceIDs))
	copy(sorted, sourceIDs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	h := sha256.New()
	writeField(h, strconv.Itoa(len(sorted)))
	for _, id := range sorted {
		writeField(h, strconv.FormatInt(id, 10))
	}
	writeField(h, issueKey)
	writeField(h, description)
	writeField(h, strconv.FormatInt(durationSeconds, 10))
	writeField(h, date)
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(w io.Writer, s string) {
	fmt.Fprintf(w, "%d:%s,", len(s), s)
}
