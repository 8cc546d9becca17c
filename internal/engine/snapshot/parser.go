// Package snapshot parses the segment status file written by lftp pget.
//
// The file is a list of key=value lines:
//
//	size=1048576
//	0.pos=262144
//	0.limit=524288
//	1.pos=786432
//	1.limit=1048576
//
// It is rewritten in place while the transfer runs, so a read may observe a
// truncated or half-written file. Parsing never fails; unknown or malformed
// lines are skipped.
package snapshot

import (
	"errors"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/segpull/segpull/internal/engine/types"
)

type partial struct {
	pos, limit       int64
	hasPos, hasLimit bool
}

// Parse converts raw status text into a snapshot.
// Segments missing either pos or limit are dropped, and each kept segment
// starts where the previous kept segment's limit ends.
func Parse(raw string) types.SegmentSnapshot {
	var snap types.SegmentSnapshot
	records := make(map[int]*partial)

	for _, line := range strings.Split(raw, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if key == "size" {
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				snap.TotalSize = n
				snap.HasSize = true
			}
			continue
		}

		idxText, field, ok := strings.Cut(key, ".")
		if !ok || (field != "pos" && field != "limit") {
			continue
		}
		idx, ok := parseIndex(idxText)
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(value, 10, 63)
		if err != nil {
			continue
		}

		rec := records[idx]
		if rec == nil {
			rec = &partial{}
			records[idx] = rec
		}
		if field == "pos" {
			rec.pos, rec.hasPos = int64(n), true
		} else {
			rec.limit, rec.hasLimit = int64(n), true
		}
	}

	indices := make([]int, 0, len(records))
	for idx := range records {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var start int64
	for _, idx := range indices {
		rec := records[idx]
		if !rec.hasPos || !rec.hasLimit {
			continue
		}
		snap.Segments = append(snap.Segments, types.Segment{
			Index: idx,
			Start: start,
			Pos:   rec.pos,
			Limit: rec.limit,
		})
		start = rec.limit
	}

	return snap
}

// parseIndex accepts only plain decimal digits
func parseIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseFile reads and parses a status file.
// ok is false with a nil error when the file does not exist yet.
func ParseFile(path string) (snap types.SegmentSnapshot, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.SegmentSnapshot{}, false, nil
		}
		return types.SegmentSnapshot{}, false, err
	}
	return Parse(string(data)), true, nil
}

// StatusPath returns the status file path lftp uses for a local output path
func StatusPath(localPath string) string {
	return localPath + types.StatusSuffix
}
