// Package delta reconciles two bucket inventory snapshots into one record of
// current counts and signed changes.
package delta

import (
	"fmt"
	"time"

	"github.com/storagesnap/s3-storage-report/internal/snap"
)

// BucketDelta is a bucket's current counts plus the change since the previous
// snapshot. DFiles and DBytes may be negative.
type BucketDelta struct {
	Files  int64
	Bytes  int64
	DFiles int64
	DBytes int64
}

// Record is the result of comparing two snapshots. Its bucket set is the
// union of both snapshots' bucket sets: a bucket that disappeared shows up
// with zeroed current counts and a negative delta, a new bucket with a delta
// equal to its current counts.
type Record struct {
	// Now is the current snapshot's start time.
	Now time.Time
	// Elapsed is the time between the previous and current snapshots' start
	// times, zero when there was no previous snapshot.
	Elapsed time.Duration

	Buckets map[string]BucketDelta

	TotalFiles  int64
	TotalBytes  int64
	TotalDFiles int64
	TotalDBytes int64
}

// Compare diffs current against previous. previous may be nil (first-ever
// run) or missing any number of buckets; neither is an error. current must be
// a valid snapshot.
func Compare(current, previous *snap.Snapshot) (*Record, error) {
	if err := current.Validate(); err != nil {
		return nil, fmt.Errorf("current snapshot: %w", err)
	}
	now, err := current.StartTime()
	if err != nil {
		return nil, fmt.Errorf("current snapshot: %w", err)
	}

	record := &Record{
		Now:     now,
		Buckets: make(map[string]BucketDelta, len(current.Buckets)),
	}

	// The previous snapshot is best-effort history: an absent or unparseable
	// start time just means no elapsed duration can be reported.
	if previous != nil && previous.Metadata.Start != "" {
		if earlier, err := previous.StartTime(); err == nil {
			record.Elapsed = now.Sub(earlier)
		}
	}

	for name := range unionOfBucketNames(current, previous) {
		c := current.Buckets[name]
		var p snap.BucketStat
		if previous != nil {
			p = previous.Buckets[name]
		}
		record.Buckets[name] = BucketDelta{
			Files:  c.Files,
			Bytes:  c.Bytes,
			DFiles: c.Files - p.Files,
			DBytes: c.Bytes - p.Bytes,
		}
		record.TotalFiles += c.Files
		record.TotalBytes += c.Bytes
		record.TotalDFiles += c.Files - p.Files
		record.TotalDBytes += c.Bytes - p.Bytes
	}

	return record, nil
}

func unionOfBucketNames(current, previous *snap.Snapshot) map[string]struct{} {
	names := make(map[string]struct{}, len(current.Buckets))
	for name := range current.Buckets {
		names[name] = struct{}{}
	}
	if previous != nil {
		for name := range previous.Buckets {
			names[name] = struct{}{}
		}
	}
	return names
}
