// Package snap holds the persisted bucket inventory model and its file store.
package snap

import (
	"errors"
	"fmt"
	"time"
)

// FormatVersion is written into the metadata of every new snapshot.
const FormatVersion = "1"

// BucketStat is the inventory of a single bucket: how many objects it holds
// and their combined size in bytes.
type BucketStat struct {
	Files int64 `json:"files"`
	Bytes int64 `json:"bytes"`
}

// Metadata describes an inventory run. Start and End are RFC 3339 timestamps;
// Start doubles as the snapshot's identity (it names the file in the store).
type Metadata struct {
	Version string `json:"version"`
	Start   string `json:"start"`
	End     string `json:"end,omitempty"`
}

// Snapshot is an immutable point-in-time inventory of all buckets.
// It is created once by a scanner and read many times by reporting runs.
type Snapshot struct {
	Metadata Metadata              `json:"metadata"`
	Buckets  map[string]BucketStat `json:"buckets"`
}

// New returns an empty snapshot starting at the given time.
func New(start time.Time) *Snapshot {
	return &Snapshot{
		Metadata: Metadata{
			Version: FormatVersion,
			Start:   FormatTime(start),
		},
		Buckets: map[string]BucketStat{},
	}
}

// FormatTime renders a timestamp the way snapshots store them:
// UTC, second precision, RFC 3339.
func FormatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// Validate reports whether the snapshot can be used as the current side of a
// comparison. A snapshot without a parseable start time or without a buckets
// mapping is meaningless.
func (s *Snapshot) Validate() error {
	if s == nil {
		return errors.New("snapshot is nil")
	}
	if s.Metadata.Start == "" {
		return errors.New("snapshot has no start time")
	}
	if _, err := s.StartTime(); err != nil {
		return fmt.Errorf("snapshot start time: %w", err)
	}
	if s.Buckets == nil {
		return errors.New("snapshot has no buckets mapping")
	}
	for name, stat := range s.Buckets {
		if stat.Files < 0 || stat.Bytes < 0 {
			return fmt.Errorf("bucket %q has negative counts", name)
		}
	}
	return nil
}

// StartTime parses the snapshot's start timestamp.
func (s *Snapshot) StartTime() (time.Time, error) {
	return time.Parse(time.RFC3339, s.Metadata.Start)
}
