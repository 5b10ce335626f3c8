package delta

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/storagesnap/s3-storage-report/internal/snap"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		current  *snap.Snapshot
		previous *snap.Snapshot
		want     *Record
		wantErr  bool
	}{{
		name: "no previous snapshot",
		current: &snap.Snapshot{
			Metadata: snap.Metadata{Version: "1", Start: "2024-05-02T00:00:00Z"},
			Buckets: map[string]snap.BucketStat{
				"a": {Files: 10, Bytes: 100},
				"b": {Files: 3, Bytes: 300},
			},
		},
		previous: nil,
		want: &Record{
			Now: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
			Buckets: map[string]BucketDelta{
				"a": {Files: 10, Bytes: 100, DFiles: 10, DBytes: 100},
				"b": {Files: 3, Bytes: 300, DFiles: 3, DBytes: 300},
			},
			TotalFiles:  13,
			TotalBytes:  400,
			TotalDFiles: 13,
			TotalDBytes: 400,
		},
	}, {
		name: "growth and disappeared bucket",
		current: &snap.Snapshot{
			Metadata: snap.Metadata{Version: "1", Start: "2024-05-02T00:00:00Z"},
			Buckets: map[string]snap.BucketStat{
				"a": {Files: 100, Bytes: 1048576},
			},
		},
		previous: &snap.Snapshot{
			Metadata: snap.Metadata{Version: "1", Start: "2024-05-01T00:00:00Z"},
			Buckets: map[string]snap.BucketStat{
				"a": {Files: 90, Bytes: 1000000},
				"b": {Files: 3, Bytes: 300},
			},
		},
		want: &Record{
			Now:     time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
			Elapsed: 24 * time.Hour,
			Buckets: map[string]BucketDelta{
				"a": {Files: 100, Bytes: 1048576, DFiles: 10, DBytes: 48576},
				"b": {Files: 0, Bytes: 0, DFiles: -3, DBytes: -300},
			},
			TotalFiles:  100,
			TotalBytes:  1048576,
			TotalDFiles: 7,
			TotalDBytes: 48276,
		},
	}, {
		name: "new bucket and shrinking bucket",
		current: &snap.Snapshot{
			Metadata: snap.Metadata{Version: "1", Start: "2024-05-02T06:30:00Z"},
			Buckets: map[string]snap.BucketStat{
				"old": {Files: 7, Bytes: 80},
				"new": {Files: 1, Bytes: 1},
			},
		},
		previous: &snap.Snapshot{
			Metadata: snap.Metadata{Version: "1", Start: "2024-05-02T00:00:00Z"},
			Buckets: map[string]snap.BucketStat{
				"old": {Files: 10, Bytes: 100},
			},
		},
		want: &Record{
			Now:     time.Date(2024, 5, 2, 6, 30, 0, 0, time.UTC),
			Elapsed: 6*time.Hour + 30*time.Minute,
			Buckets: map[string]BucketDelta{
				"old": {Files: 7, Bytes: 80, DFiles: -3, DBytes: -20},
				"new": {Files: 1, Bytes: 1, DFiles: 1, DBytes: 1},
			},
			TotalFiles:  8,
			TotalBytes:  81,
			TotalDFiles: -2,
			TotalDBytes: -19,
		},
	}, {
		name: "previous with unusable start still diffs buckets",
		current: &snap.Snapshot{
			Metadata: snap.Metadata{Version: "1", Start: "2024-05-02T00:00:00Z"},
			Buckets: map[string]snap.BucketStat{
				"a": {Files: 5, Bytes: 50},
			},
		},
		previous: &snap.Snapshot{
			Metadata: snap.Metadata{Version: "1", Start: "not a timestamp"},
			Buckets: map[string]snap.BucketStat{
				"a": {Files: 2, Bytes: 20},
			},
		},
		want: &Record{
			Now: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
			Buckets: map[string]BucketDelta{
				"a": {Files: 5, Bytes: 50, DFiles: 3, DBytes: 30},
			},
			TotalFiles:  5,
			TotalBytes:  50,
			TotalDFiles: 3,
			TotalDBytes: 30,
		},
	}, {
		name: "current without start time",
		current: &snap.Snapshot{
			Metadata: snap.Metadata{Version: "1"},
			Buckets:  map[string]snap.BucketStat{},
		},
		wantErr: true,
	}, {
		name: "current without buckets mapping",
		current: &snap.Snapshot{
			Metadata: snap.Metadata{Version: "1", Start: "2024-05-02T00:00:00Z"},
		},
		wantErr: true,
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.current, tt.previous)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestCompareBucketSetIsUnion(t *testing.T) {
	current := &snap.Snapshot{
		Metadata: snap.Metadata{Version: "1", Start: "2024-05-02T00:00:00Z"},
		Buckets: map[string]snap.BucketStat{
			"a": {Files: 1, Bytes: 1},
			"b": {Files: 2, Bytes: 2},
		},
	}
	previous := &snap.Snapshot{
		Metadata: snap.Metadata{Version: "1", Start: "2024-05-01T00:00:00Z"},
		Buckets: map[string]snap.BucketStat{
			"b": {Files: 2, Bytes: 2},
			"c": {Files: 3, Bytes: 3},
		},
	}

	record, err := Compare(current, previous)
	require.NoError(t, err)

	require.Len(t, record.Buckets, 3)
	for _, name := range []string{"a", "b", "c"} {
		require.Contains(t, record.Buckets, name)
	}
}

func TestCompareTotalsMatchBucketSums(t *testing.T) {
	current := &snap.Snapshot{
		Metadata: snap.Metadata{Version: "1", Start: "2024-05-02T00:00:00Z"},
		Buckets: map[string]snap.BucketStat{
			"a": {Files: 11, Bytes: 1100},
			"b": {Files: 22, Bytes: 2200},
			"c": {Files: 33, Bytes: 3300},
		},
	}
	previous := &snap.Snapshot{
		Metadata: snap.Metadata{Version: "1", Start: "2024-05-01T00:00:00Z"},
		Buckets: map[string]snap.BucketStat{
			"b": {Files: 20, Bytes: 2000},
			"d": {Files: 40, Bytes: 4000},
		},
	}

	record, err := Compare(current, previous)
	require.NoError(t, err)

	var files, bytes, dFiles, dBytes int64
	for _, bucket := range record.Buckets {
		files += bucket.Files
		bytes += bucket.Bytes
		dFiles += bucket.DFiles
		dBytes += bucket.DBytes
	}
	require.Equal(t, files, record.TotalFiles)
	require.Equal(t, bytes, record.TotalBytes)
	require.Equal(t, dFiles, record.TotalDFiles)
	require.Equal(t, dBytes, record.TotalDBytes)
}
