package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"

	"github.com/storagesnap/s3-storage-report/internal/snap"
)

func TestS3ScannerScan(t *testing.T) {
	scanner := &S3Scanner{client: &fakeObjectLister{
		objects: map[string][]minio.ObjectInfo{
			"backups": {
				{Key: "db/dump1.sql", Size: 1000},
				{Key: "db/dump2.sql", Size: 2000},
			},
			"assets": {
				{Key: "logo.png", Size: 300},
			},
			"empty": {},
		},
	}}

	snapshot, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	require.NoError(t, snapshot.Validate())
	require.NotEmpty(t, snapshot.Metadata.End)
	require.Equal(t, map[string]snap.BucketStat{
		"backups": {Files: 2, Bytes: 3000},
		"assets":  {Files: 1, Bytes: 300},
		"empty":   {Files: 0, Bytes: 0},
	}, snapshot.Buckets)
}

func TestS3ScannerListBucketsError(t *testing.T) {
	scanner := &S3Scanner{client: &fakeObjectLister{
		listBucketsErr: errors.New("access denied"),
	}}

	_, err := scanner.Scan(context.Background())
	require.ErrorContains(t, err, "listing buckets")
}

func TestS3ScannerListObjectsError(t *testing.T) {
	scanner := &S3Scanner{client: &fakeObjectLister{
		objects: map[string][]minio.ObjectInfo{
			"backups": {
				{Key: "db/dump1.sql", Size: 1000},
				{Err: errors.New("connection reset")},
			},
		},
	}}

	_, err := scanner.Scan(context.Background())
	require.ErrorContains(t, err, "listing objects in backups")
}

type fakeObjectLister struct {
	objects        map[string][]minio.ObjectInfo
	listBucketsErr error
}

func (f *fakeObjectLister) ListBuckets(_ context.Context) ([]minio.BucketInfo, error) {
	if f.listBucketsErr != nil {
		return nil, f.listBucketsErr
	}
	var buckets []minio.BucketInfo
	for name := range f.objects {
		buckets = append(buckets, minio.BucketInfo{Name: name})
	}
	return buckets, nil
}

func (f *fakeObjectLister) ListObjects(_ context.Context, bucketName string, _ minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo)
	go func() {
		defer close(ch)
		for _, object := range f.objects[bucketName] {
			ch <- object
		}
	}()
	return ch
}
