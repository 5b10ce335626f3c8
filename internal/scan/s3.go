package scan

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/storagesnap/s3-storage-report/internal/snap"
)

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSSL"`
}

// objectLister is the subset of minio.Client the scanner needs.
type objectLister interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// S3Scanner inventories every bucket reachable with one set of credentials on
// an S3-compatible endpoint.
type S3Scanner struct {
	client objectLister
}

func NewS3Scanner(config S3Config) (*S3Scanner, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating s3 client: %w", err)
	}
	return &S3Scanner{client: client}, nil
}

func (sc *S3Scanner) Scan(ctx context.Context) (*snap.Snapshot, error) {
	snapshot := snap.New(time.Now())

	buckets, err := sc.client.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing buckets: %w", err)
	}
	for _, bucket := range buckets {
		stat, err := sc.scanBucket(ctx, bucket.Name)
		if err != nil {
			return nil, err
		}
		snapshot.Buckets[bucket.Name] = stat
	}

	snapshot.Metadata.End = snap.FormatTime(time.Now())
	return snapshot, nil
}

func (sc *S3Scanner) scanBucket(ctx context.Context, name string) (snap.BucketStat, error) {
	log.Printf("scanning bucket: %s", name)

	var stat snap.BucketStat
	for object := range sc.client.ListObjects(ctx, name, minio.ListObjectsOptions{Recursive: true}) {
		if object.Err != nil {
			return stat, fmt.Errorf("listing objects in %s: %w", name, object.Err)
		}
		stat.Files++
		stat.Bytes += object.Size
	}
	return stat, nil
}
