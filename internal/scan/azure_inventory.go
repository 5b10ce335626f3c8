package scan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/creasty/defaults"
	"github.com/jmoiron/sqlx"
	_ "github.com/marcboeker/go-duckdb" // duckdb sql driver
	"github.com/oriser/regroup"
	"golang.org/x/exp/maps"

	"github.com/storagesnap/s3-storage-report/internal/snap"
)

const (
	runDatePathFormat   = "2006/01/02/15-04-05"
	maxSaneBucketCount  = 1e6
	inventoryNameColumn = "Name"
)

var inventoryRunFilePattern = regroup.MustCompile(`^(?P<date>\d{4}/\d{2}/\d{2}/\d{2}-\d{2}-\d{2})/(?P<rule>[^/]+)/[^_]+_\d+_\d+.parquet$`)

type AzureInventoryConfig struct {
	AzureStorageConnectionString string `yaml:"azureStorageConnectionString"`
	BlobInventoryContainer       string `yaml:"blobInventoryContainer" default:"blob-inventory"`
	MemoryLimit                  string `yaml:"memoryLimit" default:"4GB"`
	Threads                      int    `yaml:"threads" default:"4"`
}

type unmarshalledAzureInventoryConfig AzureInventoryConfig

func (c *AzureInventoryConfig) UnmarshalYAML(unmarshal func(any) error) error {
	tmp := new(unmarshalledAzureInventoryConfig)
	if err := defaults.Set(tmp); err != nil {
		return err
	}
	if err := unmarshal(tmp); err != nil {
		return err
	}
	*c = AzureInventoryConfig(*tmp)
	return nil
}

// AzureInventoryScanner inventories containers from the parquet output of an
// Azure Storage blob inventory run, so no blob has to be listed individually.
// The newest complete run found in the inventory container is used.
type AzureInventoryScanner struct {
	config AzureInventoryConfig
}

func NewAzureInventoryScanner(config AzureInventoryConfig) *AzureInventoryScanner {
	return &AzureInventoryScanner{config: config}
}

type bucketRow struct {
	Bucket string `db:"bucket"`
	Bytes  int64  `db:"bytes"`
	Count  int64  `db:"cnt"`
}

func (sc *AzureInventoryScanner) Scan(ctx context.Context) (*snap.Snapshot, error) {
	snapshot := snap.New(time.Now())

	log.Print("finding last blob inventory run")
	runDates, err := sc.findRuns(ctx)
	if err != nil {
		return nil, err
	}
	runDate, found := lastRunDate(runDates)
	if !found {
		return nil, errors.New("no blob inventory runs found")
	}

	log.Print("setting up duckdb / azure blob store connection")
	db, err := sqlx.Connect("duckdb", "")
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := sc.initDB(db); err != nil {
		return nil, err
	}

	if err := sc.readBuckets(db, runDate, snapshot); err != nil {
		return nil, err
	}

	snapshot.Metadata.End = snap.FormatTime(time.Now())
	return snapshot, nil
}

// readBuckets aggregates the inventory run's parquet files with duckdb,
// grouping blob sizes and counts by container.
func (sc *AzureInventoryScanner) readBuckets(db *sqlx.DB, runDate time.Time, snapshot *snap.Snapshot) error {
	// language=sql
	query := `
	SELECT string_split(i."` + inventoryNameColumn + `", '/')[1] as bucket,
		   sum(i."Content-Length") as bytes,
		   count(*) as cnt
	FROM read_parquet([?]) i
	WHERE NOT coalesce(i."Deleted", false)
	GROUP BY bucket
	LIMIT ? -- sanity limit
	`
	parquetWildcardPath := fmt.Sprintf("az://%s/%s/%s/*.parquet",
		sc.config.BlobInventoryContainer, runDate.Format(runDatePathFormat), "*")

	log.Print("start querying blob inventory (might take a while)")
	rows, err := db.Queryx(query, parquetWildcardPath, maxSaneBucketCount)
	if err != nil {
		return err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var row bucketRow
		if err := rows.StructScan(&row); err != nil {
			return err
		}
		snapshot.Buckets[row.Bucket] = snap.BucketStat{Files: row.Count, Bytes: row.Bytes}
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	log.Printf("done querying blob inventory, %d buckets found", count)
	return nil
}

func (sc *AzureInventoryScanner) initDB(db *sqlx.DB) error {
	// language=sql
	azInitQuery := `INSTALL azure;
					LOAD azure;
					SET azure_transport_option_type = 'curl'; -- fixes cert issues
					CREATE SECRET az (TYPE AZURE, PROVIDER CONFIG, CONNECTION_STRING '%s');`
	azInitQuery = fmt.Sprintf(azInitQuery, sc.config.AzureStorageConnectionString)
	if _, err := db.Exec(azInitQuery); err != nil {
		return err
	}

	// language=sql
	memSetQuery := `SET memory_limit = '%s';
	 				SET max_memory = '%s';
					SET threads = %d;`
	memSetQuery = fmt.Sprintf(memSetQuery, sc.config.MemoryLimit, sc.config.MemoryLimit, sc.config.Threads)
	if _, err := db.Exec(memSetQuery); err != nil {
		return err
	}

	return nil
}

func (sc *AzureInventoryScanner) findRuns(ctx context.Context) (map[time.Time][]string, error) {
	blobClient, err := azblob.NewClientFromConnectionString(sc.config.AzureStorageConnectionString, nil)
	if err != nil {
		return nil, err
	}
	pager := blobClient.NewListBlobsFlatPager(sc.config.BlobInventoryContainer, nil)
	runDates := make(map[time.Time][]string)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, blob := range page.Segment.BlobItems {
			g, err := inventoryRunFilePattern.Groups(*blob.Name)
			if err != nil { // no match
				continue
			}
			runDate, err := time.Parse(runDatePathFormat, g["date"])
			if err != nil { // unexpected
				return nil, err
			}
			runDates[runDate] = append(runDates[runDate], g["rule"])
		}
	}
	return runDates, nil
}

func lastRunDate(runDates map[time.Time][]string) (runDate time.Time, ok bool) {
	dates := maps.Keys(runDates)
	if len(dates) == 0 {
		return
	}
	return slices.MaxFunc(dates, func(i, j time.Time) int {
		return i.Compare(j)
	}), true
}
