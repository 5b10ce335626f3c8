// Package metrics exposes the latest inventory snapshot as Prometheus gauges.
package metrics

import (
	"log"
	"sort"

	"github.com/creasty/defaults"
	"github.com/iancoleman/strcase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/storagesnap/s3-storage-report/internal/delta"
	"github.com/storagesnap/s3-storage-report/internal/snap"
)

const bucketLabel = "bucket"

type Config struct {
	MetricNamespace string `yaml:"metricNamespace" default:"s3"`
	MetricSubsystem string `yaml:"metricSubsystem" default:"storage"`
	Limit           int    `yaml:"limit" default:"1000"`
}

type unmarshalledConfig Config

func (c *Config) UnmarshalYAML(unmarshal func(any) error) error {
	tmp := new(unmarshalledConfig)
	if err := defaults.Set(tmp); err != nil {
		return err
	}
	if err := unmarshal(tmp); err != nil {
		return err
	}
	*c = Config(*tmp)
	return nil
}

type Updater struct {
	config           Config
	store            *snap.Store
	bucketFilesGauge *prometheus.GaugeVec
	bucketBytesGauge *prometheus.GaugeVec
	totalFilesGauge  prometheus.Gauge
	totalBytesGauge  prometheus.Gauge
	lastRunGauge     prometheus.Gauge
	lastRunStart     string
}

func NewUpdater(store *snap.Store, config Config) *Updater {
	namespace := strcase.ToSnake(config.MetricNamespace)
	subsystem := strcase.ToSnake(config.MetricSubsystem)
	// promauto automatically registers with prometheus.DefaultRegisterer
	return &Updater{
		config: config,
		store:  store,
		bucketFilesGauge: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bucket_files",
		}, []string{bucketLabel}),
		bucketBytesGauge: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "bucket_bytes",
		}, []string{bucketLabel}),
		totalFilesGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "total_files",
		}),
		totalBytesGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "total_bytes",
		}),
		lastRunGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_run_date",
		}),
	}
}

// Update reads the newest snapshot pair from the store and refreshes all
// gauges. When no newer snapshot exists since the last call, nothing changes.
func (u *Updater) Update() error {
	names, err := u.store.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		log.Print("no snapshots yet, metrics unchanged")
		return nil
	}

	current, err := u.store.Read(names[0])
	if err != nil {
		return err
	}
	if current.Metadata.Start == u.lastRunStart {
		log.Print("no newer snapshot found")
		return nil
	}
	var previous *snap.Snapshot
	if len(names) >= 2 {
		if previous, err = u.store.Read(names[1]); err != nil {
			return err
		}
	}

	record, err := delta.Compare(current, previous)
	if err != nil {
		return err
	}

	log.Printf("start setting metrics for run %s", current.Metadata.Start)
	u.lastRunStart = current.Metadata.Start
	u.lastRunGauge.Set(float64(record.Now.Unix()))
	u.totalFilesGauge.Set(float64(record.TotalFiles))
	u.totalBytesGauge.Set(float64(record.TotalBytes))
	u.bucketFilesGauge.Reset()
	u.bucketBytesGauge.Reset()

	buckets := make([]string, 0, len(record.Buckets))
	for name := range record.Buckets {
		buckets = append(buckets, name)
	}
	sort.Strings(buckets)
	if len(buckets) > u.config.Limit {
		log.Printf("metrics count will be limited to %d (of %d)", u.config.Limit, len(buckets))
		buckets = buckets[:u.config.Limit]
	}
	for _, name := range buckets {
		bucket := record.Buckets[name]
		u.bucketFilesGauge.With(prometheus.Labels{bucketLabel: name}).Set(float64(bucket.Files))
		u.bucketBytesGauge.With(prometheus.Labels{bucketLabel: name}).Set(float64(bucket.Bytes))
	}
	log.Printf("done updating metrics for run %s", u.lastRunStart)

	return nil
}
