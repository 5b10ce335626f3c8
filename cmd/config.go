package main

import (
	"fmt"
	"os"
	"regexp"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v2"

	"github.com/storagesnap/s3-storage-report/internal/mailer"
	"github.com/storagesnap/s3-storage-report/internal/metrics"
	"github.com/storagesnap/s3-storage-report/internal/scan"
)

type Config struct {
	SnapshotDir string                     `yaml:"snapshotDir"`
	S3          *scan.S3Config             `yaml:"s3,omitempty"`
	Azure       *scan.AzureInventoryConfig `yaml:"azure,omitempty"`
	SMTP        mailer.Config              `yaml:"smtp"`
	Metrics     metrics.Config             `yaml:"metrics,omitempty"`
	Schedule    ScheduleConfig             `yaml:"schedule,omitempty"`
}

type ScheduleConfig struct {
	SnapshotCron string `yaml:"snapshotCron" default:"0 4 * * *"`
	ReportCron   string `yaml:"reportCron" default:"0 8 * * MON"`
	BindAddress  string `yaml:"bindAddress" default:":8080"`
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

type unmarshalledScheduleConfig ScheduleConfig

func (c *ScheduleConfig) UnmarshalYAML(unmarshal func(any) error) error {
	tmp := new(unmarshalledScheduleConfig)
	if err := defaults.Set(tmp); err != nil {
		return err
	}
	if err := unmarshal(tmp); err != nil {
		return err
	}
	*c = ScheduleConfig(*tmp)
	return nil
}

// matches $(VAR_NAME)
var envPattern = regexp.MustCompile(`\$\(([A-Za-z0-9_]+)\)`)

// loadConfig reads a yaml config file, expanding $(ENV_VAR) placeholders so
// secrets like connection strings can stay out of the file itself.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	expanded := envPattern.ReplaceAllStringFunc(string(data), func(m string) string {
		return os.Getenv(envPattern.FindStringSubmatch(m)[1])
	})

	config := new(Config)
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if config.SnapshotDir == "" {
		return nil, fmt.Errorf("snapshotDir is not configured")
	}
	return config, nil
}
