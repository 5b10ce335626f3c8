package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("TEST_SMTP_HOST", "mail.example.com")
	t.Setenv("TEST_S3_SECRET_KEY", "s3cret")

	configYaml := `
snapshotDir: /snapshots
s3:
  endpoint: s3.example.com
  accessKey: AKIATEST
  secretKey: $(TEST_S3_SECRET_KEY)
  useSSL: true
smtp:
  host: $(TEST_SMTP_HOST)
  from: reports@example.com
  to: ops@example.com
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYaml), 0o644))

	config, err := loadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "/snapshots", config.SnapshotDir)
	require.NotNil(t, config.S3)
	require.Nil(t, config.Azure)
	require.Equal(t, "s3cret", config.S3.SecretKey)
	require.True(t, config.S3.UseSSL)

	// env expansion
	require.Equal(t, "mail.example.com", config.SMTP.Host)

	// defaults
	require.Equal(t, 25, config.SMTP.Port)
	require.Equal(t, "yes", config.SMTP.StartTLS)
	require.Equal(t, "S3 storage report", config.SMTP.Subject)
	require.Equal(t, "s3", config.Metrics.MetricNamespace)
	require.Equal(t, 1000, config.Metrics.Limit)
	require.Equal(t, "0 4 * * *", config.Schedule.SnapshotCron)
	require.Equal(t, ":8080", config.Schedule.BindAddress)
}

func TestLoadConfigAzureDefaults(t *testing.T) {
	configYaml := `
snapshotDir: /snapshots
azure:
  azureStorageConnectionString: UseDevelopmentStorage=true
smtp:
  host: localhost
  from: reports@example.com
  to: ops@example.com
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configYaml), 0o644))

	config, err := loadConfig(path)
	require.NoError(t, err)

	require.NotNil(t, config.Azure)
	require.Equal(t, "blob-inventory", config.Azure.BlobInventoryContainer)
	require.Equal(t, "4GB", config.Azure.MemoryLimit)
	require.Equal(t, 4, config.Azure.Threads)
}

func TestLoadConfigRequiresSnapshotDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("smtp:\n  host: localhost\n"), 0o644))

	_, err := loadConfig(path)
	require.ErrorContains(t, err, "snapshotDir")
}
