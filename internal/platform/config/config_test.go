package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("EVIDEX_CONFIG", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, ContentStoreMemory, cfg.Content.Mode)
	assert.Equal(t, 7, cfg.Production.DefaultPadWidth)
	assert.False(t, cfg.Kafka.Enabled())
}

func TestFromEnvOverlaysFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evidex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
pipeline:
  concurrency: 2
  item_timeout: 5s
cases:
  - id: "6f1c2f9e-3c1a-4c55-9b61-0a4f3e1d2b77"
    title: "Acme v. Globex"
`), 0o600))

	t.Setenv("EVIDEX_CONFIG", path)
	t.Setenv("PIPELINE_CONCURRENCY", "4")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.ItemTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	require.Len(t, cfg.Cases, 1)
	assert.Equal(t, "Acme v. Globex", cfg.Cases[0].Title)
}

func TestValidate(t *testing.T) {
	t.Run("gcs requires bucket", func(t *testing.T) {
		cfg := Default()
		cfg.Content.Mode = ContentStoreGCS
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown content mode", func(t *testing.T) {
		cfg := Default()
		cfg.Content.Mode = "s3"
		assert.Error(t, cfg.Validate())
	})

	t.Run("pad width bounds", func(t *testing.T) {
		cfg := Default()
		cfg.Production.DefaultPadWidth = 0
		assert.Error(t, cfg.Validate())
	})
}
