package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
app:
  name: amr-worker
lmstfy:
  host: 127.0.0.1
  queue: amr_predict
  callback_queue: amr_predict_callback
workers:
  - name: w1
    queue_name: amr_predict
    subscriber:
      threads: 1
      timeout: 3s
    processor:
      threads: 2
      timeout: 90s
engine:
  templates:
    - family: full
      file: full.txt
    - family: snps_kmers
      file: snps_kmers.txt
  antibiotics:
    - name: pefoxacin
      full_model: pef_full.json
      partial_model: pef_partial.json
      partial_family: snps_kmers
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "worker.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 5, cfg.Engine.TopN)
	assert.Equal(t, 3, cfg.Engine.Parallelism)
	assert.Equal(t, "full", cfg.Engine.FullFamily)
	assert.Equal(t, 90*time.Second, cfg.Workers[0].Processor.Timeout)
	assert.Equal(t, 3*time.Second, cfg.Workers[0].Subscriber.Timeout)
	require.NoError(t, cfg.ValidateWorker())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("AMR_MYSQL_DSN", "user:pw@tcp(db:3306)/amr")
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "user:pw@tcp(db:3306)/amr", cfg.MySQL.DSN)
}

func TestValidateEngine(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeConfig(t, sampleYAML))
		require.NoError(t, err)
		return cfg
	}

	t.Run("unknown partial family", func(t *testing.T) {
		cfg := base()
		cfg.Engine.Antibiotics[0].PartialFamily = "genes_snps"
		assert.ErrorContains(t, cfg.ValidateEngine(), "partial_family")
	})

	t.Run("duplicate antibiotic", func(t *testing.T) {
		cfg := base()
		cfg.Engine.Antibiotics = append(cfg.Engine.Antibiotics, cfg.Engine.Antibiotics[0])
		assert.ErrorContains(t, cfg.ValidateEngine(), "duplicate antibiotic")
	})

	t.Run("missing full family", func(t *testing.T) {
		cfg := base()
		cfg.Engine.FullFamily = "everything"
		assert.ErrorContains(t, cfg.ValidateEngine(), "full_family")
	})
}

func TestValidateServer(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.ErrorContains(t, cfg.ValidateServer(), "redis")

	cfg.Redis.Addr = "127.0.0.1:6379"
	assert.NoError(t, cfg.ValidateServer())
	assert.Equal(t, 30*time.Second, cfg.Server.MaxWait)

	cfg.Lmstfy.CallbackQueue = ""
	assert.ErrorContains(t, cfg.ValidateServer(), "callback_queue")
}
