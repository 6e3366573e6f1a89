package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tendant/simple-alt-pipeline/internal/contentstack"
	"github.com/tendant/simple-alt-pipeline/internal/openai"
)

func TestNew_Defaults(t *testing.T) {
	for _, key := range []string{"OPENAI_MODEL", "BATCH_SIZE", "UPDATE_DELAY", "DBOS_SYSTEM_DATABASE_URL", "LEDGER_DATABASE_URL", "CONTENTSTACK_HOST", "LOG_HUMAN"} {
		t.Setenv(key, "")
	}

	cfg := New()
	assert.Equal(t, openai.DefaultModel, cfg.OpenAIModel)
	assert.Equal(t, contentstack.DefaultBaseURL, cfg.ContentstackHost)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.UpdateDelay)
	assert.Equal(t, 200*time.Millisecond, cfg.CMSRequestDelay)
	assert.Equal(t, 30*time.Second, cfg.BatchPollInterval)
	assert.Equal(t, 10, cfg.AnalyzeConcurrency)
	assert.Equal(t, 5000, cfg.MaxAssets)
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, "./outputs", cfg.OutputsDir)
	assert.False(t, cfg.LogHuman)
	assert.Empty(t, cfg.LedgerDatabaseURL)
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("BATCH_SIZE", "20")
	t.Setenv("UPDATE_DELAY", "1s")
	t.Setenv("CMS_REQUEST_DELAY", "50")
	t.Setenv("BATCH_POLL_INTERVAL", "soon")
	t.Setenv("LOG_HUMAN", "true")
	t.Setenv("DBOS_SYSTEM_DATABASE_URL", "postgres://dbos")
	t.Setenv("LEDGER_DATABASE_URL", "")
	t.Setenv("CONTENTSTACK_BRANCH", " staging ")

	cfg := New()
	assert.Equal(t, 20, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.UpdateDelay)
	assert.Equal(t, 50*time.Millisecond, cfg.CMSRequestDelay)
	assert.Equal(t, 30*time.Second, cfg.BatchPollInterval)
	assert.True(t, cfg.LogHuman)
	assert.Equal(t, "postgres://dbos", cfg.LedgerDatabaseURL)
	assert.Equal(t, "staging", cfg.Contentstack().Branch)

	dbos := cfg.DBOS("pipeline-worker")
	assert.Equal(t, "pipeline-worker", dbos.AppName)
	assert.Equal(t, "postgres://dbos", dbos.DatabaseURL)
}
