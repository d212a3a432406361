package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowmetric/internal/analytics"
)

func TestDefaultMatchesStockThresholds(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, analytics.DefaultThresholds(), cfg.Thresholds())
	assert.Equal(t, 10, cfg.RecentActivityLimit())
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.True(t, cfg.Server.AllowFarcasterHeader)
	assert.Equal(t, "@every 1m", cfg.Metrics.Refresh)
}

func TestFromYAMLOverridesAndKeepsDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte(`
analytics:
  low_utilization: 20
webhooks:
  - url: http://example.test/hook
    types: [task_completed]
`))
	require.NoError(t, err)
	th := cfg.Thresholds()
	assert.Equal(t, 20.0, th.LowUtilization)
	assert.Equal(t, 90.0, th.HighUtilization)
	assert.Equal(t, 1.2, th.OverrunTolerance)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	require.Len(t, cfg.Webhooks, 1)
	assert.Equal(t, []string{"task_completed"}, cfg.Webhooks[0].Types)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"inverted thresholds": "analytics:\n  low_utilization: 95\n  high_utilization: 90\n",
		"bad cron":            "metrics:\n  refresh: \"every now and then\"\n",
		"relative base url":   "server:\n  public_base_url: /frames\n",
		"webhook without url": "webhooks:\n  - types: [task_update]\n",
		"base path":           "server:\n  base_path: api\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromYAML([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(dir)
	assert.ErrorContains(t, err, "not found")

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(GenerateDefault()), 0o644))
	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), loaded)
}
