package setup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/folio/config"
)

func TestWrite_LoadsBack(t *testing.T) {
	answers := DefaultAnswers()
	answers.BaseURL = "https://api.example.com/v1/"
	answers.QuoteSource = config.QuoteSourceBinance
	answers.Reconcile = true
	answers.NoticeTTL = "6s"
	answers.DashboardAddr = ":9090"

	path := filepath.Join(t.TempDir(), "folio.yaml")
	require.NoError(t, Write(path, answers))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	conf, err := config.Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1", conf.API.BaseURL)
	assert.Equal(t, "FOLIO_TOKEN", conf.API.TokenEnv)
	assert.Equal(t, config.QuoteSourceBinance, conf.QuoteSource)
	assert.True(t, conf.Trade.ReconcileAfterTrade)
	assert.Equal(t, 6*time.Second, conf.Trade.NoticeTTL)
	assert.Equal(t, ":9090", conf.Dashboard.Addr)
	assert.Equal(t, config.Default().Endpoints, conf.Endpoints)
}

func TestAnswers_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		answers Answers
	}{
		{"no scheme", Answers{BaseURL: "localhost:8000"}},
		{"no host", Answers{BaseURL: "http://"}},
		{"bad ttl", Answers{BaseURL: "http://localhost", NoticeTTL: "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.answers.ConfigTmp()
			assert.Error(t, err)
		})
	}
}
