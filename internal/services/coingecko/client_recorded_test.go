package coingecko

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"crypto-tracker/internal/logging"

	"github.com/dnaeon/go-vcr/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Replays a recorded markets call. Skips when the cassette is absent unless
// RECORD_CASSETTES=1, in which case the live endpoint is hit and recorded.
func TestClient_FetchMarkets_Recorded(t *testing.T) {
	cassette := filepath.Join("testdata", "cassettes", "coins_markets")
	if _, err := os.Stat(cassette + ".yaml"); os.IsNotExist(err) {
		if os.Getenv("RECORD_CASSETTES") != "1" {
			t.Skipf("cassette missing; set RECORD_CASSETTES=1 to record: %s.yaml", cassette)
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(cassette), 0o755))
	}

	r, err := recorder.New(cassette)
	require.NoError(t, err)
	defer func() { _ = r.Stop() }()

	client := NewClient(DefaultConfig(), logging.Discard(), WithHTTPClient(&http.Client{Transport: r}))
	coins, err := client.FetchMarkets(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, coins)
	assert.LessOrEqual(t, len(coins), 50)
	assert.NotEmpty(t, coins[0].Name)
	assert.NotEmpty(t, coins[0].Symbol)
}
