package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "localhost:6379", cfg.Addr)
	assert.Equal(t, "matchbook", cfg.KeyPrefix)
	assert.Equal(t, 2*time.Second, cfg.SnapshotTTL)
}

func TestKeyBuilding(t *testing.T) {
	c := &SnapshotCache{cfg: &Config{KeyPrefix: "matchbook"}}

	assert.Equal(t, "matchbook:snapshot:AAPL", c.snapshotKey("AAPL"))
	assert.Equal(t, "matchbook:trades:AAPL", c.tradeChannel("AAPL"))
}
