package clickhouse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/config"
)

func TestConnectionOptions(t *testing.T) {
	cfg := &config.Config{
		ClickHouseHost:               "ch.internal",
		ClickHousePort:               "9440",
		ClickHouseDB:                 "marketing",
		ClickHouseUser:               "featurize",
		ClickHousePassword:           "secret",
		ClickHouseUseTLS:             true,
		ClickHouseMaxOpenConns:       4,
		ClickHouseMaxIdleConns:       2,
		ClickHouseConnMaxLifetimeSec: 600,
	}

	opts := connectionOptions(cfg)

	require.Equal(t, []string{"ch.internal:9440"}, opts.Addr)
	assert.Equal(t, "marketing", opts.Auth.Database)
	assert.Equal(t, "featurize", opts.Auth.Username)
	assert.Equal(t, "secret", opts.Auth.Password)
	assert.NotNil(t, opts.TLS)
	assert.False(t, opts.TLS.InsecureSkipVerify)
	assert.Equal(t, 4, opts.MaxOpenConns)
	assert.Equal(t, 2, opts.MaxIdleConns)
	assert.Equal(t, 10*time.Minute, opts.ConnMaxLifetime)

	// The batch scan budget: long enough for a full ordered table read.
	assert.Equal(t, maxExecutionSeconds, opts.Settings["max_execution_time"])
}

func TestConnectionOptions_NoTLSByDefault(t *testing.T) {
	opts := connectionOptions(&config.Config{
		ClickHouseHost: "localhost",
		ClickHousePort: "9000",
	})

	assert.Nil(t, opts.TLS)
	assert.Equal(t, []string{"localhost:9000"}, opts.Addr)
}
