package clickhouse

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/NikolozDarsalia/message-campaign-engagement-analysis/internal/config"
)

// A single feature run issues one large ordered scan and a handful of bulk
// inserts, so the connection is tuned for few long statements rather than
// many short ones.
const (
	dialTimeout = 5 * time.Second

	// Loading a month of messages in one ordered SELECT can legitimately
	// take minutes on a cold cluster.
	maxExecutionSeconds = 1800

	// Bulk feature inserts stream large blocks; a bigger buffer keeps the
	// batch writer from stalling between flushes.
	blockBufferSize = 50
)

// Client wraps the ClickHouse connection for the batch run.
type Client struct {
	connection driver.Conn
	log        *zap.Logger
}

// connectionOptions translates the flat config into driver options.
func connectionOptions(cfg *config.Config) *clickhouse.Options {
	var tlsConfig *tls.Config
	if cfg.ClickHouseUseTLS {
		tlsConfig = &tls.Config{InsecureSkipVerify: false}
	}

	return &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%s", cfg.ClickHouseHost, cfg.ClickHousePort)},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDB,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": maxExecutionSeconds,
		},
		TLS:              tlsConfig,
		DialTimeout:      dialTimeout,
		MaxOpenConns:     cfg.ClickHouseMaxOpenConns,
		MaxIdleConns:     cfg.ClickHouseMaxIdleConns,
		ConnMaxLifetime:  time.Duration(cfg.ClickHouseConnMaxLifetimeSec) * time.Second,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
		BlockBufferSize:  blockBufferSize,
	}
}

// NewClient opens a connection and verifies it with a ping.
func NewClient(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Client, error) {
	log.Info("Connecting to ClickHouse",
		zap.String("host", cfg.ClickHouseHost),
		zap.String("port", cfg.ClickHousePort),
		zap.String("database", cfg.ClickHouseDB),
		zap.Bool("useTLS", cfg.ClickHouseUseTLS))

	connection, err := clickhouse.Open(connectionOptions(cfg))
	if err != nil {
		log.Error("Failed to connect to ClickHouse", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := connection.Ping(ctx); err != nil {
		log.Error("Failed to ping ClickHouse", zap.Error(err))
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Info("ClickHouse connection established successfully")

	return &Client{connection: connection, log: log}, nil
}

// Conn returns the underlying ClickHouse connection
func (c *Client) Conn() driver.Conn {
	return c.connection
}

// Close closes the ClickHouse connection
func (c *Client) Close() error {
	c.log.Info("Closing ClickHouse connection")
	if err := c.connection.Close(); err != nil {
		c.log.Error("Error closing ClickHouse connection", zap.Error(err))
		return err
	}
	return nil
}
