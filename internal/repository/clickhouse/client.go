package clickhouse

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/BarkinBalci/synthesis-engine/internal/config"
)

const retryDelay = 2 * time.Second

// Client wraps the read connection to the event store
type Client struct {
	connection driver.Conn
	log        *zap.Logger
}

// NewClient opens a ClickHouse connection tuned for window scans and waits
// until it answers a ping, retrying up to cfg.ConnectRetries times.
func NewClient(ctx context.Context, cfg *config.ClickHouse, log *zap.Logger) (*Client, error) {
	addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)

	log.Info("Connecting to event store",
		zap.String("host", cfg.Host),
		zap.String("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.Bool("useTLS", cfg.UseTLS))

	connection, err := clickhouse.Open(options(addr, cfg))
	if err != nil {
		log.Error("Failed to open event store connection", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	attempts := cfg.ConnectRetries + 1
	for attempt := 1; ; attempt++ {
		err = connection.Ping(ctx)
		if err == nil {
			break
		}
		if attempt >= attempts {
			log.Error("Event store unreachable", zap.Int("attempts", attempt), zap.Error(err))
			_ = connection.Close()
			return nil, fmt.Errorf("failed to ping ClickHouse after %d attempts: %w", attempt, err)
		}

		log.Warn("Event store not ready, retrying", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			_ = connection.Close()
			return nil, fmt.Errorf("failed to ping ClickHouse: %w", ctx.Err())
		case <-time.After(retryDelay * time.Duration(attempt)):
		}
	}

	log.Info("Event store connection established")

	return &Client{connection: connection, log: log}, nil
}

func options(addr string, cfg *config.ClickHouse) *clickhouse.Options {
	var tlsConfig *tls.Config
	if cfg.UseTLS {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": int(timeout.Seconds()),
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{
				{Name: "synthesis-engine", Version: "1.0"},
			},
		},
		TLS:              tlsConfig,
		DialTimeout:      5 * time.Second,
		ReadTimeout:      timeout + 5*time.Second,
		MaxOpenConns:     cfg.MaxOpenConns,
		MaxIdleConns:     cfg.MaxIdleConns,
		ConnMaxLifetime:  time.Duration(cfg.ConnMaxLifetime) * time.Second,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	}
}

// Conn returns the underlying ClickHouse connection
func (c *Client) Conn() driver.Conn {
	return c.connection
}

// Close closes the ClickHouse connection
func (c *Client) Close() error {
	if err := c.connection.Close(); err != nil {
		c.log.Error("Error closing event store connection", zap.Error(err))
		return err
	}
	c.log.Info("Event store connection closed")
	return nil
}
