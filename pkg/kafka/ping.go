package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// Brokers pings a broker list for health checks.
type Brokers []string

// Ping succeeds as soon as one broker accepts a connection.
func (b Brokers) Ping(ctx context.Context) error {
	if len(b) == 0 {
		return errors.New("no brokers configured")
	}
	var lastErr error
	for _, addr := range b {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	return fmt.Errorf("dialing kafka brokers: %w", lastErr)
}
