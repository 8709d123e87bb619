// Package metrics sends counters to a StatsD-compatible UDP collector.
// No pack repository imports a StatsD client, so this talks the wire
// protocol directly over net.Conn rather than reaching for an unrelated
// metrics library (e.g. a Prometheus client, which is push-model and
// doesn't speak this collector's line protocol).
package metrics

import (
	"fmt"
	"net"

	"github.com/altitude-energy/matrix-ingest/pkg/logger"
)

// Client sends StatsD counters over UDP. UDP delivery is fire-and-forget:
// a send failure is logged and otherwise ignored, since metrics must never
// fail the run they describe.
type Client struct {
	conn net.Conn
}

// Dial opens a UDP "connection" to addr (host:port); UDP has no handshake,
// so this only resolves the address and never blocks on the collector.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics: dialing %q: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the underlying UDP socket.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Count sends a counter increment of delta for bucket.
func (c *Client) Count(bucket string, delta int) {
	if c == nil || c.conn == nil {
		return
	}
	line := fmt.Sprintf("%s:%d|c", bucket, delta)
	if _, err := c.conn.Write([]byte(line)); err != nil {
		logger.Log.Warn().Err(err).Str("bucket", bucket).Msg("metrics: write failed")
	}
}

// EmailProcessed increments the per-email counter. The email processor
// calls it once per message, regardless of outcome, before the headers are
// parsed.
func (c *Client) EmailProcessed() {
	c.Count("quote.email", 1)
}

// QuotesExtracted increments the per-parser quote counter by n.
func (c *Client) QuotesExtracted(parserName string, n int) {
	if n == 0 {
		return
	}
	c.Count("quote.matrix."+parserName, n)
}
