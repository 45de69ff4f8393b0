package discover

import (
	"context"
	"net"
	"strconv"
	"time"
)

// Prober attempts a timed TCP connect to a single host:port pair.
// Implementations must be safe for concurrent use; each call owns its
// own socket.
type Prober interface {
	// Probe returns the measured connect latency and true when the
	// connection reached a ready state within timeout. Failure and
	// cancellation both report false.
	Probe(ctx context.Context, host string, port int, timeout time.Duration) (time.Duration, bool)
}

// DialProber probes with a plain net.Dialer.
type DialProber struct{}

func (DialProber) Probe(ctx context.Context, host string, port int, timeout time.Duration) (time.Duration, bool) {
	dialer := net.Dialer{Timeout: timeout}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return 0, false
	}
	latency := time.Since(start)
	_ = conn.Close()
	// Floor at 1ms so downstream sorting and display never see zero.
	if latency < time.Millisecond {
		latency = time.Millisecond
	}
	return latency, true
}
