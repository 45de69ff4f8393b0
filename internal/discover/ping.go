package discover

import (
	"context"
	"runtime"
	"time"

	ping "github.com/go-ping/ping"
)

// Ping measures one ICMP round trip to host. The session uses it to
// attach a latency figure to hosts that were found by service discovery
// alone and therefore never went through a TCP probe; the CLI exposes it
// as a quick pre-connect check.
func Ping(ctx context.Context, host string, timeout time.Duration) (time.Duration, bool) {
	pinger, err := ping.NewPinger(host)
	if err != nil {
		return 0, false
	}

	// Windows has no unprivileged ICMP sockets.
	pinger.SetPrivileged(runtime.GOOS == "windows")
	pinger.Count = 1
	pinger.Timeout = timeout

	statsCh := make(chan *ping.Statistics, 1)
	pinger.OnFinish = func(stats *ping.Statistics) {
		statsCh <- stats
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- pinger.Run()
	}()

	select {
	case <-ctx.Done():
		pinger.Stop()
		return 0, false
	case err := <-errCh:
		if err != nil {
			return 0, false
		}
	}

	var stats *ping.Statistics
	select {
	case stats = <-statsCh:
	case <-ctx.Done():
		return 0, false
	}

	if stats == nil || stats.PacketsRecv == 0 {
		return 0, false
	}
	rtt := stats.AvgRtt
	if rtt < time.Millisecond {
		rtt = time.Millisecond
	}
	return rtt, true
}
