package discover

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// runProbeSweep executes the active-probe phase: the candidate list is
// worked through in waves of at most Concurrency parallel probes, each
// wave starting as soon as the previous one drained. Successful probes
// stream out as hostFound events immediately; failures are silent.
func (s *session) runProbeSweep() {
	s.emit(Event{Kind: EventSourceStarted, Source: SourceActiveProbe})
	defer s.markSourceFinished(SourceActiveProbe)

	targets := enumerateCandidates(s.opts.Interfaces)
	s.log.Debug("probe sweep starting",
		zap.Int("candidates", len(targets)),
		zap.Int("port", s.opts.ProbePort),
		zap.Int("concurrency", s.opts.Concurrency))
	if len(targets) == 0 {
		return
	}

	waveSize := s.opts.Concurrency
	for offset := 0; offset < len(targets); offset += waveSize {
		if s.ctx.Err() != nil {
			return
		}
		end := offset + waveSize
		if end > len(targets) {
			end = len(targets)
		}

		var wg sync.WaitGroup
		for _, target := range targets[offset:end] {
			wg.Add(1)
			go func(host string) {
				defer wg.Done()
				s.probeTarget(host)
			}(target)
		}
		wg.Wait()
	}
}

func (s *session) probeTarget(host string) {
	latency, ok := s.opts.Prober.Probe(s.ctx, host, s.opts.ProbePort, s.opts.ProbeTimeout)
	if !ok || s.ctx.Err() != nil {
		return
	}

	found := DiscoveredHost{
		DisplayName: host,
		Host:        host,
		Port:        s.opts.ProbePort,
		Sources:     []Source{SourceActiveProbe},
		LatencyMs:   int(latency / time.Millisecond),
		LastSeenAt:  time.Now(),
	}
	if mac := lookupMACAddress(s.ctx, host); mac != "" {
		found.MacAddress = mac
		found.Manufacturer = lookupManufacturer(mac)
	}
	// The ARP lookup may have straddled session teardown; a finished
	// session must not receive trailing hostFound events.
	if s.ctx.Err() != nil {
		return
	}

	s.log.Debug("probe hit",
		zap.String("host", host),
		zap.Int("latencyMs", found.LatencyMs))
	s.emit(Event{Kind: EventHostFound, Source: SourceActiveProbe, Host: &found})
}
