package discover

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager orchestrates discovery sessions. At most one session is active
// at a time; starting a new one first tears the previous one down
// completely, so no event from an old session can leak into a new stream.
type Manager struct {
	mu      sync.Mutex
	opts    Options
	status  Status
	session *session
}

// NewManager creates a Manager with defaults applied for any zero field.
func NewManager(opts Options) (*Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		opts:   opts.withDefaults(),
		status: StatusIdle,
	}, nil
}

// Start begins a discovery session and returns its live event stream.
// The channel is closed when the session terminates, whether by timeout
// or by Stop. Start never fails: degenerate network state simply yields
// a stream with no hostFound events.
func (m *Manager) Start(ctx context.Context) <-chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	s := newSession(ctx, m.opts)
	m.session = s
	m.status = StatusScanning
	s.start()

	go func() {
		<-s.done
		m.mu.Lock()
		if m.session == s {
			m.status = StatusFinished
		}
		m.mu.Unlock()
	}()

	return s.events
}

// Stop cancels the active session. It returns only after every probe,
// browse handle and timer of that session has been torn down and the
// event stream closed. Calling it with no session running is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// Rescan is Stop followed immediately by Start.
func (m *Manager) Rescan(ctx context.Context) <-chan Event {
	return m.Start(ctx)
}

// Status reports the manager's lifecycle state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Manager) stopLocked() {
	if m.session == nil {
		return
	}
	m.session.finish()
	<-m.session.done
	m.session = nil
	m.status = StatusFinished
}

// session owns all resources of one discovery run: the outgoing event
// channel, the cancellation context shared by probes, browse handles and
// the timeout timer, and the per-source completion state.
type session struct {
	opts Options
	log  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	events chan Event
	done   chan struct{}

	wg         sync.WaitGroup
	finishOnce sync.Once
	permOnce   sync.Once

	emitMu   sync.Mutex
	finished bool

	srcMu   sync.Mutex
	srcDone map[Source]bool
}

// eventBuffer absorbs bursts from concurrent producers so a slow
// consumer does not stall probe waves.
const eventBuffer = 512

func newSession(ctx context.Context, opts Options) *session {
	sctx, cancel := context.WithCancel(ctx)
	return &session{
		opts:    opts,
		log:     opts.Logger,
		ctx:     sctx,
		cancel:  cancel,
		events:  make(chan Event, eventBuffer),
		done:    make(chan struct{}),
		srcDone: make(map[Source]bool),
	}
}

func (s *session) start() {
	s.emit(Event{Kind: EventScanningStarted})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runProbeSweep()
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runBrowse()
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-time.After(s.opts.SessionTimeout):
			s.log.Debug("session timeout reached",
				zap.Duration("timeout", s.opts.SessionTimeout))
			s.finish()
		case <-s.ctx.Done():
		}
	}()

	go func() {
		s.wg.Wait()
		s.finish()
		close(s.events)
		close(s.done)
	}()
}

func (s *session) runBrowse() {
	s.emit(Event{Kind: EventSourceStarted, Source: SourceServiceDiscovery})

	err := s.opts.Browser.Browse(s.ctx, s.browseFound)
	if err == nil || s.ctx.Err() != nil {
		return
	}
	if errors.Is(err, ErrPermissionDenied) {
		// Informational, not fatal: the active-probe path keeps running.
		s.permOnce.Do(func() {
			s.log.Debug("service browsing not permitted")
			s.emit(Event{Kind: EventPermissionDenied, Source: SourceServiceDiscovery})
		})
		return
	}
	s.log.Debug("service browsing failed", zap.Error(err))
	s.emit(Event{Kind: EventFailed, Source: SourceServiceDiscovery, Message: err.Error()})
}

func (s *session) browseFound(found DiscoveredHost) {
	if s.ctx.Err() != nil {
		return
	}
	host := found
	s.emit(Event{Kind: EventHostFound, Source: SourceServiceDiscovery, Host: &host})

	if !s.opts.PingLatency || found.LatencyMs > 0 {
		return
	}
	// Follow up with a measured round trip; the aggregator folds the
	// second observation into the existing record.
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		rtt, ok := Ping(s.ctx, found.Host, s.opts.ResolveTimeout)
		if !ok || s.ctx.Err() != nil {
			return
		}
		enriched := found
		enriched.LatencyMs = int(rtt / time.Millisecond)
		enriched.LastSeenAt = time.Now()
		s.emit(Event{Kind: EventHostFound, Source: SourceServiceDiscovery, Host: &enriched})
	}()
}

// finish ends the session exactly once: both sources are reported
// finished (whether or not they completed on their own), the terminal
// scanningFinished event is queued, and all outstanding work is
// cancelled.
func (s *session) finish() {
	s.finishOnce.Do(func() {
		s.emitMu.Lock()
		s.finished = true
		s.emitMu.Unlock()
		s.markSourceFinished(SourceServiceDiscovery)
		s.markSourceFinished(SourceActiveProbe)
		s.emit(Event{Kind: EventScanningFinished})
		s.cancel()
	})
}

// markSourceFinished emits sourceFinished at most once per source.
func (s *session) markSourceFinished(src Source) {
	s.srcMu.Lock()
	already := s.srcDone[src]
	s.srcDone[src] = true
	s.srcMu.Unlock()
	if !already {
		s.emit(Event{Kind: EventSourceFinished, Source: src})
	}
}

// emit queues an event for the consumer. Sends are serialized so that
// once finish has run, only the terminal sourceFinished and
// scanningFinished events can still enter the stream; a straggling
// producer that lost the race to finish gets its event dropped instead
// of queued after scanningFinished. After cancellation the send degrades
// to best effort so producers can never deadlock on a stream nobody
// reads any more.
func (s *session) emit(ev Event) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if s.finished && ev.Kind != EventSourceFinished && ev.Kind != EventScanningFinished {
		return
	}
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
		select {
		case s.events <- ev:
		default:
		}
	}
}
