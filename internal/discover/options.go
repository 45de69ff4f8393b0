package discover

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

// Defaults for a discovery session. Probe and session timeouts trade
// completeness on slow networks for a bounded user-visible scan time.
const (
	DefaultProbePort      = 22
	DefaultProbeTimeout   = 350 * time.Millisecond
	DefaultResolveTimeout = 2 * time.Second
	DefaultSessionTimeout = 6 * time.Second
	DefaultConcurrency    = 24
)

// Options describes the parameters of a discovery session.
// The zero value is usable: every field has a working default.
type Options struct {
	// ProbePort is the TCP port swept across the local subnet.
	ProbePort int
	// ProbeTimeout bounds a single TCP connect attempt.
	ProbeTimeout time.Duration
	// ResolveTimeout bounds re-resolution of an unresolved advertisement.
	ResolveTimeout time.Duration
	// SessionTimeout is the hard upper bound on session duration.
	SessionTimeout time.Duration
	// Concurrency caps the number of in-flight probes per wave.
	Concurrency int
	// PingLatency enables an ICMP round-trip measurement for hosts that
	// were found by service discovery only and carry no TCP latency.
	PingLatency bool

	// Logger receives debug tracing. Nil means silent.
	Logger *zap.Logger

	// Interfaces, Prober and Browser default to the OS-backed
	// implementations. Overridable for tests.
	Interfaces InterfaceProvider
	Prober     Prober
	Browser    Browser
}

// Validate checks that explicitly set values are usable.
func (o Options) Validate() error {
	if o.ProbePort < 0 || o.ProbePort > 65535 {
		return errors.New("probe port out of range")
	}
	if o.ProbeTimeout < 0 || o.ResolveTimeout < 0 || o.SessionTimeout < 0 {
		return errors.New("timeouts cannot be negative")
	}
	if o.Concurrency < 0 {
		return errors.New("concurrency cannot be negative")
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.ProbePort == 0 {
		o.ProbePort = DefaultProbePort
	}
	if o.ProbeTimeout == 0 {
		o.ProbeTimeout = DefaultProbeTimeout
	}
	if o.ResolveTimeout == 0 {
		o.ResolveTimeout = DefaultResolveTimeout
	}
	if o.SessionTimeout == 0 {
		o.SessionTimeout = DefaultSessionTimeout
	}
	if o.Concurrency == 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Interfaces == nil {
		o.Interfaces = SystemInterfaces{}
	}
	if o.Prober == nil {
		o.Prober = DialProber{}
	}
	if o.Browser == nil {
		o.Browser = &ZeroconfBrowser{ResolveTimeout: o.ResolveTimeout}
	}
	return o
}
