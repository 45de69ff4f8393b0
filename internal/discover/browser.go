package discover

import (
	"context"
	"errors"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

// Service types that advertise an SSH-capable endpoint over DNS-SD.
const (
	serviceTypeSSH  = "_ssh._tcp"
	serviceTypeSFTP = "_sftp-ssh._tcp"
	serviceDomain   = "local."
)

// Browser watches the local domain for SSH service advertisements and
// reports each one through found. It blocks until ctx is cancelled;
// the session timeout is the only natural end of browsing.
type Browser interface {
	Browse(ctx context.Context, found func(DiscoveredHost)) error
}

// ZeroconfBrowser browses via mDNS/DNS-SD using grandcat/zeroconf.
type ZeroconfBrowser struct {
	// ResolveTimeout bounds the re-resolution of an advertisement that
	// arrived without a hostname.
	ResolveTimeout time.Duration

	mu   sync.Mutex
	seen map[string]struct{}
}

func (b *ZeroconfBrowser) Browse(ctx context.Context, found func(DiscoveredHost)) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return translateBrowseError(err)
	}

	b.mu.Lock()
	b.seen = make(map[string]struct{})
	b.mu.Unlock()

	var wg sync.WaitGroup
	for _, serviceType := range []string{serviceTypeSSH, serviceTypeSFTP} {
		entries := make(chan *zeroconf.ServiceEntry)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range entries {
				b.handleEntry(ctx, resolver, entry, found)
			}
		}()
		if err := resolver.Browse(ctx, serviceType, serviceDomain, entries); err != nil {
			wg.Wait()
			return translateBrowseError(err)
		}
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

func (b *ZeroconfBrowser) handleEntry(ctx context.Context, resolver *zeroconf.Resolver, entry *zeroconf.ServiceEntry, found func(DiscoveredHost)) {
	if entry == nil || entry.Instance == "" {
		return
	}

	// The same advertisement is not resolved twice per session.
	key := entry.Instance + "." + entry.Service + "." + entry.Domain
	b.mu.Lock()
	if b.seen == nil {
		b.seen = make(map[string]struct{})
	}
	if _, dup := b.seen[key]; dup {
		b.mu.Unlock()
		return
	}
	b.seen[key] = struct{}{}
	b.mu.Unlock()

	host := strings.TrimSuffix(entry.HostName, ".")
	port := entry.Port
	if host == "" {
		if resolved := b.resolveEntry(ctx, resolver, entry); resolved != nil {
			host = strings.TrimSuffix(resolved.HostName, ".")
			if resolved.Port != 0 {
				port = resolved.Port
			}
		}
	}
	if host == "" {
		// Resolution failed: a sanitized guess is still more useful to
		// the user than dropping the advertisement.
		host = fallbackHostname(entry.Instance)
	}
	if port == 0 {
		port = DefaultProbePort
	}

	found(DiscoveredHost{
		DisplayName: entry.Instance,
		Host:        host,
		Port:        port,
		Sources:     []Source{SourceServiceDiscovery},
		LastSeenAt:  time.Now(),
	})
}

// resolveEntry re-queries an advertisement that arrived without an
// address, bounded by ResolveTimeout.
func (b *ZeroconfBrowser) resolveEntry(ctx context.Context, resolver *zeroconf.Resolver, entry *zeroconf.ServiceEntry) *zeroconf.ServiceEntry {
	if resolver == nil {
		return nil
	}
	timeout := b.ResolveTimeout
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Lookup(lookupCtx, entry.Instance, entry.Service, entry.Domain, entries); err != nil {
		return nil
	}
	for {
		select {
		case resolved, ok := <-entries:
			if !ok {
				return nil
			}
			if resolved != nil && resolved.HostName != "" {
				return resolved
			}
		case <-lookupCtx.Done():
			return nil
		}
	}
}

// translateBrowseError distinguishes the platform refusing local-network
// browsing from ordinary failures.
func translateBrowseError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrPermission) {
		return ErrPermissionDenied
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission denied") || strings.Contains(msg, "operation not permitted") {
		return ErrPermissionDenied
	}
	return err
}

var hostnameStrip = regexp.MustCompile(`[^a-z0-9-]+`)

// fallbackHostname derives a connectable-looking name from an advertised
// instance name when resolution fails. Heuristic: lowercase, whitespace
// runs become single hyphens, everything outside [a-z0-9-] is dropped.
func fallbackHostname(instance string) string {
	name := strings.ToLower(strings.TrimSpace(instance))
	name = strings.Join(strings.Fields(name), "-")
	name = hostnameStrip.ReplaceAllString(name, "")
	name = strings.Trim(name, "-")
	if name == "" {
		name = "unknown"
	}
	return name + ".local"
}
