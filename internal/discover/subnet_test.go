package discover

import (
	"errors"
	"net"
	"testing"
)

func addr(name, ip string, prefix int, up, loopback bool) InterfaceAddr {
	return InterfaceAddr{
		Name:     name,
		IP:       net.ParseIP(ip),
		Mask:     net.CIDRMask(prefix, 32),
		Up:       up,
		Loopback: loopback,
	}
}

func TestCandidateAddressesSlash24(t *testing.T) {
	candidates := candidateAddresses(addr("en0", "192.168.1.42", 24, true, false))
	if len(candidates) != 253 {
		t.Fatalf("expected 253 candidates, got %d", len(candidates))
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		seen[c] = struct{}{}
	}
	for _, excluded := range []string{"192.168.1.0", "192.168.1.42", "192.168.1.255"} {
		if _, ok := seen[excluded]; ok {
			t.Fatalf("candidate set must not contain %s", excluded)
		}
	}
	for _, included := range []string{"192.168.1.1", "192.168.1.254"} {
		if _, ok := seen[included]; !ok {
			t.Fatalf("candidate set missing %s", included)
		}
	}
}

func TestCandidateAddressesClampsWideSubnets(t *testing.T) {
	// A /16 must not be swept in full: only the /24 slice containing the
	// device's own address gets enumerated.
	candidates := candidateAddresses(addr("eth0", "10.1.7.20", 16, true, false))
	if len(candidates) != 253 {
		t.Fatalf("expected 253 candidates, got %d", len(candidates))
	}
	for _, c := range candidates {
		ip := net.ParseIP(c).To4()
		if ip[0] != 10 || ip[1] != 1 || ip[2] != 7 {
			t.Fatalf("candidate %s escaped the clamped /24 slice", c)
		}
		if c == "10.1.7.20" {
			t.Fatalf("candidate set must not contain the device's own address")
		}
	}
}

func TestCandidateAddressesClampsSlashZero(t *testing.T) {
	// A /0 mask is still a valid (if absurd) subnet: it clamps to the
	// device's /24 slice like any prefix shorter than /24.
	candidates := candidateAddresses(addr("eth0", "172.16.3.9", 0, true, false))
	if len(candidates) != 253 {
		t.Fatalf("expected 253 candidates, got %d", len(candidates))
	}
	for _, c := range candidates {
		ip := net.ParseIP(c).To4()
		if ip[0] != 172 || ip[1] != 16 || ip[2] != 3 {
			t.Fatalf("candidate %s escaped the clamped /24 slice", c)
		}
	}
}

func TestCandidateAddressesInvalidMask(t *testing.T) {
	// A non-canonical mask reports Size() as (0, 0) and must fail closed.
	iface := addr("eth0", "10.0.0.1", 24, true, false)
	iface.Mask = net.IPMask{0xFF, 0x00, 0xFF, 0x00}
	if got := candidateAddresses(iface); len(got) != 0 {
		t.Fatalf("expected empty candidate set for invalid mask, got %v", got)
	}
}

func TestCandidateAddressesSmallSubnets(t *testing.T) {
	candidates := candidateAddresses(addr("eth0", "10.0.0.1", 30, true, false))
	// /30 usable range is .1 and .2; .1 is the device itself.
	if len(candidates) != 1 || candidates[0] != "10.0.0.2" {
		t.Fatalf("expected [10.0.0.2], got %v", candidates)
	}
}

func TestCandidateAddressesDegenerate(t *testing.T) {
	cases := []struct {
		name  string
		iface InterfaceAddr
	}{
		{"slash31", addr("eth0", "10.0.0.0", 31, true, false)},
		{"slash32", addr("eth0", "10.0.0.1", 32, true, false)},
		{"ipv6", InterfaceAddr{Name: "eth0", IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128), Up: true}},
	}
	for _, tc := range cases {
		if got := candidateAddresses(tc.iface); len(got) != 0 {
			t.Fatalf("%s: expected empty candidate set, got %v", tc.name, got)
		}
	}
}

func TestSelectInterface(t *testing.T) {
	tests := []struct {
		name     string
		ifaces   []InterfaceAddr
		wantName string
		wantOK   bool
	}{
		{
			name:   "empty",
			wantOK: false,
		},
		{
			name: "loopback and down skipped",
			ifaces: []InterfaceAddr{
				addr("lo", "127.0.0.1", 8, true, true),
				addr("eth1", "192.168.2.5", 24, false, false),
			},
			wantOK: false,
		},
		{
			name: "last qualifying wins",
			ifaces: []InterfaceAddr{
				addr("tun0", "10.8.0.2", 24, true, false),
				addr("tap1", "10.9.0.2", 24, true, false),
			},
			wantName: "tap1",
			wantOK:   true,
		},
		{
			name: "primary-looking name preferred over later vpn",
			ifaces: []InterfaceAddr{
				addr("en0", "192.168.1.42", 24, true, false),
				addr("utun3", "10.8.0.2", 24, true, false),
			},
			wantName: "en0",
			wantOK:   true,
		},
		{
			name: "ipv6 only interface skipped",
			ifaces: []InterfaceAddr{
				{Name: "eth0", IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128), Up: true},
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := selectInterface(tt.ifaces)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Name != tt.wantName {
				t.Fatalf("selected %s, want %s", got.Name, tt.wantName)
			}
		})
	}
}

type erroringInterfaces struct{}

func (erroringInterfaces) Interfaces() ([]InterfaceAddr, error) {
	return nil, errors.New("netlink unavailable")
}

func TestEnumerateCandidatesFailsClosed(t *testing.T) {
	if got := enumerateCandidates(erroringInterfaces{}); len(got) != 0 {
		t.Fatalf("expected empty candidate set on provider error, got %v", got)
	}
}
