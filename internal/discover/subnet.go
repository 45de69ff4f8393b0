package discover

import (
	"encoding/binary"
	"net"
	"strings"
)

// InterfaceAddr is a read-only snapshot of one network interface address.
type InterfaceAddr struct {
	Name     string
	IP       net.IP
	Mask     net.IPMask
	Up       bool
	Loopback bool
}

// InterfaceProvider supplies the current interface state. The OS-backed
// implementation is SystemInterfaces; tests substitute fixed snapshots.
type InterfaceProvider interface {
	Interfaces() ([]InterfaceAddr, error)
}

// SystemInterfaces reads interface state via the net package.
type SystemInterfaces struct{}

func (SystemInterfaces) Interfaces() ([]InterfaceAddr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var out []InterfaceAddr
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			out = append(out, InterfaceAddr{
				Name:     iface.Name,
				IP:       ipNet.IP,
				Mask:     ipNet.Mask,
				Up:       iface.Flags&net.FlagUp != 0,
				Loopback: iface.Flags&net.FlagLoopback != 0,
			})
		}
	}
	return out, nil
}

// preferredPrefixes mark interface names that usually carry the primary
// wireless or wired uplink (en0 on macOS, wlan0/eth0 on Linux).
var preferredPrefixes = []string{"en", "wl", "eth"}

// selectInterface picks the interface whose subnet gets swept: the last
// up, non-loopback IPv4 interface, with primary-looking names winning
// over the rest.
func selectInterface(ifaces []InterfaceAddr) (InterfaceAddr, bool) {
	var chosen InterfaceAddr
	var found, preferred bool
	for _, iface := range ifaces {
		if !iface.Up || iface.Loopback {
			continue
		}
		if iface.IP.To4() == nil || iface.Mask == nil {
			continue
		}
		isPreferred := false
		for _, prefix := range preferredPrefixes {
			if strings.HasPrefix(iface.Name, prefix) {
				isPreferred = true
				break
			}
		}
		if isPreferred || !preferred {
			chosen = iface
			found = true
			preferred = preferred || isPreferred
		}
	}
	return chosen, found
}

// candidateAddresses computes the bounded probe-target list for the
// selected interface: all usable hosts strictly between network and
// broadcast, excluding the device's own address. Subnets wider than /24
// are clamped to the /24 slice containing the device, which caps the
// sweep at 253 targets regardless of the real subnet size.
func candidateAddresses(iface InterfaceAddr) []string {
	ip := iface.IP.To4()
	if ip == nil {
		return nil
	}
	ones, bits := iface.Mask.Size()
	if bits == 128 {
		// IPv4 address carried in a 16-byte mask.
		ones -= 96
		bits = 32
	}
	// Size() reports (0, 0) for a non-canonical mask; a genuine /0 on a
	// 32-bit mask is just a very wide subnet and gets clamped below.
	if bits != 32 || ones < 0 {
		return nil
	}

	self := binary.BigEndian.Uint32(ip)
	var network, broadcast uint32
	if ones < 24 {
		network = self & 0xFFFFFF00
		broadcast = network | 0x000000FF
	} else {
		mask := ^uint32(0) << (32 - uint(ones))
		network = self & mask
		broadcast = network | ^mask
	}

	// Degenerate range: /31, /32 or a broken mask leaves no host between
	// network and broadcast.
	if broadcast <= network+1 {
		return nil
	}

	out := make([]string, 0, broadcast-network-1)
	for addr := network + 1; addr < broadcast; addr++ {
		if addr == self {
			continue
		}
		buf := make(net.IP, 4)
		binary.BigEndian.PutUint32(buf, addr)
		out = append(out, buf.String())
	}
	return out
}

// enumerateCandidates derives the probe targets for one session.
// Fails closed: any error or missing interface yields an empty set.
func enumerateCandidates(provider InterfaceProvider) []string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return nil
	}
	iface, ok := selectInterface(ifaces)
	if !ok {
		return nil
	}
	return candidateAddresses(iface)
}
