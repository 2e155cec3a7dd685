// Package facts normalizes the interface and address data reported by the
// hypervisor for a domain into the ansible_libvirt_ifaces host variable.
package facts

import "fmt"

// Source selects where the hypervisor takes interface addresses from.
type Source string

const (
	// SourceLease reads addresses from the DHCP lease file of libvirt networks.
	SourceLease Source = "lease"
	// SourceAgent asks the QEMU guest agent running inside the domain.
	SourceAgent Source = "agent"
	// SourceARP reads addresses from the host ARP table.
	SourceARP Source = "arp"
)

// ParseSource converts an interface_source option value to a Source.
// An empty value selects SourceLease.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case "":
		return SourceLease, nil
	case SourceLease, SourceAgent, SourceARP:
		return Source(s), nil
	default:
		return "", fmt.Errorf("invalid interface_source %q (valid: lease, agent, arp)", s)
	}
}

// Address is a single address attached to an interface.
type Address struct {
	// Addr is the textual address, e.g. "10.0.0.5".
	Addr string `json:"addr" yaml:"addr"`
	// Prefix is the network prefix length.
	Prefix uint32 `json:"prefix" yaml:"prefix"`
	// Type is the libvirt address type: 0 for IPv4, 1 for IPv6.
	Type int32 `json:"type" yaml:"type"`
}

// RawInterface is one interface as returned by the hypervisor, in the
// order the hypervisor returned it.
type RawInterface struct {
	Name   string
	Hwaddr string
	// Addrs is nil when the hypervisor reported no address list.
	Addrs []Address
}

// Interface is the normalized fact entry for one interface.
type Interface struct {
	Hwaddr string    `json:"hwaddr" yaml:"hwaddr"`
	Addrs  []Address `json:"addrs" yaml:"addrs"`
}

// Map is the InterfaceFactMap: interface name → facts.
type Map map[string]Interface

// Extract builds the fact map for a domain and returns the best-guess
// primary address: the first address of the first interface, in raw order,
// that has at least one address. ok is false when no interface has any.
func Extract(raw []RawInterface) (m Map, primary string, ok bool) {
	m = make(Map, len(raw))

	for _, iface := range raw {
		entry := Interface{
			Hwaddr: iface.Hwaddr,
			Addrs:  []Address{},
		}

		if iface.Addrs != nil {
			entry.Addrs = append(entry.Addrs, iface.Addrs...)

			if !ok && len(iface.Addrs) > 0 {
				primary = iface.Addrs[0].Addr
				ok = true
			}
		}

		m[iface.Name] = entry
	}

	return m, primary, ok
}

// Vars converts the fact map into plain maps and slices so it can be stored
// as a host variable, serialized, and navigated by expressions.
func (m Map) Vars() map[string]any {
	out := make(map[string]any, len(m))
	for name, iface := range m {
		addrs := make([]any, 0, len(iface.Addrs))
		for _, a := range iface.Addrs {
			addrs = append(addrs, map[string]any{
				"addr":   a.Addr,
				"prefix": a.Prefix,
				"type":   a.Type,
			})
		}
		out[name] = map[string]any{
			"hwaddr": iface.Hwaddr,
			"addrs":  addrs,
		}
	}
	return out
}
