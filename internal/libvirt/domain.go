package libvirt

import (
	"fmt"
	"strings"

	"github.com/digitalocean/go-libvirt"
	"github.com/google/uuid"
	"libvirt.org/go/libvirtxml"

	"github.com/jbweber/libvirt-inventory/internal/facts"
	"github.com/jbweber/libvirt-inventory/internal/naming"
)

// DomainDetails describes a domain from its XML definition and state.
type DomainDetails struct {
	UUID        string
	Name        string
	Title       string
	Description string
	Type        string // Hypervisor type from the XML, e.g. "kvm"
	State       string
	VCPUs       uint
	MemoryKiB   uint64
	OSType      string
	Arch        string
	MACs        []string
}

// Vars converts the details into a host variable value.
func (d DomainDetails) Vars() map[string]any {
	macs := make([]any, 0, len(d.MACs))
	for _, m := range d.MACs {
		macs = append(macs, m)
	}

	return map[string]any{
		"uuid":        d.UUID,
		"name":        d.Name,
		"title":       d.Title,
		"description": d.Description,
		"type":        d.Type,
		"state":       d.State,
		"vcpus":       d.VCPUs,
		"memory_kib":  d.MemoryKiB,
		"os_type":     d.OSType,
		"arch":        d.Arch,
		"macs":        macs,
	}
}

// DriverKind returns the hypervisor driver name, e.g. "QEMU" or "LXC".
func (c *Client) DriverKind() (string, error) {
	kind, err := c.rpc.ConnectGetType()
	if err != nil {
		return "", fmt.Errorf("failed to get hypervisor type: %w", err)
	}
	return kind, nil
}

// ListDomains lists all domains, running and stopped.
func (c *Client) ListDomains() ([]naming.Domain, error) {
	// NeedResults: 1 means populate the domains slice
	// Flags: 0 means all domains (active and inactive)
	domains, _, err := c.rpc.ConnectListAllDomains(1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}

	out := make([]naming.Domain, 0, len(domains))
	for _, d := range domains {
		out = append(out, toDomain(d))
	}
	return out, nil
}

// InterfaceAddresses looks the domain up by name and returns its
// interfaces in the order reported by the hypervisor.
func (c *Client) InterfaceAddresses(name string, source facts.Source) ([]facts.RawInterface, error) {
	src, err := addressSource(source)
	if err != nil {
		return nil, err
	}

	dom, err := c.rpc.DomainLookupByName(name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up domain %s: %w", name, err)
	}

	ifaces, err := c.rpc.DomainInterfaceAddresses(dom, src, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get interface addresses for %s: %w", name, err)
	}

	out := make([]facts.RawInterface, 0, len(ifaces))
	for _, iface := range ifaces {
		raw := facts.RawInterface{Name: iface.Name}
		if len(iface.Hwaddr) > 0 {
			raw.Hwaddr = iface.Hwaddr[0]
		}
		if iface.Addrs != nil {
			raw.Addrs = make([]facts.Address, 0, len(iface.Addrs))
			for _, a := range iface.Addrs {
				raw.Addrs = append(raw.Addrs, facts.Address{
					Addr:   a.Addr,
					Prefix: a.Prefix,
					Type:   a.Type,
				})
			}
		}
		out = append(out, raw)
	}
	return out, nil
}

// DomainDetails reads the domain XML and state of a domain by name.
func (c *Client) DomainDetails(name string) (DomainDetails, error) {
	dom, err := c.rpc.DomainLookupByName(name)
	if err != nil {
		return DomainDetails{}, fmt.Errorf("failed to look up domain %s: %w", name, err)
	}

	xml, err := c.rpc.DomainGetXMLDesc(dom, 0)
	if err != nil {
		return DomainDetails{}, fmt.Errorf("failed to get domain XML for %s: %w", name, err)
	}

	state, _, err := c.rpc.DomainGetState(dom, 0)
	if err != nil {
		return DomainDetails{}, fmt.Errorf("failed to get domain state for %s: %w", name, err)
	}

	details, err := ParseDomainDetails(xml)
	if err != nil {
		return DomainDetails{}, err
	}
	details.State = StateToString(state)

	return details, nil
}

// ParseDomainDetails extracts DomainDetails from a domain XML document.
// State is left empty.
func ParseDomainDetails(xml string) (DomainDetails, error) {
	var domain libvirtxml.Domain
	if err := domain.Unmarshal(xml); err != nil {
		return DomainDetails{}, fmt.Errorf("failed to unmarshal domain XML: %w", err)
	}

	d := DomainDetails{
		UUID:        strings.ToLower(domain.UUID),
		Name:        domain.Name,
		Title:       domain.Title,
		Description: strings.TrimSpace(domain.Description),
		Type:        domain.Type,
		MACs:        []string{},
	}

	if domain.VCPU != nil {
		d.VCPUs = domain.VCPU.Value
	}

	if domain.Memory != nil {
		kib, err := memoryKiB(domain.Memory.Value, domain.Memory.Unit)
		if err != nil {
			return DomainDetails{}, err
		}
		d.MemoryKiB = kib
	}

	if domain.OS != nil && domain.OS.Type != nil {
		d.OSType = domain.OS.Type.Type
		d.Arch = domain.OS.Type.Arch
	}

	if domain.Devices != nil {
		for _, iface := range domain.Devices.Interfaces {
			if iface.MAC != nil && iface.MAC.Address != "" {
				d.MACs = append(d.MACs, strings.ToLower(iface.MAC.Address))
			}
		}
	}

	return d, nil
}

// StateToString converts libvirt domain state to human-readable string.
func StateToString(state int32) string {
	switch state {
	case 0:
		return "no state"
	case 1:
		return "running"
	case 2:
		return "blocked"
	case 3:
		return "paused"
	case 4:
		return "shutdown"
	case 5:
		return "shutoff"
	case 6:
		return "crashed"
	case 7:
		return "pmsuspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

func toDomain(d libvirt.Domain) naming.Domain {
	return naming.Domain{
		Name: d.Name,
		UUID: uuid.UUID(d.UUID).String(),
	}
}

func addressSource(s facts.Source) (uint32, error) {
	switch s {
	case facts.SourceLease, "":
		return uint32(libvirt.DomainInterfaceAddressesSrcLease), nil
	case facts.SourceAgent:
		return uint32(libvirt.DomainInterfaceAddressesSrcAgent), nil
	case facts.SourceARP:
		return uint32(libvirt.DomainInterfaceAddressesSrcArp), nil
	default:
		return 0, fmt.Errorf("unsupported interface address source %q", s)
	}
}

// memoryKiB converts a libvirt memory value to KiB. An empty unit means KiB.
func memoryKiB(value uint, unit string) (uint64, error) {
	v := uint64(value)
	switch unit {
	case "b", "bytes":
		return v / 1024, nil
	case "", "k", "KiB":
		return v, nil
	case "KB":
		return v * 1000 / 1024, nil
	case "M", "MiB":
		return v * 1024, nil
	case "MB":
		return v * 1000 * 1000 / 1024, nil
	case "G", "GiB":
		return v * 1024 * 1024, nil
	case "GB":
		return v * 1000 * 1000 * 1000 / 1024, nil
	case "T", "TiB":
		return v * 1024 * 1024 * 1024, nil
	case "TB":
		return v * 1000 * 1000 * 1000 * 1000 / 1024, nil
	default:
		return 0, fmt.Errorf("unknown memory unit %q", unit)
	}
}
