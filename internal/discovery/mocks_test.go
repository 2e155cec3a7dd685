package discovery

import (
	"context"
	"fmt"
	"sync"

	"github.com/jbweber/libvirt-inventory/internal/facts"
	"github.com/jbweber/libvirt-inventory/internal/libvirt"
	"github.com/jbweber/libvirt-inventory/internal/naming"
)

// mockHypervisor is a mock implementation of the Hypervisor interface for testing.
type mockHypervisor struct {
	mu sync.Mutex

	// Configurable behavior
	driverKindFunc         func() (string, error)
	listDomainsFunc        func() ([]naming.Domain, error)
	interfaceAddressesFunc func(name string, source facts.Source) ([]facts.RawInterface, error)
	domainDetailsFunc      func(name string) (libvirt.DomainDetails, error)
	closeFunc              func() error

	// Call tracking
	driverKindCalls         int
	listDomainsCalls        int
	interfaceAddressesCalls []string
	interfaceSources        []facts.Source
	domainDetailsCalls      []string
	closeCalls              int
}

// newMockHypervisor creates a new mock hypervisor with default behavior:
// a QEMU driver serving the given domains, each with one addressed interface.
func newMockHypervisor(domains ...naming.Domain) *mockHypervisor {
	return &mockHypervisor{
		driverKindFunc: func() (string, error) {
			return "QEMU", nil
		},
		listDomainsFunc: func() ([]naming.Domain, error) {
			return domains, nil
		},
		// Default: one interface with one IPv4 address per domain
		interfaceAddressesFunc: func(name string, source facts.Source) ([]facts.RawInterface, error) {
			return []facts.RawInterface{
				{
					Name:   "vnet0",
					Hwaddr: "52:54:00:00:00:01",
					Addrs:  []facts.Address{{Addr: "192.168.122.10", Prefix: 24}},
				},
			}, nil
		},
		domainDetailsFunc: func(name string) (libvirt.DomainDetails, error) {
			return libvirt.DomainDetails{Name: name, State: "running", MACs: []string{}}, nil
		},
		closeFunc: func() error {
			return nil
		},
	}
}

func (m *mockHypervisor) DriverKind() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.driverKindCalls++
	return m.driverKindFunc()
}

func (m *mockHypervisor) ListDomains() ([]naming.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listDomainsCalls++
	return m.listDomainsFunc()
}

func (m *mockHypervisor) InterfaceAddresses(name string, source facts.Source) ([]facts.RawInterface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interfaceAddressesCalls = append(m.interfaceAddressesCalls, name)
	m.interfaceSources = append(m.interfaceSources, source)
	return m.interfaceAddressesFunc(name, source)
}

func (m *mockHypervisor) DomainDetails(name string) (libvirt.DomainDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainDetailsCalls = append(m.domainDetailsCalls, name)
	return m.domainDetailsFunc(name)
}

func (m *mockHypervisor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	return m.closeFunc()
}

// mockOpener records the URIs it was asked to open and hands out hv.
type mockOpener struct {
	hv    Hypervisor
	err   error
	calls []string
}

func (o *mockOpener) open(_ context.Context, uri string) (Hypervisor, error) {
	o.calls = append(o.calls, uri)
	if o.err != nil {
		return nil, o.err
	}
	if o.hv == nil {
		return nil, fmt.Errorf("no hypervisor configured")
	}
	return o.hv, nil
}
