package libvirt

import (
	"fmt"
	"sync"

	"github.com/digitalocean/go-libvirt"
)

// mockRPC is a mock implementation of the rpc interface for testing.
type mockRPC struct {
	mu sync.Mutex

	// Configurable behavior
	connectGetLibVersionFunc     func() (uint64, error)
	connectGetTypeFunc           func() (string, error)
	connectListAllDomainsFunc    func(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error)
	domainLookupByNameFunc       func(name string) (libvirt.Domain, error)
	domainInterfaceAddressesFunc func(dom libvirt.Domain, source uint32, flags uint32) ([]libvirt.DomainInterface, error)
	domainGetXMLDescFunc         func(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error)
	domainGetStateFunc           func(dom libvirt.Domain, flags uint32) (int32, int32, error)
	disconnectFunc               func() error

	// Call tracking
	domainLookupByNameCalls  []string
	interfaceAddressSources  []uint32
	domainGetXMLDescCalls    []libvirt.Domain
	connectListAllDomainsArg []libvirt.ConnectListAllDomainsFlags
	disconnectCalls          int
}

// newMockRPC creates a new mock with default behavior: an empty QEMU
// hypervisor running libvirt 10.0.0.
func newMockRPC() *mockRPC {
	return &mockRPC{
		connectGetLibVersionFunc: func() (uint64, error) {
			return 10000000, nil
		},
		connectGetTypeFunc: func() (string, error) {
			return "QEMU", nil
		},
		connectListAllDomainsFunc: func(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error) {
			return nil, 0, nil
		},
		// Default: every name resolves
		domainLookupByNameFunc: func(name string) (libvirt.Domain, error) {
			return libvirt.Domain{Name: name}, nil
		},
		domainInterfaceAddressesFunc: func(dom libvirt.Domain, source uint32, flags uint32) ([]libvirt.DomainInterface, error) {
			return nil, nil
		},
		domainGetXMLDescFunc: func(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error) {
			return fmt.Sprintf("<domain type='kvm'><name>%s</name></domain>", dom.Name), nil
		},
		// Default: domain state is running
		domainGetStateFunc: func(dom libvirt.Domain, flags uint32) (int32, int32, error) {
			return 1, 0, nil // VIR_DOMAIN_RUNNING = 1
		},
		disconnectFunc: func() error {
			return nil
		},
	}
}

func (m *mockRPC) ConnectGetLibVersion() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectGetLibVersionFunc()
}

func (m *mockRPC) ConnectGetType() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectGetTypeFunc()
}

func (m *mockRPC) ConnectListAllDomains(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectListAllDomainsArg = append(m.connectListAllDomainsArg, flags)
	return m.connectListAllDomainsFunc(needResults, flags)
}

func (m *mockRPC) DomainLookupByName(name string) (libvirt.Domain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainLookupByNameCalls = append(m.domainLookupByNameCalls, name)
	return m.domainLookupByNameFunc(name)
}

func (m *mockRPC) DomainInterfaceAddresses(dom libvirt.Domain, source uint32, flags uint32) ([]libvirt.DomainInterface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interfaceAddressSources = append(m.interfaceAddressSources, source)
	return m.domainInterfaceAddressesFunc(dom, source, flags)
}

func (m *mockRPC) DomainGetXMLDesc(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.domainGetXMLDescCalls = append(m.domainGetXMLDescCalls, dom)
	return m.domainGetXMLDescFunc(dom, flags)
}

func (m *mockRPC) DomainGetState(dom libvirt.Domain, flags uint32) (int32, int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.domainGetStateFunc(dom, flags)
}

func (m *mockRPC) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectCalls++
	return m.disconnectFunc()
}
