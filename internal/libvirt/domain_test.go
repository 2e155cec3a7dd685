package libvirt

import (
	"errors"
	"testing"

	"github.com/digitalocean/go-libvirt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/libvirt-inventory/internal/facts"
	"github.com/jbweber/libvirt-inventory/internal/naming"
)

const testDomainXML = `
<domain type='kvm'>
  <name>web1</name>
  <uuid>6695EB01-F6A4-8304-79AA-97F2502E193F</uuid>
  <title>Web server</title>
  <description>
    frontend pool
  </description>
  <memory unit='GiB'>2</memory>
  <vcpu placement='static'>4</vcpu>
  <os>
    <type arch='x86_64' machine='q35'>hvm</type>
  </os>
  <devices>
    <interface type='network'>
      <mac address='52:54:00:AB:CD:01'/>
      <source network='default'/>
    </interface>
    <interface type='bridge'>
      <mac address='52:54:00:ab:cd:02'/>
      <source bridge='br0'/>
    </interface>
  </devices>
</domain>`

func TestDriverKind(t *testing.T) {
	mock := newMockRPC()
	mock.connectGetTypeFunc = func() (string, error) {
		return "LXC", nil
	}
	c := &Client{rpc: mock}

	kind, err := c.DriverKind()
	require.NoError(t, err)
	assert.Equal(t, "LXC", kind)

	mock.connectGetTypeFunc = func() (string, error) {
		return "", errors.New("rpc failure")
	}
	_, err = c.DriverKind()
	assert.Error(t, err)
}

func TestListDomains(t *testing.T) {
	mock := newMockRPC()
	mock.connectListAllDomainsFunc = func(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error) {
		return []libvirt.Domain{
			{
				Name: "web1",
				UUID: libvirt.UUID{0x66, 0x95, 0xeb, 0x01, 0xf6, 0xa4, 0x83, 0x04, 0x79, 0xaa, 0x97, 0xf2, 0x50, 0x2e, 0x19, 0x3f},
			},
			{Name: "db1"},
		}, 2, nil
	}
	c := &Client{rpc: mock}

	domains, err := c.ListDomains()
	require.NoError(t, err)

	assert.Equal(t, []naming.Domain{
		{Name: "web1", UUID: "6695eb01-f6a4-8304-79aa-97f2502e193f"},
		{Name: "db1", UUID: "00000000-0000-0000-0000-000000000000"},
	}, domains)

	// All domains, active and inactive
	require.Len(t, mock.connectListAllDomainsArg, 1)
	assert.Equal(t, libvirt.ConnectListAllDomainsFlags(0), mock.connectListAllDomainsArg[0])
}

func TestListDomains_Error(t *testing.T) {
	mock := newMockRPC()
	mock.connectListAllDomainsFunc = func(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error) {
		return nil, 0, errors.New("permission denied")
	}
	c := &Client{rpc: mock}

	_, err := c.ListDomains()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestInterfaceAddresses(t *testing.T) {
	mock := newMockRPC()
	mock.domainInterfaceAddressesFunc = func(dom libvirt.Domain, source uint32, flags uint32) ([]libvirt.DomainInterface, error) {
		return []libvirt.DomainInterface{
			{
				Name:   "vnet0",
				Hwaddr: libvirt.OptString{"52:54:00:ab:cd:01"},
				Addrs: []libvirt.DomainIPAddr{
					{Type: 0, Addr: "192.168.122.10", Prefix: 24},
					{Type: 1, Addr: "fe80::1", Prefix: 64},
				},
			},
			{Name: "lo"},
		}, nil
	}
	c := &Client{rpc: mock}

	ifaces, err := c.InterfaceAddresses("web1", facts.SourceLease)
	require.NoError(t, err)
	require.Len(t, ifaces, 2)

	assert.Equal(t, "vnet0", ifaces[0].Name)
	assert.Equal(t, "52:54:00:ab:cd:01", ifaces[0].Hwaddr)
	assert.Equal(t, []facts.Address{
		{Addr: "192.168.122.10", Prefix: 24, Type: 0},
		{Addr: "fe80::1", Prefix: 64, Type: 1},
	}, ifaces[0].Addrs)

	// Missing hwaddr and addrs stay empty
	assert.Equal(t, "lo", ifaces[1].Name)
	assert.Empty(t, ifaces[1].Hwaddr)
	assert.Nil(t, ifaces[1].Addrs)

	assert.Equal(t, []string{"web1"}, mock.domainLookupByNameCalls)
	assert.Equal(t, []uint32{uint32(libvirt.DomainInterfaceAddressesSrcLease)}, mock.interfaceAddressSources)
}

func TestInterfaceAddresses_Sources(t *testing.T) {
	tests := []struct {
		source facts.Source
		want   uint32
	}{
		{source: "", want: uint32(libvirt.DomainInterfaceAddressesSrcLease)},
		{source: facts.SourceLease, want: uint32(libvirt.DomainInterfaceAddressesSrcLease)},
		{source: facts.SourceAgent, want: uint32(libvirt.DomainInterfaceAddressesSrcAgent)},
		{source: facts.SourceARP, want: uint32(libvirt.DomainInterfaceAddressesSrcArp)},
	}

	for _, tt := range tests {
		t.Run(string(tt.source), func(t *testing.T) {
			mock := newMockRPC()
			c := &Client{rpc: mock}

			_, err := c.InterfaceAddresses("web1", tt.source)
			require.NoError(t, err)
			assert.Equal(t, []uint32{tt.want}, mock.interfaceAddressSources)
		})
	}

	c := &Client{rpc: newMockRPC()}
	_, err := c.InterfaceAddresses("web1", facts.Source("dhcp"))
	assert.Error(t, err)
}

func TestInterfaceAddresses_Errors(t *testing.T) {
	t.Run("lookup fails", func(t *testing.T) {
		mock := newMockRPC()
		mock.domainLookupByNameFunc = func(name string) (libvirt.Domain, error) {
			return libvirt.Domain{}, errors.New("domain not found")
		}
		c := &Client{rpc: mock}

		_, err := c.InterfaceAddresses("gone", facts.SourceLease)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "gone")
		assert.Empty(t, mock.interfaceAddressSources)
	})

	t.Run("address query fails", func(t *testing.T) {
		mock := newMockRPC()
		mock.domainInterfaceAddressesFunc = func(dom libvirt.Domain, source uint32, flags uint32) ([]libvirt.DomainInterface, error) {
			return nil, errors.New("guest agent is not responding")
		}
		c := &Client{rpc: mock}

		_, err := c.InterfaceAddresses("web1", facts.SourceAgent)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "guest agent")
	})
}

func TestDomainDetails(t *testing.T) {
	mock := newMockRPC()
	mock.domainGetXMLDescFunc = func(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error) {
		return testDomainXML, nil
	}
	mock.domainGetStateFunc = func(dom libvirt.Domain, flags uint32) (int32, int32, error) {
		return 5, 0, nil
	}
	c := &Client{rpc: mock}

	d, err := c.DomainDetails("web1")
	require.NoError(t, err)

	assert.Equal(t, "web1", d.Name)
	assert.Equal(t, "shutoff", d.State)
	assert.Equal(t, uint(4), d.VCPUs)
	require.Len(t, mock.domainGetXMLDescCalls, 1)
	assert.Equal(t, "web1", mock.domainGetXMLDescCalls[0].Name)
}

func TestDomainDetails_Errors(t *testing.T) {
	t.Run("state fails", func(t *testing.T) {
		mock := newMockRPC()
		mock.domainGetStateFunc = func(dom libvirt.Domain, flags uint32) (int32, int32, error) {
			return 0, 0, errors.New("rpc failure")
		}
		c := &Client{rpc: mock}

		_, err := c.DomainDetails("web1")
		assert.Error(t, err)
	})

	t.Run("malformed xml", func(t *testing.T) {
		mock := newMockRPC()
		mock.domainGetXMLDescFunc = func(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error) {
			return "<domain", nil
		}
		c := &Client{rpc: mock}

		_, err := c.DomainDetails("web1")
		assert.Error(t, err)
	})
}

func TestParseDomainDetails(t *testing.T) {
	d, err := ParseDomainDetails(testDomainXML)
	require.NoError(t, err)

	assert.Equal(t, "6695eb01-f6a4-8304-79aa-97f2502e193f", d.UUID)
	assert.Equal(t, "web1", d.Name)
	assert.Equal(t, "Web server", d.Title)
	assert.Equal(t, "frontend pool", d.Description)
	assert.Equal(t, "kvm", d.Type)
	assert.Equal(t, uint(4), d.VCPUs)
	assert.Equal(t, uint64(2*1024*1024), d.MemoryKiB)
	assert.Equal(t, "hvm", d.OSType)
	assert.Equal(t, "x86_64", d.Arch)
	assert.Equal(t, []string{"52:54:00:ab:cd:01", "52:54:00:ab:cd:02"}, d.MACs)
	assert.Empty(t, d.State)
}

func TestParseDomainDetails_Minimal(t *testing.T) {
	d, err := ParseDomainDetails(`<domain type='lxc'><name>ct1</name></domain>`)
	require.NoError(t, err)

	assert.Equal(t, "ct1", d.Name)
	assert.Equal(t, "lxc", d.Type)
	assert.Zero(t, d.VCPUs)
	assert.Zero(t, d.MemoryKiB)
	assert.NotNil(t, d.MACs)
	assert.Empty(t, d.MACs)
}

func TestDomainDetailsVars(t *testing.T) {
	d := DomainDetails{
		Name:  "web1",
		State: "running",
		MACs:  []string{"52:54:00:ab:cd:01"},
	}

	vars := d.Vars()
	assert.Equal(t, "web1", vars["name"])
	assert.Equal(t, "running", vars["state"])
	assert.Equal(t, []any{"52:54:00:ab:cd:01"}, vars["macs"])
}

func TestMemoryKiB(t *testing.T) {
	tests := []struct {
		value   uint
		unit    string
		want    uint64
		wantErr bool
	}{
		{value: 2048, unit: "", want: 2048},
		{value: 2048, unit: "KiB", want: 2048},
		{value: 2048, unit: "b", want: 2},
		{value: 512, unit: "MiB", want: 512 * 1024},
		{value: 4, unit: "G", want: 4 * 1024 * 1024},
		{value: 1, unit: "TiB", want: 1024 * 1024 * 1024},
		{value: 1024, unit: "KB", want: 1000},
		{value: 1, unit: "parsecs", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			got, err := memoryKiB(tt.value, tt.unit)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStateToString(t *testing.T) {
	tests := []struct {
		state int32
		want  string
	}{
		{0, "no state"},
		{1, "running"},
		{3, "paused"},
		{5, "shutoff"},
		{7, "pmsuspended"},
		{42, "unknown(42)"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StateToString(tt.state))
	}
}
