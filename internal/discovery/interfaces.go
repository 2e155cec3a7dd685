package discovery

import (
	"context"

	"github.com/jbweber/libvirt-inventory/internal/facts"
	"github.com/jbweber/libvirt-inventory/internal/inventory"
	"github.com/jbweber/libvirt-inventory/internal/libvirt"
	"github.com/jbweber/libvirt-inventory/internal/naming"
)

// Hypervisor defines the hypervisor operations needed for a discovery pass.
//
// In production, this is satisfied by *libvirt.Client.
// In tests, this is satisfied by mock implementations.
type Hypervisor interface {
	// DriverKind returns the driver name, e.g. "QEMU" or "LXC"
	DriverKind() (string, error)

	// ListDomains lists all domains, running and stopped
	ListDomains() ([]naming.Domain, error)

	// InterfaceAddresses looks a domain up by name and returns its interfaces
	InterfaceAddresses(name string, source facts.Source) ([]facts.RawInterface, error)

	// DomainDetails reads a domain's XML definition and state
	DomainDetails(name string) (libvirt.DomainDetails, error)

	// Close releases the connection
	Close() error
}

// OpenFunc opens a connection to the hypervisor at uri.
type OpenFunc func(ctx context.Context, uri string) (Hypervisor, error)

// grouper applies the compose, groups and keyed_groups options to one host.
//
// In production, this is satisfied by *constructed.Constructor.
type grouper interface {
	SetCompositeVars(inv *inventory.Inventory, host string, vars inventory.Snapshot, strict bool) error
	AddHostToComposedGroups(inv *inventory.Inventory, host string, vars inventory.Snapshot, strict bool) error
	AddHostToKeyedGroups(inv *inventory.Inventory, host string, vars inventory.Snapshot, strict bool) error
}
