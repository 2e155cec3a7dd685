// Package libvirt provides a client wrapper for querying a libvirt
// hypervisor.
//
// This package wraps github.com/digitalocean/go-libvirt to provide:
//   - Connection management by URI (connect, disconnect, ping)
//   - Domain enumeration and per-domain interface address lookups
//   - Domain details parsed from the domain XML with libvirtxml
//
// Connection Management:
//
// Local URIs are dialed over the daemon's Unix socket, remote URIs over the
// transport named in the URI scheme:
//
//	client, err := libvirt.Connect("qemu:///system", 5*time.Second)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	// Check connection
//	if err := client.Ping(); err != nil {
//	    return err
//	}
//
// Domain Queries:
//
//	domains, err := client.ListDomains()
//	ifaces, err := client.InterfaceAddresses("web1", facts.SourceLease)
//	details, err := client.DomainDetails("web1")
//
// Consumer-Side Interfaces:
//
// This package does not define the interface used by the discovery pass.
// Instead, internal/discovery defines a Hypervisor interface specifying only
// the operations it needs, and *Client satisfies it implicitly.
package libvirt
