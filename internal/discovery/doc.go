// Package discovery builds an Ansible inventory from the domains of one
// libvirt hypervisor.
//
// A discovery pass connects to the hypervisor, lists every domain and maps
// each one that passes the filter into the inventory:
//  1. Filter the domain on the field selected by inventory_hostname
//  2. Resolve the primary (host) and alias (group) keys
//  3. Register the host and add it to the alias group
//  4. Extract interface facts into ansible_libvirt_ifaces
//  5. Set ansible_host, or ansible_connection and ansible_libvirt_uri in
//     connection plugin mode
//  6. Run compose, groups and keyed_groups against a snapshot of the host
//
// Error Handling:
//
// Fatal errors abort the pass and no inventory is returned. They wrap one of
// ErrConfiguration, ErrConnection or ErrGrouping and can be tested with
// errors.Is. A failed fact lookup (ErrLookup) only affects its domain: it is
// logged, counted in the pass summary and the pass continues.
//
// Dependencies:
//
// The hypervisor is reached through the Hypervisor interface, opened by the
// OpenFunc injected into New. In production this wraps *libvirt.Client.
package discovery
