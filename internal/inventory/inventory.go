// Package inventory holds the in-memory inventory model produced by a
// discovery pass: hosts with their variables, and groups of hosts.
//
// The model keeps insertion order for hosts, groups and group members so
// that rendered output is stable across runs against the same hypervisor.
package inventory

import (
	"fmt"
	"maps"
	"strings"
)

const (
	// AllGroup is the implicit group every host belongs to.
	AllGroup = "all"
	// UngroupedGroup holds hosts that are not members of any other group.
	UngroupedGroup = "ungrouped"
)

// Host is a single inventory host.
type Host struct {
	Name string
	Vars map[string]any
}

// Group is a named set of hosts and child groups.
type Group struct {
	Name     string
	Hosts    []string
	Children []string
}

// Snapshot is a by-value copy of a host's variables, extended with the
// magic variables inventory_hostname, inventory_hostname_short and
// group_names. Changes to the inventory after the snapshot is taken are not
// visible through it.
type Snapshot map[string]any

// Inventory is the result of a discovery pass.
type Inventory struct {
	hosts      map[string]*Host
	hostOrder  []string
	groups     map[string]*Group
	groupOrder []string
}

// New returns an empty inventory.
func New() *Inventory {
	return &Inventory{
		hosts:  make(map[string]*Host),
		groups: make(map[string]*Group),
	}
}

// AddHost registers a host. It reports false if the host already existed,
// in which case the existing host is left untouched.
func (inv *Inventory) AddHost(name string) bool {
	if _, ok := inv.hosts[name]; ok {
		return false
	}
	inv.hosts[name] = &Host{Name: name, Vars: make(map[string]any)}
	inv.hostOrder = append(inv.hostOrder, name)
	return true
}

// AddGroup registers a group if it does not already exist.
func (inv *Inventory) AddGroup(name string) {
	if _, ok := inv.groups[name]; ok {
		return
	}
	inv.groups[name] = &Group{Name: name}
	inv.groupOrder = append(inv.groupOrder, name)
}

// AddHostToGroup adds a registered host as a member of group. Host and
// group names live in separate namespaces, so a host may share its name with
// a group.
func (inv *Inventory) AddHostToGroup(group, host string) error {
	g, ok := inv.groups[group]
	if !ok {
		return fmt.Errorf("group %q not found", group)
	}
	if _, ok := inv.hosts[host]; !ok {
		return fmt.Errorf("host %q not found", host)
	}
	g.Hosts = appendUnique(g.Hosts, host)
	return nil
}

// AddChildGroup nests the registered group child under parent.
func (inv *Inventory) AddChildGroup(parent, child string) error {
	g, ok := inv.groups[parent]
	if !ok {
		return fmt.Errorf("group %q not found", parent)
	}
	if _, ok := inv.groups[child]; !ok {
		return fmt.Errorf("group %q not found", child)
	}
	if child == parent {
		return fmt.Errorf("group %q cannot be a child of itself", parent)
	}
	g.Children = appendUnique(g.Children, child)
	return nil
}

// SetVariable sets a host variable, replacing any previous value.
func (inv *Inventory) SetVariable(host, key string, value any) error {
	h, ok := inv.hosts[host]
	if !ok {
		return fmt.Errorf("host %q not found", host)
	}
	h.Vars[key] = value
	return nil
}

// HasVariable reports whether the host has the variable set.
func (inv *Inventory) HasVariable(host, key string) bool {
	h, ok := inv.hosts[host]
	if !ok {
		return false
	}
	_, set := h.Vars[key]
	return set
}

// Host returns a host by name, or nil if not found.
func (inv *Inventory) Host(name string) *Host {
	return inv.hosts[name]
}

// Group returns a group by name, or nil if not found.
func (inv *Inventory) Group(name string) *Group {
	return inv.groups[name]
}

// Hosts returns all hosts in registration order.
func (inv *Inventory) Hosts() []*Host {
	out := make([]*Host, 0, len(inv.hostOrder))
	for _, name := range inv.hostOrder {
		out = append(out, inv.hosts[name])
	}
	return out
}

// Groups returns all groups in registration order.
func (inv *Inventory) Groups() []*Group {
	out := make([]*Group, 0, len(inv.groupOrder))
	for _, name := range inv.groupOrder {
		out = append(out, inv.groups[name])
	}
	return out
}

// GroupNames returns the names of the groups the host is a direct member
// of, in group registration order.
func (inv *Inventory) GroupNames(host string) []string {
	var names []string
	for _, name := range inv.groupOrder {
		for _, member := range inv.groups[name].Hosts {
			if member == host {
				names = append(names, name)
				break
			}
		}
	}
	return names
}

// Ungrouped returns the hosts that are not a direct member of any group.
func (inv *Inventory) Ungrouped() []string {
	var out []string
	for _, name := range inv.hostOrder {
		if len(inv.GroupNames(name)) == 0 {
			out = append(out, name)
		}
	}
	return out
}

// TopLevelGroups returns the groups that are not a child of another group.
func (inv *Inventory) TopLevelGroups() []string {
	nested := make(map[string]bool)
	for _, g := range inv.groups {
		for _, c := range g.Children {
			nested[c] = true
		}
	}

	var out []string
	for _, name := range inv.groupOrder {
		if !nested[name] {
			out = append(out, name)
		}
	}
	return out
}

// Snapshot returns a copy of the host's variables extended with the magic
// variables. It returns nil if the host does not exist.
func (inv *Inventory) Snapshot(host string) Snapshot {
	h, ok := inv.hosts[host]
	if !ok {
		return nil
	}

	snap := make(Snapshot, len(h.Vars)+3)
	maps.Copy(snap, h.Vars)

	groups := inv.GroupNames(host)
	groupNames := make([]any, 0, len(groups))
	for _, g := range groups {
		groupNames = append(groupNames, g)
	}

	snap["inventory_hostname"] = host
	snap["inventory_hostname_short"] = ShortName(host)
	snap["group_names"] = groupNames
	return snap
}

// ShortName returns the hostname up to the first dot.
func ShortName(host string) string {
	short, _, _ := strings.Cut(host, ".")
	return short
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}
