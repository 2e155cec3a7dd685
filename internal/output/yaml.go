package output

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/libvirt-inventory/internal/inventory"
)

// YAMLFormatter formats an inventory as an Ansible YAML inventory.
type YAMLFormatter struct{}

// FormatInventory renders the inventory under the "all" group. Hosts carry
// their variables under all.hosts; groups list their members with empty
// values. Hosts and groups keep registration order.
func (f *YAMLFormatter) FormatInventory(inv *inventory.Inventory) (string, error) {
	hosts := mappingNode()
	for _, h := range inv.Hosts() {
		vars := &yaml.Node{}
		if err := vars.Encode(hostVars(inv, h.Name)); err != nil {
			return "", fmt.Errorf("failed to marshal host %s to YAML: %w", h.Name, err)
		}
		addPair(hosts, h.Name, vars)
	}

	children := mappingNode()
	for _, name := range allChildren(inv) {
		addPair(children, name, groupNode(inv, name, map[string]bool{}))
	}

	all := mappingNode()
	addPair(all, "hosts", hosts)
	addPair(all, "children", children)

	root := mappingNode()
	addPair(root, inventory.AllGroup, all)

	data, err := yaml.Marshal(root)
	if err != nil {
		return "", fmt.Errorf("failed to marshal inventory to YAML: %w", err)
	}

	return string(data), nil
}

// FormatHost renders the variables of a single host.
func (f *YAMLFormatter) FormatHost(inv *inventory.Inventory, name string) (string, error) {
	data, err := yaml.Marshal(hostVars(inv, name))
	if err != nil {
		return "", fmt.Errorf("failed to marshal host %s to YAML: %w", name, err)
	}

	return string(data), nil
}

// groupNode renders a group with its hosts and, recursively, its children.
// A group already on the current path is rendered empty.
func groupNode(inv *inventory.Inventory, name string, path map[string]bool) *yaml.Node {
	node := mappingNode()
	if path[name] {
		return node
	}
	path[name] = true
	defer delete(path, name)

	var members, children []string
	if g := inv.Group(name); g != nil {
		members, children = g.Hosts, g.Children
	} else if name == inventory.UngroupedGroup {
		members = inv.Ungrouped()
	}

	if len(members) > 0 {
		hosts := mappingNode()
		for _, h := range members {
			addPair(hosts, h, nullNode())
		}
		addPair(node, "hosts", hosts)
	}

	if len(children) > 0 {
		sub := mappingNode()
		for _, c := range children {
			addPair(sub, c, groupNode(inv, c, path))
		}
		addPair(node, "children", sub)
	}

	return node
}

func mappingNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: ""}
}

func addPair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}
