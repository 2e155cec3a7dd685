package output

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jbweber/libvirt-inventory/internal/inventory"
)

// metaKey carries host variables in the --list document. A group with this
// name cannot be represented and is left out.
const metaKey = "_meta"

// JSONFormatter formats an inventory as Ansible dynamic inventory JSON.
type JSONFormatter struct{}

// FormatInventory renders the --list document:
//
//	{
//	  "_meta": {"hostvars": {"web1": {...}}},
//	  "all": {"children": ["6695eb01-...", "ungrouped"]},
//	  "6695eb01-...": {"hosts": ["web1"]},
//	  "ungrouped": {"hosts": []}
//	}
func (f *JSONFormatter) FormatInventory(inv *inventory.Inventory) (string, error) {
	hostvars := make(map[string]any)
	for _, h := range inv.Hosts() {
		hostvars[h.Name] = hostVars(inv, h.Name)
	}

	all := map[string]any{"children": withoutMeta(allChildren(inv))}
	doc := map[string]any{
		metaKey:            map[string]any{"hostvars": hostvars},
		inventory.AllGroup: all,
	}

	for _, g := range inv.Groups() {
		switch g.Name {
		case metaKey:
			continue
		case inventory.AllGroup:
			if len(g.Hosts) > 0 {
				all["hosts"] = g.Hosts
			}
			continue
		}

		entry := map[string]any{"hosts": nonNil(g.Hosts)}
		if children := withoutMeta(g.Children); len(children) > 0 {
			entry["children"] = children
		}
		doc[g.Name] = entry
	}

	if _, ok := doc[inventory.UngroupedGroup]; !ok {
		doc[inventory.UngroupedGroup] = map[string]any{"hosts": nonNil(inv.Ungrouped())}
	}

	return encodeJSON(doc)
}

// FormatHost renders the --host document: the host's variables.
func (f *JSONFormatter) FormatHost(inv *inventory.Inventory, name string) (string, error) {
	return encodeJSON(hostVars(inv, name))
}

func encodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(v); err != nil {
		return "", fmt.Errorf("failed to marshal inventory to JSON: %w", err)
	}

	return buf.String(), nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func withoutMeta(groups []string) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		if g != metaKey {
			out = append(out, g)
		}
	}
	return out
}
