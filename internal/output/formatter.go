// Package output provides formatters for displaying a discovered inventory
// in various formats (table, YAML, JSON).
package output

import (
	"fmt"
	"slices"

	"github.com/jbweber/libvirt-inventory/internal/inventory"
)

// Format represents an output format type.
type Format string

const (
	// FormatTable is a human-readable table format.
	FormatTable Format = "table"
	// FormatYAML is the Ansible YAML inventory format.
	FormatYAML Format = "yaml"
	// FormatJSON is the Ansible dynamic inventory JSON format.
	FormatJSON Format = "json"
)

// Formatter formats an inventory for output.
type Formatter interface {
	// FormatInventory formats the whole inventory (the --list view).
	FormatInventory(inv *inventory.Inventory) (string, error)

	// FormatHost formats the variables of a single host (the --host view).
	// An unknown host formats as an empty set of variables.
	FormatHost(inv *inventory.Inventory, name string) (string, error)
}

// Options contains options for formatting output.
type Options struct {
	// Format specifies the output format.
	Format Format
	// NoHeaders omits headers in table format.
	NoHeaders bool
}

// NewFormatter creates a new Formatter based on the specified format.
func NewFormatter(opts Options) (Formatter, error) {
	switch opts.Format {
	case FormatTable:
		return &TableFormatter{NoHeaders: opts.NoHeaders}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (supported: table, yaml, json)", opts.Format)
	}
}

// ValidateFormat checks if a format string is valid.
func ValidateFormat(format string) error {
	f := Format(format)
	switch f {
	case FormatTable, FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid formats: table, yaml, json)", format)
	}
}

// hostVars returns the variables of a host, or an empty map if it does not
// exist.
func hostVars(inv *inventory.Inventory, name string) map[string]any {
	if h := inv.Host(name); h != nil && h.Vars != nil {
		return h.Vars
	}
	return map[string]any{}
}

// allChildren returns the children of the implicit "all" group: every top
// level group, the children of a registered "all" group, then "ungrouped".
func allChildren(inv *inventory.Inventory) []string {
	children := []string{}
	add := func(name string) {
		if name == inventory.AllGroup || name == inventory.UngroupedGroup || slices.Contains(children, name) {
			return
		}
		children = append(children, name)
	}

	for _, g := range inv.TopLevelGroups() {
		add(g)
	}
	if all := inv.Group(inventory.AllGroup); all != nil {
		for _, c := range all.Children {
			add(c)
		}
	}
	return append(children, inventory.UngroupedGroup)
}
