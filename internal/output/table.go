package output

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/jbweber/libvirt-inventory/internal/inventory"
)

// TableFormatter formats an inventory as a human-readable table.
type TableFormatter struct {
	// NoHeaders omits the header row.
	NoHeaders bool
}

// FormatInventory formats every host as a table row.
func (f *TableFormatter) FormatInventory(inv *inventory.Inventory) (string, error) {
	hosts := inv.Hosts()
	if len(hosts) == 0 {
		return "No hosts found\n", nil
	}

	names := make([]string, 0, len(hosts))
	for _, h := range hosts {
		names = append(names, h.Name)
	}
	return f.format(inv, names), nil
}

// FormatHost formats a single host as a table row.
func (f *TableFormatter) FormatHost(inv *inventory.Inventory, name string) (string, error) {
	if inv.Host(name) == nil {
		return fmt.Sprintf("Host %s not found\n", name), nil
	}
	return f.format(inv, []string{name}), nil
}

func (f *TableFormatter) format(inv *inventory.Inventory, hosts []string) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	// Write header unless NoHeaders is set
	if !f.NoHeaders {
		_, _ = fmt.Fprintln(w, "NAME\tGROUPS\tADDRESS\tCONNECTION")
	}

	for _, name := range hosts {
		vars := hostVars(inv, name)

		groups := "-"
		if g := inv.GroupNames(name); len(g) > 0 {
			groups = strings.Join(g, ",")
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			name, groups, stringVar(vars, "ansible_host"), stringVar(vars, "ansible_connection"))
	}

	_ = w.Flush()
	return buf.String()
}

// stringVar returns a string variable, or "-" when it is unset or empty.
func stringVar(vars map[string]any, key string) string {
	s, ok := vars[key].(string)
	if !ok || s == "" {
		return "-"
	}
	return s
}
