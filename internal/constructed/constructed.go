// Package constructed derives extra host variables and group memberships
// from host variables using configurable expressions.
//
// Three features are supported, applied in this order by the discovery pass:
//   - compose: set a host variable to the result of an expression
//   - groups: add the host to a group when a condition is truthy
//   - keyed_groups: create groups named after the value of an expression
//
// Expressions use the expr language (https://expr-lang.org) and are
// evaluated against a host variable snapshot, so every host variable is a
// top-level identifier:
//
//	compose:
//	  ansible_host: ansible_libvirt_ifaces.eth0.addrs[0].addr
//	groups:
//	  web: inventory_hostname startsWith "web"
//	keyed_groups:
//	  - key: ansible_connection
//	    prefix: conn
//
// In strict mode any evaluation or membership error is returned to the
// caller. Otherwise the failing entry is skipped for that host.
package constructed

import (
	"fmt"
	"sort"

	"github.com/expr-lang/expr"

	"github.com/jbweber/libvirt-inventory/internal/inventory"
)

// DefaultSeparator joins prefix, key and value in keyed group names.
const DefaultSeparator = "_"

// KeyedGroup describes one keyed_groups entry.
type KeyedGroup struct {
	// Key is the expression whose value names the groups.
	Key string `yaml:"key"`
	// Prefix is prepended to every generated group name.
	Prefix string `yaml:"prefix,omitempty"`
	// Separator joins prefix and value (and key and value for maps).
	// Nil means DefaultSeparator.
	Separator *string `yaml:"separator,omitempty"`
	// DefaultValue replaces empty values.
	DefaultValue *string `yaml:"default_value,omitempty"`
	// TrailingSeparator set to false drops the separator after a map key
	// whose value is empty. Mutually exclusive with DefaultValue.
	TrailingSeparator *bool `yaml:"trailing_separator,omitempty"`
	// ParentGroup becomes the parent of every generated group.
	ParentGroup string `yaml:"parent_group,omitempty"`
}

// Options configures a Constructor.
type Options struct {
	Compose     map[string]string
	Groups      map[string]string
	KeyedGroups []KeyedGroup
	// LeadingSeparator set to false omits the separator when a keyed group
	// has no prefix. Nil means true.
	LeadingSeparator *bool
}

// Constructor applies compose, groups and keyed_groups to hosts.
type Constructor struct {
	opts Options
}

// New returns a Constructor for the given options.
func New(opts Options) *Constructor {
	return &Constructor{opts: opts}
}

// Validate checks the options for entries that can never be evaluated.
func (o Options) Validate() error {
	for i, kg := range o.KeyedGroups {
		if kg.Key == "" {
			return fmt.Errorf("keyed_groups[%d]: key is required", i)
		}
		if kg.DefaultValue != nil && kg.TrailingSeparator != nil {
			return fmt.Errorf("keyed_groups[%d]: default_value and trailing_separator are mutually exclusive", i)
		}
	}
	for name, cond := range o.Groups {
		if name == "" {
			return fmt.Errorf("groups: group name must not be empty")
		}
		if cond == "" {
			return fmt.Errorf("groups.%s: condition must not be empty", name)
		}
	}
	for name, code := range o.Compose {
		if code == "" {
			return fmt.Errorf("compose.%s: expression must not be empty", name)
		}
	}
	return nil
}

// SetCompositeVars evaluates every compose expression against vars and
// stores the results on the host.
func (c *Constructor) SetCompositeVars(inv *inventory.Inventory, host string, vars inventory.Snapshot, strict bool) error {
	for _, name := range sortedKeys(c.opts.Compose) {
		value, err := evaluate(c.opts.Compose[name], vars)
		if err != nil {
			if strict {
				return fmt.Errorf("compose %s for host %s: %w", name, host, err)
			}
			continue
		}

		if err := inv.SetVariable(host, name, value); err != nil {
			if strict {
				return fmt.Errorf("compose %s for host %s: %w", name, host, err)
			}
			continue
		}
	}
	return nil
}

// AddHostToComposedGroups adds the host to every group whose condition is
// truthy for vars.
func (c *Constructor) AddHostToComposedGroups(inv *inventory.Inventory, host string, vars inventory.Snapshot, strict bool) error {
	for _, group := range sortedKeys(c.opts.Groups) {
		result, err := evaluate(c.opts.Groups[group], vars)
		if err != nil {
			if strict {
				return fmt.Errorf("group %s condition for host %s: %w", group, host, err)
			}
			continue
		}

		if !truthy(result) {
			continue
		}

		inv.AddGroup(group)
		if err := inv.AddHostToGroup(group, host); err != nil {
			if strict {
				return fmt.Errorf("group %s for host %s: %w", group, host, err)
			}
			continue
		}
	}
	return nil
}

// AddHostToKeyedGroups creates groups from the value of every keyed group
// key and adds the host to them.
func (c *Constructor) AddHostToKeyedGroups(inv *inventory.Inventory, host string, vars inventory.Snapshot, strict bool) error {
	for i, kg := range c.opts.KeyedGroups {
		value, err := evaluate(kg.Key, vars)
		if err != nil {
			if strict {
				return fmt.Errorf("keyed_groups[%d] key for host %s: %w", i, host, err)
			}
			continue
		}

		names, err := c.keyedGroupNames(kg, value)
		if err != nil {
			if strict {
				return fmt.Errorf("keyed_groups[%d] for host %s: %w", i, host, err)
			}
			continue
		}

		for _, name := range names {
			inv.AddGroup(name)
			if err := inv.AddHostToGroup(name, host); err != nil {
				if strict {
					return fmt.Errorf("keyed_groups[%d] group %s for host %s: %w", i, name, host, err)
				}
				continue
			}

			if kg.ParentGroup == "" {
				continue
			}
			inv.AddGroup(kg.ParentGroup)
			if err := inv.AddChildGroup(kg.ParentGroup, name); err != nil {
				if strict {
					return fmt.Errorf("keyed_groups[%d] parent %s for host %s: %w", i, kg.ParentGroup, host, err)
				}
				continue
			}
		}
	}
	return nil
}

// keyedGroupNames turns a key value into full group names.
func (c *Constructor) keyedGroupNames(kg KeyedGroup, value any) ([]string, error) {
	isEmptyString := value == ""
	if !truthy(value) && !(isEmptyString && kg.DefaultValue != nil) {
		return nil, fmt.Errorf("key %q resulted in an empty value", kg.Key)
	}

	sep := DefaultSeparator
	if kg.Separator != nil {
		sep = *kg.Separator
	}

	var bare []string
	switch v := value.(type) {
	case string:
		bare = append(bare, c.orDefault(kg, v))
	case []any:
		for _, item := range v {
			bare = append(bare, c.orDefault(kg, scalar(item)))
		}
	case []string:
		for _, item := range v {
			bare = append(bare, c.orDefault(kg, item))
		}
	case map[string]any:
		for _, k := range sortedKeys(v) {
			val := scalar(v[k])
			name := k + sep + val
			if val == "" {
				switch {
				case kg.DefaultValue != nil:
					name = k + sep + *kg.DefaultValue
				case kg.TrailingSeparator != nil && !*kg.TrailingSeparator:
					name = k
				}
			}
			bare = append(bare, name)
		}
	case bool, int, int32, int64, uint, uint32, uint64, float32, float64:
		bare = append(bare, scalar(v))
	default:
		return nil, fmt.Errorf("key %q resulted in unsupported type %T (want string, list or map)", kg.Key, value)
	}

	leading := c.opts.LeadingSeparator == nil || *c.opts.LeadingSeparator
	if kg.Prefix == "" && !leading {
		sep = ""
	}

	names := make([]string, 0, len(bare))
	for _, b := range bare {
		names = append(names, kg.Prefix+sep+b)
	}
	return names, nil
}

func (c *Constructor) orDefault(kg KeyedGroup, s string) string {
	if s == "" && kg.DefaultValue != nil {
		return *kg.DefaultValue
	}
	return s
}

// evaluate compiles code against the snapshot and runs it. Unknown
// identifiers are compile errors.
func evaluate(code string, vars inventory.Snapshot) (any, error) {
	env := map[string]any(vars)
	if env == nil {
		env = map[string]any{}
	}

	program, err := expr.Compile(code, expr.Env(env))
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", code, err)
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("evaluate %q: %w", code, err)
	}
	return out, nil
}

// truthy follows template truthiness: false, nil, zero numbers and empty
// strings and collections are false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	case uint:
		return t != 0
	case uint32:
		return t != 0
	case uint64:
		return t != 0
	case float32:
		return t != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func scalar(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
