// Package naming provides the identity rules that map libvirt domains onto
// inventory names. This includes the naming policy that decides which domain
// field becomes the inventory hostname, the complementary alias used as a
// per-host group name, and the domain filter that tests the same field.
package naming

import (
	"fmt"
	"regexp"
)

// Policy selects which domain field is registered as the inventory hostname.
type Policy int

const (
	// ByName registers the domain name as the hostname and groups the host
	// under its UUID.
	ByName Policy = iota
	// ByUUID registers the domain UUID as the hostname and groups the host
	// under its name.
	ByUUID
)

// DefaultFilter matches every domain.
const DefaultFilter = ".*"

// Domain is the identity of a single libvirt guest.
type Domain struct {
	// Name is the libvirt domain name. It is not guaranteed to be unique.
	Name string
	// UUID is the canonical lowercase UUID string of the domain.
	UUID string
}

// ParsePolicy converts an inventory_hostname option value to a Policy.
// An empty value selects the default, ByName.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "name":
		return ByName, nil
	case "uuid":
		return ByUUID, nil
	default:
		return ByName, fmt.Errorf("invalid inventory_hostname %q (valid: name, uuid)", s)
	}
}

// String returns the option value for the policy.
func (p Policy) String() string {
	switch p {
	case ByName:
		return "name"
	case ByUUID:
		return "uuid"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Resolve returns the inventory hostname and the alias for a domain.
// The two values are always the complementary name/uuid fields.
//
// Example: Resolve(Domain{Name: "web1", UUID: "u1"}, ByName) → ("web1", "u1")
func Resolve(d Domain, p Policy) (primary, alias string) {
	if p == ByUUID {
		return d.UUID, d.Name
	}
	return d.Name, d.UUID
}

// Field returns the domain field that the policy uses as the primary key.
func Field(d Domain, p Policy) string {
	primary, _ := Resolve(d, p)
	return primary
}

// Filter decides whether a domain takes part in the inventory.
type Filter struct {
	policy Policy
	re     *regexp.Regexp
}

// NewFilter compiles pattern into a Filter for the given policy.
// An empty pattern is treated as DefaultFilter.
func NewFilter(pattern string, p Policy) (*Filter, error) {
	if pattern == "" {
		pattern = DefaultFilter
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", pattern, err)
	}

	return &Filter{policy: p, re: re}, nil
}

// Match reports whether the pattern matches anywhere in the field selected
// by the filter's policy.
func (f *Filter) Match(d Domain) bool {
	return f.re.MatchString(Field(d, f.policy))
}

// Matches is a convenience wrapper that compiles pattern and tests a single
// domain. An invalid pattern never matches.
func Matches(d Domain, p Policy, pattern string) bool {
	f, err := NewFilter(pattern, p)
	if err != nil {
		return false
	}
	return f.Match(d)
}
