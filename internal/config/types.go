package config

import (
	"fmt"
	"net/url"

	"github.com/jbweber/libvirt-inventory/internal/constructed"
	"github.com/jbweber/libvirt-inventory/internal/facts"
	"github.com/jbweber/libvirt-inventory/internal/naming"
)

const (
	// PluginName is the fully qualified name accepted in the plugin field.
	PluginName = "community.libvirt.libvirt"
	// PluginShortName is the short name accepted in the plugin field.
	PluginShortName = "libvirt"
)

// Config represents an inventory source configuration.
type Config struct {
	Plugin              string `yaml:"plugin"`
	URI                 string `yaml:"uri"`                             // Libvirt connection URI, e.g. "qemu:///system"
	InventoryHostname   string `yaml:"inventory_hostname,omitempty"`    // "name" (default) or "uuid"
	UseConnectionPlugin *bool  `yaml:"use_connection_plugin,omitempty"` // Pointer to distinguish unset vs false
	Filter              string `yaml:"filter,omitempty"`                // Regex tested against the hostname field
	InterfaceSource     string `yaml:"interface_source,omitempty"`      // lease (default), agent or arp
	DomainDetails       bool   `yaml:"domain_details,omitempty"`        // Add ansible_libvirt_domain from the domain XML

	// Constructed options, passed through to the grouping collaborators.
	Strict           bool                     `yaml:"strict,omitempty"`
	Compose          map[string]string        `yaml:"compose,omitempty"`
	Groups           map[string]string        `yaml:"groups,omitempty"`
	KeyedGroups      []constructed.KeyedGroup `yaml:"keyed_groups,omitempty"`
	LeadingSeparator *bool                    `yaml:"leading_separator,omitempty"`
}

// Default returns a Config with every optional field at its default.
func Default() *Config {
	c := &Config{Plugin: PluginName}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults sets default values for optional fields.
func (c *Config) ApplyDefaults() {
	if c.InventoryHostname == "" {
		c.InventoryHostname = naming.ByName.String()
	}
	if c.UseConnectionPlugin == nil {
		use := true
		c.UseConnectionPlugin = &use
	}
	if c.Filter == "" {
		c.Filter = naming.DefaultFilter
	}
	if c.InterfaceSource == "" {
		c.InterfaceSource = string(facts.SourceLease)
	}
}

// ConnectionPlugin reports whether connection plugin mode is on.
func (c *Config) ConnectionPlugin() bool {
	return c.UseConnectionPlugin == nil || *c.UseConnectionPlugin
}

// Policy returns the naming policy selected by inventory_hostname.
func (c *Config) Policy() (naming.Policy, error) {
	return naming.ParsePolicy(c.InventoryHostname)
}

// Source returns the interface address source.
func (c *Config) Source() (facts.Source, error) {
	return facts.ParseSource(c.InterfaceSource)
}

// ConstructedOptions returns the options for the grouping collaborators.
func (c *Config) ConstructedOptions() constructed.Options {
	return constructed.Options{
		Compose:          c.Compose,
		Groups:           c.Groups,
		KeyedGroups:      c.KeyedGroups,
		LeadingSeparator: c.LeadingSeparator,
	}
}

// Validate checks the configuration for errors.
// Does not contact the hypervisor - only checks config structure.
func (c *Config) Validate() error {
	if c.Plugin != PluginName && c.Plugin != PluginShortName {
		return fmt.Errorf("plugin must be %q or %q, got %q", PluginName, PluginShortName, c.Plugin)
	}

	if c.URI == "" {
		return fmt.Errorf("uri is required")
	}
	if _, err := url.Parse(c.URI); err != nil {
		return fmt.Errorf("uri: %w", err)
	}

	if _, err := c.Policy(); err != nil {
		return err
	}

	if _, err := naming.NewFilter(c.Filter, naming.ByName); err != nil {
		return err
	}

	if _, err := c.Source(); err != nil {
		return err
	}

	if err := c.ConstructedOptions().Validate(); err != nil {
		return err
	}

	return nil
}
