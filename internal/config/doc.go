// Package config defines the inventory source configuration.
//
// A configuration selects the hypervisor to query and how its domains are
// mapped into the inventory:
//
//	plugin: community.libvirt.libvirt
//	uri: qemu:///system
//	inventory_hostname: name
//	use_connection_plugin: false
//	filter: "^web"
//	keyed_groups:
//	  - key: ansible_connection
//	    prefix: conn
//
// Loading from disk and applying defaults lives in internal/loader.
package config
