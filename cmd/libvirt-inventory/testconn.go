package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jbweber/libvirt-inventory/internal/libvirt"
	"github.com/jbweber/libvirt-inventory/internal/loader"
)

var testConnCmd = &cobra.Command{
	Use:   "test-conn",
	Short: "Test libvirt connection",
	Long: `Test connectivity to the configured hypervisor and display version,
driver and domain count.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loader.Load(resolveConfigPath(), loader.Overrides{URI: uriFlag, Filter: filterFlag})
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Testing libvirt connection to %s...\n", cfg.URI)

		client, err := libvirt.ConnectWithContext(cmd.Context(), cfg.URI, timeout)
		if err != nil {
			return fmt.Errorf("failed to connect to libvirt: %w", err)
		}
		defer func() {
			if closeErr := client.Close(); closeErr != nil {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to close libvirt connection: %v\n", closeErr)
			}
		}()

		_, _ = fmt.Fprintf(out, "✓ Connected to libvirt daemon at %s\n", client.URI())

		// Ping the connection
		if err := client.Ping(); err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}

		version, err := client.Version()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "✓ Libvirt version: %s\n", version)

		kind, err := client.DriverKind()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "✓ Driver: %s\n", kind)

		domains, err := client.ListDomains()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "✓ Domains: %d\n", len(domains))

		_, _ = fmt.Fprintln(out, "\nConnection test successful!")
		return nil
	},
}
