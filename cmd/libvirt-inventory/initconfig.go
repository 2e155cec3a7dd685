package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jbweber/libvirt-inventory/internal/config"
	"github.com/jbweber/libvirt-inventory/internal/libvirt"
	"github.com/jbweber/libvirt-inventory/internal/loader"
)

var initConfigCmd = &cobra.Command{
	Use:   "init-config <libvirt.yml>",
	Short: "Write an inventory source file with default options",
	Long: `Write an inventory source file with every option at its default.

The URI is taken from --uri, or qemu:///system when not given. An existing
file is never overwritten.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}

		cfg := config.Default()
		cfg.URI = uriFlag
		if cfg.URI == "" {
			cfg.URI = libvirt.DefaultURI
		}
		if filterFlag != "" {
			cfg.Filter = filterFlag
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if err := loader.SaveToFile(cfg, path); err != nil {
			return err
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
		return nil
	},
}
