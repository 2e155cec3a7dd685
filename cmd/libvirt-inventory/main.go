package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/jbweber/libvirt-inventory/internal/discovery"
	"github.com/jbweber/libvirt-inventory/internal/libvirt"
	"github.com/jbweber/libvirt-inventory/internal/loader"
	"github.com/jbweber/libvirt-inventory/internal/output"
)

var (
	version = "dev"
	commit  = "unknown"
)

// Flags shared by the root command and its subcommands.
var (
	configPath   string
	uriFlag      string
	filterFlag   string
	outputFormat string
	noHeaders    bool
	verbose      bool
	timeout      time.Duration

	listFlag bool
	hostFlag string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "libvirt-inventory",
	Short: "Ansible dynamic inventory for libvirt",
	Long: `libvirt-inventory builds an Ansible inventory from the domains of a
libvirt hypervisor.

Every domain becomes a host named by its domain name (or UUID), grouped
under its UUID (or name), with its interface addresses in
ansible_libvirt_ifaces. Hosts are reached either through ansible_host or
through the community.libvirt connection plugins.

Ansible calls it as an inventory script:
  libvirt-inventory --list
  libvirt-inventory --host <name>`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !listFlag && hostFlag == "" {
			return cmd.Help()
		}
		if listFlag && hostFlag != "" {
			return fmt.Errorf("--list and --host are mutually exclusive")
		}

		if err := output.ValidateFormat(outputFormat); err != nil {
			return err
		}

		return runInventory(cmd.Context(), cmd.OutOrStdout(), newLogger(cmd.ErrOrStderr(), verbose), openHypervisor(timeout))
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Inventory source file (default $"+loader.EnvConfigPath+")")
	flags.StringVar(&uriFlag, "uri", "", "Libvirt connection URI, overrides the config file")
	flags.StringVar(&filterFlag, "filter", "", "Domain filter regex, overrides the config file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	flags.DurationVar(&timeout, "timeout", libvirt.DefaultTimeout, "Timeout for connecting to a local libvirt socket")

	rootCmd.Flags().BoolVar(&listFlag, "list", false, "Print the full inventory")
	rootCmd.Flags().StringVar(&hostFlag, "host", "", "Print the variables of a single host")
	rootCmd.Flags().StringVarP(&outputFormat, "output", "o", string(output.FormatJSON), "Output format: json, yaml or table")
	rootCmd.Flags().BoolVar(&noHeaders, "no-headers", false, "Omit headers in table output")

	rootCmd.AddCommand(testConnCmd)
	rootCmd.AddCommand(initConfigCmd)
}

// runInventory runs one discovery pass and prints the --list or --host view.
func runInventory(ctx context.Context, w io.Writer, logger log.Logger, open discovery.OpenFunc) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loader.Load(resolveConfigPath(), loader.Overrides{URI: uriFlag, Filter: filterFlag})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	d, err := discovery.New(open, logger)
	if err != nil {
		return err
	}

	inv, _, err := d.Run(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to discover inventory: %w", err)
	}

	formatter, err := output.NewFormatter(output.Options{
		Format:    output.Format(outputFormat),
		NoHeaders: noHeaders,
	})
	if err != nil {
		return err
	}

	var result string
	if hostFlag != "" {
		result, err = formatter.FormatHost(inv, hostFlag)
	} else {
		result, err = formatter.FormatInventory(inv)
	}
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	_, err = fmt.Fprint(w, result)
	return err
}

// resolveConfigPath returns the --config flag, falling back to the
// environment.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return os.Getenv(loader.EnvConfigPath)
}

// openHypervisor returns an OpenFunc backed by a libvirt client.
func openHypervisor(timeout time.Duration) discovery.OpenFunc {
	return func(ctx context.Context, uri string) (discovery.Hypervisor, error) {
		client, err := libvirt.ConnectWithContext(ctx, uri, timeout)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// newLogger returns a logfmt logger on w. Stdout carries the inventory, so
// logs always go to stderr.
func newLogger(w io.Writer, verbose bool) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))

	allow := level.AllowInfo()
	if verbose {
		allow = level.AllowDebug()
	}
	logger = level.NewFilter(logger, allow)

	// caller is bound outside the filter so it reports the logging call site.
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}
