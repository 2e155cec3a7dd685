package discovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/jbweber/libvirt-inventory/internal/config"
	"github.com/jbweber/libvirt-inventory/internal/constructed"
	"github.com/jbweber/libvirt-inventory/internal/facts"
	"github.com/jbweber/libvirt-inventory/internal/inventory"
	"github.com/jbweber/libvirt-inventory/internal/naming"
	"github.com/jbweber/libvirt-inventory/internal/status"
)

// Host variables written by a discovery pass.
const (
	VarIfaces     = "ansible_libvirt_ifaces"
	VarHost       = "ansible_host"
	VarURI        = "ansible_libvirt_uri"
	VarConnection = "ansible_connection"
	VarDomain     = "ansible_libvirt_domain"
)

// Connection plugins by driver kind.
const (
	PluginLXC  = "community.libvirt.libvirt_lxc"
	PluginQEMU = "community.libvirt.libvirt_qemu"
)

var connectionPlugins = map[string]string{
	"LXC":  PluginLXC,
	"QEMU": PluginQEMU,
}

// ConnectionPlugin returns the connection plugin for a driver kind.
func ConnectionPlugin(driverKind string) (string, bool) {
	plugin, ok := connectionPlugins[driverKind]
	return plugin, ok
}

// Discoverer runs discovery passes against hypervisors opened with its
// OpenFunc.
type Discoverer struct {
	open       OpenFunc
	logger     log.Logger
	newGrouper func(constructed.Options) grouper
}

// New creates a Discoverer. A nil open is an ErrConfiguration; a nil logger
// discards log output.
func New(open OpenFunc, logger log.Logger) (*Discoverer, error) {
	if open == nil {
		return nil, fmt.Errorf("%w: no hypervisor client available", ErrConfiguration)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return &Discoverer{
		open:   open,
		logger: log.With(logger, "component", "discovery"),
		newGrouper: func(opts constructed.Options) grouper {
			return constructed.New(opts)
		},
	}, nil
}

// pass holds the per-pass settings derived from the configuration.
type pass struct {
	cfg     *config.Config
	policy  naming.Policy
	filter  *naming.Filter
	source  facts.Source
	conn    connection
	grouper grouper
	inv     *inventory.Inventory
	status  *status.Pass
}

// Run performs one discovery pass.
//
// The inventory is only returned when the pass completes. The returned
// status is always non-nil and records the phase the pass ended in.
func (d *Discoverer) Run(ctx context.Context, cfg *config.Config) (*inventory.Inventory, *status.Pass, error) {
	st := status.NewPass()

	inv, err := d.run(ctx, cfg, st)
	if err != nil {
		st.TransitionToFailed(err)
		level.Error(d.logger).Log("msg", "discovery pass failed", "phase", st.Phase, "err", err)
		return nil, st, err
	}

	level.Info(d.logger).Log(
		"msg", "discovery pass complete",
		"hosts", len(inv.Hosts()),
		"groups", len(inv.Groups()),
		"summary", st.String(),
	)
	return inv, st, nil
}

func (d *Discoverer) run(ctx context.Context, cfg *config.Config, st *status.Pass) (*inventory.Inventory, error) {
	p, err := d.prepare(cfg, st)
	if err != nil {
		return nil, err
	}

	level.Debug(d.logger).Log("msg", "connecting to hypervisor", "uri", cfg.URI)
	hv, err := d.open(ctx, cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	if hv == nil {
		return nil, fmt.Errorf("%w: no connection returned for %s", ErrConnection, cfg.URI)
	}
	defer func() {
		if err := hv.Close(); err != nil {
			level.Warn(d.logger).Log("msg", "failed to close hypervisor connection", "err", err)
		}
	}()

	if err := st.TransitionToConnected(); err != nil {
		return nil, err
	}

	if p.conn.pluginMode {
		kind, err := hv.DriverKind()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConnection, err)
		}
		p.conn.plugin, _ = ConnectionPlugin(kind)
		if p.conn.plugin == "" {
			level.Warn(d.logger).Log("msg", "no connection plugin for driver", "driver", kind)
		}
	}

	domains, err := hv.ListDomains()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	if err := st.TransitionToProcessing(len(domains)); err != nil {
		return nil, err
	}
	level.Debug(d.logger).Log("msg", "listed domains", "count", len(domains))

	for _, dom := range domains {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("discovery cancelled: %w", err)
		}
		if err := d.processDomain(hv, p, dom); err != nil {
			return nil, err
		}
	}

	if err := st.TransitionToDone(); err != nil {
		return nil, err
	}
	return p.inv, nil
}

// prepare validates the configuration and builds the pass settings.
func (d *Discoverer) prepare(cfg *config.Config, st *status.Pass) (*pass, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: no configuration", ErrConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	policy, err := cfg.Policy()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	filter, err := naming.NewFilter(cfg.Filter, policy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	source, err := cfg.Source()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	return &pass{
		cfg:     cfg,
		policy:  policy,
		filter:  filter,
		source:  source,
		conn:    connection{pluginMode: cfg.ConnectionPlugin(), uri: cfg.URI},
		grouper: d.newGrouper(cfg.ConstructedOptions()),
		inv:     inventory.New(),
		status:  st,
	}, nil
}

// processDomain maps one domain into the inventory. Only fatal errors are
// returned.
func (d *Discoverer) processDomain(hv Hypervisor, p *pass, dom naming.Domain) error {
	logger := log.With(d.logger, "domain", dom.Name, "uuid", dom.UUID)

	if !p.filter.Match(dom) {
		p.status.Filtered++
		level.Debug(logger).Log("msg", "domain filtered out")
		return nil
	}
	p.status.Matched++

	host, alias := naming.Resolve(dom, p.policy)
	if !p.inv.AddHost(host) {
		p.status.DuplicateHosts++
		level.Warn(logger).Log("msg", "duplicate inventory hostname, merging variables", "host", host)
	}

	p.inv.AddGroup(alias)
	if err := p.inv.AddHostToGroup(alias, host); err != nil {
		return fmt.Errorf("failed to add host %s to group %s: %w", host, alias, err)
	}

	// Facts are always looked up by name, whatever the naming policy.
	var (
		address string
		found   bool
	)
	raw, err := hv.InterfaceAddresses(dom.Name, p.source)
	if err != nil {
		p.status.FactFailures++
		level.Warn(logger).Log("msg", "skipping interface facts", "err", fmt.Errorf("%w: %w", ErrLookup, err))
	} else {
		var ifaces facts.Map
		ifaces, address, found = facts.Extract(raw)
		if err := p.inv.SetVariable(host, VarIfaces, ifaces.Vars()); err != nil {
			return err
		}
	}

	if p.cfg.DomainDetails {
		details, err := hv.DomainDetails(dom.Name)
		if err != nil {
			p.status.FactFailures++
			level.Warn(logger).Log("msg", "skipping domain details", "err", fmt.Errorf("%w: %w", ErrLookup, err))
		} else if err := p.inv.SetVariable(host, VarDomain, details.Vars()); err != nil {
			return err
		}
	}

	if err := p.conn.apply(p.inv, host, address, found); err != nil {
		return err
	}

	vars := p.inv.Snapshot(host)
	strict := p.cfg.Strict
	if err := p.grouper.SetCompositeVars(p.inv, host, vars, strict); err != nil {
		return groupingError(err)
	}
	if err := p.grouper.AddHostToComposedGroups(p.inv, host, vars, strict); err != nil {
		return groupingError(err)
	}
	if err := p.grouper.AddHostToKeyedGroups(p.inv, host, vars, strict); err != nil {
		return groupingError(err)
	}

	level.Debug(logger).Log("msg", "host added", "host", host, "group", alias)
	return nil
}

// connection sets the variables that tell Ansible how to reach a host.
type connection struct {
	pluginMode bool
	plugin     string // empty when the driver kind has no plugin
	uri        string
}

// apply sets ansible_host to address when plugin mode is off, unless the
// host already has one. In plugin mode it sets ansible_libvirt_uri and
// ansible_connection when a plugin is known, and never ansible_host.
func (c connection) apply(inv *inventory.Inventory, host, address string, found bool) error {
	if !c.pluginMode {
		if !found || inv.HasVariable(host, VarHost) {
			return nil
		}
		return inv.SetVariable(host, VarHost, address)
	}

	if c.plugin == "" {
		return nil
	}
	if err := inv.SetVariable(host, VarURI, c.uri); err != nil {
		return err
	}
	return inv.SetVariable(host, VarConnection, c.plugin)
}

func groupingError(err error) error {
	if errors.Is(err, ErrGrouping) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrGrouping, err)
}
