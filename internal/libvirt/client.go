package libvirt

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/digitalocean/go-libvirt"
	"github.com/digitalocean/go-libvirt/socket/dialers"
)

const (
	// DefaultURI is used when no URI is given.
	DefaultURI = string(libvirt.QEMUSystem)
	// DefaultSocket is the local libvirt daemon socket.
	DefaultSocket = "/var/run/libvirt/libvirt-sock"
	// DefaultTimeout bounds local socket dials.
	DefaultTimeout = 5 * time.Second
)

// rpc defines the libvirt calls used by Client.
// In production, this is satisfied by *libvirt.Libvirt directly.
// In tests, this is satisfied by mock implementations.
type rpc interface {
	ConnectGetLibVersion() (uint64, error)
	ConnectGetType() (string, error)
	ConnectListAllDomains(needResults int32, flags libvirt.ConnectListAllDomainsFlags) ([]libvirt.Domain, uint32, error)
	DomainLookupByName(name string) (libvirt.Domain, error)
	DomainInterfaceAddresses(dom libvirt.Domain, source uint32, flags uint32) ([]libvirt.DomainInterface, error)
	DomainGetXMLDesc(dom libvirt.Domain, flags libvirt.DomainXMLFlags) (string, error)
	DomainGetState(dom libvirt.Domain, flags uint32) (int32, int32, error)
	Disconnect() error
}

// Client wraps a go-libvirt connection to one hypervisor and exposes the
// queries needed to build an inventory.
type Client struct {
	rpc    rpc
	uri    string
	closed bool
}

// Connect establishes a connection to the hypervisor identified by uri.
// It returns a Client that must be closed via Close() when done.
//
// If uri is empty, defaults to "qemu:///system".
// If timeout is zero, defaults to 5 seconds.
//
// URIs without a host (e.g. "qemu:///system", "lxc:///") are dialed over the
// local daemon socket; the "socket" query parameter overrides its path.
// Remote URIs (e.g. "qemu+ssh://root@hv1/system", "qemu+tcp://hv1/system")
// use the transport named in the scheme.
func Connect(uri string, timeout time.Duration) (*Client, error) {
	// Set defaults
	if uri == "" {
		uri = DefaultURI
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid libvirt URI %q: %w", uri, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("invalid libvirt URI %q: missing driver scheme", uri)
	}

	var l *libvirt.Libvirt
	if isLocal(u) {
		socketPath := u.Query().Get("socket")
		if socketPath == "" {
			socketPath = DefaultSocket
		}

		dialer := dialers.NewLocal(
			dialers.WithSocket(socketPath),
			dialers.WithLocalTimeout(timeout),
		)

		l = libvirt.NewWithDialer(dialer)
		if err := l.ConnectToURI(libvirt.ConnectURI(localURI(u))); err != nil {
			return nil, fmt.Errorf("failed to connect to libvirt at %s: %w", socketPath, err)
		}
	} else {
		l, err = libvirt.ConnectToURI(u)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to libvirt at %s: %w", u.Redacted(), err)
		}
	}

	return &Client{rpc: l, uri: uri}, nil
}

// ConnectWithContext establishes a connection with context support for cancellation.
func ConnectWithContext(ctx context.Context, uri string, timeout time.Duration) (*Client, error) {
	// Create a channel for the connection result
	type result struct {
		client *Client
		err    error
	}
	resultCh := make(chan result, 1)

	// Attempt connection in a goroutine
	go func() {
		c, err := Connect(uri, timeout)
		resultCh <- result{client: c, err: err}
	}()

	// Wait for either context cancellation or connection completion
	select {
	case <-ctx.Done():
		// Release a connection that completes after we gave up on it.
		go func() {
			if res := <-resultCh; res.client != nil {
				_ = res.client.Close()
			}
		}()
		return nil, fmt.Errorf("connection cancelled: %w", ctx.Err())
	case res := <-resultCh:
		return res.client, res.err
	}
}

// Close closes the libvirt connection and releases resources.
// It is safe to call Close multiple times.
func (c *Client) Close() error {
	if c.rpc == nil || c.closed {
		return nil
	}
	c.closed = true

	if err := c.rpc.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect from libvirt: %w", err)
	}

	return nil
}

// URI returns the URI the client was connected with.
func (c *Client) URI() string {
	return c.uri
}

// Ping verifies the connection is still alive by calling a simple libvirt API.
func (c *Client) Ping() error {
	if c.rpc == nil || c.closed {
		return fmt.Errorf("client not connected")
	}

	// Try to get libvirt version as a ping test
	if _, err := c.rpc.ConnectGetLibVersion(); err != nil {
		return fmt.Errorf("libvirt connection is dead: %w", err)
	}

	return nil
}

// Version returns the libvirt library version of the daemon as
// "major.minor.patch".
func (c *Client) Version() (string, error) {
	if c.rpc == nil || c.closed {
		return "", fmt.Errorf("client not connected")
	}

	v, err := c.rpc.ConnectGetLibVersion()
	if err != nil {
		return "", fmt.Errorf("failed to get libvirt version: %w", err)
	}

	// libvirt returns the version as an integer like 8006000 for 8.6.0
	return fmt.Sprintf("%d.%d.%d", v/1000000, (v%1000000)/1000, v%1000), nil
}

// isLocal reports whether the URI is served by the local daemon socket.
func isLocal(u *url.URL) bool {
	if u.Host != "" {
		return false
	}
	_, transport, _ := strings.Cut(u.Scheme, "+")
	return transport == "" || transport == "unix"
}

// localURI strips the transport and query from a local URI, leaving the
// form the daemon expects, e.g. "qemu+unix:///system?socket=x" → "qemu:///system".
func localURI(u *url.URL) string {
	driver, _, _ := strings.Cut(u.Scheme, "+")
	return fmt.Sprintf("%s://%s", driver, u.Path)
}
