// Package openstack implements the backend capabilities on an OpenStack
// cloud: Keystone v3 for tenants, Neutron v2.0 for routers, networks and
// subnets, Nova v2 for instances.
package openstack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack"
	"github.com/sirupsen/logrus"

	"github.com/newtron-network/conexus/pkg/backend"
	"github.com/newtron-network/conexus/pkg/util"
	"github.com/newtron-network/conexus/pkg/version"
)

// DefaultDomainName is the Keystone domain used when none is configured.
const DefaultDomainName = "Default"

// Credentials authenticate the session. TenantName scopes the token.
type Credentials struct {
	AuthURL    string
	Username   string
	Password   string
	TenantName string
	DomainName string
	Region     string
}

// Client is a backend.Cloud on top of gophercloud service clients.
type Client struct {
	identity *gophercloud.ServiceClient
	network  *gophercloud.ServiceClient
	compute  *gophercloud.ServiceClient
	log      *logrus.Entry
}

var _ backend.Cloud = (*Client)(nil)

// Connect authenticates against Keystone and builds the identity, network
// and compute clients for the configured region. ctx is attached to the
// provider and applies to every later request.
func Connect(ctx context.Context, creds Credentials) (*Client, error) {
	domain := creds.DomainName
	if domain == "" {
		domain = DefaultDomainName
	}
	opts := gophercloud.AuthOptions{
		IdentityEndpoint: creds.AuthURL,
		Username:         creds.Username,
		Password:         creds.Password,
		TenantName:       creds.TenantName,
		DomainName:       domain,
	}

	provider, err := openstack.NewClient(creds.AuthURL)
	if err != nil {
		return nil, fmt.Errorf("openstack client for %s: %w", creds.AuthURL, err)
	}
	provider.Context = ctx
	provider.UserAgent.Prepend(version.UserAgent())
	if err := openstack.Authenticate(provider, opts); err != nil {
		return nil, fmt.Errorf("authenticating %s at %s: %w", creds.Username, creds.AuthURL, err)
	}

	eo := gophercloud.EndpointOpts{Region: creds.Region}
	identity, err := openstack.NewIdentityV3(provider, eo)
	if err != nil {
		return nil, fmt.Errorf("identity v3 endpoint: %w", err)
	}
	network, err := openstack.NewNetworkV2(provider, eo)
	if err != nil {
		return nil, fmt.Errorf("network v2 endpoint: %w", err)
	}
	compute, err := openstack.NewComputeV2(provider, eo)
	if err != nil {
		return nil, fmt.Errorf("compute v2 endpoint: %w", err)
	}

	c := NewClient(identity, network, compute)
	c.log.WithField("region", creds.Region).Debugf("Authenticated as %s in %s", creds.Username, creds.TenantName)
	return c, nil
}

// NewClient wraps already-built service clients.
func NewClient(identity, network, compute *gophercloud.ServiceClient) *Client {
	return &Client{
		identity: identity,
		network:  network,
		compute:  compute,
		log:      util.WithComponent("openstack"),
	}
}

// isPortConflict reports whether err says the router already has a port
// on the subnet. Neutron answers 400 with that message; some plugins
// answer 409.
func isPortConflict(err error) bool {
	if responseCodeIs(err, http.StatusConflict) {
		return true
	}
	var bad gophercloud.ErrDefault400
	if errors.As(err, &bad) {
		return strings.Contains(strings.ToLower(string(bad.Body)), "already has a port")
	}
	return false
}

func isNotFound(err error) bool {
	return responseCodeIs(err, http.StatusNotFound)
}

// responseCodeIs reports whether err carries the given HTTP status.
func responseCodeIs(err error, code int) bool {
	var sce gophercloud.StatusCodeError
	return errors.As(err, &sce) && sce.GetStatusCode() == code
}

func tenantOf(tenantID, projectID string) string {
	if tenantID != "" {
		return tenantID
	}
	return projectID
}
