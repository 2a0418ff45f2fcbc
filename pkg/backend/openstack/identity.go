package openstack

import (
	"context"
	"fmt"

	"github.com/gophercloud/gophercloud/openstack/identity/v3/projects"

	"github.com/newtron-network/conexus/pkg/model"
)

// ListTenants returns every Keystone project visible to the session.
func (c *Client) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pages, err := projects.List(c.identity, projects.ListOpts{}).AllPages()
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	list, err := projects.ExtractProjects(pages)
	if err != nil {
		return nil, fmt.Errorf("decoding projects: %w", err)
	}

	tenants := make([]model.Tenant, 0, len(list))
	for _, p := range list {
		tenants = append(tenants, model.Tenant{ID: p.ID, Name: p.Name})
	}
	return tenants, nil
}
