package openstack

import (
	"context"
	"fmt"

	"github.com/gophercloud/gophercloud/openstack/compute/v2/servers"

	"github.com/newtron-network/conexus/pkg/model"
	"github.com/newtron-network/conexus/pkg/util"
)

func (c *Client) CreateServer(ctx context.Context, spec model.ServerSpec) (model.Server, error) {
	if err := ctx.Err(); err != nil {
		return model.Server{}, err
	}
	nets := make([]servers.Network, 0, len(spec.NetworkIDs))
	for _, id := range spec.NetworkIDs {
		nets = append(nets, servers.Network{UUID: id})
	}
	opts := servers.CreateOpts{
		Name:      spec.Name,
		ImageRef:  spec.ImageID,
		FlavorRef: spec.FlavorID,
		Networks:  nets,
	}

	s, err := servers.Create(c.compute, opts).Extract()
	if err != nil {
		return model.Server{}, fmt.Errorf("creating server %s: %w", spec.Name, err)
	}
	status := s.Status
	if status == "" {
		status = model.ServerStatusBuild
	}
	return model.Server{ID: s.ID, Name: spec.Name, Status: status}, nil
}

func (c *Client) GetServer(ctx context.Context, id string) (model.Server, error) {
	if err := ctx.Err(); err != nil {
		return model.Server{}, err
	}
	s, err := servers.Get(c.compute, id).Extract()
	if err != nil {
		if isNotFound(err) {
			return model.Server{}, fmt.Errorf("server %s: %w", id, util.ErrNotFound)
		}
		return model.Server{}, fmt.Errorf("getting server %s: %w", id, err)
	}
	return model.Server{ID: s.ID, Name: s.Name, Status: s.Status}, nil
}
