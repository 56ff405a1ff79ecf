package discovery

import (
	"context"
	"fmt"
	"net/netip"
	"slices"
	"strings"

	"github.com/nao1215/powerdisco/internal/model"
)

// assetRequest builds the registry request of a device found at address.
func (o *Orchestrator) assetRequest(ctx context.Context, c *campaign, address string, asset model.DiscoveredAsset) model.CreateRequest {
	req := model.CreateRequest{
		Type:     asset.Type,
		Subtype:  asset.Subtype,
		Status:   c.request.AssetStatus(),
		Priority: c.request.Priority,
		Parent:   c.request.ParentName(),
		Linked:   slices.Clone(c.links),
		Ext:      updateExt(asset.Ext),
	}

	// An sts has two inputs; in the device centric view a single default
	// link feeds both.
	if asset.Subtype == model.SubtypeSTS.String() && len(c.links) == 1 && c.request.DeviceCentric {
		req.Linked = append(req.Linked, c.links[0])
	}

	if err := updateHostName(ctx, o.resolver, address, req.Ext); err != nil {
		o.logger.Debug("could not update host name", "address", address, "error", err)
	}
	return req
}

// sensorRequest builds the registry request of a sensor attached to the
// asset named parent.
func (o *Orchestrator) sensorRequest(c *campaign, parent string, sensor model.Sensor) model.CreateRequest {
	ext := slices.Clone(sensor.Ext)
	ext = append(ext,
		model.ExtEntry{"logical_asset": c.request.ParentName(), model.ReadOnlyKey: "false"},
		model.ExtEntry{"parent_name.1": parent, model.ReadOnlyKey: "false"},
	)

	return model.CreateRequest{
		Type:     sensor.Type,
		Subtype:  sensor.Subtype,
		Status:   c.request.AssetStatus(),
		Priority: c.request.Priority,
		Parent:   parent,
		Ext:      updateExt(ext),
	}
}

// createAsset registers req and records its name on host.
func (o *Orchestrator) createAsset(ctx context.Context, c *campaign, host *model.HostResult, req model.CreateRequest) (string, bool) {
	name, err := o.creator.CreateAsset(ctx, req)
	if err != nil {
		o.logger.Error("asset creation failed",
			"campaign", c.id,
			"address", host.Address,
			"subtype", req.Subtype,
			"error", fmt.Errorf("%w: %w", ErrAssetCreation, err),
		)
		return "", false
	}

	o.logger.Info("asset created",
		"campaign", c.id,
		"address", host.Address,
		"name", name,
		"subtype", req.Subtype,
	)
	host.Created = append(host.Created, name)
	return name, true
}

// updateExt merges flat ext entries into an attribute map. The reserved
// read_only key of an entry applies to its other keys; entries without
// other keys are dropped.
func updateExt(entries []model.ExtEntry) model.ExtMap {
	out := make(model.ExtMap)
	for _, entry := range entries {
		readOnly := entry[model.ReadOnlyKey] == "true"
		for k, v := range entry {
			if k == model.ReadOnlyKey {
				continue
			}
			out[k] = model.ExtAttribute{Value: v, ReadOnly: readOnly}
		}
	}
	return out
}

// updateHostName adds dns.1 and hostname to ext from the PTR record of
// address. ext is left untouched on error.
func updateHostName(ctx context.Context, r Resolver, address string, ext model.ExtMap) error {
	if address == "" {
		return fmt.Errorf("%w: ip address empty", ErrHostName)
	}
	if _, err := netip.ParseAddr(address); err != nil {
		return fmt.Errorf("%w: %q is not an ip address", ErrHostName, address)
	}

	names, err := r.LookupAddr(ctx, address)
	if err != nil || len(names) == 0 || strings.TrimSuffix(names[0], ".") == "" {
		return fmt.Errorf("%w: no host information retrieved from DNS for %s", ErrHostName, address)
	}

	fqdn := strings.TrimSuffix(names[0], ".")
	hostname, _, _ := strings.Cut(fqdn, ".")
	ext["dns.1"] = model.ExtAttribute{Value: fqdn}
	ext["hostname"] = model.ExtAttribute{Value: hostname}
	return nil
}
