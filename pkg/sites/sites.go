// Package sites holds the per-run directory of an organization's networks and
// resolves network ids to the site names shown in exports.
package sites

import (
	"context"
	"errors"
	"fmt"
	"io"

	"Get-Meraki-Devices/pkg/meraki"
)

// NotFound is the site name used when a network id cannot be resolved.
const NotFound = "ID not Found"

// ErrOutOfRange is returned by Select for an index outside 1..Len().
var ErrOutOfRange = errors.New("network index out of range")

// NetworkLister is the part of the Dashboard API the directory needs.
type NetworkLister interface {
	GetNetworks(ctx context.Context, orgID string) ([]meraki.Network, error)
}

// Directory is the ordered list of networks for one organization.
// Display indexes are 1-based positions and are only meaningful within a run.
type Directory struct {
	networks []meraki.Network
}

// NewDirectory wraps networks in API order.
func NewDirectory(networks []meraki.Network) Directory {
	cp := make([]meraki.Network, len(networks))
	copy(cp, networks)
	return Directory{networks: cp}
}

// Build fetches the organization's networks.
func Build(ctx context.Context, lister NetworkLister, orgID string) (Directory, error) {
	nets, err := lister.GetNetworks(ctx, orgID)
	if err != nil {
		return Directory{}, fmt.Errorf("list networks for organization %s: %w", orgID, err)
	}
	return NewDirectory(nets), nil
}

// Len returns the number of networks.
func (d Directory) Len() int {
	return len(d.networks)
}

// Networks returns a copy of the networks in display order.
func (d Directory) Networks() []meraki.Network {
	cp := make([]meraki.Network, len(d.networks))
	copy(cp, d.networks)
	return cp
}

// Select returns the network shown at the 1-based index.
func (d Directory) Select(index int) (meraki.Network, error) {
	if index < 1 || index > len(d.networks) {
		return meraki.Network{}, fmt.Errorf("index %d is not within 1..%d: %w", index, len(d.networks), ErrOutOfRange)
	}
	return d.networks[index-1], nil
}

// Print writes one line per network with its display index.
func (d Directory) Print(w io.Writer) {
	for i, n := range d.networks {
		fmt.Fprintf(w, "%5d : %-15s  id: %-30s\n", i+1, n.Name, n.ID)
	}
}

// Resolve returns the name of the first network whose id equals networkID,
// or NotFound when networkID is empty or unknown.
func Resolve(networkID string, d Directory) string {
	if networkID == "" {
		return NotFound
	}
	for _, n := range d.networks {
		if n.ID == networkID {
			return n.Name
		}
	}
	return NotFound
}
