// Package inventory collects site-attributed device and client records for
// one run: it picks the operating mode from the options, validates the
// network selection, fetches through the Dashboard API and normalizes every
// record.
package inventory

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"Get-Meraki-Devices/pkg/filters"
	"Get-Meraki-Devices/pkg/logger"
	"Get-Meraki-Devices/pkg/meraki"
	"Get-Meraki-Devices/pkg/output"
	"Get-Meraki-Devices/pkg/records"
	"Get-Meraki-Devices/pkg/sites"
)

var (
	// ErrInvalidSelection is returned when the prompted network is not a number.
	ErrInvalidSelection = errors.New("invalid network selection")
	// ErrUsage is returned for option combinations that cannot be served.
	ErrUsage = errors.New("invalid usage")
)

// API is the subset of the Dashboard API a run uses.
type API interface {
	sites.NetworkLister
	GetDevice(ctx context.Context, serial string) (meraki.Record, error)
	GetNetworkDevices(ctx context.Context, networkID string) ([]meraki.Record, error)
	GetNetworkClients(ctx context.Context, networkID string) ([]meraki.Record, error)
}

// Mode is what a run dumps.
type Mode int

const (
	// ModeDevices covers serial lookups and whole-network device dumps.
	ModeDevices Mode = iota
	// ModeClients dumps the clients of the selected network.
	ModeClients
)

func (m Mode) String() string {
	if m == ModeClients {
		return "clients"
	}
	return "devices"
}

// Options are the run's selections, usually straight from the command line.
type Options struct {
	Serials      []string
	Network      int // 1-based directory index, 0 when not given
	All          bool
	Clients      bool
	ProductTypes []string
}

// Validate rejects combinations that mix device and client output.
func (o Options) Validate() error {
	if o.Clients && len(o.Serials) > 0 {
		return fmt.Errorf("--serials cannot be combined with --clients: %w", ErrUsage)
	}
	if o.Network < 0 {
		return fmt.Errorf("--network must be positive, got %d: %w", o.Network, ErrUsage)
	}
	return nil
}

// Mode returns the run mode.
func (o Options) Mode() Mode {
	if o.Clients {
		return ModeClients
	}
	return ModeDevices
}

// Projection returns the export columns for the run mode.
func (o Options) Projection() output.Projection {
	if o.Mode() == ModeClients {
		return output.ClientProjection
	}
	return output.DeviceProjection
}

// NeedsNetwork reports whether the run works on a selected network. A run
// with only --serials does not; a run with no selections at all does and
// dumps that network's devices.
func (o Options) NeedsNetwork() bool {
	return o.All || o.Clients || o.Network > 0 || len(o.Serials) == 0
}

// dumpsDevices reports whether every device of the selected network is
// fetched: with --all, or when a network is selected without --serials.
func (o Options) dumpsDevices() bool {
	if o.Clients {
		return false
	}
	return o.All || len(o.Serials) == 0
}

// ParseSerials splits a comma-separated serial list, dropping blanks and repeats.
func ParseSerials(s string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(s, ",") {
		serial := strings.TrimSpace(part)
		if serial == "" {
			continue
		}
		if _, dup := seen[serial]; dup {
			continue
		}
		seen[serial] = struct{}{}
		out = append(out, serial)
	}
	return out
}

// Prompter asks for a 1-based network index when none was given.
type Prompter func(count int) (int, error)

// PromptNetwork returns a Prompter reading one line from r. A non-numeric
// answer fails with ErrInvalidSelection; there is no second attempt.
func PromptNetwork(r io.Reader, w io.Writer) Prompter {
	reader := bufio.NewReader(r)
	return func(count int) (int, error) {
		fmt.Fprintln(w, "A network selection is required (use --network or answer below)")
		fmt.Fprintf(w, "Select the network by number [1-%d]: ", count)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("read network selection: %w", err)
		}
		line = strings.TrimSpace(line)
		n, convErr := strconv.Atoi(line)
		if convErr != nil {
			return 0, fmt.Errorf("%q is not a number: %w", line, ErrInvalidSelection)
		}
		return n, nil
	}
}

// Result is everything the exporters need from a run.
type Result struct {
	Mode       Mode
	Records    []records.Record
	Projection output.Projection

	// Fallback fills cells of records whose site is absent; it carries the
	// selected network's name when a network was selected.
	Fallback map[string]string
	Network  *meraki.Network
	Skipped  int
}

// Runner executes runs against one API and directory.
type Runner struct {
	api API
	dir sites.Directory
	log *logger.Logger
}

// NewRunner creates a Runner. A nil log discards messages.
func NewRunner(api API, dir sites.Directory, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Discard()
	}
	return &Runner{api: api, dir: dir, log: log}
}

// Run performs one collection pass. Selection and usage errors are returned
// before anything is fetched; a failed per-item fetch is logged and skipped.
func (r *Runner) Run(ctx context.Context, opts Options, prompt Prompter) (Result, error) {
	res := Result{Mode: opts.Mode(), Projection: opts.Projection()}
	if err := opts.Validate(); err != nil {
		return res, err
	}

	var selected *meraki.Network
	if opts.NeedsNetwork() {
		net, err := r.selectNetwork(opts.Network, prompt)
		if err != nil {
			return res, err
		}
		selected = &net
		res.Network = selected
		res.Fallback = map[string]string{records.SiteField: net.Name}
		r.log.Infof("Network: %s (%s)", net.Name, net.ID)
	}

	seen := make(map[string]struct{})
	for _, serial := range opts.Serials {
		dev, err := r.api.GetDevice(ctx, serial)
		if err != nil || dev == nil {
			r.log.Warnf("Error fetching details for device %s: %v", serial, err)
			res.Skipped++
			continue
		}
		if !filters.MatchesProductType(dev, opts.ProductTypes) {
			continue
		}
		seen[serial] = struct{}{}
		res.Records = append(res.Records, r.attribute(dev, ""))
	}

	if selected == nil {
		return res, nil
	}

	if opts.dumpsDevices() {
		devs, err := r.api.GetNetworkDevices(ctx, selected.ID)
		if err != nil {
			r.log.Warnf("Error fetching devices for network %s: %v", selected.ID, err)
			res.Skipped++
		}
		r.log.Infof("Network devices API returned %d devices", len(devs))
		for _, dev := range filters.FilterByProductType(devs, opts.ProductTypes) {
			if serial, _ := dev["serial"].(string); serial != "" {
				if _, dup := seen[serial]; dup {
					continue
				}
				seen[serial] = struct{}{}
			}
			res.Records = append(res.Records, r.attribute(dev, ""))
		}
	}

	if opts.Mode() == ModeClients {
		clients, err := r.api.GetNetworkClients(ctx, selected.ID)
		if err != nil {
			r.log.Warnf("Error fetching clients for network %s: %v", selected.ID, err)
			res.Skipped++
		}
		r.log.Infof("Network clients API returned %d clients", len(clients))
		for _, c := range clients {
			res.Records = append(res.Records, r.attribute(c, selected.ID))
		}
	}

	return res, nil
}

// selectNetwork validates the requested index, prompting when there is none.
func (r *Runner) selectNetwork(index int, prompt Prompter) (meraki.Network, error) {
	if index == 0 {
		if prompt == nil {
			return meraki.Network{}, fmt.Errorf("no network selected: %w", ErrInvalidSelection)
		}
		n, err := prompt(r.dir.Len())
		if err != nil {
			return meraki.Network{}, err
		}
		index = n
	}
	return r.dir.Select(index)
}

// attribute resolves the record's own networkId, falling back to
// defaultNetworkID when the record has none.
func (r *Runner) attribute(raw meraki.Record, defaultNetworkID string) records.Record {
	id := records.NetworkID(raw)
	if id == "" {
		id = defaultNetworkID
	}
	site := sites.Resolve(id, r.dir)
	if site == sites.NotFound {
		r.log.Debugf("Network id %q not found in directory", id)
	}
	return records.Normalize(raw, site)
}
