// Package records turns raw device and client objects into export records
// carrying the site they belong to.
package records

import (
	"encoding/json"
	"strconv"

	"Get-Meraki-Devices/pkg/meraki"
	"Get-Meraki-Devices/pkg/sites"
)

// SiteField is the export column holding the site name.
const SiteField = "site"

// SiteState says where a record's site came from.
type SiteState int

const (
	// SiteAbsent means no site is known; exporters may fill it from a fallback.
	SiteAbsent SiteState = iota
	// SiteResolved means the site was looked up from the record's network id.
	SiteResolved
	// SiteOverride means the raw record carried its own site value.
	SiteOverride
)

func (s SiteState) String() string {
	switch s {
	case SiteResolved:
		return "resolved"
	case SiteOverride:
		return "override"
	default:
		return "absent"
	}
}

// Site is a site name together with its provenance.
type Site struct {
	State SiteState
	Name  string
}

// Known reports whether the site has a value.
func (s Site) Known() bool {
	return s.State != SiteAbsent
}

// Record is a raw API object plus its site. Fields holds every key the API
// returned, projected or not.
type Record struct {
	Fields meraki.Record
	Site   Site
}

// Normalize copies raw and attaches a site. A non-null "site" already present
// in raw wins over resolvedSite; an empty resolvedSite becomes sites.NotFound.
func Normalize(raw meraki.Record, resolvedSite string) Record {
	fields := make(meraki.Record, len(raw))
	for k, v := range raw {
		fields[k] = v
	}

	if v, ok := raw[SiteField]; ok && v != nil {
		return Record{Fields: fields, Site: Site{State: SiteOverride, Name: Text(v)}}
	}
	if resolvedSite == "" {
		resolvedSite = sites.NotFound
	}
	return Record{Fields: fields, Site: Site{State: SiteResolved, Name: resolvedSite}}
}

// Value returns the value exported under key. For "site" it is the site name,
// reported as missing while the site is absent.
func (r Record) Value(key string) (any, bool) {
	if key == SiteField {
		if !r.Site.Known() {
			return nil, false
		}
		return r.Site.Name, true
	}
	v, ok := r.Fields[key]
	return v, ok
}

// Full returns every raw field plus the site, for unprojected dumps.
func (r Record) Full() map[string]any {
	out := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	if r.Site.Known() {
		out[SiteField] = r.Site.Name
	} else {
		out[SiteField] = nil
	}
	return out
}

// NetworkID returns raw's networkId when it is a non-empty string.
func NetworkID(raw meraki.Record) string {
	id, _ := raw["networkId"].(string)
	return id
}

// Text renders a raw API value as a single table or CSV cell.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
