// Package filters narrows raw device records by product type.
package filters

import (
	"strings"

	"Get-Meraki-Devices/pkg/meraki"
)

// modelPrefixes maps a product type to the model prefixes that identify it
// when the API leaves productType empty (e.g. Catalyst switches).
var modelPrefixes = map[string][]string{
	"switch":          {"MS", "C9"},
	"wireless":        {"MR", "CW"},
	"appliance":       {"MX", "Z"},
	"camera":          {"MV"},
	"sensor":          {"MT"},
	"cellularGateway": {"MG"},
}

// ParseTypes splits a comma-separated list of product types.
func ParseTypes(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ProductType returns the record's productType, or one inferred from its model.
func ProductType(rec meraki.Record) string {
	if pt, _ := rec["productType"].(string); pt != "" {
		return pt
	}
	model, _ := rec["model"].(string)
	model = strings.ToUpper(model)
	for pt, prefixes := range modelPrefixes {
		for _, p := range prefixes {
			if strings.HasPrefix(model, p) {
				return pt
			}
		}
	}
	return ""
}

// IsSwitch reports whether rec is a switch.
func IsSwitch(rec meraki.Record) bool {
	return MatchesProductType(rec, []string{"switch"})
}

// MatchesProductType reports whether rec's product type is one of types
// (case-insensitive). An empty types list matches everything.
func MatchesProductType(rec meraki.Record, types []string) bool {
	if len(types) == 0 {
		return true
	}
	pt := ProductType(rec)
	for _, t := range types {
		if strings.EqualFold(pt, t) {
			return true
		}
	}
	return false
}

// FilterByProductType returns the records matching one of types.
func FilterByProductType(recs []meraki.Record, types []string) []meraki.Record {
	if len(types) == 0 {
		return recs
	}
	var filtered []meraki.Record
	for _, r := range recs {
		if MatchesProductType(r, types) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
