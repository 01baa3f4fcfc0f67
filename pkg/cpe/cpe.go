// Package cpe implements parsing and formatting of CPE match strings.
// Both the 2.3 format ("cpe:2.3:part:vendor:product:version:...") and the
// legacy 2.2 format ("cpe:/part:vendor:product:version") are accepted;
// missing trailing components default to the "*" wildcard.
package cpe

import (
	"fmt"
	"strings"

	"github.com/resilmesh/casm/pkg/faults"
)

const fieldCount = 13

// Identifier represents a CPE match string of version 2.3.
type Identifier struct {
	Part      string
	Vendor    string
	Product   string
	Version   string
	Update    string
	Edition   string
	Language  string
	SwEdition string
	TargetSw  string
	TargetHw  string
	Other     string
}

// String returns the CPE 2.3 representation of the identifier.
func (c Identifier) String() string {
	return fmt.Sprintf("cpe:2.3:%s:%s:%s:%s:%s:%s:%s:%s:%s:%s:%s",
		c.Part, c.Vendor, c.Product, c.Version, c.Update, c.Edition,
		c.Language, c.SwEdition, c.TargetSw, c.TargetHw, c.Other)
}

// VendorProduct returns the "vendor:product" key used by the graph store.
func (c Identifier) VendorProduct() string {
	return fmt.Sprintf("%s:%s", c.Vendor, c.Product)
}

// Parse creates an Identifier from a possibly incomplete CPE match string.
func Parse(s string) (Identifier, error) {
	parts := strings.Split(s, ":")
	if len(parts) == 0 || parts[0] != "cpe" {
		return Identifier{}, faults.New(faults.BadInput, "invalid CPE string: %q", s)
	}

	if len(parts) > 1 && parts[1] == "2.3" {
		for len(parts) < fieldCount {
			parts = append(parts, "*")
		}
		return Identifier{
			Part:      parts[2],
			Vendor:    parts[3],
			Product:   parts[4],
			Version:   parts[5],
			Update:    orWildcard(parts[6]),
			Edition:   orWildcard(parts[7]),
			Language:  orWildcard(parts[8]),
			SwEdition: orWildcard(parts[9]),
			TargetSw:  orWildcard(parts[10]),
			TargetHw:  orWildcard(parts[11]),
			Other:     orWildcard(parts[12]),
		}, nil
	}

	// Legacy CPE 2.2 format: "cpe:/part:vendor:product:version"
	if len(parts) > 1 && strings.HasPrefix(parts[1], "/") {
		legacy := append([]string{strings.TrimPrefix(parts[1], "/")}, parts[2:]...)
		for len(legacy) < 4 {
			legacy = append(legacy, "*")
		}
		id := Identifier{
			Part:    legacy[0],
			Vendor:  legacy[1],
			Product: legacy[2],
			Version: legacy[3],
		}
		fillWildcards(&id)
		return id, nil
	}

	return Identifier{}, faults.New(faults.BadInput, "unrecognized CPE format: %q", s)
}

// ParseVersionKey parses the "vendor:product:version" short form stored on
// SoftwareVersion nodes together with its part.
func ParseVersionKey(part, key string) (Identifier, error) {
	if strings.Count(key, ":") < 2 {
		return Identifier{}, faults.New(faults.BadInput, "invalid version key %q (expected 'vendor:product:version')", key)
	}
	return Parse(fmt.Sprintf("cpe:2.3:%s:%s", part, key))
}

func fillWildcards(id *Identifier) {
	for _, field := range []*string{
		&id.Update, &id.Edition, &id.Language, &id.SwEdition,
		&id.TargetSw, &id.TargetHw, &id.Other,
	} {
		if *field == "" {
			*field = "*"
		}
	}
}

func orWildcard(s string) string {
	if s == "" {
		return "*"
	}
	return s
}
