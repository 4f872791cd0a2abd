package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Capability is one of the fixed permissions a privilege type can grant inside a unit
type Capability string

const (
	CapabilityPosts         Capability = "posts"
	CapabilityEvents        Capability = "events"
	CapabilityProjects      Capability = "projects"
	CapabilityResources     Capability = "resources"
	CapabilityOpportunities Capability = "opportunities"
	CapabilityBlogs         Capability = "blogs"
	CapabilityForums        Capability = "forums"
)

// allCapabilities is ordered by bit position
var allCapabilities = []Capability{
	CapabilityPosts,
	CapabilityEvents,
	CapabilityProjects,
	CapabilityResources,
	CapabilityOpportunities,
	CapabilityBlogs,
	CapabilityForums,
}

// AllCapabilities returns every known capability in a stable order
func AllCapabilities() []Capability {
	out := make([]Capability, len(allCapabilities))
	copy(out, allCapabilities)
	return out
}

// bit returns the flag for c, or 0 when c is not a known capability
func (c Capability) bit() CapabilitySet {
	switch c {
	case CapabilityPosts:
		return 1 << 0
	case CapabilityEvents:
		return 1 << 1
	case CapabilityProjects:
		return 1 << 2
	case CapabilityResources:
		return 1 << 3
	case CapabilityOpportunities:
		return 1 << 4
	case CapabilityBlogs:
		return 1 << 5
	case CapabilityForums:
		return 1 << 6
	}
	return 0
}

// IsValid reports whether c belongs to the closed capability set
func (c Capability) IsValid() bool {
	return c.bit() != 0
}

// ParseCapability converts a raw name into a Capability
func ParseCapability(s string) (Capability, error) {
	c := Capability(s)
	if !c.IsValid() {
		return "", fmt.Errorf("unknown capability %q", s)
	}
	return c, nil
}

// CapabilitySet is a bitmask over the closed capability set.
// Bits outside allCapabilities are never set by the methods below.
type CapabilitySet uint8

// AllCapabilitySet has every known capability set
const AllCapabilitySet CapabilitySet = 1<<7 - 1

// NewCapabilitySet builds a set from the given capabilities, ignoring unknown names
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s |= c.bit()
	}
	return s
}

// Has reports whether c is in the set. Unknown capabilities are never held.
func (s CapabilitySet) Has(c Capability) bool {
	b := c.bit()
	return b != 0 && s&b != 0
}

// With returns a copy of s with c added
func (s CapabilitySet) With(c Capability) CapabilitySet {
	return s | c.bit()
}

// Without returns a copy of s with c removed
func (s CapabilitySet) Without(c Capability) CapabilitySet {
	return s &^ c.bit()
}

// Union returns the capabilities held by either set
func (s CapabilitySet) Union(other CapabilitySet) CapabilitySet {
	return s | other
}

// Intersect returns the capabilities held by both sets
func (s CapabilitySet) Intersect(other CapabilitySet) CapabilitySet {
	return s & other
}

// IsEmpty reports whether no capability is set
func (s CapabilitySet) IsEmpty() bool {
	return s&AllCapabilitySet == 0
}

// Names returns the set members in stable order
func (s CapabilitySet) Names() []Capability {
	names := make([]Capability, 0, len(allCapabilities))
	for _, c := range allCapabilities {
		if s.Has(c) {
			names = append(names, c)
		}
	}
	return names
}

// Flags returns the set as the boolean map the portal forms use
func (s CapabilitySet) Flags() map[Capability]bool {
	flags := make(map[Capability]bool, len(allCapabilities))
	for _, c := range allCapabilities {
		flags[c] = s.Has(c)
	}
	return flags
}

// MarshalJSON encodes the set as {"posts": true, "events": false, ...}
func (s CapabilitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Flags())
}

// UnmarshalJSON decodes the boolean flag object. Unknown keys are rejected.
func (s *CapabilitySet) UnmarshalJSON(data []byte) error {
	var flags map[string]bool
	if err := json.Unmarshal(data, &flags); err != nil {
		return fmt.Errorf("capabilities must be an object of booleans: %w", err)
	}

	var out CapabilitySet
	for name, on := range flags {
		c, err := ParseCapability(name)
		if err != nil {
			return err
		}
		if on {
			out = out.With(c)
		}
	}
	*s = out
	return nil
}

// Value stores the set as a smallint
func (s CapabilitySet) Value() (driver.Value, error) {
	return int64(s & AllCapabilitySet), nil
}

// Scan reads the set from a smallint column
func (s *CapabilitySet) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*s = CapabilitySet(v) & AllCapabilitySet
	case int32:
		*s = CapabilitySet(v) & AllCapabilitySet
	case []byte:
		var n int64
		if _, err := fmt.Sscan(string(v), &n); err != nil {
			return fmt.Errorf("failed to scan capability set: %w", err)
		}
		*s = CapabilitySet(n) & AllCapabilitySet
	case nil:
		*s = 0
	default:
		return fmt.Errorf("unsupported capability set type %T", src)
	}
	return nil
}
