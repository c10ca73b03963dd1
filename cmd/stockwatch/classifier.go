package main

import "strings"

// DenySet holds the decorated header lines whose sections are only posted on
// the half-hour cadence.
type DenySet map[string]struct{}

// NewDenySet builds a deny-set from header lines such as "== EGG STOCK ==".
func NewDenySet(headers ...string) DenySet {
	set := make(DenySet, len(headers))
	for _, h := range headers {
		if h = strings.TrimSpace(h); h != "" {
			set[h] = struct{}{}
		}
	}
	return set
}

// Contains reports whether header is denied. Matching is exact.
func (d DenySet) Contains(header string) bool {
	_, ok := d[header]
	return ok
}

// Partition is a snapshot split into the two visibility tiers.
type Partition struct {
	Included Snapshot `json:"included"`
	Filtered Snapshot `json:"filtered"`
}

// Classify routes every section of snapshot to Included or Filtered. Items
// seen before the first header have no section and are dropped.
func Classify(snapshot Snapshot, deny DenySet) Partition {
	p := Partition{Included: Snapshot{}, Filtered: Snapshot{}}

	var current *Snapshot
	for _, line := range snapshot {
		line = strings.TrimSpace(line)
		if IsHeader(line) {
			if deny.Contains(line) {
				current = &p.Filtered
			} else {
				current = &p.Included
			}
			*current = append(*current, line)
			continue
		}
		if current != nil {
			*current = append(*current, line)
		}
	}
	return p
}
