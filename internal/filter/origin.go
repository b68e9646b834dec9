package filter

import "github.com/agentic-research/resgrid/internal/resource"

// MatchesOrigin reports whether any layer of r comes from an origin of kind.
// A plain resource is its own single layer.
func MatchesOrigin(r *resource.Resource, kind resource.Kind) bool {
	for _, l := range r.Layers() {
		if l.Origin != nil && l.Origin.Kind() == kind {
			return true
		}
	}
	return false
}

// BackingRecord returns the record key of the first layer that has one.
func BackingRecord(r *resource.Resource) (string, bool) {
	for _, l := range r.Layers() {
		if l.Record != "" {
			return l.Record, true
		}
	}
	return "", false
}
