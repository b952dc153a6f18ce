// Copyright 2025 James Ross
package topology

import _ "embed"

// defaultGridYAML is the reference 4x4 topology (spec §4.6): a full
// bidirectional lane set between grid neighbors, entries along the west
// edge, exits along the east edge, and traffic lights on every interior and
// edge intersection with at least one outgoing lane. It is data, loaded like
// any other topology document — not a special code path.
//
//go:embed default_grid.yaml
var defaultGridYAML []byte

// DefaultGrid returns the reference 4x4 topology used when no topology file
// is configured.
func DefaultGrid() (*Grid, error) {
	return ParseYAML(defaultGridYAML)
}
