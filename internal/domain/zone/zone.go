package zone

import "fmt"

// ErrEmptyCatalog is returned when a catalog defines no zones at all.
var ErrEmptyCatalog = fmt.Errorf("zone catalog contains no zones")

// Zone is one prayer-time computation area, e.g. SGR01 in Selangor.
type Zone struct {
	Code  string // JAKIM zone code, unique within a catalog
	Name  string // display name
	State string // owning state/region
}

func (z Zone) String() string {
	return fmt.Sprintf("%s/%s", z.State, z.Code)
}

// Catalog is the ordered list of zones to extract.
// Order follows the source document: states first, then zones within each state.
type Catalog struct {
	Zones []Zone
}

// Len returns the number of zones.
func (c Catalog) Len() int {
	return len(c.Zones)
}

// States returns the distinct state names in catalog order.
func (c Catalog) States() []string {
	seen := make(map[string]bool)
	states := make([]string, 0)
	for _, z := range c.Zones {
		if !seen[z.State] {
			seen[z.State] = true
			states = append(states, z.State)
		}
	}
	return states
}

// Validate checks that the catalog is non-empty and zone codes are unique.
func (c Catalog) Validate() error {
	if len(c.Zones) == 0 {
		return ErrEmptyCatalog
	}
	seen := make(map[string]string, len(c.Zones))
	for _, z := range c.Zones {
		if z.Code == "" {
			return fmt.Errorf("zone with empty code in state %q", z.State)
		}
		if prev, ok := seen[z.Code]; ok {
			return fmt.Errorf("duplicate zone code %q (states %q and %q)", z.Code, prev, z.State)
		}
		seen[z.Code] = z.State
	}
	return nil
}
