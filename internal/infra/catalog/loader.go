// internal/infra/catalog/loader.go
package catalog

import (
	"errors"
	"fmt"

	"prayer_time_extractor/internal/domain/zone"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"
)

var (
	ErrCatalogNotFound  = errors.New("zone catalog file not found")
	ErrMalformedCatalog = errors.New("malformed zone catalog")
)

// LoadFile reads a {state: {zoneCode: zoneName}} document (JSON or YAML) from fs.
// Zones keep the order in which they appear in the document.
func LoadFile(fs afero.Fs, path string) (zone.Catalog, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if exists, _ := afero.Exists(fs, path); !exists {
			return zone.Catalog{}, fmt.Errorf("%w: %s", ErrCatalogNotFound, path)
		}
		return zone.Catalog{}, fmt.Errorf("failed to read zone catalog %s: %w", path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return zone.Catalog{}, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (zone.Catalog, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return zone.Catalog{}, fmt.Errorf("%w: %v", ErrMalformedCatalog, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return zone.Catalog{}, fmt.Errorf("%w: document is empty", ErrMalformedCatalog)
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return zone.Catalog{}, fmt.Errorf("%w: top level must map state names to zones (line %d)", ErrMalformedCatalog, root.Line)
	}

	cat := zone.Catalog{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		stateNode, zonesNode := root.Content[i], root.Content[i+1]
		if stateNode.Kind != yaml.ScalarNode {
			return zone.Catalog{}, fmt.Errorf("%w: state name must be a string (line %d)", ErrMalformedCatalog, stateNode.Line)
		}
		if zonesNode.Kind != yaml.MappingNode {
			return zone.Catalog{}, fmt.Errorf("%w: state %q must map zone codes to names (line %d)", ErrMalformedCatalog, stateNode.Value, zonesNode.Line)
		}
		for j := 0; j+1 < len(zonesNode.Content); j += 2 {
			codeNode, nameNode := zonesNode.Content[j], zonesNode.Content[j+1]
			if codeNode.Kind != yaml.ScalarNode || nameNode.Kind != yaml.ScalarNode {
				return zone.Catalog{}, fmt.Errorf("%w: zone entries in state %q must be code: name pairs (line %d)", ErrMalformedCatalog, stateNode.Value, codeNode.Line)
			}
			cat.Zones = append(cat.Zones, zone.Zone{
				Code:  codeNode.Value,
				Name:  nameNode.Value,
				State: stateNode.Value,
			})
		}
	}

	if err := cat.Validate(); err != nil {
		return zone.Catalog{}, fmt.Errorf("%w: %w", ErrMalformedCatalog, err)
	}
	return cat, nil
}
