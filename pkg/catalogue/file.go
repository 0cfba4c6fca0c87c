package catalogue

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quotawatch/quotawatch/pkg/model"
)

type catalogueFile struct {
	Resources []model.TrackedResource `yaml:"resources"`
}

// LoadFile reads a full catalogue definition from a YAML file. The file
// replaces the built-in defaults entirely; use config quota overrides to
// adjust individual limits instead.
func LoadFile(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue file %s: %w", path, err)
	}

	var f catalogueFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalogue file %s: %w", path, err)
	}
	if len(f.Resources) == 0 {
		return nil, fmt.Errorf("catalogue file %s: no resources defined", path)
	}

	for _, res := range f.Resources {
		if res.ID == "" {
			return nil, fmt.Errorf("catalogue file %s: resource with empty id", path)
		}
		if len(res.Dimensions) == 0 {
			return nil, fmt.Errorf("catalogue file %s: resource %s has no dimensions", path, res.ID)
		}
		for _, dim := range res.Dimensions {
			if dim.ID == "" || dim.Limit <= 0 {
				return nil, fmt.Errorf("catalogue file %s: resource %s has an invalid dimension", path, res.ID)
			}
		}
	}

	return New(f.Resources), nil
}
