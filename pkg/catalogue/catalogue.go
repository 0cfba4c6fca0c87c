package catalogue

import (
	"errors"
	"fmt"
	"sort"

	"github.com/quotawatch/quotawatch/pkg/model"
)

// ErrMissingQuota indicates a sample referenced a resource or dimension that
// is not part of the tracked catalogue.
var ErrMissingQuota = errors.New("resource/dimension not in catalogue")

// CostResource and CostDimension name the synthetic account-level dimension
// used when estimated-cost alerting is enabled. Billed cost runs through the
// same evaluation engine as free-tier usage.
const (
	CostResource  = "account"
	CostDimension = "estimated-cost"
)

// Catalogue is the static table of tracked resources and their quota
// dimensions. It is built once at process start and never mutated afterwards.
type Catalogue struct {
	resources []model.TrackedResource
	index     map[string]model.QuotaDimension
}

// Key builds the lookup key for a (resource, dimension) pair.
func Key(resource, dimension string) string {
	return resource + "/" + dimension
}

// New builds a catalogue from the given resources.
func New(resources []model.TrackedResource) *Catalogue {
	c := &Catalogue{
		resources: resources,
		index:     make(map[string]model.QuotaDimension),
	}
	for _, res := range resources {
		for _, dim := range res.Dimensions {
			c.index[Key(res.ID, dim.ID)] = dim
		}
	}
	return c
}

// Dimension looks up the quota dimension for a (resource, dimension) pair.
func (c *Catalogue) Dimension(resource, dimension string) (model.QuotaDimension, error) {
	dim, ok := c.index[Key(resource, dimension)]
	if !ok {
		return model.QuotaDimension{}, fmt.Errorf("%w: %s/%s", ErrMissingQuota, resource, dimension)
	}
	return dim, nil
}

// Resources returns the tracked resources ordered by ID.
func (c *Catalogue) Resources() []model.TrackedResource {
	out := make([]model.TrackedResource, len(c.resources))
	copy(out, c.resources)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of tracked (resource, dimension) pairs.
func (c *Catalogue) Len() int {
	return len(c.index)
}

// Override adjusts the limit of a single dimension.
type Override struct {
	Resource  string  `mapstructure:"resource" yaml:"resource" validate:"required"`
	Dimension string  `mapstructure:"dimension" yaml:"dimension" validate:"required"`
	Limit     float64 `mapstructure:"limit" yaml:"limit" validate:"gt=0"`
	Unit      string  `mapstructure:"unit" yaml:"unit"`
}

// WithOverrides returns a new catalogue with the given per-dimension limit
// overrides applied. Overrides for unknown pairs are rejected so that a typo
// in configuration surfaces at startup instead of silently tracking nothing.
func (c *Catalogue) WithOverrides(overrides []Override) (*Catalogue, error) {
	resources := cloneResources(c.resources)
	for _, ov := range overrides {
		applied := false
		for ri := range resources {
			if resources[ri].ID != ov.Resource {
				continue
			}
			for di := range resources[ri].Dimensions {
				if resources[ri].Dimensions[di].ID != ov.Dimension {
					continue
				}
				resources[ri].Dimensions[di].Limit = ov.Limit
				if ov.Unit != "" {
					resources[ri].Dimensions[di].Unit = ov.Unit
				}
				applied = true
			}
		}
		if !applied {
			return nil, fmt.Errorf("quota override: %w: %s/%s", ErrMissingQuota, ov.Resource, ov.Dimension)
		}
	}
	return New(resources), nil
}

// WithCostAlert returns a new catalogue that additionally tracks an
// account-level estimated-cost dimension with the given monthly USD limit.
func (c *Catalogue) WithCostAlert(limitUSD float64) *Catalogue {
	resources := cloneResources(c.resources)
	resources = append(resources, model.TrackedResource{
		ID:          CostResource,
		DisplayName: "Account",
		Dimensions: []model.QuotaDimension{
			{
				ID:          CostDimension,
				Limit:       limitUSD,
				Unit:        "USD",
				Category:    model.CategoryCost,
				Description: "Estimated billed cost for the current month",
			},
		},
	})
	return New(resources)
}

func cloneResources(in []model.TrackedResource) []model.TrackedResource {
	out := make([]model.TrackedResource, len(in))
	for i, res := range in {
		out[i] = res
		out[i].Dimensions = make([]model.QuotaDimension, len(res.Dimensions))
		copy(out[i].Dimensions, res.Dimensions)
	}
	return out
}
