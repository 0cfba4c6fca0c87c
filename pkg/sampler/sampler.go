package sampler

import (
	"context"

	"github.com/quotawatch/quotawatch/pkg/model"
)

// Sampler supplies the raw usage samples for one evaluation pass. Fetch must
// honor the caller's context deadline; a timed-out fetch aborts the whole
// pass.
type Sampler interface {
	Fetch(ctx context.Context) ([]model.UsageSample, error)
}

// Static is a fixed set of samples, used in tests and dry runs.
type Static []model.UsageSample

func (s Static) Fetch(_ context.Context) ([]model.UsageSample, error) {
	out := make([]model.UsageSample, len(s))
	copy(out, s)
	return out, nil
}
