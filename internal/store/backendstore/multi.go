package backendstore

import (
	"context"
	"strconv"

	"github.com/agar-cache/agar/pkg/errors"
	"github.com/agar-cache/agar/pkg/types"
)

// Multi fans a set of per-region backend stores out as indexable slots, so the
// read engine can route block i to region i mod R (§4.3).
type Multi struct {
	regions []types.BackendStore
}

// NewMulti wraps an ordered list of per-region stores. Region 0 corresponds to
// s3.regions[0], and so on, matching the block-to-region mapping i mod R.
func NewMulti(regions []types.BackendStore) *Multi {
	return &Multi{regions: regions}
}

// Region returns the backend store for region index i mod R.
func (m *Multi) Region(i int) types.BackendStore {
	if len(m.regions) == 0 {
		return nil
	}
	return m.regions[i%len(m.regions)]
}

// R reports the number of configured backend regions.
func (m *Multi) R() int { return len(m.regions) }

// HealthCheck reports the first unhealthy region, if any.
func (m *Multi) HealthCheck(ctx context.Context) error {
	for idx, r := range m.regions {
		if err := r.HealthCheck(ctx); err != nil {
			return errors.NewError(errors.ErrCodeTransientStore, "region unhealthy").
				WithComponent("backendstore").WithContext("region_index", strconv.Itoa(idx)).WithCause(err)
		}
	}
	return nil
}

// Close closes every region's store.
func (m *Multi) Close() error {
	var first error
	for _, r := range m.regions {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
