package backendstore

import (
	"context"
	"errors"
	"testing"

	"github.com/agar-cache/agar/pkg/types"
)

type fakeRegionStore struct {
	healthErr error
	closed    bool
}

func (f *fakeRegionStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return []byte(key), true, nil
}
func (f *fakeRegionStore) HealthCheck(ctx context.Context) error { return f.healthErr }
func (f *fakeRegionStore) Close() error                          { f.closed = true; return nil }

func TestMultiRegionRoutesByModulo(t *testing.T) {
	r0, r1, r2 := &fakeRegionStore{}, &fakeRegionStore{}, &fakeRegionStore{}
	m := NewMulti([]types.BackendStore{r0, r1, r2})

	if m.R() != 3 {
		t.Fatalf("expected R=3, got %d", m.R())
	}

	cases := map[int]*fakeRegionStore{0: r0, 1: r1, 2: r2, 3: r0, 4: r1, 5: r2}
	for i, want := range cases {
		got := m.Region(i)
		if got != want {
			t.Errorf("Region(%d): routing mismatch", i)
		}
	}
}

func TestMultiHealthCheckPropagatesFirstError(t *testing.T) {
	boom := errors.New("unreachable")
	r0 := &fakeRegionStore{}
	r1 := &fakeRegionStore{healthErr: boom}
	m := NewMulti([]types.BackendStore{r0, r1})

	if err := m.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected HealthCheck to surface the unhealthy region")
	}
}

func TestMultiCloseClosesAllRegions(t *testing.T) {
	r0, r1 := &fakeRegionStore{}, &fakeRegionStore{}
	m := NewMulti([]types.BackendStore{r0, r1})

	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !r0.closed || !r1.closed {
		t.Fatal("expected all regions to be closed")
	}
}
