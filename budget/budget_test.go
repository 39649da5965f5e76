package budget

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/confshare/confshare-go/crypt"
	"github.com/confshare/confshare-go/registry"
	"github.com/confshare/confshare-go/types"
)

const (
	testOrigin = "https://chat.example.com"
	testPath   = "/"
)

func fixedItem(id string, size int) *registry.Descriptor {
	return &registry.Descriptor{
		ID:    id,
		Label: id,
		EstimateSize: func(ctx context.Context, req registry.Request) (int, error) {
			return size, nil
		},
		CollectData: func(ctx context.Context, req registry.Request) (any, bool, error) {
			return nil, false, nil
		},
	}
}

func failingItem(id string) *registry.Descriptor {
	d := fixedItem(id, 0)
	d.EstimateSize = func(ctx context.Context, req registry.Request) (int, error) {
		return 0, fmt.Errorf("estimator blew up")
	}
	return d
}

func panickingItem(id string) *registry.Descriptor {
	d := fixedItem(id, 0)
	d.EstimateSize = func(ctx context.Context, req registry.Request) (int, error) {
		panic("estimator panicked")
	}
	return d
}

func mustRegister(t *testing.T, r *registry.Registry, ds ...*registry.Descriptor) {
	t.Helper()
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			t.Fatalf("failed to register %s: %v", d.ID, err)
		}
	}
}

// expected mirrors the engine's documented math: base overhead folded into
// the raw bytes, exact 4/3 inflation, envelope framing on top.
func expected(sumOfItems int) int {
	base := len(testOrigin) + len(testPath) + len(crypt.FragmentMarker)
	return InflateBase64(sumOfItems+base) + crypt.EnvelopeOverhead
}

func newEngine(r *registry.Registry, maxLinkLength int) *Engine {
	return NewEngine(r, Config{
		Origin:        testOrigin,
		Path:          testPath,
		MaxLinkLength: maxLinkLength,
	})
}

func TestEmptySelectionIsExactlyBaseline(t *testing.T) {
	r := registry.New()
	mustRegister(t, r, fixedItem("apiKey", 46), fixedItem("model", 20))
	e := newEngine(r, 2000)

	got := e.Estimate(context.Background(), types.SelectionState{}, registry.Request{})
	if got.EstimatedBytes != expected(0) {
		t.Errorf("empty selection: expected %d, got %d", expected(0), got.EstimatedBytes)
	}
	if got.State != types.BudgetOK {
		t.Errorf("empty selection: expected ok, got %s", got.State)
	}
}

func TestSingleAPIKeyDelta(t *testing.T) {
	keyLen := 40
	itemSize := keyLen + JSONFieldOverhead("apiKey")

	r := registry.New()
	mustRegister(t, r, fixedItem("apiKey", itemSize))
	e := newEngine(r, 2000)

	baseline := e.Estimate(context.Background(), types.SelectionState{}, registry.Request{})
	withKey := e.Estimate(context.Background(), types.SelectionState{"apiKey": true}, registry.Request{})

	if withKey.EstimatedBytes != expected(itemSize) {
		t.Errorf("expected %d, got %d", expected(itemSize), withKey.EstimatedBytes)
	}
	delta := withKey.EstimatedBytes - baseline.EstimatedBytes
	// The 40 raw key bytes inflate by exactly 4/3; the documented field
	// overhead inflates with them.
	wantDelta := expected(itemSize) - expected(0)
	if delta != wantDelta {
		t.Errorf("expected delta %d, got %d", wantDelta, delta)
	}
}

func TestThresholdBoundary(t *testing.T) {
	r := registry.New()
	mustRegister(t, r, fixedItem("systemPrompt", 300))
	sel := types.SelectionState{"systemPrompt": true}
	est := expected(300)

	// estimatedBytes == max -> ok (full is still within budget)
	e := newEngine(r, est)
	got := e.Estimate(context.Background(), sel, registry.Request{})
	if got.State == types.BudgetDanger {
		t.Errorf("estimate equal to max must not be danger, got %s at %d/%d", got.State, got.EstimatedBytes, est)
	}
	if got.PercentOfMax != 100 {
		t.Errorf("expected 100%%, got %d%%", got.PercentOfMax)
	}

	// estimatedBytes == max+1 -> danger
	e = newEngine(r, est-1)
	got = e.Estimate(context.Background(), sel, registry.Request{})
	if got.State != types.BudgetDanger {
		t.Errorf("estimate one over max must be danger, got %s", got.State)
	}
	if got.PercentOfMax != 100 {
		t.Errorf("percent is capped at 100, got %d", got.PercentOfMax)
	}
}

func TestWarningState(t *testing.T) {
	r := registry.New()
	mustRegister(t, r, fixedItem("conversation", 1000))
	est := expected(1000)

	// Pick a ceiling so the estimate sits between 75% and 100% of it.
	e := newEngine(r, est+est/10)
	got := e.Estimate(context.Background(), types.SelectionState{"conversation": true}, registry.Request{})
	if got.State != types.BudgetWarning {
		t.Errorf("expected warning, got %s (%d of max %d)", got.State, got.EstimatedBytes, est+est/10)
	}
}

func TestEstimatorFailureContributesZero(t *testing.T) {
	r := registry.New()
	mustRegister(t, r, fixedItem("model", 25), failingItem("functions"), panickingItem("prompts"))
	e := newEngine(r, 2000)

	withFailures := e.Estimate(context.Background(), types.SelectionState{
		"model": true, "functions": true, "prompts": true,
	}, registry.Request{})
	withoutFailures := e.Estimate(context.Background(), types.SelectionState{
		"model": true,
	}, registry.Request{})

	if withFailures.EstimatedBytes != withoutFailures.EstimatedBytes {
		t.Errorf("failed estimators must contribute exactly 0: %d != %d",
			withFailures.EstimatedBytes, withoutFailures.EstimatedBytes)
	}
}

func TestNegativeEstimateContributesZero(t *testing.T) {
	r := registry.New()
	bogus := fixedItem("bogus", -50)
	mustRegister(t, r, bogus)
	e := newEngine(r, 2000)

	got := e.Estimate(context.Background(), types.SelectionState{"bogus": true}, registry.Request{})
	if got.EstimatedBytes != expected(0) {
		t.Errorf("negative estimate must count as 0: expected %d, got %d", expected(0), got.EstimatedBytes)
	}
}

func TestToggleOffRestoresEstimateExactly(t *testing.T) {
	r := registry.New()
	mustRegister(t, r, fixedItem("model", 20), fixedItem("conversation", 800))
	e := newEngine(r, 2000)

	sel := types.SelectionState{"model": true}
	before := e.Estimate(context.Background(), sel, registry.Request{})

	sel["conversation"] = true
	_ = e.Estimate(context.Background(), sel, registry.Request{})

	sel["conversation"] = false
	after := e.Estimate(context.Background(), sel, registry.Request{})

	if before.EstimatedBytes != after.EstimatedBytes {
		t.Errorf("toggling off must restore the estimate exactly: %d != %d",
			before.EstimatedBytes, after.EstimatedBytes)
	}
}

func TestInflateBase64(t *testing.T) {
	cases := []struct{ raw, want int }{
		{0, 0}, {1, 2}, {2, 3}, {3, 4}, {4, 6}, {6, 8}, {30, 40}, {40, 54},
	}
	for _, c := range cases {
		if got := InflateBase64(c.raw); got != c.want {
			t.Errorf("InflateBase64(%d): expected %d, got %d", c.raw, c.want, got)
		}
	}
}

func TestMonotonicityProperty(t *testing.T) {
	const itemCount = 8

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("adding an item never shrinks the estimate", prop.ForAll(
		func(sizes []int, included []bool, extra int, extraFails bool) bool {
			r := registry.New()
			sel := types.SelectionState{}
			for i := 0; i < itemCount; i++ {
				id := fmt.Sprintf("item%d", i)
				size := 0
				if i < len(sizes) {
					size = sizes[i]
				}
				if err := r.Register(fixedItem(id, size)); err != nil {
					return false
				}
				sel[id] = i < len(included) && included[i]
			}
			x := fmt.Sprintf("item%d", extra%itemCount)
			if sel[x] {
				return true // x must not already be in S
			}
			if extraFails {
				// Swap x for a failing estimator; failure contributes 0,
				// which still satisfies monotonicity.
				r = registry.New()
				for i := 0; i < itemCount; i++ {
					id := fmt.Sprintf("item%d", i)
					size := 0
					if i < len(sizes) {
						size = sizes[i]
					}
					d := fixedItem(id, size)
					if id == x {
						d = failingItem(id)
					}
					if err := r.Register(d); err != nil {
						return false
					}
				}
			}
			e := newEngine(r, 2000)

			without := e.Estimate(context.Background(), sel, registry.Request{})
			withSel := sel.Clone()
			withSel[x] = true
			with := e.Estimate(context.Background(), withSel, registry.Request{})
			return with.EstimatedBytes >= without.EstimatedBytes
		},
		gen.SliceOfN(itemCount, gen.IntRange(0, 500)),
		gen.SliceOfN(itemCount, gen.Bool()),
		gen.IntRange(0, itemCount-1),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
