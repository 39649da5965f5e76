package budget

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/confshare/confshare-go/crypt"
	"github.com/confshare/confshare-go/registry"
	"github.com/confshare/confshare-go/tool"
	"github.com/confshare/confshare-go/types"
)

const (
	// DefaultMaxLinkLength is the practical browser URL-bar ceiling.
	DefaultMaxLinkLength = 2000
	// DefaultWarningFraction of the ceiling flips the budget state to warning.
	DefaultWarningFraction = 0.75
)

// jsonStringFieldSyntax is the structural cost of one string field in a JSON
// object: two quoted names, a colon, value quotes and a separating comma,
// i.e. `"":"",`.
const jsonStringFieldSyntax = 6

// JSONFieldOverhead returns the structural JSON cost of embedding a string
// value under key. Estimators add this to the value length so the budget is
// auditable instead of hiding the cost in a fudge constant.
func JSONFieldOverhead(key string) int {
	return len(key) + jsonStringFieldSyntax
}

// JSONKeyOverhead returns the structural cost of embedding an already
// serialized JSON value under key: quoted name, colon and separating comma,
// i.e. `"":,`.
func JSONKeyOverhead(key string) int {
	return len(key) + 4
}

// InflateBase64 applies the exact 4/3 base64 expansion, rounding up.
func InflateBase64(rawBytes int) int {
	if rawBytes <= 0 {
		return 0
	}
	return (rawBytes*4 + 2) / 3
}

// Config parameterizes an Engine. Origin and Path describe the deployment the
// link points at; the base overhead is derived from them, not hard-coded.
type Config struct {
	Origin          string
	Path            string
	MaxLinkLength   int
	WarningFraction float64
}

// Engine computes link length estimates from the registry and a selection.
// It is a pure function of its inputs and holds no mutable state.
type Engine struct {
	reg             *registry.Registry
	baseOverhead    int
	maxLinkLength   int
	warningFraction float64
	logger          *log.Logger
}

// NewEngine creates an engine. Zero config fields fall back to defaults.
func NewEngine(reg *registry.Registry, cfg Config) *Engine {
	if cfg.MaxLinkLength <= 0 {
		cfg.MaxLinkLength = DefaultMaxLinkLength
	}
	if cfg.WarningFraction <= 0 || cfg.WarningFraction >= 1 {
		cfg.WarningFraction = DefaultWarningFraction
	}
	return &Engine{
		reg:             reg,
		baseOverhead:    len(cfg.Origin) + len(cfg.Path) + len(crypt.FragmentMarker),
		maxLinkLength:   cfg.MaxLinkLength,
		warningFraction: cfg.WarningFraction,
		logger:          tool.DefaultLogger,
	}
}

// BaseOverhead returns the fixed origin + path + fragment marker cost.
func (e *Engine) BaseOverhead() int {
	return e.baseOverhead
}

// MaxLinkLength returns the configured ceiling.
func (e *Engine) MaxLinkLength() int {
	return e.maxLinkLength
}

// Estimate fans out the estimators of every selected item concurrently and
// folds their results into a BudgetResult.
//
// Danger means strictly over the ceiling; an estimate exactly at MaxLinkLength
// still fits and classifies by the warning band, not as danger.
//
// A failing estimator contributes 0 bytes: the user still gets a usable, if
// slightly optimistic, estimate. Failures never contribute negative bytes, so
// adding an item to a selection can never shrink the estimate.
func (e *Engine) Estimate(ctx context.Context, selection types.SelectionState, req registry.Request) types.BudgetResult {
	descriptors := e.reg.All()
	sizes := make([]int, len(descriptors))

	var wg sync.WaitGroup
	for i, d := range descriptors {
		if !selection[d.ID] {
			continue
		}
		wg.Add(1)
		go func(i int, d *registry.Descriptor) {
			defer wg.Done()
			n, err := e.estimateOne(ctx, d, req)
			if err != nil {
				e.logger.Warnf("estimator for share item %q failed, counting 0 bytes: %v", d.ID, err)
				return
			}
			if n < 0 {
				e.logger.Warnf("estimator for share item %q returned %d, counting 0 bytes", d.ID, n)
				return
			}
			sizes[i] = n
		}(i, d)
	}
	wg.Wait()

	sum := 0
	for _, n := range sizes {
		sum += n
	}
	rawBytes := sum + e.baseOverhead
	estimated := InflateBase64(rawBytes) + crypt.EnvelopeOverhead

	percent := int(math.Round(float64(estimated) / float64(e.maxLinkLength) * 100))
	if percent > 100 {
		percent = 100
	}

	state := types.BudgetOK
	switch {
	case estimated > e.maxLinkLength:
		state = types.BudgetDanger
	case float64(estimated) > float64(e.maxLinkLength)*e.warningFraction:
		state = types.BudgetWarning
	}

	return types.BudgetResult{
		EstimatedBytes: estimated,
		PercentOfMax:   percent,
		State:          state,
	}
}

// estimateOne guards a single estimator call; a panic counts as a failure.
func (e *Engine) estimateOne(ctx context.Context, d *registry.Descriptor, req registry.Request) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("estimator panicked: %v", r)
		}
	}()
	return d.EstimateSize(ctx, req)
}
