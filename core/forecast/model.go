// Package forecast implements the occupancy forecasting models, the batch
// generator that populates the forecast grid, and point interpolation over
// stored forecast rows.
package forecast

import (
	"context"
	"time"

	"github.com/parkcast/parkcast/core/model"
	"github.com/parkcast/parkcast/core/registry"
)

// Model defaults applied when a trigger omits them.
const (
	DefaultModel       = ModelMeanLast3Weeks
	DefaultVersion     = "v1"
	DefaultIntervalMin = 30
)

// Model names resolvable through the registry.
const (
	ModelLastWeekSameTime = "last_week_same_time"
	ModelMeanLast3Weeks   = "mean_last_3_weeks"
)

// SampleReader is the narrow read contract models use to load history.
type SampleReader interface {
	QuerySamples(ctx context.Context, lotID string, fromUTC, toUTC time.Time) ([]model.OccupancySample, error)
}

// PassContext is a model's opaque per-lot/day prepare result. Models own
// their context shape; nothing is shared between passes.
type PassContext any

// Model turns historical occupancy samples into per-slot predictions.
// Prepare performs the (single) historical read for one lot/day; Predict is
// then called once per slot. Predict reports ok=false when the model has no
// forecast for the slot, which drops the slot from the output.
type Model interface {
	Name() string
	Version() string
	Prepare(ctx context.Context, lot model.Lot, zone *time.Location, interval time.Duration, dayStart time.Time) (PassContext, error)
	Predict(tsLocal time.Time, interval time.Duration, pass PassContext) (float64, bool)
}

// ModelRegistry resolves forecast models by name.
type ModelRegistry = registry.Registry[Model]

type modelConf struct {
	Version string `json:"version"`
}

// NewModelRegistry returns a registry with the built-in models registered.
// All models read history through the provided reader.
func NewModelRegistry(samples SampleReader) *registry.Registry[Model] {
	reg := registry.New[Model]()
	mustRegister(reg, ModelLastWeekSameTime, func(conf map[string]any) (Model, error) {
		var c modelConf
		if err := registry.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewLastWeekSameTime(samples, c.Version)
	})
	mustRegister(reg, ModelMeanLast3Weeks, func(conf map[string]any) (Model, error) {
		var c modelConf
		if err := registry.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewMeanLast3Weeks(samples, c.Version)
	})
	return reg
}

// ResolveModel creates the named model at the given version.
func ResolveModel(reg *registry.Registry[Model], name, version string) (Model, error) {
	if name == "" {
		name = DefaultModel
	}
	if version == "" {
		version = DefaultVersion
	}
	return reg.Create(name, map[string]any{"version": version})
}

func mustRegister(reg *registry.Registry[Model], name string, f registry.Factory[Model]) {
	if err := reg.Register(name, f); err != nil {
		panic(err)
	}
}
