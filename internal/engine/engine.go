// Package engine orchestrates a ChartSpec from request to ChartResult:
// resolve tenant table, check cache, compile SQL, execute against the
// warehouse, normalise the frame, validate the result, and populate the
// cache. Ported from engine.py's AnalyticsEngine.execute.
package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/sitescope-io/cctv-analytics/internal/cache"
	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
	"github.com/sitescope-io/cctv-analytics/internal/compiler"
	"github.com/sitescope-io/cctv-analytics/internal/hashing"
	"github.com/sitescope-io/cctv-analytics/internal/normalize"
	"github.com/sitescope-io/cctv-analytics/internal/tenant"
	"github.com/sitescope-io/cctv-analytics/internal/validate"
	"github.com/sitescope-io/cctv-analytics/internal/warehouse"
)

// Options controls a single Execute call, mirroring engine.py's
// bypass_cache / cache_ttl keyword arguments.
type Options struct {
	BypassCache bool
	CacheTTL    time.Duration
}

// Engine wires the tenant router, compiler, warehouse, and cache together.
// Constructed once at startup; every field is safe for concurrent use.
type Engine struct {
	router     *tenant.Router
	compiler   *compiler.Compiler
	warehouse  warehouse.Warehouse
	cache      *cache.SpecCache
	normaliser *normalize.Normaliser
	log        zerolog.Logger
}

// New builds an Engine from its collaborators.
func New(router *tenant.Router, wh warehouse.Warehouse, specCache *cache.SpecCache, log zerolog.Logger) *Engine {
	return &Engine{
		router:     router,
		compiler:   compiler.New(),
		warehouse:  wh,
		cache:      specCache,
		normaliser: normalize.New(),
		log:        log,
	}
}

// Execute runs spec for organisation org, consulting and populating the
// cache unless opts.BypassCache is set.
func (e *Engine) Execute(ctx context.Context, spec chartspec.ChartSpec, org string, opts Options) (chartspec.ChartResult, error) {
	tableName, err := e.router.Resolve(org)
	if err != nil {
		return chartspec.ChartResult{}, err
	}

	cacheKey, err := hashing.CacheKey(spec, tableName)
	if err != nil {
		return chartspec.ChartResult{}, err
	}

	if !opts.BypassCache {
		if cached, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok {
			var result chartspec.ChartResult
			if err := json.Unmarshal(cached, &result); err == nil {
				return result, nil
			}
			e.log.Warn().Str("cacheKey", cacheKey).Msg("discarding unparsable cache entry")
		}
	}

	compiled, err := e.compiler.Compile(spec, chartspec.CompilerContext{TableName: tableName, Timezone: spec.TimeWindow.Timezone})
	if err != nil {
		return chartspec.ChartResult{}, err
	}

	frame, err := e.warehouse.Execute(ctx, compiled.SQL, compiled.Params)
	if err != nil {
		e.log.Error().
			Err(err).
			Str("specId", spec.ID).
			Str("organisation", org).
			Str("table", tableName).
			Msg("warehouse execution failed")
		return chartspec.ChartResult{}, err
	}

	result, err := e.normalise(spec, compiled, frame)
	if err != nil {
		return chartspec.ChartResult{}, err
	}

	if err := validate.Result(result); err != nil {
		return chartspec.ChartResult{}, err
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return chartspec.ChartResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return chartspec.ChartResult{}, err
	}
	if err := e.cache.Set(ctx, cacheKey, encoded, opts.CacheTTL); err != nil {
		e.log.Warn().Err(err).Str("cacheKey", cacheKey).Msg("failed to populate cache")
	}

	return result, nil
}

func (e *Engine) normalise(spec chartspec.ChartSpec, compiled chartspec.CompiledQuery, frame chartspec.Frame) (chartspec.ChartResult, error) {
	if spec.ChartType.IsRetentionShaped() {
		return e.normaliser.Heatmap(spec, compiled, frame)
	}
	if spec.ChartType == chartspec.ChartComposedTime || spec.ChartType == chartspec.ChartCategorical || spec.ChartType == chartspec.ChartSingleValue {
		return e.normaliser.TimeSeries(spec, compiled, frame)
	}
	return chartspec.ChartResult{}, &chartspec.UnsupportedChartError{ChartType: spec.ChartType}
}
