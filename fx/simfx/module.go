// Package simfx provides an fx module wiring a simulator from config.
//
// Policies are resolved through the registry, so the application must
// import the policy packages it wants available:
//
//	import _ "github.com/cachelab/cachesim/policy/lru"
package simfx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/cachelab/cachesim"
	"github.com/cachelab/cachesim/internal/stats"
	"github.com/cachelab/cachesim/internal/stats/logger"
	"github.com/cachelab/cachesim/policy"
)

// Config holds configuration for the simulator.
type Config struct {
	// Policy is a registered policy name.
	Policy string

	// Capacity is the cache capacity in size units.
	Capacity int64
}

// Module provides a simulator built from Config.
// Requires a *zap.Logger and a Config to be provided.
var Module = fx.Module("cachesim",
	fx.Provide(
		newStatsCollector,
		newSimulator,
	),
)

func newStatsCollector(log *zap.Logger) stats.Collector {
	return logger.New(log.Named("cachesim.stats"))
}

// Params holds dependencies for creating the simulator.
type Params struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Collector stats.Collector
	Lifecycle fx.Lifecycle
}

// Result holds the provided simulator and its policy.
type Result struct {
	fx.Out

	Simulator *cachesim.Simulator
	Policy    cachesim.Policy
}

func newSimulator(p Params) (Result, error) {
	pol, err := policy.New(p.Config.Policy)
	if err != nil {
		return Result{}, err
	}

	sim, err := cachesim.New(
		cachesim.WithPolicy(pol),
		cachesim.WithCapacity(p.Config.Capacity),
		cachesim.WithStats(p.Collector),
		cachesim.WithLogger(p.Logger.Named("cachesim")),
	)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if closer, ok := pol.(interface{ Close() }); ok {
				closer.Close()
			}
			return nil
		},
	})

	return Result{Simulator: sim, Policy: pol}, nil
}
