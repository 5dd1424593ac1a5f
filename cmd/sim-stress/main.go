package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/plus3/skirmish/collision"
	"github.com/plus3/skirmish/sim"
)

const (
	typeDrone    sim.EntityType = "drone"
	typeObstacle sim.EntityType = "obstacle"
)

func main() {
	configPath := flag.String("config", "", "Path to a TOML config file; defaults apply when empty.")
	duration := flag.Duration("duration", 0, "Override the configured run duration.")
	entityCount := flag.Int("entities", 0, "Override the configured initial entity count.")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *duration > 0 {
		cfg.Sim.Duration = *duration
	}
	if *entityCount > 0 {
		cfg.Sim.Entities = *entityCount
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting simulation stress test",
		zap.Duration("duration", cfg.Sim.Duration),
		zap.Int("entities", cfg.Sim.Entities))

	// Pools, world, grid and workers are explicit per-instance objects;
	// nothing here is a package global.
	pools := sim.NewPoolManager(log)
	registerPools(pools, cfg.Pools)

	world := sim.NewWorld(pools, log)
	world.RegisterComponent(sim.TransformName, sim.NewTransform)
	world.RegisterComponent(sim.BodyName, sim.NewBody)
	world.RegisterComponent(sim.ColliderName, sim.NewCollider)
	grid := sim.NewSpatialGrid(cfg.Grid.CellSize)
	grid.UpdateMaxCell(cfg.Grid.ViewportW, cfg.Grid.ViewportH)
	grid.RegisterQueryType(typeDrone)

	workers := collision.NewWorkers(cfg.Collision.Workers, cfg.Collision.Queue)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	workers.Start(ctx)

	collisionSys := sim.NewCollisionSystem(grid, workers, log)
	world.AddSystem(sim.NewMovementSystem())
	world.AddSystem(sim.NewSpatialIndexSystem(grid, 200))
	world.AddSystem(collisionSys)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < cfg.Sim.Entities; i++ {
		spawn(world, rng, cfg.Grid.ViewportW, cfg.Grid.ViewportH)
	}

	report := &Report{
		Duration: cfg.Sim.Duration,
		Entities: cfg.Sim.Entities,
		Workers:  cfg.Collision.Workers,
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	run(world, collisionSys, rng, cfg, report)

	cancel()
	workers.Wait()

	report.SystemStats = world.Stats()
	report.PoolStats = pools.Stats()
	report.LogicTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)

	log.Info("simulation finished",
		zap.Int64("logic_ticks", report.LogicTicks),
		zap.Int64("contacts", report.TotalContacts))

	if err := report.Generate(os.Stdout); err != nil {
		log.Fatal("report generation failed", zap.Error(err))
	}
}

// run drives the frame loop: render ticks at the configured rate, logic
// ticks at a fixed timestep drained from an accumulator.
func run(world *sim.World, collisionSys *sim.CollisionSystem, rng *rand.Rand, cfg Config, report *Report) {
	logicDt := cfg.Sim.LogicTick.Seconds()
	deadline := time.Now().Add(cfg.Sim.Duration)

	ticker := time.NewTicker(cfg.Sim.RenderTick)
	defer ticker.Stop()

	last := time.Now()
	var acc float64

	report.TotalTime = 0
	start := time.Now()

	for now := range ticker.C {
		if now.After(deadline) {
			break
		}

		frameDt := now.Sub(last).Seconds()
		last = now
		acc += frameDt

		for acc >= logicDt {
			acc -= logicDt

			tickStart := time.Now()
			world.UpdateLogic(logicDt)
			report.LogicTime.Samples = append(report.LogicTime.Samples, time.Since(tickStart))
			report.LogicTicks++

			report.TotalContacts += int64(len(collisionSys.DrainContacts()))
			churn(world, rng, cfg)
		}

		world.UpdateRender(frameDt)
		report.RenderTicks++
	}

	report.TotalTime = time.Since(start)
	report.DroppedTasks = int64(collisionSys.DroppedTasks())
}

// churn removes and respawns a batch of drones each tick to keep the
// pools cycling the way a real game does.
func churn(world *sim.World, rng *rand.Rand, cfg Config) {
	drones := world.EntitiesByType(typeDrone)
	n := cfg.Sim.ChurnPerTick
	if n > len(drones) {
		n = len(drones)
	}
	for i := 0; i < n; i++ {
		world.RemoveEntity(drones[rng.Intn(len(drones))])
	}
	for i := 0; i < n; i++ {
		spawn(world, rng, cfg.Grid.ViewportW, cfg.Grid.ViewportH)
	}
}

func spawn(world *sim.World, rng *rand.Rand, w, h float64) {
	etype := typeDrone
	shape := collision.ShapeCircle
	if rng.Float64() < 0.1 {
		etype = typeObstacle
		shape = collision.ShapeRect
	}

	e := world.CreateEntity(etype)
	e.Attach(world.CreateComponent(sim.TransformName, sim.TransformProps{
		X: rng.Float64() * w,
		Y: rng.Float64() * h,
	}))
	e.Attach(world.CreateComponent(sim.BodyName, sim.BodyProps{
		VX: rng.Float64()*40 - 20,
		VY: rng.Float64()*40 - 20,
		W:  8 + rng.Float64()*8,
		H:  8 + rng.Float64()*8,
	}))
	e.Attach(world.CreateComponent(sim.ColliderName, sim.ColliderProps{
		Shape: shape,
	}))
	world.AddEntity(e)
}

func registerPools(pools *sim.PoolManager, cfg PoolConfig) {
	entityFactory := func(etype sim.EntityType) sim.Factory {
		return func() sim.Poolable { return sim.NewEntity(etype) }
	}
	pools.CreateEntityPool(string(typeDrone), entityFactory(typeDrone), cfg.EntityInitial, cfg.EntityMax, cfg.Grow)
	pools.CreateEntityPool(string(typeObstacle), entityFactory(typeObstacle), cfg.EntityInitial/10, cfg.EntityMax, cfg.Grow)

	pools.CreateComponentPool(sim.TransformName, func() sim.Poolable { return sim.NewTransform() }, cfg.ComponentInitial, cfg.ComponentMax, cfg.Grow)
	pools.CreateComponentPool(sim.BodyName, func() sim.Poolable { return sim.NewBody() }, cfg.ComponentInitial, cfg.ComponentMax, cfg.Grow)
	pools.CreateComponentPool(sim.ColliderName, func() sim.Poolable { return sim.NewCollider() }, cfg.ComponentInitial, cfg.ComponentMax, cfg.Grow)
}

func newLogger(cfg LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
