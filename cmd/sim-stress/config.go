package main

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Sim       SimConfig       `toml:"sim"`
	Pools     PoolConfig      `toml:"pools"`
	Grid      GridConfig      `toml:"grid"`
	Collision CollisionConfig `toml:"collision"`
	Logging   LoggingConfig   `toml:"logging"`
}

type SimConfig struct {
	Duration   time.Duration `toml:"duration"`
	LogicTick  time.Duration `toml:"logic_tick"`
	RenderTick time.Duration `toml:"render_tick"`
	Entities   int           `toml:"entities"`
	// ChurnPerTick entities are removed and respawned each logic tick to
	// exercise the pools under load.
	ChurnPerTick int `toml:"churn_per_tick"`
}

type PoolConfig struct {
	EntityInitial    int  `toml:"entity_initial"`
	EntityMax        int  `toml:"entity_max"`
	ComponentInitial int  `toml:"component_initial"`
	ComponentMax     int  `toml:"component_max"`
	Grow             bool `toml:"grow"`
}

type GridConfig struct {
	CellSize  float64 `toml:"cell_size"`
	ViewportW float64 `toml:"viewport_w"`
	ViewportH float64 `toml:"viewport_h"`
}

type CollisionConfig struct {
	Workers int `toml:"workers"`
	Queue   int `toml:"queue"`
}

type LoggingConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

func defaultConfig() Config {
	return Config{
		Sim: SimConfig{
			Duration:     10 * time.Second,
			LogicTick:    16 * time.Millisecond,
			RenderTick:   8 * time.Millisecond,
			Entities:     5000,
			ChurnPerTick: 50,
		},
		Pools: PoolConfig{
			EntityInitial:    1000,
			EntityMax:        10000,
			ComponentInitial: 3000,
			ComponentMax:     30000,
			Grow:             true,
		},
		Grid: GridConfig{
			ViewportW: 1920,
			ViewportH: 1080,
		},
		Collision: CollisionConfig{
			Workers: 0, // GOMAXPROCS
			Queue:   128,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Development: true,
		},
	}
}

// loadConfig reads a TOML file over the defaults. An empty path keeps the
// defaults as-is.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
