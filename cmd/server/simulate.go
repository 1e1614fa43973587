package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	worldapp "barnyard/internal/app/world"
	domainworld "barnyard/internal/domain/world"
	"barnyard/internal/platform/observability"
)

var (
	simFrames int
	simSeed   int64
	simMap    string
	simEnv    string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the world headless and print a summary",
	Long:  `Step the simulation for a fixed number of frames without input and log population and day counts.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := observability.NewLogger(simEnv, "")
		summary, err := simulate(simMap, simSeed, simFrames)
		if err != nil {
			return err
		}
		summary.log(logger)
		return nil
	},
}

func init() {
	simulateCmd.Flags().IntVar(&simFrames, "frames", 3600, "frames to step")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 1, "world seed")
	simulateCmd.Flags().StringVar(&simMap, "map", "data/maps/meadow.csv", "tile map file")
	simulateCmd.Flags().StringVar(&simEnv, "env", "prod", "log format (dev for console output)")
}

type simSummary struct {
	frames int
	census map[domainworld.Kind][2]int
	spawns int
	deaths int
	days   int
	nights int
}

func simulate(mapFile string, seed int64, frames int) (simSummary, error) {
	tiles, err := worldapp.LoadTileMap(mapFile)
	if err != nil {
		return simSummary{}, err
	}
	cfg := domainworld.DefaultConfig()
	cfg.Seed = seed
	sim, err := domainworld.New(tiles, cfg)
	if err != nil {
		return simSummary{}, err
	}

	out := simSummary{frames: frames}
	for i := 0; i < frames; i++ {
		for _, evt := range sim.Step(domainworld.Intent{}) {
			switch evt.Kind {
			case domainworld.EventCreatureSpawned:
				out.spawns++
			case domainworld.EventCreatureDied:
				out.deaths++
			case domainworld.EventDaybreak:
				out.days++
			case domainworld.EventNightfall:
				out.nights++
			}
		}
	}
	out.census = sim.Census()
	return out, nil
}

func (s simSummary) log(logger zerolog.Logger) {
	for kind, n := range s.census {
		logger.Info().Str("kind", string(kind)).Int("alive", n[0]).Int("dead", n[1]).Msg("census")
	}
	logger.Info().
		Int("frames", s.frames).
		Int("spawns", s.spawns).
		Int("deaths", s.deaths).
		Int("daybreaks", s.days).
		Int("nightfalls", s.nights).
		Msg("simulation finished")
}
