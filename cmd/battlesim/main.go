// Package main runs battles headlessly with every side driven by the AI and
// prints the final reports as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/scenario"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/storage"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
	"github.com/cory-johannsen/skirmish/internal/storage/sqlite"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "optional path to configuration file")
	scenarioPath := flag.String("scenario", "builtin:test_brute", "scenario file, or builtin:<name>")
	runs := flag.Int("runs", 1, "number of battles to fight")
	seed := flag.Int64("seed", 1, "dice seed of the first run; run i uses seed+i")
	maxRounds := flag.Int("max-rounds", 0, "round cap (0 = configured value)")
	persist := flag.Bool("persist", false, "save reports with the configured storage driver")
	list := flag.Bool("list", false, "list builtin scenarios and exit")
	flag.Parse()

	if *list {
		fmt.Println(strings.Join(scenario.BuiltinNames(), "\n"))
		return
	}
	if *runs < 1 {
		log.Fatalf("runs must be >= 1, got %d", *runs)
	}

	v := config.NewViper()
	if *configPath != "" {
		v.SetConfigFile(*configPath)
		if err := v.ReadInConfig(); err != nil {
			log.Fatalf("reading config: %v", err)
		}
	}
	cfg, err := config.LoadFromViper(v)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	doc, err := scenario.LoadFile(*scenarioPath)
	if err != nil {
		logger.Fatal("loading scenario", zap.Error(err))
	}
	reg, err := ai.NewBuiltinRegistry(logger)
	if err != nil {
		logger.Fatal("loading ai domains", zap.Error(err))
	}

	ctx := context.Background()
	store := storage.ReportStore(storage.Discard{})
	if *persist {
		var closeStore func()
		store, closeStore, err = openStore(ctx, cfg)
		if err != nil {
			logger.Fatal("opening report store", zap.Error(err))
		}
		defer closeStore()
	}

	// Headless runs skip every pacing delay.
	engineCfg := config.EngineConfig{MaxRounds: cfg.Engine.MaxRounds}
	if *maxRounds > 0 {
		engineCfg.MaxRounds = *maxRounds
	}

	reports := make([]combat.Report, 0, *runs)
	for i := 0; i < *runs; i++ {
		rep, err := simulate(ctx, engineCfg, doc, reg, dice.NewSeededSource(*seed+int64(i)), logger)
		if err != nil {
			logger.Fatal("simulating battle", zap.Int("run", i), zap.Error(err))
		}
		if *persist {
			stored, err := store.Save(ctx, rep)
			if err != nil {
				logger.Fatal("saving report", zap.Error(err))
			}
			logger.Info("report saved", zap.String("report_id", stored.ID))
		}
		reports = append(reports, rep)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	var out any = reports
	if len(reports) == 1 {
		out = reports[0]
	}
	if err := enc.Encode(out); err != nil {
		logger.Fatal("writing report", zap.Error(err))
	}
	logger.Info("simulation complete",
		zap.String("battle_id", doc.BattleID),
		zap.Int("runs", *runs),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func simulate(ctx context.Context, cfg config.EngineConfig, doc *scenario.Document, ctrl combat.EnemyController, src dice.Source, logger *zap.Logger) (combat.Report, error) {
	e := combat.NewEngine(combat.Options{Config: cfg, Logger: logger, Source: src, Autopilot: true})
	defer e.Close()
	e.SetEnemyController(ctrl)

	if _, err := e.LoadBattle(ctx, doc); err != nil {
		return combat.Report{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := e.Wait(ctx); err != nil {
		return combat.Report{}, fmt.Errorf("waiting for battle %q: %w", doc.BattleID, err)
	}
	return e.Report()
}

func openStore(ctx context.Context, cfg config.Config) (storage.ReportStore, func(), error) {
	switch cfg.Storage.Driver {
	case "postgres":
		if cfg.Database.AutoMigrate {
			if err := postgres.Migrate(cfg.Database); err != nil {
				return nil, nil, err
			}
		}
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewReportRepository(pool.DB()), pool.Close, nil
	case "sqlite":
		s, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return storage.Discard{}, func() {}, nil
	}
}
