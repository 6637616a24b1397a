package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/daviddao/actorkv/internal/config"
	"github.com/daviddao/actorkv/pkg/actor"
	"github.com/daviddao/actorkv/pkg/db"
	"github.com/daviddao/actorkv/pkg/metrics"
	"github.com/daviddao/actorkv/pkg/scheduler"
)

// app holds the shared handles every actorctl subcommand opens: the
// database, the coordinator built over it, and the metrics registry the
// introspection server later exposes.
type app struct {
	cfg     *config.Config
	db      *db.SQLite
	coord   *actor.Coordinator
	metrics *metrics.Set
	reg     *prometheus.Registry
}

// autoAcceptScheduler is the demo scheduler used when no --scheduler-addr
// is configured: every ScheduleRun call succeeds immediately. It exists
// only here, not in pkg/scheduler, because it has no test-driven ordering
// contract to uphold — it is a CLI convenience, not a tested double.
type autoAcceptScheduler struct{}

func (autoAcceptScheduler) ScheduleRun(context.Context, *time.Time) error { return nil }

func newApp() (*app, error) {
	cfgPath := envOr("ACTORCTL_CONFIG", configPath)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dbPath := envOr("ACTORCTL_DB", ""); dbPath != "" {
		cfg.DBPath = dbPath
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database %q: %w", cfg.DBPath, err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	var sched scheduler.Scheduler = autoAcceptScheduler{}
	if cfg.SchedulerAddr != "" {
		return nil, fmt.Errorf("scheduler_addr %q configured but actorctl does not dial gRPC scheduler endpoints yet; unset scheduler_addr to use the in-process stub", cfg.SchedulerAddr)
	}

	coord, err := actor.New(context.Background(), database, sched, actor.WithMetrics(m))
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("start coordinator: %w", err)
	}

	return &app{cfg: cfg, db: database, coord: coord, metrics: m, reg: reg}, nil
}

func (a *app) Close() {
	_ = a.coord.Close(context.Background())
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
