// replay reruns recorded searches from PostgreSQL and reports every search
// whose result changed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/l1jgo/pathfinder/internal/config"
	"github.com/l1jgo/pathfinder/internal/persist"
	"github.com/l1jgo/pathfinder/internal/replay"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "config/pathfinder.toml"
	if p := os.Getenv("PATHFINDER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	mapID := flag.Int("map", 0, "only replay searches on this map (0 = all maps)")
	limit := flag.Int("limit", cfg.Replay.Limit, "replay the newest N searches (0 = all)")
	workers := flag.Int("workers", cfg.Replay.Workers, "concurrent replays")
	flag.Parse()

	opts, err := cfg.Search.Options()
	if err != nil {
		return fmt.Errorf("search config: %w", err)
	}
	log, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	if _, err := persist.RunMigrations(ctx, db.Pool, log); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	runner := replay.NewRunner(persist.NewReplayRepo(db), opts, *workers, log)
	rep, err := runner.Run(ctx, int16(*mapID), *limit)
	if err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	for _, res := range rep.Results {
		switch res.Outcome {
		case replay.OutcomeRegression:
			p.Printf("REGRESSION #%d %-24s map %d  recorded %d, now %d\n",
				res.Record.ID, res.Record.Label, res.Record.MapID, res.Record.Cost, res.Cost)
		case replay.OutcomeError:
			p.Printf("ERROR      #%d %-24s %v\n", res.Record.ID, res.Record.Label, res.Err)
		}
	}
	p.Printf("%d searches: %d match, %d regressed, %d failed (%v)\n",
		len(rep.Results), rep.Matches, rep.Regressions, rep.Errors, rep.Took)

	if rep.Regressions > 0 || rep.Errors > 0 {
		return fmt.Errorf("%d regressions, %d errors", rep.Regressions, rep.Errors)
	}
	return nil
}
