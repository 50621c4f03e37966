package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/l1jgo/pathfinder/internal/config"
	"github.com/l1jgo/pathfinder/internal/data"
	"github.com/l1jgo/pathfinder/internal/metrics"
	"github.com/l1jgo/pathfinder/internal/navigator"
	"github.com/l1jgo/pathfinder/internal/pathfind"
	"github.com/l1jgo/pathfinder/internal/persist"
	"github.com/l1jgo/pathfinder/internal/scripting"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var numbers = message.NewPrinter(language.English)

func printBanner() {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        L1JGO Pathfinder  v0.1.0           \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      區域導航 · 格狀地圖路徑搜尋          \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

// displayWidth counts CJK runes as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r > 0x7F {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func printSection(title string) {
	lineLen := max(46-displayWidth(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	printValue(label, numbers.Sprintf("%d", count))
}

func printValue(label, value string) {
	dotsLen := max(42-displayWidth(label)-displayWidth(value), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), value)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printFail(msg string) {
	fmt.Printf("  \033[31m✗\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main logic ────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/pathfinder.toml"
	if p := os.Getenv("PATHFINDER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	opts, err := cfg.Search.Options()
	if err != nil {
		return fmt.Errorf("search config: %w", err)
	}

	// 2. Init logger
	log, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Load map and scenario data
	printSection("資料載入")
	maps, err := data.LoadMapData(cfg.Data.MapList, cfg.Data.TileDir)
	if err != nil {
		return fmt.Errorf("load map data: %w", err)
	}
	printStat("地圖資料", maps.Count())

	scenarios, err := data.LoadScenarios(cfg.Data.Scenarios)
	if err != nil {
		return fmt.Errorf("load scenarios: %w", err)
	}
	printStat("搜尋情境", len(scenarios))

	// 4. Lua obstacle rules
	if cfg.Scripting.Enabled {
		luaEngine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("lua engine: %w", err)
		}
		defer luaEngine.Close()
		if luaEngine.HasObstacleCost() {
			opts.Obstacles = luaEngine
			printOK("Lua 障礙物規則載入完成")
		} else {
			printOK("Lua 腳本無 obstacle_cost，使用內建規則")
		}
	}
	fmt.Println()

	// 5. Replay recording
	var recorder navigator.Recorder
	if cfg.Replay.Record {
		printSection("資料庫")
		dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		db, err := persist.NewDB(dbCtx, cfg.Database, log)
		if err != nil {
			cancel()
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL 連線成功")

		version, err := persist.RunMigrations(dbCtx, db.Pool, log)
		cancel()
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printStat("資料庫版本", int(version))

		buf := persist.NewReplayBuffer(persist.NewReplayRepo(db), 64, log)
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := buf.Flush(flushCtx); err != nil {
				log.Error("flush replay records", zap.Error(err))
			}
		}()
		recorder = buf
		fmt.Println()
	}

	// 6. Metrics listener
	metricsDone := make(chan error, 1)
	if cfg.Metrics.BindAddress != "" {
		go func() { metricsDone <- metrics.Serve(ctx, cfg.Metrics.BindAddress, log) }()
	} else {
		close(metricsDone)
	}

	// 7. One navigator per map
	navs := make(map[int16]*navigator.Navigator, maps.Count())
	for _, id := range maps.IDs() {
		navs[id] = navigator.New(id, maps.Grid(id), navigator.Options{
			Search:           opts,
			FallbackToOctile: cfg.Search.FallbackToOctile,
			Recorder:         recorder,
		}, log)
	}

	// 8. Run scenarios
	printSection("搜尋結果")
	failed := runScenarios(ctx, scenarios, maps, navs, log)
	fmt.Println()

	if cfg.Metrics.BindAddress != "" {
		printSection("監控")
		printReady(fmt.Sprintf("metrics 位址 http://%s/metrics", cfg.Metrics.BindAddress))
		fmt.Println()
		<-ctx.Done()
		log.Info("收到關閉信號")
	}
	if err := <-metricsDone; err != nil {
		log.Error("metrics listener", zap.Error(err))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios did not meet their expectation", failed, len(scenarios))
	}
	return nil
}

// runScenarios searches every scenario and returns how many missed their
// expected cost.
func runScenarios(ctx context.Context, scenarios []data.Scenario, maps *data.MapDataTable, navs map[int16]*navigator.Navigator, log *zap.Logger) int {
	var failed, totalClosed int
	start := time.Now()
	for i := range scenarios {
		sc := &scenarios[i]
		if ctx.Err() != nil {
			break
		}
		req, err := sc.Request(maps)
		if err != nil {
			printFail(err.Error())
			failed++
			continue
		}

		path, err := navs[sc.MapID].FindPath(ctx, req, sc.Name)
		cost := -1
		if err == nil {
			cost = path.Cost
			totalClosed += path.Stats.Closed
		} else if !errors.Is(err, pathfind.ErrNotFound) && !errors.Is(err, pathfind.ErrSearchExhausted) {
			printFail(fmt.Sprintf("%s: %v", sc.Name, err))
			failed++
			continue
		}

		switch {
		case sc.ExpectCost != nil && *sc.ExpectCost != cost:
			printFail(fmt.Sprintf("%s: cost %d, expected %d", sc.Name, cost, *sc.ExpectCost))
			failed++
		case cost < 0:
			printValue(sc.Name, "無路徑")
		default:
			printValue(sc.Name, numbers.Sprintf("%d (%d 格)", cost, len(path.Cells)))
		}
	}
	printStat("關閉格數合計", totalClosed)
	log.Info("scenarios finished",
		zap.Int("count", len(scenarios)),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(start)))
	return failed
}
