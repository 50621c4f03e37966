package scripting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/l1jgo/pathfinder/internal/pathfind"
)

// Engine wraps a single gopher-lua VM that prices obstacles for the finder.
// Calls are serialized; finders on several goroutines may share one Engine.
type Engine struct {
	mu       sync.Mutex
	vm       *lua.LState
	log      *zap.Logger
	fallback pathfind.ObstacleCoster
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
// A missing directory yields an engine that always falls back to the standard rules.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.SetGlobal("IMPASSABLE", lua.LNumber(pathfind.Impassable))

	e := &Engine{vm: vm, log: log, fallback: pathfind.StandardObstacles{}}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// HasObstacleCost reports whether a script defined obstacle_cost.
func (e *Engine) HasObstacleCost() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vm.GetGlobal("obstacle_cost") != lua.LNil
}

// ObstacleCost calls the Lua obstacle_cost(ctx) function. The context table
// carries the obstacle, the search mode and the standard price. A negative
// result blocks the cell; errors and non-numbers fall back to the standard price.
func (e *Engine) ObstacleCost(ob *pathfind.Obstacle, p *pathfind.Policy) int {
	standard := e.fallback.ObstacleCost(ob, p)

	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("obstacle_cost")
	if fn == lua.LNil {
		return standard
	}

	t := e.vm.NewTable()
	t.RawSetString("kind", lua.LString(ob.Kind.String()))
	t.RawSetString("hit_points", lua.LNumber(ob.HitPoints))
	t.RawSetString("open_cost", lua.LNumber(ob.OpenCost))
	t.RawSetString("open", lua.LBool(ob.Open))
	t.RawSetString("locked", lua.LBool(ob.Locked))
	t.RawSetString("forbidden", lua.LBool(ob.Forbidden))
	t.RawSetString("path_cost", lua.LNumber(ob.PathCost))
	t.RawSetString("mode", lua.LString(p.Mode.String()))
	t.RawSetString("standard", lua.LNumber(standard))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua obstacle_cost error", zap.Error(err))
		return standard
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	n, ok := result.(lua.LNumber)
	if !ok {
		e.log.Error("lua obstacle_cost returned non-number", zap.String("type", result.Type().String()))
		return standard
	}
	// math.huge and NaN would not survive the int conversion.
	if math.IsNaN(float64(n)) || n < 0 || n >= pathfind.Impassable {
		return pathfind.Impassable
	}
	return int(n)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}
