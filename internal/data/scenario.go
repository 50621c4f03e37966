package data

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/pathfinder/internal/pathfind"
)

// Scenario is one search request from scenarios.yaml, in map coordinates.
type Scenario struct {
	Name    string     `yaml:"name"`
	MapID   int16      `yaml:"map_id"`
	Start   Point      `yaml:"start"`
	Dest    Point      `yaml:"dest"`
	DestEnd *Point     `yaml:"dest_end"` // optional far corner of a rect destination
	EndMode string     `yaml:"end_mode"` // "on_cell" (default) or "touch"
	Policy  PolicyInfo `yaml:"policy"`
	// ExpectCost is the known cost of the path; -1 expects no path, nil skips the check.
	ExpectCost *int `yaml:"expect_cost"`
}

type Point struct {
	X int32 `yaml:"x"`
	Y int32 `yaml:"y"`
}

type PolicyInfo struct {
	Mode         string `yaml:"mode"`
	MoveCardinal int    `yaml:"move_cardinal"`
	MoveDiagonal int    `yaml:"move_diagonal"`
	Area         string `yaml:"area"`
	MaxDanger    string `yaml:"max_danger"`
}

type scenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// LoadScenarios loads scenarios.yaml.
func LoadScenarios(path string) ([]Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios %s: %w", path, err)
	}
	var file scenarioFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse scenarios: %w", err)
	}
	return file.Scenarios, nil
}

// Request resolves the scenario against the loaded maps.
func (s *Scenario) Request(maps *MapDataTable) (pathfind.Request, error) {
	info := maps.GetInfo(s.MapID)
	if info == nil {
		return pathfind.Request{}, fmt.Errorf("scenario %q: map %d not loaded", s.Name, s.MapID)
	}
	mode, err := pathfind.ParseMode(s.Policy.Mode)
	if err != nil {
		return pathfind.Request{}, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	danger, err := pathfind.ParseDanger(s.Policy.MaxDanger)
	if err != nil {
		return pathfind.Request{}, fmt.Errorf("scenario %q: %w", s.Name, err)
	}

	var end pathfind.EndMode
	switch strings.ToLower(s.EndMode) {
	case "", "on_cell":
		end = pathfind.EndModeOnCell
	case "touch":
		end = pathfind.EndModeTouch
	default:
		return pathfind.Request{}, fmt.Errorf("scenario %q: unknown end mode %q", s.Name, s.EndMode)
	}

	dest := pathfind.SingleCell(info.Local(s.Dest.X, s.Dest.Y))
	if s.DestEnd != nil {
		far := info.Local(s.DestEnd.X, s.DestEnd.Y)
		dest = pathfind.Rect{
			MinX: min(dest.MinX, far.X), MinZ: min(dest.MinZ, far.Z),
			MaxX: max(dest.MaxX, far.X), MaxZ: max(dest.MaxZ, far.Z),
		}
	}

	policy := pathfind.Policy{
		Mode:         mode,
		MoveCardinal: s.Policy.MoveCardinal,
		MoveDiagonal: s.Policy.MoveDiagonal,
		MaxDanger:    danger,
	}
	if s.Policy.Area != "" {
		policy.Allowed = maps.Area(s.MapID, s.Policy.Area)
		if policy.Allowed == nil {
			return pathfind.Request{}, fmt.Errorf("scenario %q: map %d has no area %q", s.Name, s.MapID, s.Policy.Area)
		}
	}

	return pathfind.Request{
		Start:   info.Local(s.Start.X, s.Start.Y),
		Dest:    dest,
		EndMode: end,
		Policy:  policy,
	}, nil
}
