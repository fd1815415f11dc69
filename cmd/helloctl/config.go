package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"helloga/pkg/helloga"
)

// loadRunRequestFromConfig reads a JSON or TOML run config on top of the
// default run request. Keys the file omits keep their defaults.
func loadRunRequestFromConfig(path string) (helloga.RunRequest, error) {
	raw, err := readConfigMap(path)
	if err != nil {
		return helloga.RunRequest{}, err
	}

	req := helloga.DefaultRunRequest()
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asString(raw["problem"]); ok {
		req.Problem = v
	}
	if v, ok := asString(raw["target"]); ok {
		req.Target = v
	}
	if v, ok := asInt(raw["population"]); ok {
		req.Population = v
	}
	if v, ok := asFloat64(raw["crossover_rate"]); ok {
		req.CrossoverRate = v
	}
	if v, ok := asFloat64(raw["elitism_rate"]); ok {
		req.ElitismRate = v
	}
	if v, ok := asFloat64(raw["mutation_rate"]); ok {
		req.MutationRate = v
	}
	if v, ok := asInt(raw["generations"]); ok {
		req.Generations = v
	}
	if v, ok := asFloat64(raw["fitness_goal"]); ok {
		req.FitnessGoal = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	if v, ok := asString(raw["selection"]); ok {
		req.Selection = v
	}
	if v, ok := asInt(raw["tournament_size"]); ok {
		req.TournamentSize = v
	}
	return req, nil
}

func readConfigMap(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw := make(map[string]any)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	}
	return raw, nil
}

func loadOrDefaultRunRequest(configPath string) (helloga.RunRequest, error) {
	if configPath == "" {
		return helloga.DefaultRunRequest(), nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return helloga.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

// overrideFromFlags applies only the flags the user set explicitly, so a
// config file value survives unless the command line names the same key.
func overrideFromFlags(req *helloga.RunRequest, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "problem":
			req.Problem = v.(string)
		case "target":
			req.Target = v.(string)
		case "population":
			req.Population = v.(int)
		case "crossover":
			req.CrossoverRate = v.(float64)
		case "elitism":
			req.ElitismRate = v.(float64)
		case "mutation":
			req.MutationRate = v.(float64)
		case "generations":
			req.Generations = v.(int)
		case "fitness-goal":
			req.FitnessGoal = v.(float64)
		case "seed":
			req.Seed = v.(int64)
		case "workers":
			req.Workers = v.(int)
		case "selection":
			req.Selection = v.(string)
		case "tournament-size":
			req.TournamentSize = v.(int)
		}
	}
}
