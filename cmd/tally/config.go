package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"VoteProof/crypto/bfv"
	"VoteProof/node"
	"VoteProof/prover"
)

// VoterConfig is one simulated voter. Choice counts candidates from 1.
type VoterConfig struct {
	Name   string `yaml:"name"`
	Choice int    `yaml:"choice"`
}

type Config struct {
	Params     string                 `yaml:"params"`
	Literal    *bfv.ParametersLiteral `yaml:"literal"`
	Title      string                 `yaml:"title"`
	Candidates []string               `yaml:"candidates"`
	Voters     []VoterConfig          `yaml:"voters"`
	Mode       string                 `yaml:"mode"`
	Seed       string                 `yaml:"seed"`
	Deadline   time.Duration          `yaml:"deadline"`
	Challenge  int                    `yaml:"challenge"`
	Workers    int                    `yaml:"workers"`
	LogLevel   string                 `yaml:"logLevel"`
	Out        string                 `yaml:"out"`
	Node       *node.Config           `yaml:"node"`
}

// DefaultConfig is the demo election: seven voters, three candidates.
func DefaultConfig() Config {
	names := []string{"alice", "bob", "carol", "dave", "erin", "frank", "grace"}
	choices := []int{1, 2, 1, 3, 2, 1, 2}
	voters := make([]VoterConfig, len(names))
	for i := range names {
		voters[i] = VoterConfig{Name: names[i], Choice: choices[i]}
	}
	return Config{
		Params:     "PN5T65537Q58",
		Title:      "demo",
		Candidates: []string{"A", "B", "C"},
		Voters:     voters,
		Mode:       prover.ModeDecrypt.String(),
		Seed:       "demo-seed",
		Deadline:   time.Hour,
		Workers:    2,
		LogLevel:   "info",
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot LoadConfig: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("cannot LoadConfig %s: %w", path, err)
	}
	return cfg, nil
}

func (cfg Config) BFVParams() (*bfv.Parameters, error) {
	if cfg.Literal != nil {
		return bfv.NewParametersFromLiteral(*cfg.Literal)
	}
	return bfv.ParamsByName(cfg.Params)
}

func (cfg Config) Validate() error {
	if len(cfg.Candidates) == 0 {
		return errors.New("no candidates")
	}
	if len(cfg.Candidates) > prover.MaxColumns {
		return fmt.Errorf("%d candidates, at most %d", len(cfg.Candidates), prover.MaxColumns)
	}
	if len(cfg.Voters) == 0 {
		return errors.New("no voters")
	}
	if len(cfg.Voters) > prover.MaxCapacity {
		return fmt.Errorf("%d voters, at most %d", len(cfg.Voters), prover.MaxCapacity)
	}
	for _, v := range cfg.Voters {
		if v.Choice < 1 || v.Choice > len(cfg.Candidates) {
			return fmt.Errorf("voter %s: choice %d not in [1, %d]", v.Name, v.Choice, len(cfg.Candidates))
		}
	}
	mode, err := prover.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	if mode == prover.ModeSelfContained && cfg.Seed == "" {
		return errors.New("self-contained mode needs a seed")
	}
	if len(cfg.Seed) > prover.MaxSeedSize {
		return fmt.Errorf("seed longer than %d bytes", prover.MaxSeedSize)
	}
	if cfg.Challenge < 0 || cfg.Workers < 0 {
		return errors.New("negative challenge or workers")
	}
	if cfg.Challenge > prover.MaxCapacity {
		return fmt.Errorf("challenge of %d, at most %d", cfg.Challenge, prover.MaxCapacity)
	}
	return nil
}
