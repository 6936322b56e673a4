package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Profile describes one stress run.
type Profile struct {
	// Workers is the number of concurrent goroutines per scenario.
	Workers int `yaml:"Workers"`

	// Iters is the number of operations each worker performs.
	Iters int `yaml:"Iters"`

	// Rounds repeats every scenario this many times.
	Rounds int `yaml:"Rounds"`

	// Scenarios selects which scenarios run; empty means all.
	Scenarios []string `yaml:"Scenarios"`

	// MetricsAddress, when set, serves Prometheus metrics during the run.
	MetricsAddress string `yaml:"MetricsAddress"`
}

// DefaultProfile returns the profile used when no config is given.
func DefaultProfile() Profile {
	return Profile{
		Workers: 16,
		Iters:   10000,
		Rounds:  10,
	}
}

// LoadProfile reads a YAML profile from path on top of the defaults.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, errors.Wrap(err, "unable to read profile")
	}

	p := DefaultProfile()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, errors.Wrap(err, "problem unmarshaling profile yaml")
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Validate rejects profiles that would make a run meaningless.
func (p Profile) Validate() error {
	if p.Workers < 1 {
		return errors.Errorf("profile: workers must be >= 1, got %d", p.Workers)
	}
	if p.Iters < 1 {
		return errors.Errorf("profile: iters must be >= 1, got %d", p.Iters)
	}
	if p.Rounds < 1 {
		return errors.Errorf("profile: rounds must be >= 1, got %d", p.Rounds)
	}
	for _, s := range p.Scenarios {
		if _, ok := scenarios[s]; !ok {
			return errors.Errorf("profile: unknown scenario %q", s)
		}
	}
	return nil
}

// selected returns the scenario names to run, in a stable order.
func (p Profile) selected() []string {
	if len(p.Scenarios) > 0 {
		return p.Scenarios
	}
	return scenarioOrder
}
