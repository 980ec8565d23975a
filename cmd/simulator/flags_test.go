package main

import (
	"errors"
	"flag"
	"io"
	"testing"

	"github.com/uhyunpark/marketsim/params"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want cliOptions
	}{
		{"none", nil, cliOptions{}},
		{"rounds only", []string{"3"}, cliOptions{rounds: 3}},
		{"flags before rounds", []string{"-debug", "3"}, cliOptions{rounds: 3, debug: true}},
		{"flags after rounds", []string{"3", "--debug"}, cliOptions{rounds: 3, debug: true}},
		{"short debug after rounds", []string{"7", "-d"}, cliOptions{rounds: 7, debug: true}},
		{"flags on both sides", []string{"-env", "x.env", "4", "-provider", "anthropic"}, cliOptions{envPath: "x.env", rounds: 4, provider: "anthropic"}},
		{"rounds flag wins", []string{"4", "-rounds", "9"}, cliOptions{rounds: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs("simulator", tt.args, io.Discard)
			if err != nil {
				t.Fatalf("parseArgs: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseArgs(%q) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseArgsErrors(t *testing.T) {
	for _, args := range [][]string{
		{"three"},
		{"0"},
		{"3", "4"},
		{"3", "-bogus"},
	} {
		if _, err := parseArgs("simulator", args, io.Discard); err == nil {
			t.Errorf("parseArgs(%q) succeeded", args)
		}
	}
	if _, err := parseArgs("simulator", []string{"-h"}, io.Discard); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("-h: err = %v, want flag.ErrHelp", err)
	}
}

func TestCLIOptionsApply(t *testing.T) {
	cfg := params.Default()
	cliOptions{rounds: 3, debug: true, provider: params.ProviderAnthropic}.apply(&cfg)
	if cfg.Simulation.Rounds != 3 || !cfg.Decision.Debug || cfg.Output.LogLevel != "debug" || cfg.Decision.Provider != params.ProviderAnthropic {
		t.Errorf("config = %+v", cfg)
	}

	cfg = params.Default()
	cliOptions{}.apply(&cfg)
	if cfg.Simulation.Rounds != params.Default().Simulation.Rounds || cfg.Decision.Debug {
		t.Errorf("empty options changed config: %+v", cfg)
	}
}
