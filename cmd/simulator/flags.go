package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/uhyunpark/marketsim/params"
)

type cliOptions struct {
	envPath  string
	rounds   int // zero keeps SIM_ROUNDS
	debug    bool
	provider string
}

// parseArgs accepts flags before or after the optional rounds argument, so
// both "simulator -debug 3" and "simulator 3 --debug" work.
func parseArgs(name string, args []string, output io.Writer) (cliOptions, error) {
	var (
		opts       cliOptions
		flagRounds int
	)
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.envPath, "env", "", "path to .env file (default: ./.env)")
	fs.IntVar(&flagRounds, "rounds", 0, "rounds to simulate (overrides SIM_ROUNDS and the rounds argument)")
	fs.BoolVar(&opts.debug, "debug", false, "log every prompt and provider reply")
	fs.BoolVar(&opts.debug, "d", false, "shorthand for -debug")
	fs.StringVar(&opts.provider, "provider", "", "decision provider: heuristic or anthropic")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [rounds] [flags]\n\nFlags may appear before or after rounds.\n\n", name)
		fs.PrintDefaults()
	}

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return opts, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}

	switch len(positional) {
	case 0:
	case 1:
		n, err := strconv.Atoi(positional[0])
		if err != nil || n < 1 {
			return opts, fmt.Errorf("rounds argument %q: must be a positive integer", positional[0])
		}
		opts.rounds = n
	default:
		return opts, fmt.Errorf("unexpected arguments %q", positional[1:])
	}
	if flagRounds > 0 {
		opts.rounds = flagRounds
	}
	return opts, nil
}

func (o cliOptions) apply(cfg *params.Config) {
	if o.rounds > 0 {
		cfg.Simulation.Rounds = o.rounds
	}
	if o.debug {
		cfg.Decision.Debug = true
		cfg.Output.LogLevel = "debug"
	}
	if o.provider != "" {
		cfg.Decision.Provider = o.provider
	}
}
