// Command bitchess-uci runs the engine as a UCI chess engine on stdin/stdout.
package main

import (
	"flag"
	"os"
	"runtime/pprof"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hailam/bitchess/internal/engine"
	"github.com/hailam/bitchess/internal/storage"
	"github.com/hailam/bitchess/internal/uci"
)

var (
	hashMB     = flag.Int("hash", 64, "transposition table size in MB")
	threads    = flag.Int("threads", 1, "number of search threads")
	dbDir      = flag.String("db", "", "analysis database directory (default: platform data dir, \"off\" disables)")
	logLevel   = flag.String("log-level", "info", "log level: debug, info, warn, error")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	// stdout carries the protocol, so logs go to stderr.
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).With().Timestamp().Logger()
	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -log-level")
	}
	zerolog.SetGlobalLevel(level)

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", *cpuprofile).Msg("CPU profiling enabled")
	}

	store := openStore()
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				log.Error().Err(err).Msg("closing analysis store")
			}
		}()
	}

	cfg := engine.DefaultConfig()
	cfg.HashMB = *hashMB
	cfg.Threads = *threads
	cfg.Logger = log.With().Str("component", "engine").Logger()
	if store != nil {
		cfg.Store = store
	}
	eng, err := engine.NewEngine(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("creating engine")
	}

	protocol := uci.New(eng, store, os.Stdout, log.With().Str("component", "uci").Logger())
	if err := protocol.Run(os.Stdin); err != nil {
		log.Error().Err(err).Msg("reading commands")
	}
}

// openStore opens the analysis database. The engine runs without one when
// it is disabled or cannot be opened.
func openStore() *storage.Store {
	l := log.With().Str("component", "storage").Logger()
	var (
		store *storage.Store
		err   error
	)
	switch *dbDir {
	case "off":
		return nil
	case "":
		store, err = storage.OpenDefault(l)
	default:
		store, err = storage.Open(storage.Options{Dir: *dbDir, Logger: l})
	}
	if err != nil {
		log.Warn().Err(err).Msg("analysis store unavailable")
		return nil
	}
	return store
}
