package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/walkerlab/fsbridge/backends"
	"github.com/walkerlab/fsbridge/config"
	"github.com/walkerlab/fsbridge/internal/util"
)

func main() {
	// Parse command line arguments
	var (
		configPath string
		verbose    int
	)
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&configPath, "c", "", "--config (shorthand)")
	flag.IntVar(&verbose, "verbose", 0, "Log verbosity level between 1 (error) and 5 (trace). Overrides the config file's log level.")
	flag.IntVar(&verbose, "v", 0, "--verbose (shorthand)")
	flag.Parse()

	// Bootstrap logging until the config decides the real level
	util.InitializeLogger(util.InfoLevel)
	logger := util.GetLogger("main")

	if configPath == "" {
		logger.Fatal().Msg("Config file not specified; it must be passed with -config")
	}

	// Register all built-in backends
	backends.RegisterBuiltins()

	cfg, err := config.NewConfigFromFile(configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("config", configPath).Msg("Failed to load config")
	}
	if verbose > 0 {
		if verbose > 5 {
			verbose = 5
		}
		logLvls := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
		cfg.LogLvl = logLvls[verbose-1]
	}
	router, err := cfg.Build()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build router")
	}

	verb := flag.Arg(0)
	ctx := context.Background()
	switch verb {
	case "ls":
		names, err := router.List(ctx, flag.Arg(1))
		if err != nil {
			logger.Fatal().Err(err).Msg("ls failed")
		}
		for _, name := range names {
			fmt.Println(name)
		}
	case "cat":
		rc, err := router.Open(ctx, flag.Arg(1))
		if err != nil {
			logger.Fatal().Err(err).Msg("cat failed")
		}
		defer rc.Close()
		if _, err := io.Copy(os.Stdout, rc); err != nil {
			logger.Fatal().Err(err).Msg("cat failed")
		}
	case "write":
		w, err := router.Create(ctx, flag.Arg(1))
		if err != nil {
			logger.Fatal().Err(err).Msg("write failed")
		}
		if _, err := io.Copy(w, os.Stdin); err != nil {
			_ = w.Discard(ctx)
			logger.Fatal().Err(err).Msg("write failed")
		}
		if err := w.Close(ctx); err != nil {
			logger.Fatal().Err(err).Msg("write commit failed")
		}
	case "stat":
		info, err := router.Stat(ctx, flag.Arg(1))
		if err != nil {
			logger.Fatal().Err(err).Msg("stat failed")
		}
		fmt.Printf("size: %d\nmtime: %s\n", info.Size, info.ModTime)
	case "cp":
		if err := router.Copy(ctx, flag.Arg(1), flag.Arg(2)); err != nil {
			logger.Fatal().Err(err).Msg("cp failed")
		}
	case "cptree":
		if err := router.CopyTree(ctx, flag.Arg(1), flag.Arg(2), false); err != nil {
			logger.Fatal().Err(err).Msg("cptree failed")
		}
	case "mv":
		if err := router.Move(ctx, flag.Arg(1), flag.Arg(2)); err != nil {
			logger.Fatal().Err(err).Msg("mv failed")
		}
	case "rm":
		if err := router.Remove(ctx, flag.Arg(1)); err != nil {
			logger.Fatal().Err(err).Msg("rm failed")
		}
	case "rmtree":
		if err := router.RemoveAll(ctx, flag.Arg(1)); err != nil {
			logger.Fatal().Err(err).Msg("rmtree failed")
		}
	default:
		logger.Fatal().Str("verb", verb).Msg("Unknown or missing verb; expected ls|cat|write|stat|cp|cptree|mv|rm|rmtree")
	}
}
