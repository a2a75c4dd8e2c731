package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"luajitpro/cache"
	"luajitpro/config"
	"luajitpro/errs"
	"luajitpro/ljplog"
	"luajitpro/loader"
	"luajitpro/sidecar"
)

func main() {
	os.Exit(run())
}

// run holds the whole CLI body so that its deferred cleanup (the
// cache-dir removal hook) actually fires: os.Exit anywhere inside main
// itself would skip every pending defer.
func run() int {
	outDirFlag := flag.String("out-dir", "", "Write cache artifacts here instead of the resolved cache directory")
	keepFileFlag := flag.Bool("keep-file", false, "Keep intermediate .1.proccessed.lua/.2.transformed.lua artifacts past process exit")
	noCacheFlag := flag.Bool("no-cache", false, "Disable the on-disk cache mirror")
	genOnlyFlag := flag.Bool("gen-only", false, "Write cache artifacts but print nothing to stdout")
	sidecarBinFlag := flag.String("sidecar", "lua", "Interpreter binary used to evaluate $comp_time bodies")
	traceFlag := flag.Bool("trace", false, "Enable the ljplog tracer (no pipeline stage emits trace events)")
	traceFilterFlag := flag.String("trace-filter", "", "Trace filter pattern (glob, comma-separated)")
	fakeSidecarFlag := flag.Bool("fake-sidecar", false, "Use the in-process Fake evaluator instead of shelling out")

	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: luajitpro [flags] <file>")
		return 2
	}
	path := flag.Arg(0)

	if *traceFlag {
		var filters []string
		if *traceFilterFlag != "" {
			filters = strings.Split(*traceFilterFlag, ",")
		}
		ljplog.Init(true, filters, os.Stderr)
	} else {
		ljplog.Init(false, nil, nil)
	}

	cfg, err := config.Load(".")
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}
	if *outDirFlag != "" {
		cfg.OutDir = *outDirFlag
	}
	if *keepFileFlag {
		cfg.KeepFile = true
	}
	if *noCacheFlag {
		cfg.NoCache = true
	}
	if *genOnlyFlag {
		cfg.GenOnly = true
	}

	cacheDir := cfg.OutDir
	if cacheDir == "" {
		cacheDir = cfg.CacheDir
	}
	c := cache.New(!cfg.NoCache, cacheDir, cfg.WithPidSuffix)

	if !cfg.KeepFile && cacheDir != "" {
		signalCh := make(chan os.Signal, 1)
		signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-signalCh
			os.RemoveAll(cacheDir)
			os.Exit(1)
		}()
		defer os.RemoveAll(cacheDir)
	}

	var eval interface {
		Eval(tag, src string) (string, error)
	}
	if *fakeSidecarFlag {
		eval = sidecar.NewFake()
	} else {
		eval = sidecar.NewProcess(*sidecarBinFlag)
	}

	pipe := &loader.Pipeline{Cache: c, Config: cfg, Eval: eval}
	pipe.Inc = loader.NewSearcher(pipe)

	out, err := pipe.Run(path)
	if err != nil {
		if e, ok := err.(*errs.Error); ok && e.Kind == errs.MissingSentinel {
			data, readErr := os.ReadFile(path)
			if readErr != nil {
				log.Printf("luajitpro: %s: %v", path, readErr)
				return 1
			}
			out = string(data)
		} else {
			log.Printf("luajitpro: %s: %v", path, err)
			return 1
		}
	}

	if cfg.OutDir != "" && cfg.KeepFile {
		log.Printf("luajitpro: wrote transformed output under %s", cfg.OutDir)
	}
	fmt.Print(out)
	return 0
}
