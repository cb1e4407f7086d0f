// Command adasend drives the sending side of one adastream session: it
// loads the shared configuration, wires up telemetry and the optional
// metrics server, and hands both stream file lists to session.SenderSession.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/feras-hamam/adastream/cfg"
	"github.com/feras-hamam/adastream/metrics"
	"github.com/feras-hamam/adastream/session"
	"github.com/feras-hamam/adastream/telemetry"
	"github.com/feras-hamam/adastream/xerr"
	"github.com/feras-hamam/adastream/xlog"
)

var (
	build      string
	configPath string
)

func init() {
	flag.StringVar(&configPath, "config", "", "adasend configuration file")
}

func main() {
	if len(os.Args) == 2 && os.Args[1] == "version" {
		printVer()
		os.Exit(0)
	}
	if len(os.Args) == 2 && strings.Contains(os.Args[1], "help") {
		printVer()
		flag.PrintDefaults()
		os.Exit(0)
	}
	flag.Parse()

	c, err := cfg.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "adasend: %v\n", err)
		os.Exit(xerr.KindTransportInit.ExitCode())
	}

	sessID, err := session.NewSessionID()
	if err != nil {
		fmt.Fprintf(os.Stderr, "adasend: %v\n", err)
		os.Exit(1)
	}
	xlog.Init(xlog.Options{
		Level:    c.LogLevel,
		Path:     c.LogPath,
		ToStderr: c.LogPath == "",
		Session:  sessID,
	})
	defer xlog.Flush()
	xlog.Infof("adasend starting, session=%s build=%s", sessID, build)

	hub := telemetry.NewHub(c.NumSteps, c.TelemetryCapacity)

	reducedFiles, augFiles := perStepFiles(c)

	var reg *metrics.Registry
	if c.MetricsAddr != "" {
		reg = metrics.New()
		srv := metrics.NewServer(c.MetricsAddr, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				xlog.Warningf("metrics server stopped: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	installSignalHandler(cancel)

	sess := &session.SenderSession{
		Config:            c,
		Hub:               hub,
		Metrics:           reg,
		ReducedFiles:      reducedFiles,
		AugmentationFiles: augFiles,
	}

	if err := sess.Run(ctx); err != nil {
		xlog.Errorf("adasend: %v", err)
		os.Exit(xerr.KindOf(err).ExitCode())
	}
	xlog.Infof("adasend finished session=%s", sessID)
}

// perStepFiles expands the flat reduced/augmentation file name lists into
// per-step path lists: every step directory under source_root is expected
// to hold a copy of each named file (source_root/<step>/<name>), matching
// how the upstream experiment re-materializes the same file set at every
// step rather than naming distinct files per step.
func perStepFiles(c *cfg.Config) (reduced, aug [][]string) {
	reduced = make([][]string, c.NumSteps)
	aug = make([][]string, c.NumSteps)
	for step := 0; step < c.NumSteps; step++ {
		stepDir := filepath.Join(c.SourceRoot, fmt.Sprintf("%d", step))
		reduced[step] = prefixAll(stepDir, c.ReducedFiles)
		aug[step] = prefixAll(stepDir, c.AugmentationFiles)
	}
	return reduced, aug
}

func prefixAll(dir string, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = filepath.Join(dir, n)
	}
	return out
}

func installSignalHandler(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
	}()
}

func printVer() {
	fmt.Printf("adasend version (build %s)\n", build)
}
