// Command adarecv drives the receiving side of one adastream session: it
// loads the shared configuration and hands it to session.ReceiverSession,
// which accepts both streams, runs the step barrier, and invokes the
// downstream processor as steps are released.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/feras-hamam/adastream/cfg"
	"github.com/feras-hamam/adastream/metrics"
	"github.com/feras-hamam/adastream/session"
	"github.com/feras-hamam/adastream/xerr"
	"github.com/feras-hamam/adastream/xlog"
)

var (
	build      string
	configPath string
)

func init() {
	flag.StringVar(&configPath, "config", "", "adarecv configuration file")
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
		fmt.Fprintf(os.Stderr, "adarecv: %v\n", err)
		os.Exit(xerr.KindTransportInit.ExitCode())
	}

	sessID, err := session.NewSessionID()
	if err != nil {
		fmt.Fprintf(os.Stderr, "adarecv: %v\n", err)
		os.Exit(1)
	}
	xlog.Init(xlog.Options{
		Level:    c.LogLevel,
		Path:     c.LogPath,
		ToStderr: c.LogPath == "",
		Session:  sessID,
	})
	defer xlog.Flush()
	xlog.Infof("adarecv starting, session=%s build=%s", sessID, build)

	if err := os.MkdirAll(c.OutputRoot, 0o755); err != nil {
		xlog.Errorf("adarecv: create output root %s: %v", c.OutputRoot, err)
		os.Exit(xerr.KindFileIO.ExitCode())
	}

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

	sess := &session.ReceiverSession{Config: c, Metrics: reg}
	if err := sess.Run(ctx); err != nil {
		xlog.Errorf("adarecv: %v", err)
		os.Exit(xerr.KindOf(err).ExitCode())
	}
	xlog.Infof("adarecv finished session=%s", sessID)
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
	fmt.Printf("adarecv version (build %s)\n", build)
}
