// Command speechflowd runs a fixed text-processing graph (source -> sentence
// splitter -> sink) reading from stdin and writing to stdout, exposing the
// HTTP/WebSocket control surface (spec §4.8) on a configurable port.
//
// Usage:
//
//	echo "Hello world. How are you?" | go run ./cmd/speechflowd
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/speechflow/engine/config"
	"github.com/speechflow/engine/control"
	dspsplitter "github.com/speechflow/engine/dsp/splitter"
	"github.com/speechflow/engine/engine"
	"github.com/speechflow/engine/logger"
	"github.com/speechflow/engine/nodes/iosink"
	"github.com/speechflow/engine/nodes/iosource"
	nodesplitter "github.com/speechflow/engine/nodes/splitter"
	"github.com/speechflow/engine/shutdown"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML engine config file; defaults built in if empty")
	controlPort := flag.Int("control-port", 8090, "port the control surface listens on")
	flag.Parse()

	_ = godotenv.Load() // optional .env, ignored if absent

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, *controlPort); err != nil {
		logger.Error("speechflowd exited with error", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.EngineConfig, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(cfg *config.EngineConfig, controlPort int) error {
	e := engine.New(nil, engine.WithConfig(cfg))

	source := iosource.NewText("source", e.NewHandle("source"), os.Stdin, 4096)
	split := nodesplitter.New("splitter", e.NewHandle("splitter"), dspsplitter.DefaultConfig())
	sink := iosink.New("sink", e.NewHandle("sink"), os.Stdout, split.Output())

	b := e.Builder()
	if err := b.RegisterNode(source); err != nil {
		return err
	}
	if err := b.RegisterNode(split); err != nil {
		return err
	}
	if err := b.RegisterNode(sink); err != nil {
		return err
	}
	if err := b.ConnectNode("source", "splitter"); err != nil {
		return err
	}
	if err := b.ConnectNode("splitter", "sink"); err != nil {
		return err
	}
	if err := e.Build(); err != nil {
		return err
	}

	ctrl := control.NewServer(e.Registry(), control.WithPort(controlPort))
	for _, n := range e.Nodes() {
		ctrl.Register(n)
	}

	orch := shutdown.New(ctrl, e.Nodes(), e.Pipes())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- e.Run(ctx) }()

	go func() {
		if err := ctrl.ListenAndServe(); err != nil {
			logger.Warn("control server stopped", "error", err)
		}
	}()
	fmt.Printf("control surface listening on :%d\n", controlPort)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-runErrCh:
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		orch.Shutdown(shutdownCtx, shutdown.ExitFinished)
		return err
	case <-sigCh:
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if code := orch.Shutdown(shutdownCtx, shutdown.ExitSignal); code != shutdown.ExitFinished {
			return fmt.Errorf("terminated by signal (exit code %d)", code)
		}
		return nil
	}
}
