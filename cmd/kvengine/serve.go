package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/manh119/kvengine/internal/config"
	"github.com/manh119/kvengine/internal/offload"
	"github.com/manh119/kvengine/internal/server"
	"github.com/manh119/kvengine/internal/store"
	"github.com/spf13/cobra"
)

// runServe loads configuration, wires the store and event loop together,
// and blocks until the process is signaled to stop — mirroring
// armandParser-gofast-server's runServer (load config, build server,
// install a signal handler, run in a goroutine, wait, shut down).
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.New(os.Stderr, "kvengine: ", log.LstdFlags)

	exec := offload.New(logger)
	defer exec.Shutdown()

	st := store.New(exec, logger)

	srv, err := server.New(cfg, st, logger)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	runErr := make(chan error, 1)
	go func() { runErr <- srv.Run() }()

	logger.Printf("listening on %s", cfg.Addr())

	select {
	case <-sigCh:
		logger.Printf("shutting down")
		return srv.Close()
	case err := <-runErr:
		return err
	}
}
