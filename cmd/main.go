package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/clock"
	"github.com/juju/loggo"
)

func main() {
	os.Exit(Main(os.Args[1:]))
}

// Main runs the server until it is interrupted and returns the exit code.
func Main(args []string) int {
	options, err := getServerOptions(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := loggo.ConfigureLoggers(options.LoggingConfig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	server := NewServer(options, clock.WallClock)
	if err := server.Start(); err != nil {
		logger.Errorf("cannot start server: %v", err)
		return 1
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-signals
		logger.Infof("received %v, shutting down", sig)
		server.Kill()
	}()

	if err := server.Wait(); err != nil {
		logger.Errorf("server stopped: %v", err)
		return 1
	}
	logger.Infof("server stopped")
	return 0
}
