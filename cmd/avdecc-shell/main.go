// Command avdecc-shell is an interactive REPL over the controller
// facade: discover entities on a network segment, inspect their
// descriptor trees, and drive acquire/lock/connect operations by hand.
//
// Usage:
//
//	avdecc-shell -config avdecc.yaml
//	avdecc-shell -interface eth0 -backend rawsocket
//
// Flags:
//
//	-config string     YAML configuration file (see avdeccconfig.LoadFile)
//	-interface string  Network interface to bind to, overrides -config
//	-backend string    rawsocket|pcap, overrides -config
//	-log-level string  trace|debug|info|warn|error|none, overrides -config
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/i-n-g-o/avdecc/cmd/avdecc-shell/interactive"
	"github.com/i-n-g-o/avdecc/pkg/avdeccconfig"
	"github.com/i-n-g-o/avdecc/pkg/controller"
	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
)

func main() {
	configFile := flag.String("config", "", "YAML configuration file")
	ifaceName := flag.String("interface", "", "network interface to bind to")
	backend := flag.String("backend", "", "rawsocket|pcap")
	logLevel := flag.String("log-level", "", "trace|debug|info|warn|error|none")
	flag.Parse()

	cfg := avdeccconfig.Default()
	if *configFile != "" {
		loaded, err := avdeccconfig.LoadFile(*configFile)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}
	if *ifaceName != "" {
		cfg.InterfaceName = *ifaceName
	}
	if *backend != "" {
		cfg.Backend = avdeccconfig.InterfaceBackend(*backend)
	}
	if *logLevel != "" {
		cfg.LogLevelName = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctrl, err := controller.New(cfg)
	if err != nil {
		log.Fatalf("starting controller: %v", err)
	}

	sh, err := interactive.New(ctrl)
	if err != nil {
		ctrl.Close()
		log.Fatalf("starting shell: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	log.SetOutput(sh.Stdout())
	fmt.Fprintf(sh.Stdout(), "avdecc-shell: bound to %s as %s\n", cfg.InterfaceName, entitymodel.UniqueIdentifier(ctrl.EntityID()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	sh.Run(ctx, cancel)

	ctrl.Close()
}
