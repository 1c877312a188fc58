// Command avdecc-discoverd is a headless discovery daemon: it binds a
// network interface, runs ADP discovery and entity enumeration, and
// logs every entity's arrival and departure. It takes no interactive
// input, making it suitable for a service unit or a container.
//
// Usage:
//
//	avdecc-discoverd -config avdecc.yaml
//	avdecc-discoverd -interface eth0 -advertise -presence
//
// Flags:
//
//	-config string      YAML configuration file (see avdeccconfig.LoadFile)
//	-interface string   Network interface to bind to, overrides -config
//	-backend string     rawsocket|pcap, overrides -config
//	-advertise          Advertise this process as an AVDECC entity
//	-presence           Advertise this process over mDNS
//	-log-level string   trace|debug|info|warn|error|none, overrides -config
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/i-n-g-o/avdecc/pkg/avdeccconfig"
	"github.com/i-n-g-o/avdecc/pkg/controller"
	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
	"github.com/i-n-g-o/avdecc/pkg/observerbus"
)

func main() {
	configFile := flag.String("config", "", "YAML configuration file")
	ifaceName := flag.String("interface", "", "network interface to bind to")
	backend := flag.String("backend", "", "rawsocket|pcap")
	logLevel := flag.String("log-level", "", "trace|debug|info|warn|error|none")
	advertise := flag.Bool("advertise", false, "advertise this process as an AVDECC entity")
	presence := flag.Bool("presence", false, "advertise this process over mDNS")
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
	if *advertise {
		cfg.AdvertiseEnabled = true
	}
	if *presence {
		cfg.PresenceEnabled = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctrl, err := controller.New(cfg)
	if err != nil {
		log.Fatalf("starting controller: %v", err)
	}
	defer ctrl.Close()

	log.Printf("avdecc-discoverd: bound to %s as %s (backend %s)",
		cfg.InterfaceName, entitymodel.UniqueIdentifier(ctrl.EntityID()), cfg.Backend)

	ctrl.Observers().Register(func(ev observerbus.Event) {
		switch ev.Kind {
		case observerbus.EventEntityOnline:
			g, ok := ctrl.Cache().Get(ev.EntityID)
			name := ""
			if ok && g.Tree != nil {
				name = g.Tree.Identity().EntityName.String()
			}
			log.Printf("entity online:  %s %q", entitymodel.UniqueIdentifier(ev.EntityID), name)
		case observerbus.EventEntityOffline:
			log.Printf("entity offline: %s", entitymodel.UniqueIdentifier(ev.EntityID))
		}
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.Printf("received signal: %v", sig)
	log.Println("shutting down...")
}
