// Package interactive provides the interactive command-line interface
// for avdecc-shell.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/i-n-g-o/avdecc/pkg/avdeccstatus"
	"github.com/i-n-g-o/avdecc/pkg/controller"
	"github.com/i-n-g-o/avdecc/pkg/entitymodel"
	"github.com/i-n-g-o/avdecc/pkg/observerbus"
)

// Shell handles interactive mode for avdecc-shell.
type Shell struct {
	ctrl *controller.Controller
	rl   *readline.Instance

	observerID uint64
}

// New creates a new interactive shell driving ctrl. It registers an
// observer for the lifetime of the shell that prints entity
// online/offline notifications without disturbing the input line.
func New(ctrl *controller.Controller) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "avdecc> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	s := &Shell{ctrl: ctrl, rl: rl}
	s.observerID = ctrl.Observers().Register(s.handleEvent)
	return s, nil
}

// Stdout returns a writer that properly coordinates with the readline
// input. Use this for log output to avoid interfering with the prompt.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()
	defer s.ctrl.Observers().Unregister(s.observerID)

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			s.printHelp()

		case "list", "ls":
			s.cmdList()

		case "inspect", "i":
			s.cmdInspect(args)

		case "acquire", "acq":
			s.cmdAcquire(args)

		case "release", "rel":
			s.cmdRelease(args)

		case "lock":
			s.cmdLock(args)

		case "unlock":
			s.cmdUnlock(args)

		case "name":
			s.cmdName(args)

		case "connect", "conn":
			s.cmdConnect(args)

		case "disconnect", "disc":
			s.cmdDisconnect(args)

		case "start":
			s.cmdStreaming(args, true)

		case "stop":
			s.cmdStreaming(args, false)

		case "status":
			s.cmdStatus()

		case "quit", "exit", "q":
			fmt.Fprintln(s.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(s.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.rl.Stdout(), `
avdecc-shell Commands:
  Discovery:
    list, ls                              - List entities currently known
    inspect <entity-id>                   - Show an entity's identity and configuration

  Ownership:
    acquire <entity-id> [persistent]      - Acquire an entity
    release <entity-id>                   - Release an entity
    lock <entity-id>                      - Lock an entity
    unlock <entity-id>                    - Unlock an entity

  Control:
    name <entity-id> <new-name>           - Set the ENTITY descriptor's name
    connect <talker-id> <t-idx> <listener-id> <l-idx>    - Connect a stream
    disconnect <talker-id> <t-idx> <listener-id> <l-idx> - Disconnect a stream
    start <entity-id> <stream-idx>        - Start streaming on a STREAM_OUTPUT
    stop <entity-id> <stream-idx>         - Stop streaming on a STREAM_OUTPUT

  General:
    status                                 - Show this controller's own identity
    help                                   - Show this help
    quit                                   - Exit the shell

  Entity IDs are 64-bit hex, e.g. 001B21FFFE000001.`)
}

func (s *Shell) cmdList() {
	guards := s.ctrl.Cache().Snapshot()
	if len(guards) == 0 {
		fmt.Fprintln(s.rl.Stdout(), "No entities discovered yet")
		return
	}
	fmt.Fprintf(s.rl.Stdout(), "\n%-18s %-24s %-14s %-14s\n", "Entity ID", "Name", "Acquire", "Lock")
	fmt.Fprintln(s.rl.Stdout(), strings.Repeat("-", 72))
	for _, g := range guards {
		name := "(enumerating)"
		if g.Tree != nil {
			name = g.Tree.Identity().EntityName.String()
			if name == "" {
				name = "(unnamed)"
			}
		}
		fmt.Fprintf(s.rl.Stdout(), "%-18s %-24s %-14s %-14s\n",
			entitymodel.UniqueIdentifier(g.EntityID), name, g.AcquireState, g.LockState)
	}
	fmt.Fprintln(s.rl.Stdout())
}

func (s *Shell) cmdInspect(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: inspect <entity-id>")
		return
	}
	entityID, ok := parseEntityID(args[0])
	if !ok {
		fmt.Fprintf(s.rl.Stdout(), "Invalid entity id: %s\n", args[0])
		return
	}
	g, ok := s.ctrl.Cache().Get(entityID)
	if !ok {
		fmt.Fprintf(s.rl.Stdout(), "Entity not found: %s\n", args[0])
		return
	}
	if g.Tree == nil {
		fmt.Fprintln(s.rl.Stdout(), "Entity is still enumerating")
		return
	}
	identity := g.Tree.Identity()
	fmt.Fprintf(s.rl.Stdout(), "\nEntity %s\n", entitymodel.UniqueIdentifier(g.EntityID))
	fmt.Fprintln(s.rl.Stdout(), strings.Repeat("-", 43))
	fmt.Fprintf(s.rl.Stdout(), "  Name:           %s\n", identity.EntityName.String())
	fmt.Fprintf(s.rl.Stdout(), "  Group:          %s\n", identity.GroupName.String())
	fmt.Fprintf(s.rl.Stdout(), "  Serial:         %s\n", identity.SerialNumber.String())
	fmt.Fprintf(s.rl.Stdout(), "  Firmware:       %s\n", identity.FirmwareVersion.String())
	fmt.Fprintf(s.rl.Stdout(), "  Entity Model:   %s\n", entitymodel.UniqueIdentifier(identity.EntityModelID))
	fmt.Fprintf(s.rl.Stdout(), "  Configurations: %d (active %d)\n", identity.ConfigurationsCount, identity.CurrentConfiguration)
	fmt.Fprintf(s.rl.Stdout(), "  Acquire state:  %s (owner %s)\n", g.AcquireState, g.OwningController)
	fmt.Fprintf(s.rl.Stdout(), "  Lock state:     %s (holder %s)\n", g.LockState, g.LockingController)
	if cfg, err := g.Tree.ActiveConfiguration(); err == nil {
		fmt.Fprintf(s.rl.Stdout(), "  Active config:  %s\n", cfg.Descriptor.ObjectName.String())
		for dt, n := range cfg.Descriptor.DescriptorCounts {
			fmt.Fprintf(s.rl.Stdout(), "    %-18s %d\n", dt, n)
		}
	}
	fmt.Fprintln(s.rl.Stdout())
}

func (s *Shell) cmdAcquire(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: acquire <entity-id> [persistent]")
		return
	}
	entityID, ok := parseEntityID(args[0])
	if !ok {
		fmt.Fprintf(s.rl.Stdout(), "Invalid entity id: %s\n", args[0])
		return
	}
	persistent := len(args) >= 2 && strings.EqualFold(args[1], "persistent")
	s.ctrl.AcquireEntity(entityID, persistent, func(state entitymodel.AcquireState, status avdeccstatus.AEMStatus) {
		fmt.Fprintf(s.rl.Stdout(), "\nacquire %s: %s (%s)\n", entitymodel.UniqueIdentifier(entityID), state, status)
		s.rl.Refresh()
	})
}

func (s *Shell) cmdRelease(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: release <entity-id>")
		return
	}
	entityID, ok := parseEntityID(args[0])
	if !ok {
		fmt.Fprintf(s.rl.Stdout(), "Invalid entity id: %s\n", args[0])
		return
	}
	s.ctrl.ReleaseEntity(entityID, func(state entitymodel.AcquireState, status avdeccstatus.AEMStatus) {
		fmt.Fprintf(s.rl.Stdout(), "\nrelease %s: %s (%s)\n", entitymodel.UniqueIdentifier(entityID), state, status)
		s.rl.Refresh()
	})
}

func (s *Shell) cmdLock(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: lock <entity-id>")
		return
	}
	entityID, ok := parseEntityID(args[0])
	if !ok {
		fmt.Fprintf(s.rl.Stdout(), "Invalid entity id: %s\n", args[0])
		return
	}
	s.ctrl.LockEntity(entityID, func(state entitymodel.LockState, status avdeccstatus.AEMStatus) {
		fmt.Fprintf(s.rl.Stdout(), "\nlock %s: %s (%s)\n", entitymodel.UniqueIdentifier(entityID), state, status)
		s.rl.Refresh()
	})
}

func (s *Shell) cmdUnlock(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: unlock <entity-id>")
		return
	}
	entityID, ok := parseEntityID(args[0])
	if !ok {
		fmt.Fprintf(s.rl.Stdout(), "Invalid entity id: %s\n", args[0])
		return
	}
	s.ctrl.UnlockEntity(entityID, func(state entitymodel.LockState, status avdeccstatus.AEMStatus) {
		fmt.Fprintf(s.rl.Stdout(), "\nunlock %s: %s (%s)\n", entitymodel.UniqueIdentifier(entityID), state, status)
		s.rl.Refresh()
	})
}

func (s *Shell) cmdName(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: name <entity-id> <new-name>")
		return
	}
	entityID, ok := parseEntityID(args[0])
	if !ok {
		fmt.Fprintf(s.rl.Stdout(), "Invalid entity id: %s\n", args[0])
		return
	}
	name := strings.Join(args[1:], " ")
	s.ctrl.SetEntityName(entityID, entitymodel.DescriptorKey{}, 0, 0, name, func(status avdeccstatus.AEMStatus) {
		fmt.Fprintf(s.rl.Stdout(), "\nname %s: %s\n", entitymodel.UniqueIdentifier(entityID), status)
		s.rl.Refresh()
	})
}

func (s *Shell) cmdConnect(args []string) {
	if len(args) < 4 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: connect <talker-id> <t-idx> <listener-id> <l-idx>")
		return
	}
	talkerID, listenerID, talkerIdx, listenerIdx, ok := s.parseStreamEndpoints(args)
	if !ok {
		return
	}
	s.ctrl.ConnectStream(talkerID, talkerIdx, listenerID, listenerIdx, func(status avdeccstatus.ACMPStatus) {
		fmt.Fprintf(s.rl.Stdout(), "\nconnect: %s\n", status)
		s.rl.Refresh()
	})
}

func (s *Shell) cmdDisconnect(args []string) {
	if len(args) < 4 {
		fmt.Fprintln(s.rl.Stdout(), "Usage: disconnect <talker-id> <t-idx> <listener-id> <l-idx>")
		return
	}
	talkerID, listenerID, talkerIdx, listenerIdx, ok := s.parseStreamEndpoints(args)
	if !ok {
		return
	}
	s.ctrl.DisconnectStream(talkerID, talkerIdx, listenerID, listenerIdx, func(status avdeccstatus.ACMPStatus) {
		fmt.Fprintf(s.rl.Stdout(), "\ndisconnect: %s\n", status)
		s.rl.Refresh()
	})
}

func (s *Shell) parseStreamEndpoints(args []string) (talkerID, listenerID uint64, talkerIdx, listenerIdx entitymodel.DescriptorIndex, ok bool) {
	talkerID, ok = parseEntityID(args[0])
	if !ok {
		fmt.Fprintf(s.rl.Stdout(), "Invalid talker id: %s\n", args[0])
		return
	}
	ti, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid talker stream index: %s\n", args[1])
		ok = false
		return
	}
	listenerID, ok = parseEntityID(args[2])
	if !ok {
		fmt.Fprintf(s.rl.Stdout(), "Invalid listener id: %s\n", args[2])
		return
	}
	li, err := strconv.ParseUint(args[3], 10, 16)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid listener stream index: %s\n", args[3])
		ok = false
		return
	}
	talkerIdx = entitymodel.DescriptorIndex(ti)
	listenerIdx = entitymodel.DescriptorIndex(li)
	ok = true
	return
}

func (s *Shell) cmdStreaming(args []string, running bool) {
	if len(args) < 2 {
		verb := "start"
		if !running {
			verb = "stop"
		}
		fmt.Fprintf(s.rl.Stdout(), "Usage: %s <entity-id> <stream-idx>\n", verb)
		return
	}
	entityID, ok := parseEntityID(args[0])
	if !ok {
		fmt.Fprintf(s.rl.Stdout(), "Invalid entity id: %s\n", args[0])
		return
	}
	idx, err := strconv.ParseUint(args[1], 10, 16)
	if err != nil {
		fmt.Fprintf(s.rl.Stdout(), "Invalid stream index: %s\n", args[1])
		return
	}
	key := entitymodel.DescriptorKey{Type: entitymodel.DescriptorStreamOutput, Index: entitymodel.DescriptorIndex(idx)}
	done := func(status avdeccstatus.AEMStatus) {
		verb := "start"
		if !running {
			verb = "stop"
		}
		fmt.Fprintf(s.rl.Stdout(), "\n%s %s/%d: %s\n", verb, entitymodel.UniqueIdentifier(entityID), idx, status)
		s.rl.Refresh()
	}
	if running {
		s.ctrl.StartStreaming(entityID, key, done)
	} else {
		s.ctrl.StopStreaming(entityID, key, done)
	}
}

func (s *Shell) cmdStatus() {
	fmt.Fprintln(s.rl.Stdout(), "\nController Status")
	fmt.Fprintln(s.rl.Stdout(), strings.Repeat("-", 43))
	fmt.Fprintf(s.rl.Stdout(), "  Controller ID: %s\n", entitymodel.UniqueIdentifier(s.ctrl.EntityID()))
	fmt.Fprintf(s.rl.Stdout(), "  Known entities: %d\n", s.ctrl.Cache().Count())
	fmt.Fprintln(s.rl.Stdout())
}

// handleEvent prints entity lifecycle notifications without disturbing
// the input line, mirroring how a slow background writer coordinates
// with readline's own redraw.
func (s *Shell) handleEvent(ev observerbus.Event) {
	switch ev.Kind {
	case observerbus.EventEntityOnline:
		fmt.Fprintf(s.rl.Stdout(), "\n[online]  %s\n", entitymodel.UniqueIdentifier(ev.EntityID))
		s.rl.Refresh()
	case observerbus.EventEntityOffline:
		fmt.Fprintf(s.rl.Stdout(), "\n[offline] %s\n", entitymodel.UniqueIdentifier(ev.EntityID))
		s.rl.Refresh()
	}
}

func parseEntityID(s string) (uint64, bool) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToUpper(s), "0X"), 16, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
