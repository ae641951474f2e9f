package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pablospe/i3/pkg/command"
	"github.com/pablospe/i3/pkg/config"
	"github.com/pablospe/i3/pkg/ipc"
	"github.com/pablospe/i3/pkg/layout"
	"github.com/pablospe/i3/pkg/logging"
	"github.com/pablospe/i3/pkg/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "", "Path to config.toml (optional)")
	socket := flag.String("socket", "", "Override IPC socket path (optional)")
	flag.Parse()

	logger := logging.New("i3d")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, *socket, logger); err != nil {
		logger.Printf("fatal error: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, socketOverride string, logger *logging.Logger) error {
	cfg := &config.Config{}
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if err := logger.Configure(cfg.Logging); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	dbPath := cfg.Storage.DBPath
	if dbPath == "" {
		dir := os.Getenv("XDG_DATA_HOME")
		if dir == "" {
			dir = os.TempDir()
		}
		dbPath = filepath.Join(dir, "i3d", "layout.db")
	}
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("init snapshot store: %w", err)
	}

	state := layout.NewState()
	state.BarConfigs = cfg.Bars
	if root, err := store.Load(ctx); err != nil {
		logger.Printf("warning: snapshot restore failed: %v", err)
		seedState(state)
	} else if root != nil {
		state.Root = root
		rebuildOutputs(state)
		logger.Printf("restored layout snapshot from %s", store.Path())
	} else {
		seedState(state)
	}

	srv := ipc.NewServer(logger)
	render := func() {
		logger.Printf("render requested by command execution")
	}
	ipc.RegisterHandlers(srv, state, command.Accepting(), render)

	socketPath := socketOverride
	if socketPath == "" {
		socketPath = cfg.IPC.SocketPath
	}
	if err := srv.Start(ctx, socketPath); err != nil {
		// The control channel is disabled but the host keeps running.
		logger.Printf("could not create the IPC socket, IPC disabled: %v", err)
	} else {
		defer srv.Stop()
		logger.Printf("daemon ready; socket at %s", srv.SocketPath())
	}

	<-ctx.Done()
	logger.Println("shutting down")

	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Save(saveCtx, state.Root); err != nil {
		logger.Printf("warning: snapshot save failed: %v", err)
	}
	return nil
}

// seedState builds the minimal startup topology: one output showing one
// numbered workspace.
func seedState(state *layout.State) {
	output := layout.NewNode(layout.TypeOutput, "default")
	output.Layout = layout.LayoutOutput
	output.Rect = layout.Rect{Width: 1280, Height: 800}

	ws := layout.NewNode(layout.TypeWorkspace, "1")
	ws.Num = 1
	ws.Layout = layout.LayoutSplitH
	ws.Rect = output.Rect

	output.AddChild(ws)
	state.Root.AddChild(output)
	state.Outputs = []*layout.Output{{
		Name:             output.Name,
		Active:           true,
		Primary:          true,
		Rect:             output.Rect,
		Con:              output,
		CurrentWorkspace: ws,
	}}
	state.Focused = ws
}

// rebuildOutputs derives the output topology from a restored tree.
func rebuildOutputs(state *layout.State) {
	state.Outputs = nil
	state.Focused = state.Root
	for _, child := range state.Root.Nodes {
		if child.Type != layout.TypeOutput {
			continue
		}
		out := &layout.Output{
			Name:   child.Name,
			Active: true,
			Rect:   child.Rect,
			Con:    child,
		}
		for _, ws := range child.Nodes {
			if ws.Type == layout.TypeWorkspace {
				out.CurrentWorkspace = ws
				state.Focused = ws
				break
			}
		}
		state.Outputs = append(state.Outputs, out)
	}
	if len(state.Outputs) > 0 {
		state.Outputs[0].Primary = true
	}
}
