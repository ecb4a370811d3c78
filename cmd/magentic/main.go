package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/magentic-ai/magentic/internal/config"
	"github.com/magentic-ai/magentic/internal/events"
	"github.com/magentic-ai/magentic/internal/orchestrator"
	"github.com/magentic-ai/magentic/internal/persistence"
	"github.com/magentic-ai/magentic/internal/runner"
	"github.com/magentic-ai/magentic/internal/viz"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Signal-aware context for graceful shutdown; an in-flight layer
	// finishes before the cancellation takes effect.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		sessionID = flag.String("session", orchestrator.DefaultSessionID, "conversation session ID")
		showPlan  = flag.Bool("plan", false, "print the execution plan before running")
		verbose   = flag.Bool("verbose", false, "log task lifecycle events")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		return fmt.Errorf("usage: magentic [flags] \"your question\"")
	}
	query := strings.Join(flag.Args(), " ")

	cfg, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	backend, err := runner.NewBackend(runner.BackendConfig{
		Type:      cfg.Backend.Type,
		Model:     cfg.Backend.Model,
		Host:      cfg.Backend.Host,
		APIKey:    cfg.Backend.APIKey,
		MaxTokens: cfg.Backend.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	defer backend.Close()

	bus := events.NewEventBus()
	defer bus.Close()
	if *verbose {
		go logEvents(bus.SubscribeAll(0))
	}

	var store persistence.Store
	if cfg.HistoryPath != "" {
		s, err := persistence.NewSQLiteStore(ctx, cfg.HistoryPath)
		if err != nil {
			return fmt.Errorf("open run history: %w", err)
		}
		defer s.Close()
		store = s
	}

	system, err := orchestrator.New(orchestrator.Options{
		Config:  *cfg,
		Backend: backend,
		Bus:     bus,
		Store:   store,
	})
	if err != nil {
		return err
	}

	if store != nil {
		if err := system.RestoreSession(ctx, *sessionID); err != nil {
			log.Printf("WARNING: %v", err)
		}
	}

	res, err := system.ProcessQuery(ctx, *sessionID, query)
	if err != nil {
		return err
	}

	if *showPlan {
		fmt.Println(viz.RenderPlan(res.Description, res.Tasks, res.Layers))
	}

	fmt.Println(res.FinalAnswer)

	if *verbose {
		fmt.Println()
		fmt.Println(viz.RenderSummary(res.Trace))
	}
	return nil
}

// logEvents mirrors bus traffic to the standard logger.
func logEvents(ch <-chan events.Event) {
	for ev := range ch {
		switch e := ev.(type) {
		case events.PlanCreatedEvent:
			log.Printf("plan created: %d layers, roles %v", e.Layers, e.Roles)
		case events.TaskStartedEvent:
			log.Printf("task %d (%s) started in layer %d", e.Index, e.Role, e.Layer)
		case events.TaskCompletedEvent:
			log.Printf("task %d (%s) completed in %s", e.Index, e.Role, e.Duration)
		case events.TaskFailedEvent:
			log.Printf("task %d (%s) failed: %v", e.Index, e.Role, e.Err)
		case events.LayerCompletedEvent:
			log.Printf("layer %d completed (%d tasks, %d failed)", e.Layer, e.Total, e.Failed)
		}
	}
}
