// Package app implements the application layer for loadstate.
package app

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.leadline.dev/loadstate/internal/adapters/detector"
	"go.leadline.dev/loadstate/internal/adapters/linear"
	"go.leadline.dev/loadstate/internal/adapters/source"
	"go.leadline.dev/loadstate/internal/adapters/telemetry"
	"go.leadline.dev/loadstate/internal/adapters/tui"
	"go.leadline.dev/loadstate/internal/core/domain"
	"go.leadline.dev/loadstate/internal/core/ports"
	"go.leadline.dev/loadstate/internal/engine/coordinator"
	"go.leadline.dev/loadstate/internal/engine/preload"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App wires the engine to its collaborators for one dashboard session.
type App struct {
	configLoader ports.ConfigLoader
	logger       ports.Logger
	notifier     ports.Notifier
	tracer       ports.Tracer
	watcher      ports.ConfigWatcher
	sources      *source.Simulator
	teaOptions   []tea.ProgramOption
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	log ports.Logger,
	notifier ports.Notifier,
	tracer ports.Tracer,
	watcher ports.ConfigWatcher,
	sources *source.Simulator,
) *App {
	return &App{
		configLoader: loader,
		logger:       log,
		notifier:     notifier,
		tracer:       tracer,
		watcher:      watcher,
		sources:      sources,
	}
}

// WithTeaOptions adds bubbletea program options to the App.
// This is primarily used for testing to disable input/output.
func (a *App) WithTeaOptions(opts ...tea.ProgramOption) *App {
	a.teaOptions = append(a.teaOptions, opts...)
	return a
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	// Sections restricts the run to the named section ids. Empty means
	// every configured section.
	Sections []string

	// OutputMode is "auto", "tui", "linear", or "ci".
	OutputMode string

	// Watch keeps the session alive, following configuration changes.
	Watch bool

	// NoRetry disables the retry executor for this run.
	NoRetry bool
}

// Run loads every configured section once and renders the session. In TUI
// mode the dashboard stays up until the user quits; in linear mode the run
// ends when the batch settles unless Watch is set.
//
//nolint:cyclop // orchestration function
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	cwd, err := os.Getwd()
	if err != nil {
		return zerr.Wrap(err, "resolve working directory")
	}

	cfg, err := a.configLoader.Load(cwd)
	if err != nil {
		return zerr.Wrap(err, "load configuration")
	}
	if len(cfg.Sections) == 0 {
		return domain.ErrNoSectionsConfigured
	}

	specs, err := selectSections(cfg, opts.Sections)
	if err != nil {
		return err
	}

	// The global provider is a no-op until a recording one is installed;
	// tracers obtained earlier pick it up through the otel global delegate.
	shutdownTracing := telemetry.Install("loadstate")
	defer func() { _ = shutdownTracing(context.WithoutCancel(ctx)) }()

	mode := detector.ResolveMode(detector.DetectEnvironment(), opts.OutputMode)

	var renderer ports.Renderer
	var model *tui.Model
	if mode == detector.ModeTUI {
		model = tui.NewModel()
		optsTea := append([]tea.ProgramOption{tea.WithContext(ctx)}, a.teaOptions...)
		renderer = tui.NewRenderer(model, optsTea...)
	} else {
		renderer = linear.NewRenderer(os.Stderr)
	}

	coord := coordinator.New(a.logger, a.notifier, a.tracer,
		coordinator.WithRetryPolicy(cfg.Retry),
		coordinator.WithStaleThreshold(cfg.StaleThreshold),
		coordinator.WithSweepInterval(cfg.SweepInterval),
		coordinator.WithListener(renderer),
	)
	defer coord.Close()

	sub := coord.Subscribe(renderer.OnSnapshot)
	defer sub.Unsubscribe()

	loaders := make(map[string]ports.Loader, len(specs))
	plan := make([]string, 0, len(specs))
	for _, spec := range specs {
		if err := coord.Register(spec.ID, spec.Name); err != nil {
			return err
		}
		loaders[spec.ID] = a.sources.Loader(spec)
		plan = append(plan, spec.ID)
	}

	if model != nil {
		model.OnRefresh = func() {
			go func() {
				_, _ = coord.RefreshAll(context.WithoutCancel(ctx))
			}()
		}
	}

	sched := preload.New(a.logger, a.sources.PanelLoader(0, 0), cfg.Preload.Panels,
		preload.WithDebounce(cfg.Preload.Debounce),
		preload.WithEagerCount(cfg.Preload.EagerCount),
	)
	defer sched.Close()

	var loadOpts []coordinator.LoadOption
	if opts.NoRetry {
		loadOpts = append(loadOpts, coordinator.WithoutRetry())
	}

	interactive := mode == detector.ModeTUI

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := renderer.Start(ctx); err != nil {
			return err
		}
		return renderer.Wait()
	})

	g.Go(func() error {
		keepAlive := interactive || opts.Watch
		defer func() {
			if !keepAlive {
				_ = renderer.Stop()
			}
		}()

		coord.Start(ctx)
		renderer.OnPlan(plan)
		sched.PreloadEager(ctx)

		if _, err := coord.LoadAll(ctx, loaders, loadOpts...); err != nil {
			return err
		}

		if opts.Watch {
			if err := a.followConfig(ctx, coord); err != nil {
				a.logger.Warn(fmt.Sprintf("configuration watch disabled: %v", err))
			}
		}
		if !interactive && opts.Watch {
			<-ctx.Done()
			_ = renderer.Stop()
		}
		return nil
	})

	return g.Wait()
}

// selectSections resolves the requested section ids against the configured
// ones. An empty request selects everything; an unknown id is an error.
func selectSections(cfg *domain.Config, ids []string) ([]domain.SectionSpec, error) {
	if len(ids) == 0 {
		return cfg.Sections, nil
	}

	specs := make([]domain.SectionSpec, 0, len(ids))
	for _, id := range ids {
		spec, ok := cfg.Section(id)
		if !ok {
			return nil, zerr.With(
				zerr.Wrap(domain.ErrUnknownSection, "select sections"),
				"section", id,
			)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// followConfig applies staleness and retry settings from configuration
// changes to the running coordinator.
func (a *App) followConfig(ctx context.Context, coord *coordinator.Coordinator) error {
	path := a.configLoader.Path()
	if path == "" {
		return domain.ErrConfigNotFound
	}
	if err := a.watcher.Start(ctx, path); err != nil {
		return err
	}

	go func() {
		defer func() { _ = a.watcher.Stop() }()

		for range a.watcher.Events() {
			cwd, err := os.Getwd()
			if err != nil {
				continue
			}
			cfg, err := a.configLoader.Load(cwd)
			if err != nil {
				a.logger.Error(zerr.Wrap(err, "reload configuration"))
				continue
			}
			coord.SetStaleThreshold(cfg.StaleThreshold)
			coord.SetRetryPolicy(cfg.Retry)
			a.logger.Info(fmt.Sprintf("configuration reloaded from %s", path))

			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}()
	return nil
}
