// Package app wires configuration, AWS clients, the sweep engine and every
// supporting service into one daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"costguard/internal/awsx"
	"costguard/internal/budget"
	"costguard/internal/clock"
	"costguard/internal/config"
	"costguard/internal/driver"
	"costguard/internal/eventbus"
	"costguard/internal/lifecycle"
	"costguard/internal/notify"
	"costguard/internal/storage"
	"costguard/internal/supervisor"
	"costguard/internal/sweep"
	"costguard/internal/tags"
	"costguard/internal/telemetry"
	logx "costguard/pkg/logx"
)

// driverRatePerSec bounds describe/start/stop API calls per driver so large
// fleets don't trip AWS throttling.
const driverRatePerSec = 5

type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	clients *awsx.Clients
	store   storage.Store
	rec     *storage.Recorder

	notif  *notify.Service
	snsARN string

	metrics    *telemetry.Metrics
	metricsSrv *telemetry.Server
	cw         *telemetry.CloudWatchPublisher

	cron    *cron.Cron
	sweepID cron.EntryID

	forceDryRun bool
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	clients, err := awsx.New(context.Background(), cfg.AWS)
	if err != nil {
		logSvc.Close()
		return nil, fmt.Errorf("aws clients: %w", err)
	}

	var store storage.Store
	if cfg.Storage != nil {
		sc, err := mapStorageConfig(cfg.Storage)
		if err != nil {
			logSvc.Close()
			return nil, err
		}
		store, err = storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			logSvc.Close()
			return nil, err
		}
		if store != nil {
			log.Info("storage enabled", logx.String("driver", sc.Driver))
		}
	}

	ncfg, err := mapNotifierConfig(cfg.Notifier)
	if err != nil {
		logSvc.Close()
		return nil, err
	}
	snsARN := ""
	if cfg.Notifier != nil {
		snsARN = cfg.Notifier.TopicARN
	}
	notif := notify.New(ncfg,
		notify.NewSNSPublisher(clients.SNS, snsARN),
		log.With(logx.String("comp", "notifier")), bus)

	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		clients: clients,
		store:   store,
		rec:     storage.NewRecorder(store, bus, log.With(logx.String("comp", "recorder"))),
		notif:   notif,
		snsARN:  snsARN,
		metrics: telemetry.NewMetrics(),
		cw:      telemetry.NewCloudWatchPublisher(clients.CloudWatch),
	}
	return a, nil
}

// SetDryRun forces dry-run regardless of configuration, for the CLI flag.
func (a *App) SetDryRun(v bool) { a.forceDryRun = v }

// Done is closed when the supervisor context ends (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Start launches daemon mode: periodic sweeps, config watch, metrics server
// and the storage recorder.
func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgm.Get()
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, c *config.Config) error {
		return config.Validate(c)
	})

	if a.notif.Enabled() {
		a.notif.Start(a.sup.Context())
	}

	if a.store != nil {
		a.sup.Go("storage.recorder", a.rec.Run)
	}

	if cfg.Metrics.Enabled {
		a.metricsSrv = telemetry.NewServer(cfg.Metrics.Addr, a.metrics,
			a.log.With(logx.String("comp", "metrics")))
		a.sup.Go("metrics.http", a.metricsSrv.Run)
	}

	if err := a.startCron(cfg); err != nil {
		return err
	}

	// Debug-level event mirror, handy when chasing lost notifications.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})

	a.sup.GoRestart("config.watch", a.cfgm.Watch)

	a.log.Info("costguard started",
		logx.String("config", a.cfgPath),
		logx.Bool("dry_run", a.dryRun(cfg)),
		logx.String("sweep_schedule", cfg.Scheduler.SweepSchedule))
	return nil
}

func (a *App) startCron(cfg *config.Config) error {
	spec := strings.TrimSpace(cfg.Scheduler.SweepSchedule)
	if spec == "" {
		a.log.Info("no sweep_schedule configured; sweeps run on demand only")
		return nil
	}
	loc, err := locationFor(cfg)
	if err != nil {
		return err
	}
	a.cron = cron.New(cron.WithLocation(loc))
	id, err := a.cron.AddFunc(spec, func() {
		a.RunSweep(a.sup.Context())
	})
	if err != nil {
		return fmt.Errorf("scheduler.sweep_schedule: %w", err)
	}
	a.sweepID = id
	a.cron.Start()
	return nil
}

// RunSweep executes one sweep with the current configuration and handles the
// follow-up: Prometheus and CloudWatch metrics plus the operator report.
func (a *App) RunSweep(ctx context.Context) sweep.Summary {
	cfg := a.cfgm.Get()
	loc, err := locationFor(cfg)
	if err != nil {
		// Validated at load; only a racing bad reload can get here.
		a.log.Error("invalid timezone, using UTC", logx.Err(err))
		loc = time.UTC
	}

	runner := sweep.NewRunner(sweep.Config{
		TagKey:         cfg.Scheduler.TagKey,
		DryRun:         a.dryRun(cfg),
		AllowOvernight: cfg.Scheduler.AllowOvernight,
		Location:       loc,
	}, a.buildDrivers(cfg), clock.System(),
		tags.Protection{Key: cfg.Protection.TagKey},
		a.bus, a.log.With(logx.String("comp", "sweep")))

	sum := runner.Run(ctx)

	a.metrics.ObserveSweep(sum)
	if err := a.cw.PublishSweep(ctx, sum); err != nil {
		a.log.Warn("cloudwatch publish failed", logx.Err(err))
	}

	if a.notif.Enabled() && sum.Active() {
		msg := notify.FormatReport(sum, tagKeyFor(cfg))
		if err := a.notif.Enqueue(ctx, msg); err != nil {
			a.log.Warn("sweep report not queued", logx.Err(err))
		}
	}
	return sum
}

// SweepOnce runs a single sweep outside daemon mode: the notifier is spun up
// just long enough to drain the report, and the run record is persisted
// synchronously.
func (a *App) SweepOnce(ctx context.Context) sweep.Summary {
	if a.notif.Enabled() {
		a.notif.Start(ctx)
	}
	sum := a.RunSweep(ctx)
	a.rec.RecordRun(ctx, sum)
	a.drainAndClose(ctx)
	return sum
}

// ProcessBudgetAlert handles one budget alert with the current configuration.
func (a *App) ProcessBudgetAlert(ctx context.Context, alert budget.Alert) (budget.Outcome, error) {
	cfg := a.cfgm.Get()
	if cfg.Budget == nil || !cfg.Budget.Enabled {
		return budget.Outcome{}, errors.New("budget handling is not enabled in config")
	}
	if a.notif.Enabled() {
		a.notif.Start(ctx)
	}

	h := budget.NewHandler(budget.Config{
		EssentialTagKey:   cfg.Budget.EssentialTagKey,
		EssentialTagValue: cfg.Budget.EssentialTagValue,
		Disabled:          cfg.Budget.Disabled,
	}, a.buildDrivers(cfg), a.notif, a.bus,
		a.log.With(logx.String("comp", "budget")))
	out := h.Process(ctx, alert)
	a.drainAndClose(ctx)
	return out, nil
}

// OptimizeLifecycle runs one S3 lifecycle optimization pass.
func (a *App) OptimizeLifecycle(ctx context.Context) (lifecycle.Report, error) {
	cfg := a.cfgm.Get()
	if cfg.Lifecycle == nil || !cfg.Lifecycle.Enabled {
		return lifecycle.Report{}, errors.New("lifecycle optimization is not enabled in config")
	}
	if a.notif.Enabled() {
		a.notif.Start(ctx)
	}

	lcfg := lifecycle.Config{
		DryRun:               cfg.Lifecycle.DryRun,
		DaysIA:               cfg.Lifecycle.DaysIA,
		DaysGlacier:          cfg.Lifecycle.DaysGlacier,
		DaysDeepArchive:      cfg.Lifecycle.DaysDeepArchive,
		IncompleteUploadDays: cfg.Lifecycle.IncompleteUploadDays,
		OldVersionDays:       cfg.Lifecycle.OldVersionDays,
	}
	if a.forceDryRun {
		lcfg.DryRun = true
	}

	opt := lifecycle.NewOptimizer(lcfg, a.clients.S3, a.clients.CloudWatch,
		clock.System(), a.bus, a.log.With(logx.String("comp", "lifecycle")))
	rep := opt.Run(ctx)

	if a.notif.Enabled() && rep.Active() {
		if err := a.notif.Enqueue(ctx, lifecycle.FormatReport(rep)); err != nil {
			a.log.Warn("lifecycle report not queued", logx.Err(err))
		}
	}
	a.drainAndClose(ctx)
	return rep, nil
}

// Stop shuts the daemon down: cron first so no new sweep starts, then the
// notifier drains, then storage closes.
func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	if a.cron != nil {
		stopCtx := a.cron.Stop() // waits for a running sweep job
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
	}
	a.sup.Cancel()

	drainCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	a.notif.Stop(drainCtx)
	cancel()

	if err := a.sup.Wait(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		a.log.Warn("shutdown incomplete", logx.Err(err))
	}

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
	}
	a.log.Info("stopped")
	a.logs.Close()
	return nil
}

// drainAndClose finishes a one-shot command: flush pending notifications and
// release the store and logger.
func (a *App) drainAndClose(ctx context.Context) {
	drainCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	a.notif.Stop(drainCtx)
	cancel()
	if a.store != nil {
		_ = a.store.Close()
	}
	a.logs.Close()
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts, keeping only the newest snapshot.
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						cfg = newer
					}
				default:
					goto APPLY
				}
			}
		APPLY:
			a.applyReload(ctx, last, cfg)
			last = cfg
		}
	}
}

func (a *App) applyReload(ctx context.Context, old, cfg *config.Config) {
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	// Notifier: live apply, plus start/stop transitions.
	prevEnabled := a.notif.Enabled()
	ncfg, err := mapNotifierConfig(cfg.Notifier)
	if err != nil {
		a.log.Warn("invalid notifier config; keeping previous", logx.Err(err))
	} else {
		if cfg.Notifier != nil && cfg.Notifier.TopicARN != a.snsARN {
			a.log.Warn("notifier.topic_arn changed; restart required to take effect")
		}
		a.notif.Apply(ncfg)
		switch {
		case prevEnabled && !ncfg.Enabled:
			a.log.Info("notifier disabled via config")
			stopCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			a.notif.Stop(stopCtx)
			cancel()
		case !prevEnabled && ncfg.Enabled:
			a.log.Info("notifier enabled via config")
			a.notif.Start(ctx)
		}
	}

	// Sweep trigger: re-register the cron entry when the expression changes.
	if a.cron != nil && cfg.Scheduler.SweepSchedule != old.Scheduler.SweepSchedule {
		spec := strings.TrimSpace(cfg.Scheduler.SweepSchedule)
		a.cron.Remove(a.sweepID)
		if spec != "" {
			id, err := a.cron.AddFunc(spec, func() { a.RunSweep(a.sup.Context()) })
			if err != nil {
				a.log.Warn("invalid sweep_schedule; periodic sweeps disabled", logx.Err(err))
			} else {
				a.sweepID = id
			}
		} else {
			a.log.Info("sweep_schedule cleared; periodic sweeps disabled")
		}
	}

	for section, changed := range map[string]bool{
		"storage":            !storageEqual(old.Storage, cfg.Storage),
		"aws":                old.AWS != cfg.AWS,
		"metrics":            old.Metrics != cfg.Metrics,
		"scheduler.timezone": old.Scheduler.Timezone != cfg.Scheduler.Timezone,
	} {
		if changed {
			a.log.Warn("config changed; restart required to take effect",
				logx.String("section", section))
		}
	}

	a.bus.Publish(eventbus.Event{Type: eventbus.TypeConfigApplied})
	a.log.Info("config reloaded")
}

func (a *App) buildDrivers(cfg *config.Config) []driver.Driver {
	tagKey := tagKeyFor(cfg)
	var ds []driver.Driver
	if cfg.Drivers.EC2.On() {
		ds = append(ds, driver.Throttle(driver.NewEC2(a.clients.EC2, tagKey), driverRatePerSec))
	}
	if cfg.Drivers.RDS.On() {
		ds = append(ds, driver.Throttle(driver.NewRDS(a.clients.RDS), driverRatePerSec))
	}
	return ds
}

func (a *App) dryRun(cfg *config.Config) bool {
	return a.forceDryRun || cfg.Scheduler.DryRun
}

func tagKeyFor(cfg *config.Config) string {
	if cfg.Scheduler.TagKey == "" {
		return sweep.DefaultTagKey
	}
	return cfg.Scheduler.TagKey
}

func locationFor(cfg *config.Config) (*time.Location, error) {
	tz := strings.TrimSpace(cfg.Scheduler.Timezone)
	if tz == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(tz)
}

func storageEqual(a, b *config.StorageConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
