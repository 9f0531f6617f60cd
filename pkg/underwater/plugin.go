// Package underwater is the entry point host bridges call into. It wires the
// ambient settings, logging, telemetry, journal and vehicle handlers together
// and exposes one method per host event.
package underwater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/OCAP2/underwater/internal/adapter"
	"github.com/OCAP2/underwater/internal/config"
	"github.com/OCAP2/underwater/internal/dispatcher"
	"github.com/OCAP2/underwater/internal/handlers"
	"github.com/OCAP2/underwater/internal/influx"
	"github.com/OCAP2/underwater/internal/logging"
	"github.com/OCAP2/underwater/internal/monitor"
	intOtel "github.com/OCAP2/underwater/internal/otel"
	"github.com/OCAP2/underwater/internal/pluginconfig"
	"github.com/OCAP2/underwater/internal/scheduler"
	"github.com/OCAP2/underwater/internal/storage"
	"github.com/OCAP2/underwater/internal/storage/memory"
	"github.com/OCAP2/underwater/pkg/host"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ExtensionName prefixes log file names.
const ExtensionName = "underwater_vehicles"

// WatchPollInterval is how often a watched configuration file is checked for
// edits on the host scheduler.
const WatchPollInterval = time.Second

// ErrUnloaded is returned by calls made after Unload.
var ErrUnloaded = errors.New("underwater: plugin unloaded")

// Options are the host collaborators. World is required.
type Options struct {
	// ConfigDir holds the ambient settings file. Relative paths inside it
	// (logs, journal, vehicle configuration) resolve against ConfigDir.
	ConfigDir string
	World     host.World
	// Scheduler defaults to an internal TickScheduler driven by Plugin.Tick.
	Scheduler host.Scheduler
	Hooks     host.HookSubscriber
	// Store overrides the vehicle configuration file.
	Store pluginconfig.Store
}

// Plugin owns every component for one load of the extension.
type Plugin struct {
	sessionID    string
	sessionStart time.Time
	configDir    string

	logManager *logging.SlogManager
	logger     *slog.Logger
	zlog       zerolog.Logger
	logFile    *os.File
	logPath    string
	gelf       *gelf.Writer
	otel       *intOtel.Provider

	ticker  *scheduler.TickScheduler
	store   pluginconfig.Store
	journal storage.Backend
	influx  *influx.Manager

	service    *handlers.Service
	counters   *handlers.Counters
	dispatcher *dispatcher.Dispatcher
	monitor    *monitor.Service

	watcher     *pluginconfig.Watcher
	cancelWatch host.CancelFunc
	unloaded    bool
}

// New loads settings and configuration and builds every component. Optional
// sinks that fail to start are logged and skipped; only a missing World is
// fatal.
func New(opts Options) (*Plugin, error) {
	if opts.World == nil {
		return nil, errors.New("underwater: Options.World is required")
	}

	p := &Plugin{
		sessionID:    uuid.NewString(),
		sessionStart: time.Now(),
		configDir:    opts.ConfigDir,
		logManager:   logging.NewSlogManager(),
		counters:     &handlers.Counters{},
	}

	settingsErr := config.Load(opts.ConfigDir)

	p.setupLogging()
	p.logger = p.logger.With("session", p.sessionID)
	p.zlog = p.zlog.With().Str("session", p.sessionID).Logger()
	if settingsErr != nil {
		p.logger.Warn("Failed to load settings, using defaults", "error", settingsErr)
	}

	instruments, err := adapter.NewInstruments()
	if err != nil {
		p.logger.Warn("Adapter metrics unavailable", "error", err)
	}

	p.journal = p.openJournal()

	p.store = opts.Store
	if p.store == nil {
		p.store = pluginconfig.FileStore{Path: p.resolve(viper.GetString("pluginConfigFile"))}
	}
	cfg, err := pluginconfig.Load(p.store, p.zlog)
	if err != nil {
		p.logger.Warn("Using default vehicle configuration", "error", err)
	}

	sched := opts.Scheduler
	if sched == nil {
		p.ticker = scheduler.New(nil)
		sched = p.ticker
	}

	p.service = handlers.NewService(handlers.Dependencies{
		World:       opts.World,
		Scheduler:   sched,
		Hooks:       opts.Hooks,
		Logger:      p.zlog,
		Instruments: instruments,
		Recorder:    p.journal,
		Counters:    p.counters,
	}, cfg)

	p.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(p.zlog))
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	p.service.RegisterHandlers(p.dispatcher, p.loadConfig)

	p.monitor = monitor.NewService(monitor.Dependencies{
		Source:     p.service,
		Scheduler:  sched,
		Writer:     p.openInflux(),
		Logger:     p.logger,
		StatusPath: p.resolve(filepath.Join(viper.GetString("logsDir"), "status.txt")),
		Interval:   config.GetInfluxConfig().ReportInterval,
	})

	if config.GetBool("watchPluginConfig") {
		p.startWatch(sched)
	}

	p.logger.Info("Plugin loaded", "configDir", opts.ConfigDir)
	return p, nil
}

// startWatch reloads the vehicle configuration when its file is edited. Only
// file stores can be watched.
func (p *Plugin) startWatch(sched host.Scheduler) {
	fs, ok := p.store.(pluginconfig.FileStore)
	if !ok {
		p.logger.Warn("Configuration watch needs a file store, skipping")
		return
	}

	w, err := pluginconfig.Watch(fs.Path, p.zlog)
	if err != nil {
		p.logger.Error("Failed to watch configuration", "error", err)
		return
	}
	p.watcher = w
	p.cancelWatch = sched.Repeat(WatchPollInterval, 0, p.pollWatch)
}

func (p *Plugin) pollWatch() {
	if !p.watcher.Changed() {
		return
	}

	cfg, err := p.loadConfig()
	if err != nil {
		// keep running with the last good configuration while the file is mid-edit
		p.logger.Warn("Ignoring unusable configuration edit", "error", err)
		return
	}
	if cfg == p.service.Config() {
		return
	}

	n := p.service.ApplyConfig(cfg)
	p.logger.Info("Configuration file changed, reapplied", "adapters", n)
}

func (p *Plugin) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.configDir, path)
}

func (p *Plugin) setupLogging() {
	logsDir := p.resolve(viper.GetString("logsDir"))
	level := viper.GetString("logLevel")

	var file io.Writer
	f, fileErr := logging.OpenLogFile(logsDir, ExtensionName, p.sessionStart)
	if fileErr == nil {
		p.logFile = f
		p.logPath = f.Name()
		file = f
	}

	var gl io.Writer
	var gelfErr error
	if gc := config.GetGraylogConfig(); gc.Enabled {
		p.gelf, gelfErr = gelf.NewWriter(gc.Address)
		if gelfErr == nil {
			gl = p.gelf
		}
	}

	var otelErr error
	var provider *sdklog.LoggerProvider
	if oc := config.GetOTelConfig(); oc.Enabled {
		p.otel, otelErr = intOtel.New(intOtel.FromSettings(oc, file))
		if otelErr == nil {
			provider = p.otel.LoggerProvider()
		} else {
			p.otel = nil
		}
	}

	// hooks run on background goroutines too, so they read the published
	// counters rather than the adapter cache
	counts := logging.AdapterCounts(p.counters.Attached, p.counters.Active)

	p.logManager.Setup(logging.Options{
		File:        file,
		Level:       level,
		Graylog:     gl,
		Provider:    provider,
		ServiceName: config.GetOTelConfig().ServiceName,
		Context:     counts,
	})
	p.logger = p.logManager.Logger()
	p.zlog = logging.NewZerolog(level, file, gl, counts)

	if p.logFile != nil {
		p.logger.Info("Logging to file", "path", p.logPath)
	}
	if fileErr != nil {
		p.logger.Warn("Logging to stdout", "error", fileErr)
	}
	if gelfErr != nil {
		p.logger.Error("Failed to connect to Graylog", "error", gelfErr)
	}
	if otelErr != nil {
		p.logger.Error("Failed to initialize OTel provider", "error", otelErr)
	}
}

func (p *Plugin) openJournal() storage.Backend {
	sc := config.GetStorageConfig()
	sc.SQLite.Path = p.resolve(sc.SQLite.Path)

	b, err := storage.NewBackend(sc, p.zlog)
	if err == nil {
		err = b.Init()
	}
	if err != nil {
		p.logger.Error("Journal unavailable, keeping events in memory", "type", sc.Type, "error", err)
		return memory.New(memory.DefaultCapacity)
	}
	if _, inline := b.(*memory.Backend); inline {
		return b
	}

	// database writes go through a single writer so the host tick never waits on I/O
	buffered, err := storage.NewBuffered(b, storage.DefaultQueueSize, p.zlog)
	if err != nil {
		_ = b.Close()
		p.logger.Error("Journal writer unavailable, keeping events in memory", "type", sc.Type, "error", err)
		return memory.New(memory.DefaultCapacity)
	}
	return buffered
}

func (p *Plugin) openInflux() monitor.PointWriter {
	ic := config.GetInfluxConfig()
	if !ic.Enabled {
		return nil
	}

	m := influx.NewManager(ic, p.zlog, p.resolve(filepath.Join(viper.GetString("logsDir"), "influx_backup.log.gz")))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Connect(ctx); err != nil {
		p.logger.Error("Failed to initialize InfluxDB", "error", err)
		return nil
	}
	p.influx = m
	return m
}

func (p *Plugin) loadConfig() (pluginconfig.Configuration, error) {
	return pluginconfig.Load(p.store, p.zlog)
}

// OnServerInitialized runs the initial sweep and starts status reporting.
func (p *Plugin) OnServerInitialized(initialBoot bool) {
	if p.unloaded {
		return
	}
	p.service.OnServerInitialized(initialBoot)
	p.monitor.Start()
}

// OnEntitySpawned is called for every vehicle the host spawns.
func (p *Plugin) OnEntitySpawned(v host.Vehicle) {
	if p.unloaded {
		return
	}
	p.service.OnVehicleSpawned(v)
}

// OnEntityKill is called before the host destroys a vehicle.
func (p *Plugin) OnEntityKill(v host.Vehicle) {
	if p.unloaded {
		return
	}
	p.service.OnVehicleDespawned(v)
}

// OnEntityMounted is called after an occupant boards a vehicle.
func (p *Plugin) OnEntityMounted(v host.Vehicle) {
	if p.unloaded {
		return
	}
	p.service.OnMounted(v)
}

// OnEntityDismounted is called after an occupant leaves a vehicle.
func (p *Plugin) OnEntityDismounted(v host.Vehicle) {
	if p.unloaded {
		return
	}
	p.service.OnDismounted(v)
}

// ReloadConfig reads the vehicle configuration again and re-applies it to
// every vehicle. A corrupt file applies defaults and is reported.
func (p *Plugin) ReloadConfig() error {
	if p.unloaded {
		return ErrUnloaded
	}
	cfg, err := p.loadConfig()
	if err != nil && !errors.Is(err, pluginconfig.ErrConfigCorrupt) {
		return err
	}
	p.service.ApplyConfig(cfg)
	return err
}

// Dispatch routes a named host event, see handlers.Cmd*. :INIT: and :UNLOAD:
// behave like OnServerInitialized and Unload.
func (p *Plugin) Dispatch(e dispatcher.Event) (any, error) {
	if p.unloaded {
		return nil, ErrUnloaded
	}
	res, err := p.dispatcher.Dispatch(e)
	if err != nil {
		return res, err
	}

	switch e.Command {
	case handlers.CmdInit:
		p.monitor.Start()
	case handlers.CmdUnload:
		p.Unload()
	}
	return res, nil
}

// Tick advances the internal scheduler. It is a no-op when the host
// supplied its own Scheduler.
func (p *Plugin) Tick(dt time.Duration) {
	if p.ticker != nil {
		p.ticker.Advance(dt)
	}
}

// Status returns the current adapter load snapshot.
func (p *Plugin) Status() monitor.Status {
	return p.monitor.GetStatus()
}

// Config returns the vehicle configuration currently applied.
func (p *Plugin) Config() pluginconfig.Configuration {
	return p.service.Config()
}

// Journal returns the lifecycle event journal.
func (p *Plugin) Journal() storage.Backend {
	return p.journal
}

// SessionID identifies this load of the plugin in logs.
func (p *Plugin) SessionID() string {
	return p.sessionID
}

// LogFilePath returns the session log file, or "" when logging to stdout.
func (p *Plugin) LogFilePath() string {
	return p.logPath
}

// Unload restores every vehicle and releases all sinks. It is safe to call
// more than once; host events that arrive afterwards are ignored.
func (p *Plugin) Unload() {
	if p.unloaded {
		return
	}
	p.unloaded = true

	if p.cancelWatch != nil {
		p.cancelWatch()
	}
	if p.watcher != nil {
		if err := p.watcher.Close(); err != nil {
			p.logger.Warn("Failed to stop configuration watch", "error", err)
		}
	}

	p.monitor.Stop()
	p.service.Unload()
	p.monitor.Report()

	if err := p.journal.Close(); err != nil {
		p.logger.Warn("Failed to close journal", "error", err)
	}
	if p.influx != nil {
		if err := p.influx.Close(); err != nil {
			p.logger.Warn("Failed to close InfluxDB", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if p.otel != nil {
		if err := p.otel.Shutdown(ctx); err != nil {
			p.logger.Warn("Failed to shut down OTel", "error", err)
		}
	}

	p.logger.Info("Plugin unloaded")

	if p.gelf != nil {
		p.gelf.Close()
	}
	if p.logFile != nil {
		p.logFile.Close()
	}
}
