package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/skobkin/probelink/internal/bus"
	"github.com/skobkin/probelink/internal/capture"
	"github.com/skobkin/probelink/internal/config"
	"github.com/skobkin/probelink/internal/connectors"
	"github.com/skobkin/probelink/internal/logging"
	"github.com/skobkin/probelink/internal/transport"
)

const shutdownTimeout = 5 * time.Second

// Options tune Initialize for a single command invocation.
type Options struct {
	// ConfigFile overrides the config file location.
	ConfigFile string
	// Override is applied to the loaded config before validation.
	Override func(*config.AppConfig)
	// OpenCaptureDB opens the capture database even when recording is off.
	OpenCaptureDB bool
	// Paths skips path resolution when set.
	Paths *Paths
}

type Runtime struct {
	Ctx    context.Context
	cancel context.CancelFunc

	Paths  Paths
	Config config.AppConfig

	LogManager *logging.Manager
	Bus        *bus.PubSubBus
	DB         *sql.DB

	CaptureRepo *capture.Repo
	WriterQueue *capture.WriterQueue
	Recorder    *capture.Recorder

	Session *transport.Session

	connStatusMu    sync.RWMutex
	connStatus      connectors.ConnStatus
	connStatusKnown bool
	closeOnce       sync.Once
	closeErr        error
}

func Initialize(parent context.Context, opts Options) (*Runtime, error) {
	var paths Paths
	if opts.Paths != nil {
		paths = *opts.Paths
	} else {
		resolved, err := ResolvePaths(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		paths = resolved
	}

	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return nil, err
	}
	if opts.Override != nil {
		opts.Override(&cfg)
	}
	// Validate before filling defaults so that an override cannot be
	// silently replaced by a default value.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.FillMissingDefaults()

	ctx, cancel := context.WithCancel(parent)
	rt := &Runtime{
		Ctx:    ctx,
		cancel: cancel,
		Paths:  paths,
		Config: cfg,
	}

	logMgr := logging.NewManager()
	if err := logMgr.Configure(cfg.Logging, paths.LogFile); err != nil {
		_ = logMgr.Close()
		cancel()
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	rt.LogManager = logMgr
	slog.Info("starting probelink runtime", "version", BuildVersion(), "build_date", BuildDateYMD())

	b := bus.New(logMgr.Logger("bus"))
	rt.Bus = b
	connSub := b.Subscribe(connectors.TopicConnStatus)
	go rt.captureConnStatus(ctx, connSub)

	if cfg.Capture.Enabled || opts.OpenCaptureDB {
		db, err := capture.Open(ctx, paths.DBFile)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		rt.DB = db
		rt.CaptureRepo = capture.NewRepo(db)
	}
	if cfg.Capture.Enabled {
		rt.WriterQueue = capture.NewWriterQueue(logMgr.Logger("capture"), 512)
		rt.WriterQueue.Start(ctx)
		rt.Recorder = capture.NewRecorder(b, rt.CaptureRepo, rt.WriterQueue, logMgr.Logger("capture"))
		rt.Recorder.Start(ctx)
	}

	rt.Session = NewProbeSession(cfg.Probe, NewBusObserver(b))

	return rt, nil
}

// OpenProbe connects the runtime session to the configured probe.
func (r *Runtime) OpenProbe() error {
	if err := r.Session.Open(r.Ctx, SelectionFromConfig(r.Config.Probe)); err != nil {
		return err
	}
	slog.Info("probe connected", "kind", r.Session.Kind(), "target", r.Session.Target())

	return nil
}

// SaveConfig persists the effective configuration, flag overrides included.
func (r *Runtime) SaveConfig() error {
	return config.Save(r.Paths.ConfigFile, r.Config)
}

func (r *Runtime) captureConnStatus(ctx context.Context, sub bus.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-sub:
			if !ok {
				return
			}
			status, ok := raw.(connectors.ConnStatus)
			if !ok {
				continue
			}
			r.setConnStatus(status)
		}
	}
}

func (r *Runtime) setConnStatus(status connectors.ConnStatus) {
	r.connStatusMu.Lock()
	r.connStatus = status
	r.connStatusKnown = true
	r.connStatusMu.Unlock()
}

func (r *Runtime) CurrentConnStatus() (connectors.ConnStatus, bool) {
	r.connStatusMu.RLock()
	status := r.connStatus
	known := r.connStatusKnown
	r.connStatusMu.RUnlock()
	return status, known
}

// Close shuts the runtime down. The probe is closed before the recorder
// stops so that the end of the capture session is stored.
func (r *Runtime) Close() error {
	r.closeOnce.Do(func() {
		var errs []error
		if r.Session != nil {
			if err := r.Session.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close probe: %w", err))
			}
		}
		if r.Recorder != nil {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			if err := r.Recorder.Stop(ctx); err != nil {
				errs = append(errs, fmt.Errorf("stop capture: %w", err))
			}
			cancel()
		}
		if r.cancel != nil {
			r.cancel()
		}
		if r.Bus != nil {
			r.Bus.Close()
		}
		if r.DB != nil {
			if err := r.DB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close capture db: %w", err))
			}
		}
		if r.LogManager != nil {
			if err := r.LogManager.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close log file: %w", err))
			}
		}
		r.closeErr = errors.Join(errs...)
	})

	return r.closeErr
}
