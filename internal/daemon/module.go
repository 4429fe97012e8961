package daemon

import (
	"context"

	"github.com/voluntr/volchat/internal/api"
	"github.com/voluntr/volchat/internal/bus"
	"github.com/voluntr/volchat/internal/chat"
	"github.com/voluntr/volchat/internal/config"
	"github.com/voluntr/volchat/internal/ingest"
	"github.com/voluntr/volchat/internal/lock"
	"github.com/voluntr/volchat/internal/logging"
	"github.com/voluntr/volchat/internal/outbox"
	"github.com/voluntr/volchat/internal/profile"
	"github.com/voluntr/volchat/internal/status"
	"github.com/voluntr/volchat/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	ListenAddr  string // optional override; empty = use config
	LogLevel    string
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideIdentity,
			provideIngestEngine,
			provideSender,
			provideRouterDeps,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		return nil, err
	}
	if p.ListenAddr != "" {
		cfg.ListenAddr = p.ListenAddr
	}
	if p.LogLevel != "" {
		cfg.LogLevel = p.LogLevel
	}
	return cfg, nil
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName, cfg.LogLevel)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.ProfileName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideIdentity(p Params, logger *zap.Logger) (chat.Identity, error) {
	id, err := profile.LoadIdentity(p.ProfileName)
	if err != nil {
		return chat.Identity{}, err
	}
	if id == nil {
		logger.Info("no identity configured", zap.String("profile", p.ProfileName))
		return chat.Identity{}, nil
	}
	return chat.Identity{UserID: id.UserID, Name: id.Name, Email: id.Email}, nil
}

func provideIngestEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *ingest.Engine {
	return ingest.NewEngine(db, b, logger)
}

func provideSender(db *store.DB, engine *ingest.Engine, b *bus.Bus, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(db, engine, b, logger)
}

func provideRouterDeps(p Params, ident chat.Identity, db *store.DB, b *bus.Bus, m *status.Machine, logger *zap.Logger) api.Deps {
	return api.Deps{
		Profile:  p.ProfileName,
		Identity: ident,
		DB:       db,
		Bus:      b,
		Machine:  m,
		Logger:   logger.Named("api"),
	}
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, engine *ingest.Engine, sender *outbox.Sender, ident chat.Identity, machine *status.Machine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			_ = machine.Transition(status.Migrating)

			// Start ingest engine (subscribes to feed.* bus events).
			engine.Start(context.Background())

			// Start HTTP server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("http server error", zap.Error(err))
					_ = machine.Transition(status.Error)
				}
			}()

			// Start outbox sender.
			sender.Start(context.Background())

			if ident.UserID == "" {
				logger.Info("no identity found, auth required")
				_ = machine.Transition(status.AuthRequired)
			} else {
				_ = machine.Transition(status.Ready)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			_ = machine.Transition(status.Stopping)
			sender.Stop()
			engine.Stop()
			srv.Stop(ctx)
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
