package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-classroom/internal/account"
	"github.com/p-n-ai/pai-classroom/internal/classroom"
	"github.com/p-n-ai/pai-classroom/internal/httpapi"
	"github.com/p-n-ai/pai-classroom/internal/notify"
	"github.com/p-n-ai/pai-classroom/internal/platform/cache"
	"github.com/p-n-ai/pai-classroom/internal/platform/config"
	"github.com/p-n-ai/pai-classroom/internal/platform/database"
	"github.com/p-n-ai/pai-classroom/internal/platform/logger"
	"github.com/p-n-ai/pai-classroom/internal/platform/mongodb"
	"github.com/p-n-ai/pai-classroom/internal/realtime"
	"github.com/p-n-ai/pai-classroom/internal/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger.New(os.Stdout, cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.SeedPath != "" {
		if err := a.seed(ctx, cfg.SeedPath); err != nil {
			return err
		}
	}

	if cfg.Sweep.Enabled {
		c, err := classroom.NewSweeper(a.classroom.Store(), cfg.Sweep.Grace).Start(cfg.Sweep.Schedule)
		if err != nil {
			return fmt.Errorf("start sweeper: %w", err)
		}
		defer c.Stop()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// app holds the wired services and the resources to release on exit.
type app struct {
	classroom *classroom.Service
	accounts  *account.Service
	handler   http.Handler
	closers   []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) seed(ctx context.Context, dir string) error {
	files, err := seed.Load(dir)
	if err != nil {
		return err
	}
	_, err = seed.NewImporter(a.accounts.Store(), a.classroom).Import(ctx, files)
	return err
}

type stores struct {
	classroom classroom.Store
	users     account.Store
	events    classroom.EventSink
	checks    []httpapi.Check
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	st, err := openStores(ctx, cfg, a)
	if err != nil {
		a.close()
		return nil, err
	}

	var topicCache classroom.TopicCache = classroom.NopCache{}
	if cfg.Cache.Enabled {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		topicCache = c
		st.checks = append(st.checks, httpapi.Check{Name: "cache", Fn: c.HealthCheck})
	}

	hub := realtime.NewHub(realtime.WithOriginPatterns(originPatterns(cfg.Server.CORSOrigins)...))
	a.classroom = classroom.NewService(classroom.ServiceConfig{
		Store:    st.classroom,
		Events:   classroom.MultiSink{st.events, hub},
		Cache:    topicCache,
		TopicTTL: cfg.Cache.TopicTTL,
	})

	mail, err := newMailer(cfg.Mail)
	if err != nil {
		a.close()
		return nil, err
	}
	var google *account.GoogleAuth
	if cfg.GoogleEnabled() {
		google = account.NewGoogleAuth(account.GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.RedirectURL,
		})
	}
	a.accounts = account.NewService(account.ServiceConfig{
		Store:          st.users,
		Courses:        st.classroom,
		Tokens:         account.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL),
		Mail:           mail,
		Google:         google,
		VerifyURL:      cfg.Mail.VerifyURL,
		ResendCooldown: cfg.Auth.ResendCooldown,
	})

	a.handler = httpapi.New(httpapi.Config{
		Classroom:   a.classroom,
		Accounts:    a.accounts,
		Hub:         hub,
		CORSOrigins: cfg.Server.CORSOrigins,
		Checks:      st.checks,
	}).Handler()
	return a, nil
}

func openStores(ctx context.Context, cfg *config.Config, a *app) (*stores, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, cfg.Database.URL); err != nil {
				return nil, err
			}
		}
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)

		cs, err := classroom.NewPostgresStore(db.Pool)
		if err != nil {
			return nil, err
		}
		us, err := account.NewPostgresStore(db.Pool)
		if err != nil {
			return nil, err
		}
		return &stores{
			classroom: cs,
			users:     us,
			events:    classroom.NewPostgresSink(db.Pool),
			checks:    []httpapi.Check{{Name: "database", Fn: db.HealthCheck}},
		}, nil

	case config.DriverMongo:
		db, err := mongodb.New(ctx, cfg.Mongo.URL, cfg.Mongo.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = db.Close(closeCtx)
		})

		cs, err := classroom.NewMongoStore(ctx, db.Database)
		if err != nil {
			return nil, err
		}
		us, err := account.NewMongoStore(ctx, db.Database)
		if err != nil {
			return nil, err
		}
		return &stores{
			classroom: cs,
			users:     us,
			events:    classroom.NewMongoSink(db.Database),
			checks:    []httpapi.Check{{Name: "mongo", Fn: db.HealthCheck}},
		}, nil

	default:
		slog.Warn("using in-memory store, data is lost on restart")
		return &stores{
			classroom: classroom.NewMemoryStore(),
			users:     account.NewMemoryStore(),
			events:    classroom.NopSink{},
		}, nil
	}
}

func newMailer(cfg config.MailConfig) (*notify.Gateway, error) {
	gw := notify.NewGateway()
	if cfg.SendGridAPIKey == "" {
		gw.Register(notify.ChannelEmail, notify.LogChannel{})
		return gw, nil
	}
	ch, err := notify.NewSendGridChannel(cfg.SendGridAPIKey, cfg.From, "Classroom")
	if err != nil {
		return nil, fmt.Errorf("sendgrid: %w", err)
	}
	gw.Register(notify.ChannelEmail, ch)
	return gw, nil
}

// originPatterns turns CORS origins into websocket host patterns.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if _, host, ok := strings.Cut(o, "://"); ok {
			o = host
		}
		out = append(out, o)
	}
	return out
}
