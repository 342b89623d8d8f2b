package main

import (
	"context"
	"net/http"
	"os"
	osignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/solivar/confab/internal/adapters/console"
	router "github.com/solivar/confab/internal/adapters/http"
	"github.com/solivar/confab/internal/adapters/rtc"
	"github.com/solivar/confab/internal/adapters/signal"
	"github.com/solivar/confab/internal/auth"
	"github.com/solivar/confab/internal/config"
	"github.com/solivar/confab/internal/core"
	"github.com/solivar/confab/internal/domain"
	"github.com/solivar/confab/internal/followme"
	"github.com/solivar/confab/internal/media"
	"github.com/solivar/confab/internal/session"
)

func main() {
	ctx, cancel := osignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		os.Exit(1)
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	settings := config.LoadSettings(cfg.SettingsPath)

	backend := &rtc.FileBackend{
		AudioPath:   cfg.MediaAudioFile,
		VideoPath:   cfg.MediaVideoFile,
		DesktopPath: cfg.MediaDesktopFile,
	}
	capture := rtc.NewCaptureService(backend)

	ui := console.NewUI()
	factory := media.NewFactory(capture, settings, ui)
	engine := signal.NewClient(cfg.ServerURL, cfg.PingPeriod)

	room := domain.RoomName(cfg.RoomName)

	// Capture and connection run in parallel; neither waits on the other.
	var tracks []core.LocalTrack
	var acquireErrs media.AcquireErrors
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tracks, acquireErrs = factory.AcquireInitial(gctx)
		return nil
	})
	g.Go(func() error {
		return engine.Connect(gctx, core.ConnectOptions{RoomName: room})
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("failed to connect")
		os.Exit(1)
	}

	conf := engine.InitConference(room)
	escalation := auth.NewEscalation(console.NewAuthGateway(), room)

	hub := router.NewEventHub()
	sess := session.New(room, session.Deps{
		Engine:   engine,
		Conf:     conf,
		UI:       ui,
		API:      hub,
		Settings: settings,
		Capture:  capture,
		Factory:  factory,
		Auth:     escalation,
		Cfg:      cfg,
		Reload:   cancel,
	})

	if err := sess.Start(ctx, tracks); err != nil {
		log.Error().Err(err).Msg("failed to join the room")
		os.Exit(1)
	}
	media.ReportAcquireErrors(ui, acquireErrs)

	follow := followme.New(sess, ui)

	if cfg.ControlAddr != "" {
		r := router.SetupRouter(ctx, cfg, &router.Controller{
			Session: sess,
			Follow:  follow,
			Hub:     hub,
		})
		srv := &http.Server{
			Addr:    cfg.ControlAddr,
			Handler: r,
		}
		go func() {
			log.Info().Str("addr", cfg.ControlAddr).Msg("control API started")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("control API error")
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("control API forced to shutdown")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	hangupCtx, hangupCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer hangupCancel()
	sess.Hangup(hangupCtx, false)
	log.Info().Msg("Exited gracefully")
}
