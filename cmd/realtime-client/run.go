package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jinga80/medical-law/internal/auth"
	"github.com/jinga80/medical-law/internal/config"
	clog "github.com/jinga80/medical-law/internal/log"
	"github.com/jinga80/medical-law/internal/manager"
	"github.com/jinga80/medical-law/internal/models"
	"github.com/jinga80/medical-law/internal/mw"
	"github.com/jinga80/medical-law/internal/sched"
	"github.com/jinga80/medical-law/internal/server"
	"github.com/jinga80/medical-law/internal/view"
	"github.com/jinga80/medical-law/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// runClient 负责加载配置、初始化日志、建立连接并启动本地视图服务，收到信号后按序关闭。
func runClient(ctx context.Context, configPath string, rooms []string) error {
	// .env 不存在时直接使用环境变量
	envErr := godotenv.Load()

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	clog.Init(cfg.Env, cfg.LogLevel)
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	if envErr != nil {
		log.Debug().Msg("no .env file, using environment")
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	header, err := auth.Header(auth.Credentials{SessionCookie: cfg.SessionCookie, Token: cfg.Token})
	if err != nil {
		return err
	}
	userID := models.ID(cfg.UserID)
	if cfg.Token != "" {
		claims, err := auth.CheckToken(cfg.Token, time.Now())
		if err != nil {
			return fmt.Errorf("check token: %w", err)
		}
		if userID == "" {
			userID = claims.UserID
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 事件循环独立于信号 ctx，关闭阶段仍要在循环上执行 Close
	loopCtx, loopCancel := context.WithCancel(context.Background())
	defer loopCancel()
	loop := sched.NewLoop(0)
	go loop.Run(loopCtx)

	doc := view.NewDocument()
	var (
		mgr      *manager.Manager
		startErr error
	)
	err = loop.Do(ctx, func() {
		mgr, startErr = manager.New(manager.Config{
			Origin: cfg.Origin,
			Header: header,
			UserID: userID,
			Reconnect: ws.Policy{
				Reconnect:   true,
				Base:        cfg.ReconnectBase(),
				MaxAttempts: cfg.ReconnectMaxAttempts,
			},
			TypingTimeout:  cfg.TypingTimeout(),
			Capacity:       cfg.NotificationCapacity,
			ToastTTL:       cfg.ToastTTL(),
			UrgentToastTTL: cfg.UrgentToastTTL(),
		}, manager.Deps{
			Exec:   loop,
			Sink:   doc,
			Logger: log.Logger,
		})
		if startErr != nil {
			return
		}
		if startErr = mgr.Start(); startErr != nil {
			return
		}
		for _, id := range rooms {
			if jerr := mgr.JoinRoom(id); jerr != nil {
				log.Warn().Err(jerr).Str("room_id", id).Msg("join room on start")
			}
		}
	})
	if err == nil {
		err = startErr
	}
	if err != nil {
		if mgr != nil {
			_ = loop.Do(context.Background(), mgr.Close)
		}
		return fmt.Errorf("start client: %w", err)
	}

	limiter := mw.NewRateLimiter(rate.Every(time.Second/20), 40, 2*time.Minute)
	defer limiter.Stop()
	router := server.SetupRouter(server.NewHandler(loop, mgr, doc), server.Options{
		Env:     cfg.Env,
		Origins: []string{cfg.Origin},
		Limiter: limiter,
	})
	srv := &http.Server{
		Addr:              cfg.ViewAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ViewAddr).Str("origin", cfg.Origin).Msg("view server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err = <-serveErr:
		log.Error().Err(err).Msg("view server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Warn().Err(serr).Msg("view server shutdown")
	}
	if derr := loop.Do(shutdownCtx, mgr.Close); derr != nil {
		log.Warn().Err(derr).Msg("close manager")
	}
	loop.Stop()
	return err
}
