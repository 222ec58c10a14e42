package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/sshcollectorpro/netdev/api/router"
	"github.com/sshcollectorpro/netdev/internal/config"
	"github.com/sshcollectorpro/netdev/internal/database"
	"github.com/sshcollectorpro/netdev/internal/metrics"
	"github.com/sshcollectorpro/netdev/internal/service"
	"github.com/sshcollectorpro/netdev/pkg/logger"
	"github.com/sshcollectorpro/netdev/simulate"
)

const version = "1.0.0"

func main() {
	configPath := pflag.StringP("config", "c", "configs/config.yaml", "path to config file")
	pflag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := initLogger(cfg); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.WithFields(logrus.Fields{
		"version":    version,
		"concurrent": cfg.SSH.Concurrent,
		"profile":    cfg.SSH.ConcurrencyProfile,
	}).Info("Starting netdev ASA session server")

	// 初始化数据库
	if err := database.InitSQLite(cfg.Database.SQLite); err != nil {
		logger.WithField("error", err).Fatal("Failed to initialize database")
	}
	defer database.Close()

	// 会话服务与指标
	var sessions *service.SessionService
	m := metrics.New(func() int {
		if sessions == nil {
			return 0
		}
		return sessions.Active()
	})
	sessions = service.NewSessionService(cfg,
		service.WithStorage(service.NewStorageWriter(cfg)),
		service.WithMetrics(m),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := sessions.Start(ctx); err != nil {
		logger.WithField("error", err).Fatal("Failed to start session service")
	}
	defer sessions.Stop()

	// 启动模拟设备（可选）
	sim := &simulator{}
	if cfg.Simulate.Enable {
		sim.start(cfg.Simulate.ConfigPath)
	}
	defer sim.stop()

	r := router.SetupRouter(router.Options{
		Sessions: sessions,
		Active:   sessions.Active,
		Stats:    sessions.Stats,
		Metrics:  m.Handler(),
		Version:  version,
	})

	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        r,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	go func() {
		logger.WithFields(logrus.Fields{"addr": server.Addr, "mode": cfg.Server.Mode}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithField("error", err).Fatal("Failed to start server")
		}
	}()

	go watchConfig(ctx, *configPath, sim)

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithField("error", err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func initLogger(cfg *config.Config) error {
	return logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
}

// simulator 持有可选的内置 ASA 模拟器
type simulator struct {
	mu     sync.Mutex
	server *simulate.Server
}

func (s *simulator) start(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return
	}
	sc, err := simulate.LoadConfig(path)
	if err != nil {
		logger.WithFields(logrus.Fields{"path": path, "error": err}).Warn("Simulate: failed to load config")
		return
	}
	srv, err := simulate.Start(*sc)
	if err != nil {
		logger.WithField("error", err).Warn("Simulate: failed to start")
		return
	}
	s.server = srv
	logger.WithFields(logrus.Fields{
		"addr":     srv.Addr(),
		"mode":     sc.Mode,
		"contexts": sc.Contexts,
	}).Info("Simulate: started")
}

func (s *simulator) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		s.server.Stop()
		s.server = nil
		logger.Info("Simulate: stopped")
	}
}

// watchConfig 监听配置文件；日志级别与模拟器开关热更新，SSH 与存储参数需重启生效
func watchConfig(ctx context.Context, path string, sim *simulator) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.WithField("error", err).Warn("Config watch init failed")
		return
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		logger.WithField("error", err).Warn("Config watch add failed")
		return
	}

	var debounce *time.Timer
	trigger := func() {
		newCfg, err := config.Load(path)
		if err != nil {
			logger.WithField("error", err).Warn("Config reload failed")
			return
		}
		_ = initLogger(newCfg)
		if newCfg.Simulate.Enable {
			sim.start(newCfg.Simulate.ConfigPath)
		} else {
			sim.stop()
		}
		logger.Info("Config reloaded")
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(300*time.Millisecond, trigger)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.WithField("error", err).Warn("Config watch error")
		}
	}
}
