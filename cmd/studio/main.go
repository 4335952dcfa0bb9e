package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/captionstudio/captionstudio-agent/internal/api"
	"github.com/captionstudio/captionstudio-agent/internal/cloud"
	"github.com/captionstudio/captionstudio-agent/internal/config"
	"github.com/captionstudio/captionstudio-agent/internal/db"
	"github.com/captionstudio/captionstudio-agent/internal/logging"
	"github.com/captionstudio/captionstudio-agent/internal/media"
	"github.com/captionstudio/captionstudio-agent/internal/project"
	"github.com/captionstudio/captionstudio-agent/internal/ui"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	// Optional .env next to the binary; real env vars win.
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.UploadDir(), 0755); err != nil {
		return fmt.Errorf("failed to create upload dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting caption studio agent", "version", config.Version, "data_dir", cfg.DataDir())

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := project.NewRepository(database.Conn())

	deviceID, err := ensureConfigValue(repo, "device_id", 16)
	if err != nil {
		return fmt.Errorf("failed to ensure device ID: %w", err)
	}

	authToken, err := ensureConfigValue(repo, "auth_token", 32)
	if err != nil {
		return fmt.Errorf("failed to ensure auth token: %w", err)
	}

	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                 CAPTION STUDIO AGENT v0.1.0               ║")
	fmt.Println("╠═══════════════════════════════════════════════════════════╣")
	fmt.Printf("║  API URL:    http://127.0.0.1:%-27d ║\n", cfg.Port())
	fmt.Printf("║  Auth Token: %-45s ║\n", authToken)
	fmt.Printf("║  Device ID:  %-45s ║\n", deviceID[:16]+"...")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	var cloudClient cloud.Client
	if cfg.CloudEnabled() && cfg.CloudBaseURL() != "" && cfg.CloudToken() != "" {
		httpClient := cloud.NewHTTPClient(cfg.CloudBaseURL(), cfg.CloudToken(), logger)
		httpClient.SetDeviceID(deviceID)
		cloudClient = httpClient
		logger.Info("cloud services enabled", "base_url", cfg.CloudBaseURL())
	} else {
		cloudClient = cloud.NewStubClient(logger)
		logger.Info("cloud services disabled, using stub client")
	}

	session := project.NewSession(repo, cloudClient, cfg, logger)

	// Reopen whatever the user worked on last, if anything.
	if p, err := session.LoadLatest(context.Background()); err == nil {
		logger.Info("restored last project", "project_id", p.ID, "name", p.Name)
	}

	apiServer := api.NewServer(api.ServerConfig{
		Port:        cfg.Port(),
		Session:     session,
		Repository:  repo,
		MediaServer: media.NewServer(logger),
		Logger:      logger,
		StartTime:   startTime,
		DeviceID:    deviceID,
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			close(quitCh)
		case <-quitCh:
		}
	}()

	if cfg.Headless() {
		logger.Info("running in headless mode (no system tray)")
	} else {
		tray := ui.NewTray(ui.TrayConfig{
			Session: session,
			Logger:  logger,
			OnOpenEditor: func() error {
				logger.Info("open editor requested from tray (served at the API URL)")
				return nil
			},
			OnQuit: func() {
				close(quitCh)
			},
		})
		go tray.Run()
	}

	<-quitCh

	logger.Info("initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// ensureConfigValue reads a stored random identifier, generating and
// persisting one on first run.
func ensureConfigValue(repo project.Repository, key string, byteLen int) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, key)
	if err == nil && existing != "" {
		return existing, nil
	}

	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	value := hex.EncodeToString(buf)

	if err := repo.SetConfig(ctx, key, value); err != nil {
		return "", err
	}

	return value, nil
}
