package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cognivault-dev/cognivault-ledger/internal/api"
	"github.com/cognivault-dev/cognivault-ledger/internal/fhe"
	"github.com/cognivault-dev/cognivault-ledger/internal/ledger"
	"github.com/cognivault-dev/cognivault-ledger/internal/server"
	"github.com/cognivault-dev/cognivault-ledger/internal/vault"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	config := zap.NewProductionConfig()
	if envOr("LEDGER_LOG_LEVEL", "") == "debug" {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	dataDir := envOr("LEDGER_DATA_DIR", "./data")
	tcpPort := envOr("LEDGER_TCP_PORT", "7401")
	httpPort := envOr("LEDGER_HTTP_PORT", "7402")
	useTLS := os.Getenv("LEDGER_DISABLE_TLS") != "true"
	authSecret := []byte(os.Getenv("LEDGER_JWT_SECRET"))
	gatewayKey := []byte(envOr("LEDGER_GATEWAY_KEY", "dev-gateway-key-dev-gateway-key!"))

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		logger.Fatal("failed to create data directory", zap.Error(err))
	}

	persister, err := ledger.NewSQLitePersistence(filepath.Join(dataDir, "ledger.db"))
	if err != nil {
		logger.Fatal("failed to initialize persistence", zap.Error(err))
	}

	initial, err := persister.LoadAll()
	if err != nil {
		logger.Warn("could not load existing data", zap.Error(err))
	}

	store := ledger.NewMemLedger(initial, persister, logger)
	logger.Info("ledger engine started", zap.Int("keys", len(initial)))

	cop, err := fhe.NewCoprocessor(gatewayKey, logger)
	if err != nil {
		logger.Fatal("failed to initialize score pipeline", zap.Error(err))
	}

	hub := api.NewHub(logger)
	cop.OnDecrypted(func(requestID, owner string, score int) {
		s := score
		hub.Broadcast(api.Event{
			Type:    "score_decrypted",
			Owner:   owner,
			Request: requestID,
			Score:   &s,
			At:      time.Now().Unix(),
		})
	})

	router := server.NewRouter(store, logger)
	if useTLS {
		cert, err := vault.GenerateSelfSignedCert()
		if err != nil {
			logger.Fatal("failed to generate TLS certificate", zap.Error(err))
		}
		router.SetCertificate(cert)
		logger.Info("TLS enabled on the TCP listener")
	} else {
		logger.Info("TLS disabled (LEDGER_DISABLE_TLS=true)")
	}

	h := &api.Handler{Store: store, Cop: cop, Hub: hub, Log: logger}
	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	r.Use(cors.New(corsConfig))

	h.Register(r, authSecret)
	if len(authSecret) == 0 {
		logger.Warn("LEDGER_JWT_SECRET not set; mutating HTTP routes are open")
	}

	go func() {
		logger.Info("HTTP API listening", zap.String("port", httpPort))
		if err := r.Run(":" + httpPort); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("shutdown signal received, finalizing disk writes")
		router.Stop()
		store.Wait()
		cop.Wait()
		persister.Close()
		logger.Info("persistence complete, exiting")
		os.Exit(0)
	}()

	logger.Info("TCP listener starting", zap.String("port", tcpPort))
	if err := router.Listen(tcpPort); err != nil {
		logger.Fatal("TCP server failed", zap.Error(err))
	}
}
