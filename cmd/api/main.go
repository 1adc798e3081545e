package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/01moynul/qr-inventory/internal/auth"
	"github.com/01moynul/qr-inventory/internal/config"
	"github.com/01moynul/qr-inventory/internal/database"
	"github.com/01moynul/qr-inventory/internal/handlers"
	"github.com/01moynul/qr-inventory/internal/logger"
	"github.com/01moynul/qr-inventory/internal/qrcode"
	"github.com/01moynul/qr-inventory/internal/routes"
	"github.com/01moynul/qr-inventory/internal/scanner"
	"github.com/01moynul/qr-inventory/internal/sheets"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 0. --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	cfg := config.Load()
	zlog := logger.NewLogger(cfg.ServiceName, cfg.LogLevel)
	defer zlog.Sync()

	if err := cfg.Validate(); err != nil {
		zlog.Fatal("Invalid configuration", zap.Error(err))
	}
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. --- Session Store ---
	var store auth.Store
	switch cfg.SessionStore {
	case "mysql":
		db, err := database.OpenDB(ctx, cfg.DBDSN, zlog)
		if err != nil {
			zlog.Fatal("Failed to connect to session database", zap.Error(err))
		}
		defer db.Close()

		sessionStore := database.NewSessionStore(db)
		if err := sessionStore.EnsureSchema(ctx); err != nil {
			zlog.Fatal("Failed to prepare session table", zap.Error(err))
		}
		store = sessionStore
	default:
		store = auth.NewMemoryStore()
	}

	// 2. --- Google ---
	provider := auth.NewProvider(auth.ProviderConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.OAuthRedirectURL,
	})
	sessions := auth.NewManager(store, provider, sheets.GoogleClientFactory(cfg.SheetsEndpoint), zlog)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)

	// 3. --- Application Setup ---
	decoder := qrcode.NewImageDecoder()
	app := &handlers.Handlers{
		Catalog:    sheets.NewCatalog(cfg.SheetID, cfg.SheetName, cfg.DataStartRow, zlog),
		Sessions:   sessions,
		Tokens:     tokens,
		OAuth:      provider,
		Scanners:   scanner.NewRegistry(decoder, cfg.ScannerFPS, zlog),
		Decoder:    decoder,
		QRCodeSize: cfg.QRCodeSize,
		Log:        zlog,
	}

	// --- Router Setup ---
	router := routes.SetupRouter(app, tokens, sessions, cfg.AllowedOrigin)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// --- Start Server ---
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zlog.Info("Starting inventory API server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zlog.Info("Shutting down")
		app.Scanners.CloseAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zlog.Fatal("Server stopped", zap.Error(err))
	}
}
