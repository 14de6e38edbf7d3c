// Package main is the entry point for the resource manager API server.
// Its job is small: load configuration from the environment, build the
// logger, and hand off to internal/server. All real logic lives in the
// imported packages.
package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Mxlaser/projet-web/internal/server"
)

// insecureDefaultSecret keeps a fresh checkout runnable without any
// configuration. Operators must set JWT_SECRET in production.
const insecureDefaultSecret = "dev-only-insecure-secret"

func main() {
	// A missing .env file is not an error; env vars may come from the
	// process environment directly.
	_ = godotenv.Load()

	logger := newLogger()

	port := 5000
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	dbPath := "data/resources.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Warn("JWT_SECRET not set, using an insecure default; do not run this in production")
		jwtSecret = insecureDefaultSecret
	}

	uploadDir := "uploads"
	if envDir := os.Getenv("UPLOAD_DIR"); envDir != "" {
		uploadDir = envDir
	}

	cfg := server.Config{
		Port:      port,
		DBPath:    dbPath,
		JWTSecret: jwtSecret,
		UploadDir: uploadDir,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger builds the process logger. With LOG_FILE set, log lines go to
// both stdout and a size-rotated file; otherwise stdout only.
func newLogger() *slog.Logger {
	var out io.Writer = os.Stdout
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}
