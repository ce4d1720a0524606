package main

import (
	"os"

	"github.com/emrgen/exploration/internal/config"
	"github.com/emrgen/exploration/internal/server"
	"github.com/sirupsen/logrus"
)

// debug runs the server in dev mode with verbose logging.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("error loading config: %v", err)
	}
	cfg.Mode = "dev"
	cfg.LogLevel = "debug"
	if port := os.Getenv("GRPC_PORT"); port != "" {
		cfg.GrpcPort = port
	}
	if port := os.Getenv("HTTP_PORT"); port != "" {
		cfg.HttpPort = port
	}
	cfg.SetupLogging()

	if err := server.Start(cfg); err != nil {
		logrus.Fatalf("error starting server: %v", err)
	}
}
