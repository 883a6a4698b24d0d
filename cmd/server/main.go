package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"arena/internal/api"
	"arena/internal/config"
	"arena/internal/game"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  ARENA - PHYSICS COMBAT SERVER")
	log.Println("🎮 ================================")

	appConfig := config.Load()
	gameCfg := appConfig.Game

	log.Printf("🎮 Config: %d TPS, %.0fx%.0f arena, %d obstacles, countdown %.1fs",
		gameCfg.Physics.TickRate, gameCfg.Arena.Width, gameCfg.Arena.Height,
		len(gameCfg.Arena.Obstacles), gameCfg.Session.Countdown)
	log.Printf("🛡️ Resource limits: %d players, %d projectiles",
		gameCfg.Limits.MaxPlayers, gameCfg.Limits.MaxProjectiles)

	world := game.NewWorld(gameCfg)
	log.Printf("🎲 World seed: %d", world.Seed())

	journal := world.EventLog()
	if err := journal.Start(appConfig.EventLog.Path); err != nil {
		log.Printf("⚠️ Event log disabled: %v", err)
	} else if appConfig.EventLog.Path != "" {
		log.Printf("📝 Event log: %s", appConfig.EventLog.Path)
	}

	// Sample journal counters once a second
	world.SetTickObserver(api.TickRecorder(journal, uint64(gameCfg.Physics.TickRate)))

	debugServer := api.StartDebugServer(appConfig.Debug, journal)

	world.Start()
	log.Println("✅ World started")

	server := api.NewServer(world, appConfig.Server, appConfig.RateLimit)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ API shutdown: %v", err)
	}
	if debugServer != nil {
		debugServer.Shutdown(ctx)
	}
	world.Stop()
	journal.Stop()
	log.Println("👋 Goodbye!")
}
