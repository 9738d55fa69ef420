package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"soccer-arena/internal/api"
	"soccer-arena/internal/config"
	"soccer-arena/internal/game"
	"soccer-arena/internal/render"
	"soccer-arena/internal/stats"
	"soccer-arena/internal/world"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	}

	log.Println("⚽ ================================")
	log.Println("⚽  SOCCER ARENA - GAME SERVER")
	log.Println("⚽ ================================")

	appCfg := config.Load()
	simCfg := appCfg.Simulation
	srvCfg := appCfg.Server

	log.Printf("🎮 Config: physics %v, network %v, regulation %v, max %d players",
		simCfg.PhysicsTick, simCfg.NetworkTick, simCfg.GameDuration, simCfg.MaxSoccerPlayers)

	if srvCfg.JWTSecret == "" {
		log.Fatal("❌ JWT_SECRET is required")
	}
	verifier, err := api.NewTokenVerifier(srvCfg.JWTSecret)
	if err != nil {
		log.Fatalf("❌ Auth setup failed: %v", err)
	}

	w, err := world.Load(srvCfg.DataDir)
	if err != nil {
		log.Fatalf("❌ Loading world data: %v", err)
	}
	log.Printf("🗺️ World loaded: %d colliders, %d goal zones", len(w.Colliders), len(w.Goals))

	repo := stats.NewMemoryRepository()

	matchLog := game.NewMatchLog()
	logPath := filepath.Join(srvCfg.DataDir, "match.log")
	if err := matchLog.Start(logPath); err != nil {
		log.Printf("⚠️ Match log disabled: %v", err)
	}

	metrics := game.NewMetrics()

	// The hub is the engine's emitter and the engine is the hub's command
	// target; the engine starts with a nop emitter and gets the hub once the
	// server exists.
	engine := game.NewEngine(simCfg, w, repo, game.NopEmitter{}, matchLog, metrics)
	server := api.NewServer(api.ServerConfig{
		Engine:    engine,
		Snapshots: engine,
		Renderer:  render.NewRenderer(w),
		Verifier:  verifier,
	})
	engine.SetEmitter(server.Hub())

	api.StartDebugServer(api.DefaultObservabilityConfig())

	go func() {
		addr := ":" + strconv.Itoa(srvCfg.Port)
		if err := server.Start(addr); err != nil {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Println("👋 Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Shutdown error: %v", err)
	}
	engine.Stop()
	matchLog.Stop()
	log.Println("✅ Clean exit")
}
