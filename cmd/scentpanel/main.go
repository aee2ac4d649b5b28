package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scentpanel/internal/config"
	"scentpanel/internal/hardware"
	httpapi "scentpanel/internal/http"
	"scentpanel/internal/logger"
	"scentpanel/internal/metrics"
	"scentpanel/internal/repository"
	"scentpanel/internal/service"
	"scentpanel/internal/store"
	"scentpanel/internal/telemetry"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "scentpanel")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	m := metrics.New()

	// Aggregate storage: Redis when configured, in-process otherwise.
	var kv store.KV
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		kv = store.NewRedisKV(redisClient)
		log.Info("Using Redis-backed analysis storage", zap.String("addr", cfg.Redis.Addr))
	} else {
		kv = store.NewMemoryKV()
		log.Info("Using in-memory analysis storage")
	}

	analysisStore := repository.NewKVAnalysisStore(kv, log)
	ratingsRepo := repository.NewKVRatingsRepo(kv, log)

	// Room controller: simulator by default, remote rig when configured.
	var controller hardware.Controller
	var publisher *telemetry.Publisher
	if cfg.Controller.Mode == "remote" {
		controller = hardware.NewRemoteController(
			cfg.Controller.BaseURL,
			cfg.Controller.Username,
			cfg.Controller.Password,
			log,
		)
		log.Info("Using remote room controller", zap.String("base_url", cfg.Controller.BaseURL))
	} else {
		sim := hardware.NewSimulatorWithDelays(cfg.Controller.SettleDelay, cfg.Controller.ValveOpenDelay, log)
		if cfg.MQTT.Enabled {
			if publisher, err = telemetry.NewPublisher(&cfg.MQTT, log); err != nil {
				log.Warn("MQTT telemetry unavailable, continuing without it", zap.Error(err))
			} else {
				sim.SetPhaseListener(publisher.PhaseListener())
			}
		}
		controller = sim
		log.Info("Using simulated room controller")
	}
	controller = hardware.NewInstrumentedController(controller, m)

	// Reference data: postgres when enabled, seeded memory repo otherwise.
	var referenceRepo repository.ReferenceRepo
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := sql.Open("postgres", cfg.Database.GetDSN()); err == nil {
			db = d
			referenceRepo = repository.NewPostgresReferenceRepo(db)
			log.Info("Reference DB enabled")
		} else {
			log.Warn("Reference DB enabled but connection failed, falling back to seeded data", zap.Error(err))
		}
	}
	if referenceRepo == nil {
		referenceRepo = repository.NewMemoryReferenceRepo()
	}

	analysisSvc := service.NewAnalysisService(analysisStore, ratingsRepo, referenceRepo, m, log)
	engine := service.NewProgressEngine(analysisStore, log)
	orchestrator := service.NewWorkflowOrchestrator(
		controller,
		engine,
		analysisStore,
		ratingsRepo,
		cfg.Controller.PollInterval,
		cfg.Controller.PollAttempts,
		m,
		log,
	)

	router := httpapi.NewRouter(log)
	router.RegisterAnalysisRoutes(httpapi.NewAnalysisHandler(analysisSvc, log))
	router.RegisterTestingRoutes(httpapi.NewTestingHandler(engine, orchestrator, log))
	router.RegisterRatingsRoutes(httpapi.NewRatingsHandler(ratingsRepo, log))
	router.RegisterControllerRoutes(httpapi.NewControllerHandler(controller, log))
	router.RegisterReferenceRoutes(httpapi.NewReferenceHandler(referenceRepo, log))
	router.RegisterHealthRoute()
	router.HandleHandler("/metrics", m.Handler())

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		log.Error("HTTP server exited", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if publisher != nil {
		publisher.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
