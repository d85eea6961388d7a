package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"

	config "github.com/negasi/billiard-services/configs"
	"github.com/negasi/billiard-services/internal/db"
	"github.com/negasi/billiard-services/internal/hallsvc/broker"
	hallconfig "github.com/negasi/billiard-services/internal/hallsvc/config"
	halldb "github.com/negasi/billiard-services/internal/hallsvc/db"
	handlers "github.com/negasi/billiard-services/internal/hallsvc/handlers"
	"github.com/negasi/billiard-services/internal/hallsvc/service"
	"github.com/negasi/billiard-services/internal/hallsvc/store"
	"github.com/negasi/billiard-services/internal/hallsvc/syncer"
	nats "github.com/negasi/billiard-services/internal/nats"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "hall"

var instanceId string

func init() {
	instanceId = "001"
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
	config.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg := hallconfig.Load()
	if cfg.HallId == "" {
		log.Fatal("HALL_ID is required")
	}

	// mongo holds the remote collection snapshots
	mongoDB, cancelMongo, err := db.ConnectToDB()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer cancelMongo()
	log.Printf("mongo connection established successfully")

	// pg holds the on-device snapshot cache
	dbpool, err := halldb.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer halldb.ClosePool()
	log.Printf("pg connection established successfully")

	remoteStore := store.NewSnapshotStore(mongoDB)
	cacheStore := store.NewCacheStore(dbpool)

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 10*time.Second)
	if err := cacheStore.Migrate(migrateCtx); err != nil {
		log.Fatalf("Failed to migrate snapshot cache: %v", err)
	}
	cancelMigrate()

	// Connect to NATS
	n, err := nats.Connect()
	if err != nil {
		log.Errorf("Error: unable to connect to NATS server %v", err)
		os.Exit(0)
	}

	defer n.Conn.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	// one syncer per store partition: the hall's own collections and the
	// shared global catalog
	hallSync := syncer.New(cfg.HallId, remoteStore, cacheStore, n.Conn, 400*time.Millisecond)
	globalSync := syncer.New(store.GlobalHallId, remoteStore, cacheStore, n.Conn, 400*time.Millisecond)

	settingsService := service.NewSettingsService(hallSync)
	marketService := service.NewMarketService(globalSync)
	sessionService := service.NewSessionService(marketService, hallSync)
	txService := service.NewTransactionService(sessionService, hallSync)
	settlementService := service.NewSettlementService(txService)
	auditService := service.NewAuditService(txService, settingsService)
	attendanceService := service.NewAttendanceService(hallSync)

	restoreCtx, cancelRestore := context.WithTimeout(context.Background(), 30*time.Second)
	hallSync.Restore(restoreCtx)
	globalSync.Restore(restoreCtx)
	cancelRestore()

	hallSub, err := hallSync.Subscribe(n.Conn)
	if err != nil {
		log.Errorf("Error: unable to subscribe to hall snapshots %v", err)
		os.Exit(0)
	}
	globalSub, err := globalSync.Subscribe(n.Conn)
	if err != nil {
		log.Errorf("Error: unable to subscribe to global snapshots %v", err)
		os.Exit(0)
	}

	// init peer message broker
	broker := broker.NewBroker(n.Conn, cfg.HallId,
		sessionService, txService, settlementService, settingsService, marketService, attendanceService)

	// subscribe to socket service
	topic := "socket.service"
	sub, err := broker.SubscribeSocketService(topic)
	if err != nil {
		log.Errorf("Error: unable to subscribe to queue %v", err)
		os.Exit(0)
	}

	// Setup router
	r := chi.NewRouter()
	c := config.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	h := handlers.NewHandler(sessionService, txService, settlementService,
		auditService, settingsService, marketService, attendanceService)
	h.InitAuth()
	h.SetRoutes(r)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + cfg.ServicePort,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	sub.Unsubscribe()
	hallSub.Unsubscribe()
	globalSub.Unsubscribe()

	// push any pending debounced snapshots before going down
	hallSync.Flush()
	globalSync.Flush()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
