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

	appconfig "github.com/avvvet/bingo-rooms/configs"
	"github.com/avvvet/bingo-rooms/internal/bingo"
	mongodb "github.com/avvvet/bingo-rooms/internal/db"
	nats "github.com/avvvet/bingo-rooms/internal/nats"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/broker"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/config"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/db"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/handlers"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/hub"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/room"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/routes"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/service"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/store"
	"github.com/avvvet/bingo-rooms/internal/roomsvc/ws"
	natsio "github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "room"

var instanceId string

func init() {
	instanceId = "001"
	appconfig.Logging(SERVICE_NAME + "_service_" + instanceId)
	appconfig.LoadEnv(SERVICE_NAME)
}

func main() {
	cfg := config.Load()

	// pg connection
	dbpool, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.ClosePool()
	log.Printf("pg connection established successfully")

	balanceStore := store.NewBalanceStore(dbpool)
	balanceService := service.NewBalanceService(balanceStore)

	// mongo holds the deposit request ledger
	mongoDb, cancelMongo, err := mongodb.ConnectToDB()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer cancelMongo()
	if err := mongodb.CreateTTLIndexForCollection(mongoDb, store.RequestCollection); err != nil {
		log.Fatalf("Failed to create TTL index: %v", err)
	}

	requestStore := store.NewRequestStore(mongoDb)
	depositService := service.NewDepositService(requestStore, balanceStore)

	// NATS mirrors room events to other instances; the service runs without
	// it when the broker is unreachable.
	var nc *natsio.Conn
	if n, err := nats.Connect(); err != nil {
		log.Warnf("NATS unavailable, running standalone: %v", err)
	} else {
		defer n.Conn.Close()
		nc = n.Conn
		log.Printf("NATS connection established successfully %s", n.Url)
	}

	h := hub.NewHub()
	relay := broker.NewRelay(h, nc)

	deck := bingo.NewDeck(cfg.DeckSize, cfg.DeckSeed)
	manager := room.NewManager(cfg, deck, relay)
	defer manager.Close()

	gateway := ws.NewGateway(cfg, h, relay, manager, balanceService, depositService)

	// Setup router
	r := chi.NewRouter()
	c := appconfig.CORS()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appconfig.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(c.Handler)

	// to protect the service api from any over requests
	rateLimitStr := os.Getenv("RATE_LIMIT")
	rateLimit, err := strconv.Atoi(rateLimitStr)
	if err != nil {
		log.Fatalf("Invalid RATE_LIMIT value: %v", err)
	}
	r.Use(httprate.LimitByIP(rateLimit, 1*time.Minute))

	// Init handlers and routes
	handler := handlers.NewHandler(h, gateway, manager)
	routes.InitAuth()
	routes.SetRoutes(r, handler)

	// Create server with timeout settings
	server := &http.Server{
		Addr:         ":" + os.Getenv("SERVICE_PORT"),
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

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
