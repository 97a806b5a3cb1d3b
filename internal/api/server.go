package api

import (
	"log"
	"os"
	"strings"

	"routeopt/internal/config"
	"routeopt/internal/geometry"
	"routeopt/internal/matrix"
	"routeopt/internal/store"
	"routeopt/internal/webhooks"
)

type Server struct {
	Data   *config.Dataset
	Matrix *matrix.Builder
	Geo    *geometry.Enricher
	Store  store.Store
	Pub    *webhooks.Publisher
	Broker EventBroker
}

// NewServer wires the server from the environment. If DATABASE_URL is unset,
// solutions live in memory; if REDIS_URL is unset, events stay in-process.
func NewServer(data *config.Dataset) (*Server, error) {
	dsn := os.Getenv("DATABASE_URL")
	var s store.Store
	if strings.TrimSpace(dsn) == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(dsn)
		if err != nil {
			return nil, err
		}
		// Run migrations (dev helper)
		if os.Getenv("DB_MIGRATE") != "false" {
			if err := sp.MigrateDir("db/migrations"); err != nil {
				log.Printf("migrate: %v", err)
			}
		}
		s = sp
	}

	var broker EventBroker
	var cache matrix.Cache
	if os.Getenv("REDIS_URL") != "" {
		if rb, err := NewRedisBroker(); err == nil {
			broker = rb
		} else {
			log.Printf("redis broker unavailable, using in-memory: %v", err)
			broker = NewBroker()
		}
		if rc, err := matrix.NewRedisCache(os.Getenv("REDIS_URL")); err == nil {
			cache = rc
		}
	} else {
		broker = NewBroker()
	}

	var osrm *matrix.OSRMClient
	var geo *geometry.Enricher
	if os.Getenv("OSRM_DISABLED") != "true" {
		osrm = matrix.NewOSRMClient(os.Getenv("OSRM_URL"))
		geo = geometry.NewEnricher(os.Getenv("OSRM_URL"))
	}

	return &Server{
		Data:   data,
		Matrix: matrix.NewBuilder(osrm, cache),
		Geo:    geo,
		Store:  s,
		Pub:    webhooks.NewPublisher(s),
		Broker: broker,
	}, nil
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Store)
}
