package server

import (
	"context"
	"log"
	"net/http"

	"backend-recordpath/internal/annotation"
	"backend-recordpath/internal/archive"
	"backend-recordpath/internal/auth"
	"backend-recordpath/internal/config"
	"backend-recordpath/internal/geocode"
	"backend-recordpath/internal/location"
	"backend-recordpath/internal/storage"
	"backend-recordpath/internal/stream"
	"backend-recordpath/internal/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Stream   *stream.Hub
	Registry *tracking.Registry
	Archive  *archive.Dispatcher

	publisher *archive.Publisher
}

// newMinioFn is swapped in tests.
var newMinioFn = func(cfg config.Config) (storage.ObjectStore, error) {
	client, err := storage.NewMinioClient(cfg)
	if err != nil || client == nil {
		return nil, err
	}
	return client, nil
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}
	s.Archive = archive.NewDispatcher(64, 0, s.sinks()...)
	s.Registry = tracking.NewRegistry(tracking.ConfigFrom(cfg), s.gateway(), s.providers(), s.onEvent)

	registerRoutes(s)
	return s
}

func (s *Server) gateway() geocode.Gateway {
	if s.Cfg.GeocodeURL == "" {
		return nil
	}
	var g geocode.Gateway = geocode.NewNominatim(s.Cfg.GeocodeURL, &http.Client{Timeout: s.Cfg.GeocodeTimeout()})
	if s.Redis != nil {
		g = geocode.NewCache(g, s.Redis, s.Cfg.GeocodeCacheTTL())
	}
	return g
}

func (s *Server) providers() tracking.ProvidersFunc {
	if s.Redis == nil {
		return nil
	}
	return func(deviceID string) []location.Source {
		return []location.Source{location.NewRedisSource(s.Redis, deviceID)}
	}
}

func (s *Server) sinks() []archive.Sink {
	var sinks []archive.Sink
	if s.DB != nil {
		sinks = append(sinks, archive.NewStore(s.DB))
	}
	if brokers := s.Cfg.Brokers(); len(brokers) > 0 {
		s.publisher = archive.NewPublisher(brokers, s.Cfg.KafkaTopic)
		sinks = append(sinks, s.publisher)
	}

	objects, err := newMinioFn(s.Cfg)
	if err != nil {
		log.Printf("storage disabled: %v", err)
	} else if objects != nil {
		var svc *storage.Service
		if s.DB != nil {
			svc = storage.NewService(objects, s.DB, s.Cfg.MinioBucket)
		} else {
			svc = storage.NewService(objects, nil, s.Cfg.MinioBucket)
		}
		sinks = append(sinks, svc)
	}
	return sinks
}

// onEvent fans engine events out to websocket clients and hands finalized
// journeys to the archive.
func (s *Server) onEvent(deviceID string, ev tracking.Event) {
	if err := s.Stream.BroadcastJSON(deviceID, ev); err != nil {
		log.Printf("stream: broadcast %s for %s: %v", ev.Kind, deviceID, err)
	}
	s.Archive.Handle(deviceID, ev)
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	annotations := annotation.NewService(nil, s.Registry)
	if s.DB != nil {
		auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
		annotations = annotation.NewService(s.DB, s.Registry)
	} else {
		log.Printf("postgres unavailable, device enrollment disabled")
	}
	tracking.RegisterRoutes(s.App.Group("/tracking"), s.Registry, jwtMiddleware)
	annotation.RegisterRoutes(s.App.Group("/journeys"), annotations, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, jwtMiddleware)
}

// Close finalizes open journeys, drains the archive queue and releases
// the hub. The HTTP app must already be shut down.
func (s *Server) Close(ctx context.Context) {
	s.Registry.Close()

	done := make(chan struct{})
	go func() {
		s.Archive.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Printf("archive: drain interrupted: %v", ctx.Err())
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.Printf("kafka: close writer: %v", err)
		}
	}
	s.Stream.Close()
}
