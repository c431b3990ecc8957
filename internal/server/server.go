package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/minimart/apiserver/config"
	"github.com/minimart/apiserver/internal/db"
	"github.com/minimart/apiserver/internal/handlers"
	"github.com/minimart/apiserver/internal/mq"
	"github.com/minimart/apiserver/internal/services"
	"github.com/minimart/apiserver/internal/storage"
	"github.com/minimart/apiserver/internal/store"
	"github.com/sirupsen/logrus"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log := newLogger(cfg)

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		_ = dbConn.Close()
		return nil, errors.New("JWT_SECRET is required")
	}

	objectStore, err := newObjectStorage(ctx, cfg, log)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	broker, err := newBroker(ctx, cfg, log)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	tokenRepo := store.NewResetTokenRepository(dbConn)
	productRepo := store.NewProductRepository(dbConn)
	cartRepo := store.NewCartRepository(dbConn)
	orderRepo := store.NewOrderRepository(dbConn)

	resetTTL := time.Duration(cfg.Auth.ResetTokenTTLMinutes) * time.Minute
	userService := services.NewUserService(userRepo, tokenRepo, resetTTL)
	catalogService := services.NewCatalogService(productRepo, objectStore, log)
	cartService := services.NewCartService(cartRepo, productRepo)
	paymentGate := services.NewPaymentGate(cfg.Payment, log)
	mailer := services.NewMailer(cfg.SMTP, cfg.Auth.ResetTokenTTLMinutes, log)

	var events services.EventPublisher
	if broker != nil {
		events = broker
	}
	checkoutService := services.NewCheckoutService(cartRepo, orderRepo, paymentGate, events, log)
	orderService := services.NewOrderService(orderRepo, events, log)

	authHandler := handlers.NewAuthHandler(userService, mailer, jwtSecret, cfg.Auth)
	productHandler := handlers.NewProductHandler(catalogService)
	cartHandler := handlers.NewCartHandler(cartService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	orderHandler := handlers.NewOrderHandler(orderService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
	})
	router.Route("/admin/products", func(r chi.Router) {
		handlers.AdminProductRouter(r, productHandler, authHandler.RequireAuth, handlers.RequireAdmin)
	})
	router.Route("/products", func(r chi.Router) {
		handlers.ProductRouter(r, productHandler)
	})
	router.Route("/cart", func(r chi.Router) {
		handlers.CartRouter(r, cartHandler, authHandler.RequireAuth)
	})
	router.Route("/checkout", func(r chi.Router) {
		handlers.CheckoutRouter(r, checkoutHandler, authHandler.RequireAuth)
	})
	router.Route("/orders", func(r chi.Router) {
		handlers.OrderRouter(r, orderHandler, authHandler.RequireAuth)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		mq:         broker,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.mq != nil {
		_ = s.mq.Close()
	}
	return s.httpServer.Close()
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// newObjectStorage builds the configured object storage backend, or nil
// when none is configured.
func newObjectStorage(ctx context.Context, cfg config.Config, log *logrus.Logger) (*storage.Storage, error) {
	var backend storage.ObjectStorage
	switch cfg.Storage.Backend {
	case "":
		log.Info("object storage disabled")
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Storage.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.Storage.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	wrapped := storage.NewStorage(backend)
	if err := wrapped.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"backend": cfg.Storage.Backend,
		"bucket":  wrapped.Bucket(),
	}).Info("object storage ready")
	return wrapped, nil
}

// newBroker builds the configured message queue backend, or nil when
// none is configured.
func newBroker(ctx context.Context, cfg config.Config, log *logrus.Logger) (*mq.MQ, error) {
	var backend mq.Backend
	switch cfg.MQ.Backend {
	case "":
		log.Info("message queue disabled")
		return nil, nil
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.MQ.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		backend = client
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.MQ.PubSub)
		if err != nil {
			return nil, fmt.Errorf("pubsub: %w", err)
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.MQ.Backend)
	}

	log.WithField("backend", cfg.MQ.Backend).Info("message queue ready")
	return mq.New(backend), nil
}
