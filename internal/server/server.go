package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/producthunt/apiserver/config"
	"github.com/producthunt/apiserver/internal/auth"
	"github.com/producthunt/apiserver/internal/handlers"
	"github.com/producthunt/apiserver/internal/metrics"
	"github.com/producthunt/apiserver/internal/mq"
	"github.com/producthunt/apiserver/internal/notify"
	"github.com/producthunt/apiserver/internal/payment"
	"github.com/producthunt/apiserver/internal/services"
	"github.com/producthunt/apiserver/internal/storage"
	"go.uber.org/zap"
)

// Server wraps the HTTP server, router and the backends it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     *zap.Logger
	closers    []closer
}

type closer struct {
	name  string
	close func(ctx context.Context) error
}

// New opens every configured backend and wires the API. Backends opened
// before a failure are closed again.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (srv *Server, err error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{logger: logger}
	defer func() {
		if err != nil {
			s.closeBackends(context.Background())
		}
	}()

	repos, err := OpenRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, closer{name: "store", close: repos.Close})

	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		return nil, err
	}
	publishers := []notify.Publisher{}
	hub := notify.NewHub(logger)
	publishers = append(publishers, hub)
	if queue != nil {
		s.closers = append(s.closers, closer{name: "mq", close: func(context.Context) error { return queue.Close() }})
		publishers = append(publishers, notify.NewMQPublisher(queue, cfg.MQ.EventsChannel, logger))
		if queue.Name() == mq.BackendMemory {
			s.drainInProcess(queue, cfg.MQ.EventsChannel)
		}
		logger.Info("publishing events to broker", zap.String("backend", queue.Name()), zap.String("channel", cfg.MQ.EventsChannel))
	}
	events := notify.NewFanout(publishers...)

	images, err := storage.Open(ctx, cfg.ObjectStorage)
	if err != nil {
		return nil, err
	}
	if images == nil {
		logger.Info("object storage not configured, image uploads disabled")
	}

	var provider services.PaymentProvider = payment.Disabled{}
	if cfg.Payment.SecretKey != "" {
		stripe, err := payment.NewStripeClient(cfg.Payment)
		if err != nil {
			return nil, err
		}
		provider = stripe
	} else {
		logger.Warn("payment secret key not set, payment intents will fail")
	}

	m := metrics.New()

	userService := services.NewUserService(repos.Users)
	productService := services.NewProductService(repos.Products, repos.Reviews, events, logger)
	voteService := services.NewVoteService(repos.Products, events, m)
	reviewService := services.NewReviewService(repos.Reviews, repos.Products, events)
	paymentService := services.NewPaymentService(repos.Payments, repos.Users, repos.Coupons, provider, cfg.Payment.Currency, logger)
	couponService := services.NewCouponService(repos.Coupons)
	statsService := services.NewStatsService(repos.Products, repos.Users, repos.Reviews)

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	authn := handlers.NewAuthenticator(tokens, userService, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		handlers.RequestLogger(logger),
		handlers.Instrument(m),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Handle("/metrics", m.Handler())
	router.Get("/events", handlers.NewEventsHandler(hub, cfg.EventKeepalive, m, logger).Stream)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, handlers.NewAuthHandler(userService, tokens, handlers.CookiePolicyFor(cfg.Production()), logger), authn)
		})
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, handlers.NewUserHandler(userService, logger), authn)
		})
		r.Route("/products", func(r chi.Router) {
			handlers.ProductRouter(r, handlers.NewProductHandler(productService, voteService, images, authn, logger))
		})
		r.Route("/reviews", func(r chi.Router) {
			handlers.ReviewRouter(r, handlers.NewReviewHandler(reviewService, productService, authn, logger))
		})
		r.Route("/payments", func(r chi.Router) {
			handlers.PaymentRouter(r, handlers.NewPaymentHandler(paymentService, logger), authn)
		})
		r.Route("/coupons", func(r chi.Router) {
			handlers.CouponRouter(r, handlers.NewCouponHandler(couponService, logger), authn)
		})
		r.Route("/admin", func(r chi.Router) {
			handlers.AdminRouter(r, handlers.NewStatsHandler(statsService, logger), authn)
		})
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.router = router
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	logger.Info("server configured",
		zap.String("env", cfg.Env),
		zap.String("store", cfg.StoreDriver),
		zap.Int("port", port),
	)
	return s, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.closeBackends(ctx)
	return err
}

// drainInProcess consumes the in-memory channel so publishers never block on
// a full queue when no separate worker process can attach.
func (s *Server) drainInProcess(queue *mq.MQ, channel string) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = queue.Subscribe(ctx, channel, func(_ context.Context, msg mq.Message) error {
			event, err := notify.DecodeEvent(msg)
			if err != nil {
				s.logger.Warn("dropping malformed event", zap.String("message_id", msg.ID), zap.Error(err))
				return nil
			}
			s.logger.Debug("event", zap.String("type", string(event.Type)), zap.String("product_id", event.ProductID))
			return nil
		})
	}()
	s.closers = append(s.closers, closer{name: "mq-consumer", close: func(context.Context) error {
		cancel()
		<-done
		return nil
	}})
}

func (s *Server) closeBackends(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		c := s.closers[i]
		if err := c.close(ctx); err != nil {
			s.logger.Warn("failed to close backend", zap.String("backend", c.name), zap.Error(err))
		}
	}
	s.closers = nil
}
