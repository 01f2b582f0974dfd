package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/fjod/go_shop/internal/cart"
	"github.com/fjod/go_shop/internal/catalog"
	"github.com/fjod/go_shop/internal/checkout"
	"github.com/fjod/go_shop/internal/config"
	apihttp "github.com/fjod/go_shop/internal/http"
	"github.com/fjod/go_shop/internal/invoice"
	"github.com/fjod/go_shop/internal/mongodb"
	"github.com/fjod/go_shop/internal/orders"
	"github.com/fjod/go_shop/internal/payment"
	"github.com/fjod/go_shop/pkg/idempotency"
	"github.com/fjod/go_shop/pkg/logger"
	"github.com/fjod/go_shop/pkg/metrics"
	"github.com/fjod/go_shop/pkg/shutdown"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func serveCmd(configPath *string) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the order outbox publisher and the invoice worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if migrate {
				if err := runMigrate(cmd.Context(), cfg); err != nil {
					return err
				}
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply migrations before serving")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.Log.Level, "storefront")
	ctx, stop := shutdown.WithSignals(ctx)
	defer stop()

	// Stores
	products, err := catalog.NewRepository(cfg.Catalog.DBPath)
	if err != nil {
		return err
	}
	defer products.Close()

	mongoDB, err := mongodb.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return err
	}
	defer mongoDB.Client().Disconnect(context.WithoutCancel(ctx))
	log.Info("connected to MongoDB", "database", cfg.Mongo.Database)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	orderStore, err := orders.NewPostgresRepository(ctx, cfg.OrdersCredentials())
	if err != nil {
		return err
	}
	defer orderStore.Close()
	log.Info("connected to Postgres", "host", cfg.Postgres.Host, "dbname", cfg.Postgres.DBName)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	shopMetrics := metrics.NewShopMetrics(reg)
	serverMetrics := metrics.NewServerMetrics(reg, "storefront")

	// Domain services
	catalogSvc := catalog.NewService(products, log)
	cartSvc := cart.NewService(
		cart.NewMongoRepository(mongoDB),
		cart.NewRedisCache(redisClient, cfg.Redis.CartTTL),
		catalogSvc,
		log,
	)
	ledger := orders.NewLedger(orderStore, log)

	payments := payment.NewClient(payment.ClientConfig{
		BaseURL: cfg.Payment.BaseURL,
		APIKey:  cfg.Payment.APIKey,
		Timeout: cfg.Payment.Timeout,
	}, log)
	broker := checkout.NewBroker(
		checkout.NewMongoRepository(mongoDB),
		cartSvc,
		payments,
		ledger,
		shopMetrics,
		checkout.Config{
			Currency:       cfg.Payment.Currency,
			SuccessURL:     cfg.Payment.SuccessURL,
			CancelURL:      cfg.Payment.CancelURL,
			PaymentTimeout: cfg.Payment.Timeout,
		},
		log,
	)

	sink, err := invoice.NewDirSink(cfg.Invoice.Dir)
	if err != nil {
		return err
	}
	invoices := invoice.NewService(ledger, sink, invoice.PDFRenderer{}, shopMetrics, log)

	// Messaging
	writer := orders.NewKafkaWriter(cfg.Kafka.Topic, cfg.Kafka.Brokers...)
	defer writer.Close()
	publisher := orders.NewOutboxPublisher(orderStore, writer, shopMetrics, log)

	consumer := invoice.NewConsumer(
		invoice.NewKafkaReader(cfg.Kafka.Topic, cfg.Kafka.Brokers...),
		orderStore,
		invoices,
		idempotency.NewStore(redisClient, cfg.Redis.IdempotencyTTL),
		log,
	)
	defer consumer.Close()

	// Transports
	timeout := cfg.HTTP.RequestTimeout
	router := apihttp.NewRouter(apihttp.Handlers{
		Products: apihttp.NewProductHandler(catalogSvc, timeout, log),
		Cart:     apihttp.NewCartHandler(cartSvc, timeout, log),
		Checkout: apihttp.NewCheckoutHandler(broker, cartSvc, timeout, log),
		Orders:   apihttp.NewOrdersHandler(ledger, invoices, timeout, log),
	}, apihttp.RouterConfig{
		RequestTimeout: timeout,
		Metrics:        serverMetrics,
		Gatherer:       reg,
		Log:            log,
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.GRPC.Addr, err)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		publisher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		consumer.Run(gctx)
		return nil
	})
	g.Go(func() error {
		watchDependencies(gctx, healthServer, log,
			dependencyCheck{"mongodb", func(ctx context.Context) error { return mongoDB.Client().Ping(ctx, nil) }},
			dependencyCheck{"redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
			dependencyCheck{"postgres", orderStore.Ping},
		)
		return nil
	})
	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("grpc health server listening", "addr", cfg.GRPC.Addr)
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return stopServers(srv, grpcServer, healthServer, cfg.HTTP.ShutdownTimeout, log)
	})

	err = g.Wait()
	log.Info("storefront stopped")
	return err
}

func stopServers(srv *http.Server, grpcServer *grpc.Server, hs *health.Server, timeout time.Duration, log *slog.Logger) error {
	log.Info("shutting down")
	hs.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := srv.Shutdown(ctx)
	grpcServer.GracefulStop()
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
