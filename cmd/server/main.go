package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"foodDeliveryMarketplace/internal/config"
	"foodDeliveryMarketplace/internal/db"
	grpcserver "foodDeliveryMarketplace/internal/grpc"
	"foodDeliveryMarketplace/internal/httpapi"
	"foodDeliveryMarketplace/internal/logger"
	"foodDeliveryMarketplace/internal/notify"
	"foodDeliveryMarketplace/internal/orders"
	"foodDeliveryMarketplace/internal/otp"
	"foodDeliveryMarketplace/internal/payment"
	"foodDeliveryMarketplace/internal/telemetry"
	"foodDeliveryMarketplace/internal/worker"
	"foodDeliveryMarketplace/repository"
	"foodDeliveryMarketplace/repository/mongostore"
)

// stores bundles one backend's repositories.
type stores struct {
	users  repository.UserRepositoryI
	shops  repository.ShopRepositoryI
	items  repository.ItemRepositoryI
	orders repository.OrderRepositoryI
	ping   func(context.Context) error
	close  func(context.Context) error
}

func main() {
	rollback := flag.Bool("rollback-migration", false, "undo the newest SQLite migration and exit")
	flag.Parse()

	cfg, err := config.LoadWithDefaults()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	if err := logger.Init(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File}); err != nil {
		logrus.Fatalf("init logger: %v", err)
	}
	log := logger.Get("server")
	log.Infof("configuration loaded: %v", cfg)

	if *rollback {
		if err := rollbackMigration(cfg, log); err != nil {
			log.WithError(err).Fatal("rollback migration")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.SetupTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
	if err != nil {
		log.WithError(err).Fatal("setup tracer")
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open store")
	}

	emitter, closeEmitter := newEmitter(cfg)
	dispatcher := notify.NewDispatcher(emitter, cfg.Notify.Timeout, logger.Get("notify"))

	gen, err := otp.NewGenerator(cfg.Delivery.OTPLength, cfg.Delivery.OTPTTL)
	if err != nil {
		log.WithError(err).Fatal("otp generator")
	}

	var payments payment.Gateway = payment.Disabled{}
	if cfg.PaymentsEnabled() {
		payments = payment.NewRazorpay(cfg.Payment.RazorpayKeyID, cfg.Payment.RazorpayKeySecret)
	}

	svc := orders.NewService(orders.Deps{
		Users:    st.users,
		Shops:    st.shops,
		Items:    st.items,
		Orders:   st.orders,
		OTP:      gen,
		Notifier: dispatcher,
		Payments: payments,
		Log:      logger.Get("orders"),
	}, orders.Config{
		RadiusKm:   cfg.Delivery.RadiusKm,
		Currency:   cfg.Payment.Currency,
		SweepBatch: cfg.Delivery.SweepBatch,
	})

	sweeper := worker.NewOTPSweepWorker(svc, cfg.Delivery.SweepInterval, logger.Get("otp-sweep"))
	go sweeper.Start(ctx)

	grpcSrv, err := grpcserver.Start(cfg.GRPC.Address, cfg.Auth.JWTSecret, logger.Get("grpc"))
	if err != nil {
		log.WithError(err).Fatal("start grpc")
	}
	go grpcSrv.WatchStore(ctx, st.ping, 15*time.Second)

	handler := httpapi.NewHandler(svc, httpapi.Options{
		JWTSecret:     cfg.Auth.JWTSecret,
		TokenTTL:      cfg.Auth.TokenTTL,
		CookieSecure:  cfg.Auth.CookieSecure,
		RazorpayKeyID: cfg.Payment.RazorpayKeyID,
		Log:           logger.Get("http"),
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           httpapi.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("addr", cfg.HTTP.Address).Info("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("grpc shutdown")
	}
	dispatcher.Wait()
	if err := closeEmitter(); err != nil {
		log.WithError(err).Warn("close notifier")
	}
	if err := st.close(shutdownCtx); err != nil {
		log.WithError(err).Warn("close store")
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.WithError(err).Warn("tracer shutdown")
	}
}

func openStores(ctx context.Context, cfg *config.Config, log *logrus.Entry) (*stores, error) {
	if cfg.Database.Driver == "mongo" {
		client, mdb, err := db.OpenMongo(ctx, cfg.Database.MongoURI, cfg.Database.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, mdb); err != nil {
			_ = db.CloseMongo(ctx, client)
			return nil, err
		}
		log.WithField("db", cfg.Database.MongoDB).Info("using mongodb store")
		return &stores{
			users:  mongostore.NewUserRepository(mdb),
			shops:  mongostore.NewShopRepository(mdb),
			items:  mongostore.NewItemRepository(mdb),
			orders: mongostore.NewOrderRepository(mdb),
			ping:   func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:  func(ctx context.Context) error { return db.CloseMongo(ctx, client) },
		}, nil
	}

	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	log.WithField("path", cfg.Database.Path).Info("using sqlite store")
	return &stores{
		users:  repository.NewUserRepository(d),
		shops:  repository.NewShopRepository(d),
		items:  repository.NewItemRepository(d),
		orders: repository.NewOrderRepository(d),
		ping:   d.PingContext,
		close:  func(context.Context) error { return d.Close() },
	}, nil
}

func rollbackMigration(cfg *config.Config, log *logrus.Entry) error {
	if cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("migrations apply to the sqlite store only, STORE_DRIVER is %q", cfg.Database.Driver)
	}
	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer d.Close()
	version, err := db.RollbackLast(d)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"path": cfg.Database.Path, "version": version}).Info("migration rolled back")
	return nil
}

// newEmitter logs every push and also publishes to Redis when configured.
func newEmitter(cfg *config.Config) (notify.Emitter, func() error) {
	logEmitter := notify.LogEmitter{Log: logger.Get("push")}
	if cfg.Notify.RedisAddr == "" {
		return logEmitter, func() error { return nil }
	}
	redisEmitter, client := notify.NewRedisEmitter(cfg.Notify.RedisAddr, cfg.Notify.ChannelPrefix)
	return notify.MultiEmitter{logEmitter, redisEmitter}, client.Close
}
