package server

import (
	"context"
	"fmt"

	"github.com/producthunt/apiserver/config"
	"github.com/producthunt/apiserver/internal/db"
	"github.com/producthunt/apiserver/internal/services"
	"github.com/producthunt/apiserver/internal/store"
	"github.com/producthunt/apiserver/internal/store/memstore"
	"github.com/producthunt/apiserver/internal/store/mongostore"
	"go.uber.org/zap"
)

// Repositories is the set of stores selected by STORE_DRIVER.
type Repositories struct {
	Products services.ProductRepository
	Users    services.UserRepository
	Reviews  services.ReviewRepository
	Payments services.PaymentRepository
	Coupons  services.CouponRepository
	Close    func(ctx context.Context) error
}

// OpenRepositories connects the store selected by STORE_DRIVER.
func OpenRepositories(ctx context.Context, cfg config.Config, logger *zap.Logger) (Repositories, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres, "":
		conn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return Repositories{}, fmt.Errorf("postgres: %w", err)
		}
		logger.Info("connected to postgres", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.DBName))
		return Repositories{
			Products: store.NewProductRepository(conn),
			Users:    store.NewUserRepository(conn),
			Reviews:  store.NewReviewRepository(conn),
			Payments: store.NewPaymentRepository(conn),
			Coupons:  store.NewCouponRepository(conn),
			Close:    func(context.Context) error { return conn.Close() },
		}, nil

	case config.StoreDriverMongo:
		client, database, err := db.OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			return Repositories{}, fmt.Errorf("mongo: %w", err)
		}
		if err := mongostore.EnsureIndexes(ctx, database); err != nil {
			_ = client.Disconnect(ctx)
			return Repositories{}, fmt.Errorf("mongo indexes: %w", err)
		}
		logger.Info("connected to mongodb", zap.String("database", cfg.Mongo.Database))
		return Repositories{
			Products: mongostore.NewProductRepository(database),
			Users:    mongostore.NewUserRepository(database),
			Reviews:  mongostore.NewReviewRepository(database),
			Payments: mongostore.NewPaymentRepository(database),
			Coupons:  mongostore.NewCouponRepository(database),
			Close:    client.Disconnect,
		}, nil

	case config.StoreDriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return Repositories{
			Products: memstore.NewProductRepository(),
			Users:    memstore.NewUserRepository(),
			Reviews:  memstore.NewReviewRepository(),
			Payments: memstore.NewPaymentRepository(),
			Coupons:  memstore.NewCouponRepository(),
			Close:    func(context.Context) error { return nil },
		}, nil

	default:
		return Repositories{}, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
