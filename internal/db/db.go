package db

import (
	"context"
	"sync"

	"github.com/akulinin/mediascore/pkg/logger"
	"github.com/akulinin/mediascore/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DBInstance *gorm.DB
	Once       sync.Once
	DBMu       sync.Mutex
)

type DBOptions func(*gorm.DB) error

// NewDB opens the PostgreSQL connection and migrates the given models.
// The connection is a process-wide singleton.
func NewDB(ctx context.Context, dsn string, models []interface{}, opts ...DBOptions) (*gorm.DB, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var InitErr error
	Once.Do(func() {
		if err := ctx.Err(); err != nil {
			InitErr = utils.WrapError(err, utils.ErrInternalServerError.Code, "DB initialization canceled")
			return
		}

		gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			InitErr = utils.NewError(utils.ErrInternalServerError.Code, "Failed to connect to Database", err.Error())
			return
		}

		for _, opt := range opts {
			if err := opt(gdb); err != nil {
				InitErr = utils.NewError(utils.ErrInternalServerError.Code, "Failed to apply DB Options", err.Error())
				return
			}
		}

		select {
		case <-ctx.Done():
			InitErr = utils.WrapError(ctx.Err(), utils.ErrInternalServerError.Code, "db migration canceled")
			return
		default:
			if err := gdb.WithContext(ctx).AutoMigrate(models...); err != nil {
				InitErr = utils.NewError(utils.ErrInternalServerError.Code, "Failed to Migrate models", err.Error())
				return
			}
		}

		DBMu.Lock()
		DBInstance = gdb
		DBMu.Unlock()
	})

	if InitErr != nil {
		return nil, InitErr
	}

	if DBInstance == nil {
		return nil, utils.NewError(utils.ErrInternalServerError.Code, "Database not initialized")
	}

	return DBInstance, nil
}

func GetDB() *gorm.DB {
	DBMu.Lock()
	defer DBMu.Unlock()

	if DBInstance == nil {
		panic("Database connection not initialized; call NewDB first")
	}
	return DBInstance
}

func CloseDB(log *logger.Logger) error {
	DBMu.Lock()
	defer DBMu.Unlock()

	if DBInstance == nil {
		return nil
	}

	sqlDB, err := DBInstance.DB()
	if err != nil {
		log.Error(context.Background()).WithMeta(utils.Map{"error": err.Error()}).Logs("Failed to get DB handle for closing")
		return utils.NewError(utils.ErrInternalServerError.Code, "Failed to close database", err.Error())
	}

	if err := sqlDB.Close(); err != nil {
		log.Error(context.Background()).WithMeta(utils.Map{"error": err.Error()}).Logs("PostgreSQL database close failed")
		return utils.NewError(utils.ErrInternalServerError.Code, "Failed to close database", err.Error())
	}
	log.Info(context.Background()).Logs("PostgreSQL database connection closed successfully")
	DBInstance = nil
	return nil
}
