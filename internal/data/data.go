package data

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/leafcare/terrarium-backend/internal/conf"
	locationdata "github.com/leafcare/terrarium-backend/internal/location/data"
	"github.com/leafcare/terrarium-backend/internal/media"
	photodata "github.com/leafcare/terrarium-backend/internal/photo/data"
	plantdata "github.com/leafcare/terrarium-backend/internal/plant/data"
	"github.com/leafcare/terrarium-backend/internal/pkg/database"
	"github.com/leafcare/terrarium-backend/internal/pkg/logger"
	speciesdata "github.com/leafcare/terrarium-backend/internal/species/data"
	userdata "github.com/leafcare/terrarium-backend/internal/user/data"
)

// Data bundles the storage backends: postgres through GORM and redis
// for sessions and one-shot tokens.
type Data struct {
	DB     *database.DB
	Redis  *redis.Client
	Logger *logger.Logger
}

// New connects to the backends and runs migrations. The returned
// cleanup closes both connections.
func New(config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	db, err := database.New(&config.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr(),
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	d := &Data{
		DB:     db,
		Redis:  redisClient,
		Logger: log,
	}

	cleanup := func() {
		log.Info("closing data connections")
		if err := redisClient.Close(); err != nil {
			log.Error("failed to close redis client")
		}
		if err := db.Close(); err != nil {
			log.Error("failed to close database")
		}
	}

	return d, cleanup, nil
}

func migrate(db *database.DB) error {
	return db.AutoMigrate(
		&media.HashPO{},
		&userdata.UserPO{},
		&speciesdata.SpeciesPO{},
		&locationdata.LocationPO{},
		&plantdata.PlantPO{},
		&photodata.PhotoPO{},
	)
}
