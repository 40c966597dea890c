package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/leafcare/terrarium-backend/internal/auth"
	"github.com/leafcare/terrarium-backend/internal/conf"
	"github.com/leafcare/terrarium-backend/internal/data"
	"github.com/leafcare/terrarium-backend/internal/guard"
	locationbiz "github.com/leafcare/terrarium-backend/internal/location/biz"
	locationdata "github.com/leafcare/terrarium-backend/internal/location/data"
	locationservice "github.com/leafcare/terrarium-backend/internal/location/service"
	"github.com/leafcare/terrarium-backend/internal/mailer"
	"github.com/leafcare/terrarium-backend/internal/media"
	photobiz "github.com/leafcare/terrarium-backend/internal/photo/biz"
	photodata "github.com/leafcare/terrarium-backend/internal/photo/data"
	photoservice "github.com/leafcare/terrarium-backend/internal/photo/service"
	plantbiz "github.com/leafcare/terrarium-backend/internal/plant/biz"
	plantdata "github.com/leafcare/terrarium-backend/internal/plant/data"
	plantservice "github.com/leafcare/terrarium-backend/internal/plant/service"
	"github.com/leafcare/terrarium-backend/internal/pkg/logger"
	"github.com/leafcare/terrarium-backend/internal/pkg/workerpool"
	"github.com/leafcare/terrarium-backend/internal/server"
	"github.com/leafcare/terrarium-backend/internal/session"
	speciesbiz "github.com/leafcare/terrarium-backend/internal/species/biz"
	speciesdata "github.com/leafcare/terrarium-backend/internal/species/data"
	speciesservice "github.com/leafcare/terrarium-backend/internal/species/service"
	userbiz "github.com/leafcare/terrarium-backend/internal/user/biz"
	userdata "github.com/leafcare/terrarium-backend/internal/user/data"
	userservice "github.com/leafcare/terrarium-backend/internal/user/service"
)

var configFile = flag.String("config", "config.yaml", "config file path")

func main() {
	flag.Parse()

	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(&config.Log)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	if err := logger.InitGlobal(&config.Log); err != nil {
		log.Fatal("failed to initialize global logger", zap.Error(err))
	}

	d, cleanup, err := data.New(config, log)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	pool, err := workerpool.New(&config.Pool, log.Logger)
	if err != nil {
		log.Fatal("failed to initialize worker pool", zap.Error(err))
	}
	defer pool.Shutdown()

	// Media pipeline: derivative generation plus the reference-counted
	// content store.
	mediaCfg := media.Config{
		Algorithm: config.Files.Hash,
		PublicDir: config.Files.PublicDir,
		TempDir:   config.Files.TempDir,
		Division:  config.Files.Division,
		WebP:      config.Files.WebP,
		WebPOnly:  config.Files.WebPOnly,
	}
	generator := media.NewGenerator(mediaCfg, pool, log)
	store := media.NewStore(d.DB, generator, mediaCfg, log)

	sessions := session.NewManager(d.Redis, config.Auth.SessionTTL, log)
	jwtMgr := auth.NewJWTManager(config.Auth.JWTSecret, config.Auth.JWTIssuer)
	passwords := auth.NewPasswordChecker(config.Auth.BcryptCost)
	guards := guard.New(guard.NewRepo(d.DB))

	mail, err := mailer.New(mailer.Config{
		Host:     config.Mail.Host,
		Port:     config.Mail.Port,
		Username: config.Mail.Username,
		Password: config.Mail.Password,
		From:     config.Mail.From,
		BaseURL:  config.Mail.BaseURL,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize mailer", zap.Error(err))
	}

	// Repositories
	userRepo := userdata.NewUserRepo(d.DB, store)
	speciesRepo := speciesdata.NewSpeciesRepo(d.DB)
	locationRepo := locationdata.NewLocationRepo(d.DB, store)
	plantRepo := plantdata.NewPlantRepo(d.DB)
	photoRepo := photodata.NewPhotoRepo(d.DB, store)

	// Use cases. The location use case cascades into plants, which
	// cascade into photos, so they are wired bottom up.
	userUseCase := userbiz.NewUserUseCase(
		userRepo,
		passwords,
		jwtMgr,
		sessions,
		mail,
		store,
		pool,
		config.Auth.RecoveryTTL,
		log,
	)
	speciesUseCase := speciesbiz.NewSpeciesUseCase(speciesRepo)
	photoUseCase := photobiz.NewPhotoUseCase(photoRepo, store, guards, log)
	plantUseCase := plantbiz.NewPlantUseCase(plantRepo, photoUseCase, guards, config.Plants.MaxForMassAction)
	locationUseCase := locationbiz.NewLocationUseCase(locationRepo, plantUseCase, store, guards)

	// Services
	services := &server.Services{
		User:     userservice.NewUserService(userUseCase, store, &config.Auth, config.Files.MaxSize, log),
		Species:  speciesservice.NewSpeciesService(speciesUseCase, log),
		Location: locationservice.NewLocationService(locationUseCase, store, config.Files.MaxSize, log),
		Plant:    plantservice.NewPlantService(plantUseCase, log),
		Photo:    photoservice.NewPhotoService(photoUseCase, store, config.Files.MaxSize, log),
	}

	httpServer := server.NewHTTPServer(config, log, sessions, jwtMgr, services)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	log.Info("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
