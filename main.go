package main

import (
	"context"
	"strings"
	"time"

	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/routes"
	"github.com/cppla/blogapi/storage"
	"github.com/cppla/blogapi/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(&models.User{}, &models.Post{})

	files, err := openFileStore(cfg)
	if err != nil {
		utils.Sugar.Fatalf("failed to open upload storage: %v", err)
	}

	r := routes.SetupRouter(db, files)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

func openFileStore(cfg config.AppConfig) (storage.ThumbnailStore, error) {
	if strings.EqualFold(cfg.UploadBackend, "minio") {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		utils.Sugar.Infof("storing uploads in bucket %s at %s", cfg.MinIOBucket, cfg.MinIOEndpoint)
		return storage.NewMinIO(ctx, storage.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
			Bucket:    cfg.MinIOBucket,
		})
	}
	utils.Sugar.Infof("storing uploads in %s", cfg.UploadDir)
	return storage.NewLocal(cfg.UploadDir)
}
