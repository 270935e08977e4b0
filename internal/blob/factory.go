package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"trackgeo/internal/infra/blob/fs"
	memorystore "trackgeo/internal/infra/blob/memory"
	infraS3 "trackgeo/internal/infra/blob/s3"
)

// MaxDocumentSize bounds what ReadDocument loads into memory.
const MaxDocumentSize = 64 << 20

// S3Config is the bucket configuration of the s3 driver.
type S3Config = infraS3.Config

// Config selects and configures a backend.
type Config struct {
	Driver Driver
	Root   string
	S3     S3Config
}

// ConfigFromEnv reads the store configuration from the environment:
//
//	TRACKGEO_BLOB_DRIVER: fs|s3|memory (default fs)
//	TRACKGEO_BLOB_FS_ROOT: directory when driver=fs
//	TRACKGEO_BLOB_S3_BUCKET, _REGION, _ENDPOINT, _PREFIX, _PATH_STYLE
func ConfigFromEnv() Config {
	cfg := Config{
		Driver: Driver(os.Getenv("TRACKGEO_BLOB_DRIVER")),
		Root:   os.Getenv("TRACKGEO_BLOB_FS_ROOT"),
		S3: S3Config{
			Bucket:    os.Getenv("TRACKGEO_BLOB_S3_BUCKET"),
			Region:    os.Getenv("TRACKGEO_BLOB_S3_REGION"),
			Endpoint:  os.Getenv("TRACKGEO_BLOB_S3_ENDPOINT"),
			Prefix:    os.Getenv("TRACKGEO_BLOB_S3_PREFIX"),
			PathStyle: strings.EqualFold(os.Getenv("TRACKGEO_BLOB_S3_PATH_STYLE"), "true"),
		},
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverFilesystem
	}
	return cfg
}

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverFilesystem, "":
		return NewFilesystem(cfg.Root)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// NewFilesystem returns a store rooted at root.
func NewFilesystem(root string) (Store, error) { return fs.New(root) }

// NewMemory returns an in-memory store.
func NewMemory() Store { return memorystore.New() }

// NewS3 returns a bucket-backed store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) { return infraS3.New(ctx, cfg) }

// ReadDocument loads the document at key with its metadata.
func ReadDocument(ctx context.Context, s Store, key string) ([]byte, Info, error) {
	info, rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, Info{}, err
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, MaxDocumentSize+1))
	if err != nil {
		return nil, Info{}, fmt.Errorf("read %s: %w", key, err)
	}
	if len(data) > MaxDocumentSize {
		return nil, Info{}, fmt.Errorf("document %s exceeds %d bytes", key, MaxDocumentSize)
	}
	return data, info, nil
}
