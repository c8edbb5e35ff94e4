// Package backend builds a configured loader and the storage behind it.
package backend

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/charmbracelet/log"
	goredis "github.com/redis/go-redis/v9"

	"github.com/matzehuels/wordstree/internal/logging"
	"github.com/matzehuels/wordstree/pkg/branch"
	"github.com/matzehuels/wordstree/pkg/config"
	"github.com/matzehuels/wordstree/pkg/docstore"
	miniostore "github.com/matzehuels/wordstree/pkg/docstore/minio"
	mongostore "github.com/matzehuels/wordstree/pkg/docstore/mongo"
	redisstore "github.com/matzehuels/wordstree/pkg/docstore/redis"
	s3store "github.com/matzehuels/wordstree/pkg/docstore/s3"
	"github.com/matzehuels/wordstree/pkg/loader"
	"github.com/matzehuels/wordstree/pkg/loader/filestore"
	"github.com/matzehuels/wordstree/pkg/loader/sqlstore"
)

// Backend is an open loader. Exactly one of SQL and Files is set, matching
// the configured storage backend.
type Backend struct {
	Loader loader.Loader
	SQL    *sqlstore.Loader
	Files  *filestore.Loader

	maxDepth int
	closer   io.Closer
}

// Open validates cfg and opens the backend it selects. A nil logger uses
// log.Default().
func Open(ctx context.Context, cfg config.Config, logger *log.Logger) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logging.OrDefault(logger)

	var gen *branch.Generator
	if cfg.Generator.Seed != 0 {
		gen = branch.NewGenerator(cfg.Generator.Seed)
	}

	b := &Backend{maxDepth: cfg.Generator.MaxDepth}
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		opts := []sqlstore.Option{sqlstore.WithLogger(logger)}
		if gen != nil {
			opts = append(opts, sqlstore.WithGenerator(gen))
		}
		l, err := sqlstore.Open(ctx, cfg.Storage.SQLite.Path, opts...)
		if err != nil {
			return nil, err
		}
		b.Loader, b.SQL, b.closer = l, l, l

	case config.BackendFile:
		store, err := OpenStore(ctx, cfg.Storage.File)
		if err != nil {
			return nil, err
		}
		opts := []filestore.Option{filestore.WithLogger(logger)}
		if gen != nil {
			opts = append(opts, filestore.WithGenerator(gen))
		}
		if cfg.Storage.File.Compress {
			opts = append(opts, filestore.WithCompression())
		}
		l, err := filestore.New(store, opts...)
		if err != nil {
			store.Close()
			return nil, err
		}
		b.Loader, b.Files, b.closer = l, l, l
	}

	logger.Debug("backend open", "backend", cfg.Storage.Backend, "driver", cfg.Storage.File.Driver)
	return b, nil
}

// Generate returns a selector for a new tree at the configured depth.
func (b *Backend) Generate(name string) loader.Selector {
	return loader.Generate(b.maxDepth, name)
}

// Close releases the loader and its storage.
func (b *Backend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// OpenStore opens the document store for the configured driver.
func OpenStore(ctx context.Context, cfg config.File) (docstore.Store, error) {
	switch cfg.Driver {
	case config.DriverLocal:
		return docstore.NewLocal(cfg.Root)
	case config.DriverMemory:
		return docstore.NewMemory(), nil
	case config.DriverRedis:
		return redisstore.Dial(ctx, &goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Redis.Prefix)
	case config.DriverMongo:
		return mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	case config.DriverS3:
		client, err := newS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return s3store.NewStore(client, cfg.S3.Bucket, cfg.S3.Prefix), nil
	case config.DriverMinio:
		m := cfg.Minio
		return miniostore.Dial(ctx, m.Endpoint, m.AccessKey, m.SecretKey, m.Secure, m.Bucket, m.Prefix)
	default:
		return nil, fmt.Errorf("unknown document store driver %q", cfg.Driver)
	}
}

// newS3Client resolves credentials and region from the standard AWS
// sources. A custom endpoint switches to path-style addressing.
func newS3Client(ctx context.Context, cfg config.S3) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewLogger builds the logger described by cfg.
func NewLogger(cfg config.Log, w io.Writer) (*log.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(w, level), nil
}
