// Package config reads wordstree configuration from TOML.
//
// A minimal file selecting the relational backend:
//
//	[storage]
//	backend = "sqlite"
//
//	[storage.sqlite]
//	path = "wordstree.db"
//
// Every field has a default (see Default), so an empty file is valid.
// Selected values can be overridden from the environment; see ApplyEnv.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/wordstree/internal/logging"
	wterrors "github.com/matzehuels/wordstree/pkg/errors"
	"github.com/matzehuels/wordstree/pkg/tree"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Document store drivers for the file backend.
const (
	DriverLocal  = "local"
	DriverMemory = "memory"
	DriverRedis  = "redis"
	DriverMongo  = "mongo"
	DriverS3     = "s3"
	DriverMinio  = "minio"
)

// Config is the root of the configuration file.
type Config struct {
	Log       Log       `toml:"log"`
	Generator Generator `toml:"generator"`
	Storage   Storage   `toml:"storage"`
}

type Log struct {
	Level string `toml:"level"`
}

type Generator struct {
	MaxDepth int `toml:"max_depth"`
	// Seed for the branch generator. Zero seeds from the clock.
	Seed uint64 `toml:"seed"`
}

type Storage struct {
	Backend string `toml:"backend"`
	SQLite  SQLite `toml:"sqlite"`
	File    File   `toml:"file"`
}

type SQLite struct {
	Path string `toml:"path"`
}

type File struct {
	Driver   string `toml:"driver"`
	Root     string `toml:"root"` // directory for the local driver
	Compress bool   `toml:"compress"`

	Redis Redis `toml:"redis"`
	Mongo Mongo `toml:"mongo"`
	S3    S3    `toml:"s3"`
	Minio Minio `toml:"minio"`
}

type Redis struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Prefix   string `toml:"prefix"`
}

type Mongo struct {
	URI        string `toml:"uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

type S3 struct {
	Bucket   string `toml:"bucket"`
	Prefix   string `toml:"prefix"`
	Region   string `toml:"region"`
	Endpoint string `toml:"endpoint"` // custom endpoint, e.g. localstack
}

type Minio struct {
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Secure    bool   `toml:"secure"`
}

// Default returns the configuration used for fields a file leaves unset.
func Default() Config {
	return Config{
		Log:       Log{Level: "info"},
		Generator: Generator{MaxDepth: 10},
		Storage: Storage{
			Backend: BackendSQLite,
			SQLite:  SQLite{Path: "wordstree.db"},
			File: File{
				Driver: DriverLocal,
				Root:   "cache",
				Redis:  Redis{Addr: "localhost:6379", Prefix: "wordstree"},
				Mongo:  Mongo{URI: "mongodb://localhost:27017", Database: "wordstree", Collection: "trees"},
				Minio:  Minio{Endpoint: "localhost:9000", Bucket: "wordstree"},
			},
		},
	}
}

// Parse decodes TOML on top of the defaults. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, wterrors.Wrap(wterrors.ErrCodeInvalidFormat, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, wterrors.New(wterrors.ErrCodeInvalidFormat, "unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// Load reads and parses the file at path, applies environment overrides
// and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, wterrors.Wrap(wterrors.ErrCodeNotFound, err, "config file %s", path)
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from WORDSTREE_* variables:
//
//	WORDSTREE_LOG_LEVEL, WORDSTREE_MAX_DEPTH, WORDSTREE_BACKEND,
//	WORDSTREE_SQLITE_PATH, WORDSTREE_FILE_DRIVER, WORDSTREE_FILE_ROOT,
//	WORDSTREE_REDIS_ADDR, WORDSTREE_MONGO_URI, WORDSTREE_S3_BUCKET,
//	WORDSTREE_MINIO_ENDPOINT
//
// Empty and unparsable values are ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Log.Level, "WORDSTREE_LOG_LEVEL")
	set(&c.Storage.Backend, "WORDSTREE_BACKEND")
	set(&c.Storage.SQLite.Path, "WORDSTREE_SQLITE_PATH")
	set(&c.Storage.File.Driver, "WORDSTREE_FILE_DRIVER")
	set(&c.Storage.File.Root, "WORDSTREE_FILE_ROOT")
	set(&c.Storage.File.Redis.Addr, "WORDSTREE_REDIS_ADDR")
	set(&c.Storage.File.Mongo.URI, "WORDSTREE_MONGO_URI")
	set(&c.Storage.File.S3.Bucket, "WORDSTREE_S3_BUCKET")
	set(&c.Storage.File.Minio.Endpoint, "WORDSTREE_MINIO_ENDPOINT")

	if v := getenv("WORDSTREE_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Generator.MaxDepth = n
		}
	}
}

// Validate reports the first invalid setting as INVALID_INPUT.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return wterrors.Wrap(wterrors.ErrCodeInvalidInput, err, "log.level")
	}
	if d := c.Generator.MaxDepth; d < 1 || d > tree.MaxDepthLimit {
		return wterrors.New(wterrors.ErrCodeInvalidInput,
			"generator.max_depth must be between 1 and %d, got %d", tree.MaxDepthLimit, d)
	}

	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.SQLite.Path == "" {
			return wterrors.New(wterrors.ErrCodeInvalidInput, "storage.sqlite.path is required")
		}
		return nil
	case BackendFile:
		return c.Storage.File.validate()
	default:
		return wterrors.New(wterrors.ErrCodeInvalidInput,
			"storage.backend must be %q or %q, got %q", BackendSQLite, BackendFile, c.Storage.Backend)
	}
}

func (f File) validate() error {
	required := func(field, value string) error {
		if value == "" {
			return wterrors.New(wterrors.ErrCodeInvalidInput, "storage.file.%s is required for driver %q", field, f.Driver)
		}
		return nil
	}
	switch f.Driver {
	case DriverLocal:
		return required("root", f.Root)
	case DriverMemory:
		return nil
	case DriverRedis:
		return required("redis.addr", f.Redis.Addr)
	case DriverMongo:
		if err := required("mongo.uri", f.Mongo.URI); err != nil {
			return err
		}
		if err := required("mongo.database", f.Mongo.Database); err != nil {
			return err
		}
		return required("mongo.collection", f.Mongo.Collection)
	case DriverS3:
		return required("s3.bucket", f.S3.Bucket)
	case DriverMinio:
		if err := required("minio.endpoint", f.Minio.Endpoint); err != nil {
			return err
		}
		return required("minio.bucket", f.Minio.Bucket)
	default:
		return wterrors.New(wterrors.ErrCodeInvalidInput, "unknown storage.file.driver %q", f.Driver)
	}
}
