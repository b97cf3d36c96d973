package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/mdeval/mdeval/internal/cache"
)

// DefaultCacheDB is the SQLite cache path when MDEVAL_CACHE_DB is unset.
const DefaultCacheDB = "mdeval-cache.db"

// Environment variables read by LoadEnv.
const (
	EnvCacheDB     = "MDEVAL_CACHE_DB"
	EnvCacheBucket = "MDEVAL_CACHE_BUCKET"
	EnvS3Endpoint  = "MDEVAL_S3_ENDPOINT"
	EnvS3AccessKey = "MDEVAL_S3_ACCESS_KEY"
	EnvS3SecretKey = "MDEVAL_S3_SECRET_KEY"
	EnvS3Region    = "MDEVAL_S3_REGION"
	EnvS3Prefix    = "MDEVAL_S3_PREFIX"
	EnvS3UseSSL    = "MDEVAL_S3_USE_SSL"
)

// Env holds cache settings from the environment.
type Env struct {
	CacheDB     string
	ObjectStore cache.ObjectStoreConfig
}

// UseObjectStore reports whether a bucket backend is configured. It takes
// precedence over the SQLite file when set.
func (e Env) UseObjectStore() bool {
	return e.ObjectStore.Endpoint != "" && e.ObjectStore.Bucket != ""
}

// LoadEnv loads .env files (default ".env" in the working directory) into
// the process environment without overriding variables already set, then
// reads the settings. Missing files are ignored.
func LoadEnv(files ...string) Env {
	_ = godotenv.Load(files...)
	return FromEnv(os.Getenv)
}

// FromEnv reads the settings through getenv.
func FromEnv(getenv func(string) string) Env {
	get := func(key string) string {
		return strings.TrimSpace(getenv(key))
	}
	return Env{
		CacheDB: firstNonEmpty(get(EnvCacheDB), DefaultCacheDB),
		ObjectStore: cache.ObjectStoreConfig{
			Endpoint:  get(EnvS3Endpoint),
			Region:    firstNonEmpty(get(EnvS3Region), "us-east-1"),
			AccessKey: get(EnvS3AccessKey),
			SecretKey: get(EnvS3SecretKey),
			Bucket:    get(EnvCacheBucket),
			Prefix:    get(EnvS3Prefix),
			UseSSL:    parseBool(get(EnvS3UseSSL), true),
		},
	}
}

func parseBool(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
