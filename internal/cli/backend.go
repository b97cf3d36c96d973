package cli

import (
	"fmt"

	"github.com/mdeval/mdeval/internal/cache"
	"github.com/mdeval/mdeval/internal/config"
)

const defaultDBHint = config.DefaultCacheDB

// openedBackend is a cache backend plus how to release it.
type openedBackend struct {
	cache.Backend
	Describe string
	close    func() error
}

func (b *openedBackend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// openBackend resolves the cache backend. --db wins, then a configured
// bucket, then the SQLite path from the environment.
func openBackend(opts *RootOptions) (*openedBackend, error) {
	var env config.Env
	if opts.EnvFile != "" {
		env = config.LoadEnv(opts.EnvFile)
	} else {
		env = config.LoadEnv()
	}

	if opts.Database == "" && env.UseObjectStore() {
		st, err := cache.NewObjectStore(env.ObjectStore)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, ErrCodeCache, "failed to open object store", err)
		}
		return &openedBackend{
			Backend:  st,
			Describe: fmt.Sprintf("s3://%s/%s", env.ObjectStore.Bucket, env.ObjectStore.Prefix),
		}, nil
	}

	path := opts.Database
	if path == "" {
		path = env.CacheDB
	}
	st, err := cache.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeCache, "failed to open cache database", err)
	}
	return &openedBackend{Backend: st, Describe: path, close: st.Close}, nil
}
