package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/orientation-cli/internal/config"
	"github.com/sells-group/orientation-cli/internal/fetcher"
	"github.com/sells-group/orientation-cli/internal/store"
)

// initStore opens and migrates the configured run store. It returns a nil
// Store when the driver is none.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	st, err := store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

// requireStore is initStore for commands that cannot work without one.
func requireStore(ctx context.Context, c *config.Config) (store.Store, error) {
	st, err := initStore(ctx, c)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("store driver is none; set store.driver to sqlite or postgres")
	}
	return st, nil
}

// newMaterializer builds the input materializer from the fetch settings.
func newMaterializer(c *config.Config) *fetcher.Materializer {
	timeout := time.Duration(c.Fetch.TimeoutSecs) * time.Second
	return fetcher.NewMaterializer(
		fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  c.Fetch.UserAgent,
			Timeout:    timeout,
			RatePerSec: c.Fetch.RatePerSec,
		}),
		fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: timeout}),
		c.Input.TempDir,
	)
}
