package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/doctool/internal/config"
	ferrors "git.home.luguber.info/inful/doctool/internal/foundation/errors"
	"git.home.luguber.info/inful/doctool/internal/parsecache"
)

// CacheCmd groups the parse cache maintenance commands.
type CacheCmd struct {
	Stats CacheStatsCmd `cmd:"" help:"Show the number and size of cached parse results"`
	Clear CacheClearCmd `cmd:"" help:"Remove every cached parse result"`
}

// CacheStatsCmd implements 'cache stats'.
type CacheStatsCmd struct {
	JSON bool `name:"json" help:"Print the statistics as JSON"`
}

func (c *CacheStatsCmd) Run(globals *Global, root *CLI) error {
	cache, cfg, err := openConfiguredCache(root, globals)
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	stats, err := cache.Stats(context.Background())
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryCache, "cannot read cache statistics").Build()
	}
	if c.JSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryInternal, "encode cache statistics").Build()
		}
		_, _ = fmt.Fprintln(globals.Out, string(data))
		return nil
	}
	_, _ = fmt.Fprintf(globals.Out, "backend=%s path=%s entries=%d bytes=%d\n",
		cfg.CacheBackend, cfg.CachePath, stats.Entries, stats.Bytes)
	return nil
}

// CacheClearCmd implements 'cache clear'.
type CacheClearCmd struct{}

func (c *CacheClearCmd) Run(globals *Global, root *CLI) error {
	cache, cfg, err := openConfiguredCache(root, globals)
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	removed, err := cache.Clear(context.Background())
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryCache, "cannot clear parse cache").
			WithContext("path", cfg.CachePath).Build()
	}
	globals.Logger.Info("Parse cache cleared", "removed", removed)
	_, _ = fmt.Fprintf(globals.Out, "Removed %d cached entries from %s\n", removed, cfg.CachePath)
	return nil
}

// openConfiguredCache opens the cache named in the configuration. Unlike a generation run,
// maintenance commands fail when the cache cannot be opened.
func openConfiguredCache(root *CLI, globals *Global) (*parsecache.Cache, *config.Configuration, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, nil, err
	}
	cache, err := parsecache.Open(cfg.CacheBackend, cfg.CachePath, globals.Logger)
	if err != nil {
		return nil, nil, err
	}
	return cache, cfg, nil
}
