package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/playcache/internal/cache"
	"github.com/desertthunder/playcache/internal/formatter"
	"github.com/desertthunder/playcache/internal/models"
	"github.com/desertthunder/playcache/internal/services"
	"github.com/sahilm/fuzzy"
	"github.com/urfave/cli/v3"
)

// SyncRun runs one pass and streams its states to the output.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	config, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	engine, release := r.newEngine(config)
	defer release()

	useJSON := cmd.Bool("json")
	var last models.SyncState
	for state := range engine.Run(ctx, config.Sync.ManifestURL, config.Sync.CacheDir) {
		last = state
		if err := r.writeState(state, useJSON); err != nil {
			return err
		}
	}

	switch s := last.(type) {
	case models.ErrorState:
		return fmt.Errorf("sync failed: %w", s.Err)
	case nil:
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("sync ended without a result")
	}
	return nil
}

func (r *Runner) writeState(state models.SyncState, useJSON bool) error {
	if !useJSON {
		return r.writeBytes(formatter.StateToText(state))
	}

	data, err := formatter.StateToJSON(state)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return r.writeBytes(data)
}

type cacheStatus struct {
	Key    string `json:"key"`
	Kind   string `json:"type"`
	URL    string `json:"url"`
	Path   string `json:"path"`
	Cached bool   `json:"cached"`
}

// SyncStatus fetches the manifest and reports which items are already cached.
func (r *Runner) SyncStatus(ctx context.Context, cmd *cli.Command) error {
	config, err := r.resolveConfig(cmd)
	if err != nil {
		return err
	}

	resolver, err := cache.NewResolver(config.Sync.CacheDir)
	if err != nil {
		return err
	}

	manifests := services.NewManifestService(r.httpClient, config.Sync.ManifestTimeout, r.logger)
	manifest, err := manifests.Fetch(ctx, config.Sync.ManifestURL)
	if err != nil {
		return err
	}

	resolutions, err := resolver.ResolveAll(manifest)
	if err != nil {
		return err
	}
	r.logger.Debug("resolved manifest", "items", len(resolutions), "cache_dir", resolver.Dir())
	resolutions = matchResolutions(resolutions, cmd.String("match"))

	if !cmd.Bool("json") {
		return r.writeBytes(formatter.CacheReportToText(resolutions))
	}

	report := make([]cacheStatus, len(resolutions))
	for i, res := range resolutions {
		report[i] = cacheStatus{
			Key:    res.Key,
			Kind:   res.Item.Kind.String(),
			URL:    res.Item.SourceURL,
			Path:   res.Path,
			Cached: res.Hit,
		}
	}
	return r.writeJSON(report, cmd.Bool("pretty"))
}

// matchResolutions keeps the resolutions whose cache key fuzzily matches query, best match first.
func matchResolutions(resolutions []cache.Resolution, query string) []cache.Resolution {
	if query == "" {
		return resolutions
	}

	keys := make([]string, len(resolutions))
	for i, res := range resolutions {
		keys[i] = strings.ToLower(res.Key)
	}

	matches := fuzzy.Find(strings.ToLower(query), keys)
	matched := make([]cache.Resolution, len(matches))
	for i, m := range matches {
		matched[i] = resolutions[m.Index]
	}
	return matched
}
