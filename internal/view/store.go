package view

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/kirychukyurii/mission-control/internal/config"
	"github.com/kirychukyurii/mission-control/internal/repository"
)

// Store resolves views by name. Views from the config file are always present;
// an optional repository overrides them and may add views of its own.
type Store struct {
	static map[string]View
	order  []string
	repo   repository.ViewRepository
	logger *slog.Logger
}

// NewStore validates the configured views; repo may be nil
func NewStore(views []config.ViewConfig, repo repository.ViewRepository, logger *slog.Logger) *Store {
	s := &Store{
		static: make(map[string]View, len(views)),
		repo:   repo,
		logger: logger,
	}

	for _, cfg := range views {
		if _, exists := s.static[cfg.Name]; !exists {
			s.order = append(s.order, cfg.Name)
		}
		s.static[cfg.Name] = New(cfg, logger)
	}

	return s
}

// Get returns the view with the given name.
// Repository failures fall back to the configured definition.
func (s *Store) Get(ctx context.Context, name string) (View, bool) {
	static, ok := s.static[name]
	if s.repo == nil {
		return static, ok
	}

	cfg, err := s.repo.ReadView(ctx, name)
	switch {
	case err == nil:
		return New(*cfg, s.logger), true
	case errors.Is(err, repository.ErrViewNotStored):
		return static, ok
	default:
		s.logger.Warn("failed to read view override, using configured view",
			slog.String("view", name),
			slog.String("error", err.Error()),
		)
		return static, ok
	}
}

// List returns configured views in config order followed by repository-only views sorted by name
func (s *Store) List(ctx context.Context) []View {
	names := append([]string(nil), s.order...)

	if s.repo != nil {
		stored, err := s.repo.ListViewNames(ctx)
		if err != nil {
			s.logger.Warn("failed to list view overrides",
				slog.String("error", err.Error()),
			)
		}

		var extra []string
		for _, name := range stored {
			if _, ok := s.static[name]; !ok {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		names = append(names, extra...)
	}

	views := make([]View, 0, len(names))
	for _, name := range names {
		if v, ok := s.Get(ctx, name); ok {
			views = append(views, v)
		}
	}

	return views
}
