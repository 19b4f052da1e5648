package repository

import (
	"fmt"
	"log/slog"

	"github.com/kirychukyurii/mission-control/internal/config"
)

// NewSource creates the job source selected by cfg.Type
func NewSource(cfg config.SourceConfig, logger *slog.Logger) (Backend, error) {
	switch cfg.Type {
	case config.SourceStatic:
		src, err := NewStaticSource(cfg.Static.Path, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.SourceJenkins:
		src, err := NewJenkinsSource(cfg.Jenkins, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.SourceNomad:
		src, err := NewNomadSource(cfg.Nomad, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}
