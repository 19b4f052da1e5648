package view

import (
	"log/slog"
	"regexp"

	"github.com/kirychukyurii/mission-control/internal/config"
	"github.com/kirychukyurii/mission-control/internal/model"
)

// View defaults for settings left unset
const (
	DefaultHistoryLimit     = 250
	DefaultBuildHistorySize = 16
	DefaultBuildQueueSize   = 10
	DefaultFontSize         = 16
	DefaultHeightRatio      = "6040"

	condensedTableStyle = "table-condensed"
	fullHeight          = "100"
	hiddenHeight        = "0"
)

var heightRatioPattern = regexp.MustCompile(`^[0-9]{4}$`)

// View is a validated, immutable dashboard view
type View struct {
	cfg            config.ViewConfig
	buildFilter    *regexp.Regexp
	jobFilter      *regexp.Regexp
	honorBuildable bool
	qualifyFolders bool
}

// New validates cfg and applies defaults.
// A filter that does not compile is logged and disabled, never returned as an error.
func New(cfg config.ViewConfig, logger *slog.Logger) View {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.BuildHistorySize <= 0 {
		cfg.BuildHistorySize = DefaultBuildHistorySize
	}
	if cfg.BuildQueueSize <= 0 {
		cfg.BuildQueueSize = DefaultBuildQueueSize
	}
	if cfg.FontSize <= 0 {
		cfg.FontSize = DefaultFontSize
	}
	if cfg.LayoutHeightRatio == "" {
		cfg.LayoutHeightRatio = DefaultHeightRatio
	} else if !heightRatioPattern.MatchString(cfg.LayoutHeightRatio) {
		logger.Warn("invalid layout height ratio, using default",
			slog.String("view", cfg.Name),
			slog.String("ratio", cfg.LayoutHeightRatio),
			slog.String("default", DefaultHeightRatio),
		)
		cfg.LayoutHeightRatio = DefaultHeightRatio
	}

	v := View{
		honorBuildable: boolOr(cfg.HonorBuildableFlag, true),
		qualifyFolders: boolOr(cfg.QualifyFolderNames, true),
	}

	v.buildFilter = compileFilter(cfg.Name, "filter_build_history", cfg.FilterBuildHistory, logger)
	if v.buildFilter == nil {
		cfg.FilterBuildHistory = ""
	}
	v.jobFilter = compileFilter(cfg.Name, "filter_job_statuses", cfg.FilterJobStatuses, logger)
	if v.jobFilter == nil {
		cfg.FilterJobStatuses = ""
	}

	// Pointers are resolved into the flags above
	cfg.HonorBuildableFlag = nil
	cfg.QualifyFolderNames = nil
	v.cfg = cfg

	return v
}

func compileFilter(view, field, expr string, logger *slog.Logger) *regexp.Regexp {
	if expr == "" {
		return nil
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		logger.Warn("invalid filter expression, filter disabled",
			slog.String("view", view),
			slog.String("field", field),
			slog.String("expression", expr),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return re
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

// Name returns the view name
func (v View) Name() string { return v.cfg.Name }

// BuildQueueSize is the most queue entries the build queue panel shows
func (v View) BuildQueueSize() int { return v.cfg.BuildQueueSize }

// HistoryLimit returns the maximum number of runs read for the build history
func (v View) HistoryLimit() int { return v.cfg.HistoryLimit }

// BuildHistoryFilter returns the build history filter, nil when unset
func (v View) BuildHistoryFilter() *regexp.Regexp { return v.buildFilter }

// JobStatusFilter returns the job status filter, nil when unset
func (v View) JobStatusFilter() *regexp.Regexp { return v.jobFilter }

// FilterByFailures reports whether job statuses are ordered failures first
func (v View) FilterByFailures() bool { return v.cfg.FilterByFailures }

// HonorBuildableFlag reports whether non-buildable jobs are shown as DISABLED
func (v View) HonorBuildableFlag() bool { return v.honorBuildable }

// QualifyFolderNames reports whether jobs in folders are shown with their folder path
func (v View) QualifyFolderNames() bool { return v.qualifyFolders }

// TableStyle returns the table CSS class
func (v View) TableStyle() string {
	if v.cfg.UseCondensedTables {
		return condensedTableStyle
	}
	return ""
}

// Layout returns the panel heights in percent.
// A hidden panel gets "0" and its neighbour in the same column takes the full height.
func (v View) Layout() model.Layout {
	top := v.cfg.LayoutHeightRatio[:2]
	bottom := v.cfg.LayoutHeightRatio[2:4]

	return model.Layout{
		BuildHistoryHeight: panelHeight(v.cfg.HideBuildHistory, v.cfg.HideBuildQueue, top),
		JobsHeight:         panelHeight(v.cfg.HideJobs, v.cfg.HideNodes, top),
		BuildQueueHeight:   panelHeight(v.cfg.HideBuildQueue, v.cfg.HideBuildHistory, bottom),
		NodesHeight:        panelHeight(v.cfg.HideNodes, v.cfg.HideJobs, bottom),
	}
}

func panelHeight(hidden, neighbourHidden bool, share string) string {
	switch {
	case hidden:
		return hiddenHeight
	case neighbourHidden:
		return fullHeight
	default:
		return share
	}
}

// Info returns the view description served to clients
func (v View) Info() model.ViewInfo {
	return model.ViewInfo{
		Name:               v.cfg.Name,
		HistoryLimit:       v.cfg.HistoryLimit,
		BuildHistorySize:   v.cfg.BuildHistorySize,
		BuildQueueSize:     v.cfg.BuildQueueSize,
		FontSize:           v.cfg.FontSize,
		TableStyle:         v.TableStyle(),
		StatusButtonSize:   v.cfg.StatusButtonSize,
		FilterByFailures:   v.cfg.FilterByFailures,
		FilterBuildHistory: v.cfg.FilterBuildHistory,
		FilterJobStatuses:  v.cfg.FilterJobStatuses,
		Layout:             v.Layout(),
	}
}
