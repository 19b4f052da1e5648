package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/kirychukyurii/mission-control/internal/model"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)

	statusColors = map[string]lipgloss.Color{
		string(model.StatusBuilding): lipgloss.Color("12"),
		string(model.StatusFailure):  lipgloss.Color("9"),
		string(model.StatusUnstable): lipgloss.Color("11"),
		string(model.StatusAborted):  lipgloss.Color("8"),
		string(model.StatusSuccess):  lipgloss.Color("10"),
		nodeOnline:                   lipgloss.Color("10"),
		nodeOffline:                  lipgloss.Color("9"),
	}
)

const (
	nodeOnline  = "Online"
	nodeOffline = "Offline"
)

func newBuildsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "builds <view>",
		Short: "Show the build history of a view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var builds []model.BuildSummary
			if err := newClient(opts).getJSON(cmd.Context(), viewPath(args[0], "builds"), &builds); err != nil {
				return fmt.Errorf("failed to get build history: %w", err)
			}

			if opts.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), builds)
			}

			rows := make([][]string, 0, len(builds))
			for _, b := range builds {
				rows = append(rows, []string{
					b.JobName,
					"#" + strconv.Itoa(b.Number),
					time.UnixMilli(b.StartTime).Format(time.DateTime),
					(time.Duration(b.Duration) * time.Millisecond).String(),
					b.Result,
				})
			}

			writeTable(cmd.OutOrStdout(), []string{"Job", "Build", "Started", "Duration", "Result"}, rows, 4)
			return nil
		},
	}
}

func newJobsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs <view>",
		Short: "Show the job statuses of a view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []model.JobStatus
			if err := newClient(opts).getJSON(cmd.Context(), viewPath(args[0], "jobs"), &statuses); err != nil {
				return fmt.Errorf("failed to get job statuses: %w", err)
			}

			if opts.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), statuses)
			}

			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				rows = append(rows, []string{s.JobName, s.Status})
			}

			writeTable(cmd.OutOrStdout(), []string{"Job", "Status"}, rows, 1)
			return nil
		},
	}
}

func newQueueCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "queue <view>",
		Short: "Show the build queue of a view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var queue []model.QueueEntry
			if err := newClient(opts).getJSON(cmd.Context(), viewPath(args[0], "queue"), &queue); err != nil {
				return fmt.Errorf("failed to get build queue: %w", err)
			}

			if opts.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), queue)
			}

			rows := make([][]string, 0, len(queue))
			for _, q := range queue {
				rows = append(rows, []string{
					q.TaskName,
					time.UnixMilli(q.InQueueSince).Format(time.DateTime),
					(time.Duration(q.Waiting) * time.Millisecond).Round(time.Second).String(),
				})
			}

			writeTable(cmd.OutOrStdout(), []string{"Job", "Queued", "Waiting"}, rows, -1)
			return nil
		},
	}
}

func newNodesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "nodes <view>",
		Short: "Show the build nodes of a view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var nodes []model.Node
			if err := newClient(opts).getJSON(cmd.Context(), viewPath(args[0], "nodes"), &nodes); err != nil {
				return fmt.Errorf("failed to get nodes: %w", err)
			}

			if opts.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), nodes)
			}

			rows := make([][]string, 0, len(nodes))
			for _, n := range nodes {
				state := nodeOnline
				if !n.Online {
					state = nodeOffline
				}
				rows = append(rows, []string{n.Name, state, strconv.Itoa(n.Executors), n.OfflineReason})
			}

			writeTable(cmd.OutOrStdout(), []string{"Node", "Status", "Executors", "Reason"}, rows, 1)
			return nil
		},
	}
}

func newViewsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "views",
		Short: "List configured views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var views []model.ViewInfo
			if err := newClient(opts).getJSON(cmd.Context(), "/api/views", &views); err != nil {
				return fmt.Errorf("failed to list views: %w", err)
			}

			if opts.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), views)
			}

			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{
					v.Name,
					strconv.Itoa(v.HistoryLimit),
					strconv.FormatBool(v.FilterByFailures),
					v.FilterBuildHistory,
					v.FilterJobStatuses,
				})
			}

			writeTable(cmd.OutOrStdout(), []string{"View", "History Limit", "Failures First", "Build Filter", "Job Filter"}, rows, -1)
			return nil
		},
	}
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the job source health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var status model.ServiceStatus
			if err := newClient(opts).getJSON(cmd.Context(), "/api/status", &status); err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}

			if opts.output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), status)
			}

			lastCheck := "-"
			if !status.LastCheck.IsZero() {
				lastCheck = status.LastCheck.Local().Format(time.DateTime)
			}

			writeTable(cmd.OutOrStdout(), []string{"Source", "Available", "Jobs", "Failures", "Last Check", "Last Error"}, [][]string{{
				status.Source,
				strconv.FormatBool(status.Available),
				strconv.Itoa(status.JobsSeen),
				strconv.Itoa(status.ConsecutiveFailures),
				lastCheck,
				status.LastError,
			}}, -1)
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// writeTable renders rows as a table; statusCol is the column colored by status label, -1 for none
func writeTable(w io.Writer, headers []string, rows [][]string, statusCol int) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == statusCol && row >= 0 && row < len(rows) {
				if color, ok := statusColors[rows[row][col]]; ok {
					return cellStyle.Foreground(color)
				}
			}
			return cellStyle
		})

	fmt.Fprintln(w, t)
}
