// Package report renders pass results for the terminal and for scripts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/psantana5/cv/internal/transfer"
)

// Format selects the output encoding
type Format string

const (
	FormatText  Format = "text"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// EmptyNotice is printed to stderr when nothing matched
const EmptyNotice = "No interesting command currently running."

// ParseFormat accepts text, table, json or yaml (case-insensitive)
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text, table, json or yaml)", s)
	}
}

// Row is the structured form of one selection
type Row struct {
	PID           int     `json:"pid" yaml:"pid"`
	Command       string  `json:"command" yaml:"command"`
	User          string  `json:"user,omitempty" yaml:"user,omitempty"`
	Active        bool    `json:"active" yaml:"active"`
	File          string  `json:"file,omitempty" yaml:"file,omitempty"`
	FD            int     `json:"fd,omitempty" yaml:"fd,omitempty"`
	Percent       float64 `json:"percent" yaml:"percent"`
	Position      int64   `json:"position" yaml:"position"`
	PositionKnown bool    `json:"position_known" yaml:"position_known"`
	Size          int64   `json:"size" yaml:"size"`
	Truncated     bool    `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

// Rows flattens a report, keeping its order
func Rows(r *transfer.Report) []Row {
	rows := make([]Row, 0, len(r.Processes))
	for _, s := range r.Processes {
		row := Row{
			PID:       s.Process.PID,
			Command:   s.Process.WatchedName,
			User:      s.User,
			Active:    s.Active,
			Truncated: s.Truncated,
		}
		if s.Active {
			row.File = s.Info.Path
			row.FD = s.Info.FD
			row.Percent = s.Percent
			row.Position = s.Info.Position
			row.PositionKnown = s.Info.PositionKnown
			row.Size = s.Info.Size
		}
		rows = append(rows, row)
	}
	return rows
}

// Render writes r to w in the given format.
// Text and table write nothing for an empty report; json and yaml write an
// empty list so consumers always get a document.
func Render(w io.Writer, r *transfer.Report, format Format) error {
	switch format {
	case FormatText, "":
		return renderText(w, r)
	case FormatTable:
		return renderTable(w, r)
	case FormatJSON:
		output, err := json.MarshalIndent(Rows(r), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(output))
		return err
	case FormatYAML:
		output, err := yaml.Marshal(Rows(r))
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		_, err = w.Write(output)
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// Line formats one selection the way the text output prints it
func Line(s transfer.Selection) string {
	if !s.Active {
		return fmt.Sprintf("[%5d] %s inactive or flushing", s.Process.PID, s.Process.WatchedName)
	}
	return fmt.Sprintf("[%5d] %s %s %.1f%% (%s / %s)",
		s.Process.PID,
		s.Process.WatchedName,
		s.Info.Path,
		s.Percent,
		FormatSize(s.Info.Position),
		FormatSize(s.Info.Size))
}

func renderText(w io.Writer, r *transfer.Report) error {
	for _, s := range r.Processes {
		if _, err := fmt.Fprintln(w, Line(s)); err != nil {
			return err
		}
	}
	return nil
}

func renderTable(w io.Writer, r *transfer.Report) error {
	if r.Empty() {
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("PID", "Command", "User", "File", "Progress", "Position", "Size")

	for _, s := range r.Processes {
		user := s.User
		if user == "" {
			user = "-"
		}
		if !s.Active {
			if err := table.Append(strconv.Itoa(s.Process.PID), s.Process.WatchedName, user, "-", "inactive", "-", "-"); err != nil {
				return err
			}
			continue
		}
		if err := table.Append(
			strconv.Itoa(s.Process.PID),
			s.Process.WatchedName,
			user,
			s.Info.Path,
			fmt.Sprintf("%.1f%%", s.Percent),
			FormatSize(s.Info.Position),
			FormatSize(s.Info.Size),
		); err != nil {
			return err
		}
	}

	return table.Render()
}

// NotifyEmpty writes the nothing-running notice
func NotifyEmpty(w io.Writer) {
	fmt.Fprintln(w, EmptyNotice)
}
