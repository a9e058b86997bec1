package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/psantana5/cv/internal/discover"
	"github.com/psantana5/cv/internal/fdscan"
	"github.com/psantana5/cv/internal/transfer"
)

func sampleReport() *transfer.Report {
	return &transfer.Report{
		Processes: []transfer.Selection{
			{
				Process: discover.ProcessRecord{PID: 100, WatchedName: "dd"},
				User:    "alice",
				Active:  true,
				Info: fdscan.DescriptorInfo{
					FD:            4,
					Path:          "/data/out.img",
					Size:          1000000000,
					Position:      250000000,
					PositionKnown: true,
				},
				Percent: 25.0,
			},
			{
				Process: discover.ProcessRecord{PID: 200, WatchedName: "cp"},
			},
		},
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0.0 B"},
		{1023, "1023.0 B"},
		{1536, "1.5 KiB"},
		{4096, "4.0 KiB"},
		{250000000, "238.4 MiB"},
		{1000000000, "953.7 MiB"},
		{1288490189, "1.2 GiB"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FormatSize(tt.bytes); got != tt.expected {
				t.Errorf("FormatSize(%d) = %q, expected %q", tt.bytes, got, tt.expected)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"TABLE", FormatTable, false},
		{" json ", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleReport(), FormatText); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	expected := "[  100] dd /data/out.img 25.0% (238.4 MiB / 953.7 MiB)\n" +
		"[  200] cp inactive or flushing\n"
	if buf.String() != expected {
		t.Errorf("unexpected output:\n%q\nexpected:\n%q", buf.String(), expected)
	}
}

func TestLineOverHundredPercent(t *testing.T) {
	s := transfer.Selection{
		Process: discover.ProcessRecord{PID: 7, WatchedName: "cat"},
		Active:  true,
		Info:    fdscan.DescriptorInfo{Path: "/tmp/shrunk", Size: 100, Position: 150},
		Percent: 150,
	}
	if got := Line(s); !strings.Contains(got, "150.0%") {
		t.Errorf("Line = %q, expected 150.0%%", got)
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleReport(), FormatTable); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"100", "dd", "alice", "/data/out.img", "25.0%", "953.7 MiB", "inactive"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleReport(), FormatJSON); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	var rows []Row
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Percent != 25.0 || rows[0].File != "/data/out.img" || rows[0].User != "alice" {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Active || rows[1].File != "" {
		t.Errorf("inactive row should carry no file: %+v", rows[1])
	}
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, sampleReport(), FormatYAML); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	var rows []Row
	if err := yaml.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if len(rows) != 2 || rows[0].PID != 100 || rows[0].Size != 1000000000 {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestRenderEmpty(t *testing.T) {
	empty := &transfer.Report{}
	tests := []struct {
		format   Format
		expected string
	}{
		{FormatText, ""},
		{FormatTable, ""},
		{FormatJSON, "[]\n"},
		{FormatYAML, "[]\n"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Render(&buf, empty, tt.format); err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if buf.String() != tt.expected {
				t.Errorf("got %q, expected %q", buf.String(), tt.expected)
			}
		})
	}
}

func TestNotifyEmpty(t *testing.T) {
	var buf bytes.Buffer
	NotifyEmpty(&buf)
	if buf.String() != "No interesting command currently running.\n" {
		t.Errorf("unexpected notice %q", buf.String())
	}
}
