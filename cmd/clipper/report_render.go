package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"clipper/internal/ingest"
	"clipper/internal/services"
	"clipper/internal/stage"
)

// writeJSON encodes v as indented JSON without HTML escaping; transcript
// text keeps its literal characters.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// Reports render as tables on a terminal and as key=value lines elsewhere.
type field struct {
	key   string
	value string
}

func kvLine(prefix string, fields []field) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		if f.value == "" || strings.ContainsAny(f.value, " \t\"=") {
			b.WriteString(strconv.Quote(f.value))
		} else {
			b.WriteString(f.value)
		}
	}
	return b.String()
}

func itoa(n int) string { return strconv.Itoa(n) }

func roundDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

func stageFields(r stage.Report) []field {
	return []field{
		{"stage", r.Stage},
		{"run_id", r.RunID},
		{"total", itoa(r.Total)},
		{"committed", itoa(r.Committed)},
		{"skipped", itoa(r.Skipped)},
		{"superseded", itoa(r.Superseded)},
		{"discarded", itoa(r.Discarded)},
		{"failed", itoa(r.Failed)},
		{"pending", itoa(r.Pending())},
		{"duration", roundDuration(r.Duration)},
	}
}

func ingestFields(r ingest.Report) []field {
	return []field{
		{"stage", "ingest"},
		{"run_id", r.RunID},
		{"requested", itoa(r.Requested)},
		{"skipped", itoa(r.Skipped)},
		{"ingested", itoa(r.Ingested)},
		{"deduplicated", itoa(r.Deduplicated)},
		{"already_bound", itoa(r.AlreadyBound)},
		{"failed", itoa(r.Failed)},
		{"pending", itoa(r.Pending())},
		{"duration", roundDuration(r.Duration)},
	}
}

func renderFields(w io.Writer, title string, fields []field) {
	if !shouldColorize(w) {
		fmt.Fprintln(w, kvLine("report", fields))
		return
	}
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, []string{f.key, f.value})
	}
	fmt.Fprintln(w, renderTable(title, []string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
}

type failureRow struct {
	key   string
	phase string
	err   error
}

func renderFailures(w io.Writer, stageName string, failures []failureRow) {
	if len(failures) == 0 {
		return
	}
	if !shouldColorize(w) {
		for _, f := range failures {
			fmt.Fprintln(w, kvLine("failure", []field{
				{"stage", stageName},
				{"key", f.key},
				{"phase", f.phase},
				{"kind", services.Kind(f.err)},
				{"error", f.err.Error()},
			}))
		}
		return
	}
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{f.key, f.phase, services.Kind(f.err), f.err.Error()})
	}
	fmt.Fprintln(w, renderTable("Failures", []string{"Key", "Phase", "Kind", "Error"}, rows, nil))
}

func printStageReport(w io.Writer, r stage.Report) {
	renderFields(w, r.Stage, stageFields(r))
	rows := make([]failureRow, 0, len(r.Failures))
	for _, f := range r.Failures {
		rows = append(rows, failureRow{key: f.Key, phase: f.Phase, err: f.Err})
	}
	renderFailures(w, r.Stage, rows)
}

func printIngestReport(w io.Writer, r ingest.Report) {
	renderFields(w, "ingest", ingestFields(r))
	rows := make([]failureRow, 0, len(r.Failures))
	for _, f := range r.Failures {
		rows = append(rows, failureRow{key: f.Locator, phase: "fetch", err: f.Err})
	}
	renderFailures(w, "ingest", rows)
}
