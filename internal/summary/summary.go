// Package summary serializes a GlobalAggregate into the table and CSV
// artifacts consumed by the external report-rendering tooling.
package summary

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cecat/soundviz-go/internal/analysis"
	"github.com/cecat/soundviz-go/internal/errors"
)

const timeFormat = "2006-01-02 15:04:05"

// WriteSummaryTable writes a human-readable summary of the aggregate. The
// output goes to stdout when filename is empty, otherwise to the named file
// (a .txt extension is added when missing).
func WriteSummaryTable(agg *analysis.GlobalAggregate, filename string) error {
	var w io.Writer
	if filename == "" {
		w = os.Stdout
	} else {
		if !strings.HasSuffix(filename, ".txt") {
			filename += ".txt"
		}
		file, err := os.Create(filename)
		if err != nil {
			return errors.FileError(err, filename)
		}
		defer file.Close()
		w = file
	}

	fmt.Fprintf(w, "Sound classification summary %s\n", agg.RunID)
	fmt.Fprintf(w, "Input: %s\n", agg.InputPath)
	fmt.Fprintf(w, "Period: %s to %s\n", agg.StartTime.Format(timeFormat), agg.EndTime.Format(timeFormat))
	fmt.Fprintf(w, "Rows: %d counted, %d skipped, %d unmatched end markers\n\n",
		agg.TotalRows, agg.SkippedRows, agg.UnmatchedEnds)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "Group\tRows")
	for _, group := range sortedKeys(agg.GroupCounts) {
		fmt.Fprintf(tw, "%s\t%d\n", group, agg.GroupCounts[group])
	}
	fmt.Fprintln(tw, "\t")

	fmt.Fprintln(tw, "Camera\tRows")
	for _, camera := range sortedKeys(agg.CameraCounts) {
		fmt.Fprintf(tw, "%s\t%d\n", camera, agg.CameraCounts[camera])
	}
	fmt.Fprintln(tw, "\t")

	fmt.Fprintln(tw, "Camera\tGroup\tClass\tStart\tEnd\tDuration\tStatus")
	for _, span := range agg.EventSpans {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			span.Camera, span.Group, span.Class,
			span.Start.Format(timeFormat), span.End.Format(timeFormat),
			span.Duration().Round(time.Second), span.Status)
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write summary table: %w", err)
	}
	if filename != "" {
		fmt.Println("Output written to", filename)
	}
	return nil
}

// WriteSummaryCSV writes the aggregate as CSV artifacts under dir:
// groups.csv, group_classes.csv, cameras.csv, hourly_events.csv and
// event_spans.csv. The directory is created when missing.
func WriteSummaryCSV(agg *analysis.GlobalAggregate, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.FileError(err, dir)
	}

	if err := writeCSV(filepath.Join(dir, "groups.csv"), []string{"group", "rows"}, func(out *csv.Writer) error {
		for _, group := range sortedKeys(agg.GroupCounts) {
			if err := out.Write([]string{group, strconv.Itoa(agg.GroupCounts[group])}); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := writeCSV(filepath.Join(dir, "group_classes.csv"), []string{"group", "class", "rows"}, func(out *csv.Writer) error {
		for _, group := range sortedKeys(agg.GroupClassCounts) {
			classes := agg.GroupClassCounts[group]
			for _, class := range sortedKeys(classes) {
				if err := out.Write([]string{group, class, strconv.Itoa(classes[class])}); err != nil {
					return err
				}
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := writeCSV(filepath.Join(dir, "cameras.csv"), []string{"camera", "rows"}, func(out *csv.Writer) error {
		for _, camera := range sortedKeys(agg.CameraCounts) {
			if err := out.Write([]string{camera, strconv.Itoa(agg.CameraCounts[camera])}); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := writeCSV(filepath.Join(dir, "hourly_events.csv"), []string{"hour", "camera", "group", "events"}, func(out *csv.Writer) error {
		hours := make([]time.Time, 0, len(agg.HourlyEvents))
		for hour := range agg.HourlyEvents {
			hours = append(hours, hour)
		}
		sort.Slice(hours, func(i, j int) bool { return hours[i].Before(hours[j]) })
		for _, hour := range hours {
			cameras := agg.HourlyEvents[hour]
			for _, camera := range sortedKeys(cameras) {
				groups := cameras[camera]
				for _, group := range sortedKeys(groups) {
					row := []string{hour.Format(timeFormat), camera, group, strconv.Itoa(groups[group])}
					if err := out.Write(row); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}); err != nil {
		return err
	}

	return writeCSV(filepath.Join(dir, "event_spans.csv"),
		[]string{"camera", "group", "class", "start", "end", "duration_seconds", "status"},
		func(out *csv.Writer) error {
			for _, span := range agg.EventSpans {
				row := []string{
					span.Camera, span.Group, span.Class,
					span.Start.Format(timeFormat), span.End.Format(timeFormat),
					strconv.FormatFloat(span.Duration().Seconds(), 'f', 0, 64),
					string(span.Status),
				}
				if err := out.Write(row); err != nil {
					return err
				}
			}
			return nil
		})
}

func writeCSV(path string, header []string, body func(*csv.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.FileError(err, path)
	}
	defer file.Close()

	out := csv.NewWriter(file)
	if err := out.Write(header); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := body(out); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	out.Flush()
	return out.Error()
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
