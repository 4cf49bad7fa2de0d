// Package logcombine merges rotated sound log files of identical schema
// into one chronologically ordered file for the aggregation engine.
package logcombine

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cecat/soundviz-go/internal/errors"
)

// CombinedName is the output filename. Inputs whose name contains the
// combined marker are skipped so a previous run's output is never folded
// into a new one.
const (
	CombinedName   = "combined_log.csv"
	combinedMarker = "combined"
)

// Combine concatenates the rotated .csv logs in dir into dir/combined_log.csv.
// Rotated logs carry numeric suffixes (log.csv.3 is the oldest), so sorting
// filenames in reverse order and appending in that order yields chronological
// output. One header line is kept; repeated header lines from subsequent
// inputs are dropped. Returns the output path.
func Combine(dir string) (string, error) {
	inputs, err := collectInputs(dir)
	if err != nil {
		return "", err
	}
	if len(inputs) == 0 {
		return "", errors.Newf("no log files found in %s", dir).
			Component("logcombine").
			Category(errors.CategoryValidation).
			Build()
	}

	outPath := filepath.Join(dir, CombinedName)
	out, err := os.Create(outPath)
	if err != nil {
		return "", errors.FileError(err, outPath)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	var header string
	for _, name := range inputs {
		path := filepath.Join(dir, name)
		h, err := appendFile(w, path, header)
		if err != nil {
			return "", err
		}
		if header == "" {
			header = h
		}
		logger.Info("combined log file", "file", name)
	}

	if err := w.Flush(); err != nil {
		return "", errors.FileError(err, outPath)
	}
	return outPath, nil
}

// collectInputs returns the candidate log filenames in reverse filename
// order, skipping previously combined outputs.
func collectInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.FileError(err, dir)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !isLogName(name) {
			continue
		}
		if strings.Contains(name, combinedMarker) {
			continue
		}
		names = append(names, name)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// isLogName accepts plain .csv files and rotated variants with a numeric
// suffix (log.csv.3). Anything else, including names merely containing
// ".csv" (log.csvx), is not a log.
func isLogName(name string) bool {
	if strings.HasSuffix(name, ".csv") {
		return true
	}
	base, suffix, ok := strings.Cut(name, ".csv.")
	if !ok || base == "" || suffix == "" {
		return false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// appendFile copies one input into the combined output, ending it with a
// newline so inputs never glue together. knownHeader is the header line
// already written; when non-empty, a matching first line of this input is
// dropped. Returns the first line of the file.
func appendFile(w *bufio.Writer, path, knownHeader string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", errors.FileError(err, path)
	}
	defer file.Close()

	r := bufio.NewReader(file)
	firstLine, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", errors.FileError(err, path)
	}

	trimmed := strings.TrimRight(firstLine, "\r\n")
	lastByte := byte('\n')
	if trimmed != "" && (knownHeader == "" || trimmed != knownHeader) {
		if _, werr := w.WriteString(firstLine); werr != nil {
			return "", errors.FileError(werr, path)
		}
		lastByte = firstLine[len(firstLine)-1]
	}

	if err != io.EOF {
		for {
			buf, rerr := r.ReadBytes('\n')
			if len(buf) > 0 {
				if _, werr := w.Write(buf); werr != nil {
					return "", errors.FileError(werr, path)
				}
				lastByte = buf[len(buf)-1]
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				return "", errors.FileError(rerr, path)
			}
		}
	}

	if lastByte != '\n' {
		if werr := w.WriteByte('\n'); werr != nil {
			return "", errors.FileError(werr, path)
		}
	}
	return trimmed, nil
}
