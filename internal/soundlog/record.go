// Package soundlog reads sound-detection CSV logs produced by audio
// classification sensors and partitions them into fixed-size chunks for the
// aggregation engine.
package soundlog

import (
	"strconv"
	"strings"
	"time"

	"github.com/cecat/soundviz-go/internal/errors"
)

// Columns is the fixed input schema, in order. A header row naming these
// columns is required.
var Columns = []string{
	"datetime",
	"camera",
	"group",
	"group_score",
	"class",
	"class_score",
	"group_start",
	"group_end",
}

const (
	colDatetime = iota
	colCamera
	colGroup
	colGroupScore
	colClass
	colClassScore
	colGroupStart
	colGroupEnd
	numColumns
)

// Timestamp layouts seen in Yamcam / YSP sound logs.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// LogRecord is a single parsed sound log row. Immutable once parsed.
type LogRecord struct {
	Timestamp  time.Time
	Camera     string
	Group      string  // group column value, the identity start/end markers annotate
	GroupScore float64 // group confidence in [0, 1]
	Class      string  // full class value, "group.classname"
	GroupName  string  // group prefix of Class
	ClassName  string  // class suffix of Class
	ClassScore float64 // class confidence in [0, 1]
	GroupStart bool    // start marker present on this row
	GroupEnd   bool    // end marker present on this row
}

// ParseRecord converts one raw CSV row into a LogRecord. rowNum is the
// 1-based data row number, used in error context. Parse failures are
// recoverable: the caller skips the row and records a warning.
func ParseRecord(row []string, rowNum int) (LogRecord, error) {
	if len(row) != numColumns {
		return LogRecord{}, parseError(rowNum, "row", "expected %d fields, got %d", numColumns, len(row))
	}

	ts, err := parseTimestamp(strings.TrimSpace(row[colDatetime]))
	if err != nil {
		return LogRecord{}, parseError(rowNum, "datetime", "invalid datetime %q", row[colDatetime])
	}

	camera := strings.TrimSpace(row[colCamera])
	if camera == "" {
		return LogRecord{}, parseError(rowNum, "camera", "missing camera")
	}

	group := strings.TrimSpace(row[colGroup])
	if group == "" {
		return LogRecord{}, parseError(rowNum, "group", "missing group")
	}

	groupScore, err := parseScore(row[colGroupScore])
	if err != nil {
		return LogRecord{}, parseError(rowNum, "group_score", "%v", err)
	}

	class := strings.TrimSpace(row[colClass])
	if class == "" {
		return LogRecord{}, parseError(rowNum, "class", "missing class")
	}
	groupName, className := splitClass(class)

	classScore, err := parseScore(row[colClassScore])
	if err != nil {
		return LogRecord{}, parseError(rowNum, "class_score", "%v", err)
	}

	return LogRecord{
		Timestamp:  ts,
		Camera:     camera,
		Group:      group,
		GroupScore: groupScore,
		Class:      class,
		GroupName:  groupName,
		ClassName:  className,
		ClassScore: classScore,
		GroupStart: strings.TrimSpace(row[colGroupStart]) != "",
		GroupEnd:   strings.TrimSpace(row[colGroupEnd]) != "",
	}, nil
}

// splitClass splits a "group.classname" class value. A value without a dot
// keeps the whole string as both group and class name.
func splitClass(class string) (groupName, className string) {
	if i := strings.Index(class, "."); i >= 0 {
		return class[:i], class[i+1:]
	}
	return class, class
}

func parseTimestamp(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		ts, err := time.Parse(layout, value)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func parseScore(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, errors.NewStd("missing score")
	}
	score, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.Newf("invalid score %q", value).Build()
	}
	if score < 0 || score > 1 {
		return 0, errors.Newf("score %g outside [0, 1]", score).Build()
	}
	return score, nil
}

func parseError(rowNum int, field, format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("soundlog").
		Category(errors.CategoryRowParsing).
		RowContext(rowNum, field).
		Build()
}
