package soundlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cecat/soundviz-go/internal/errors"
)

const testHeader = "datetime,camera,group,group_score,class,class_score,group_start,group_end"

// writeLog writes a sound log with the standard header plus the given data
// rows and returns its path.
func writeLog(t *testing.T, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "log.csv")
	content := testHeader + "\n" + strings.Join(rows, "\n")
	if len(rows) > 0 {
		content += "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// dataRow renders a valid row n seconds after a fixed base time.
func dataRow(n int) string {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(n) * time.Second)
	return fmt.Sprintf("%s,porch,birds,0.80,birds.crow,0.60,,", ts.Format("2006-01-02 15:04:05"))
}

func TestNewChunkReaderMissingFile(t *testing.T) {
	_, err := NewChunkReader(filepath.Join(t.TempDir(), "absent.csv"), 10)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
	assert.True(t, errors.IsFatal(err))
}

func TestNewChunkReaderInvalidChunkSize(t *testing.T) {
	path := writeLog(t, dataRow(0))
	for _, size := range []int{0, -5} {
		_, err := NewChunkReader(path, size)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	}
}

func TestNewChunkReaderBadHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"empty file", ""},
		{"wrong column name", "datetime,camera,group,group_score,class,class_score,begin,end"},
		{"wrong column count", "datetime,camera,group"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "log.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.header+"\n"), 0o644))
			_, err := NewChunkReader(path, 10)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
			assert.True(t, errors.IsFatal(err))
		})
	}
}

func TestNewChunkReaderHeaderCaseInsensitive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	header := "DateTime,Camera,Group,Group_Score,Class,Class_Score,Group_Start,Group_End"
	require.NoError(t, os.WriteFile(path, []byte(header+"\n"+dataRow(0)+"\n"), 0o644))

	reader, err := NewChunkReader(path, 10)
	require.NoError(t, err)
	defer reader.Close()

	chunk, err := reader.Next()
	require.NoError(t, err)
	assert.Len(t, chunk.Records, 1)
}

func TestChunkReaderChunking(t *testing.T) {
	rows := make([]string, 5)
	for i := range rows {
		rows[i] = dataRow(i)
	}
	reader, err := NewChunkReader(writeLog(t, rows...), 2)
	require.NoError(t, err)

	var chunks []*Chunk
	for {
		chunk, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}

	require.Len(t, chunks, 3)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[0].FirstRow)
	assert.Equal(t, 2, chunks[0].LastRow)
	assert.Len(t, chunks[0].Records, 2)
	assert.Equal(t, 1, chunks[1].Index)
	assert.Equal(t, 3, chunks[1].FirstRow)
	assert.Len(t, chunks[2].Records, 1, "last chunk may be short")
	assert.Equal(t, 5, chunks[2].LastRow)
	assert.Equal(t, 5, reader.RowsRead())

	// Exhausted readers keep returning io.EOF.
	_, err = reader.Next()
	assert.Equal(t, io.EOF, err)
	_, err = reader.Next()
	assert.Equal(t, io.EOF, err)
}

func TestChunkReaderSkipsMalformedRows(t *testing.T) {
	rows := []string{
		dataRow(0),
		"garbage,,,,,,,",
		dataRow(2),
		dataRow(3),
	}
	reader, err := NewChunkReader(writeLog(t, rows...), 2)
	require.NoError(t, err)

	chunk, err := reader.Next()
	require.NoError(t, err)
	// The malformed row consumes its slot, so the first chunk holds one
	// valid record and one skip.
	assert.Len(t, chunk.Records, 1)
	assert.Equal(t, 1, chunk.Skipped)
	assert.Equal(t, 2, chunk.LastRow)

	chunk, err = reader.Next()
	require.NoError(t, err)
	assert.Len(t, chunk.Records, 2)
	assert.Equal(t, 0, chunk.Skipped)

	_, err = reader.Next()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 4, reader.RowsRead())
	assert.Equal(t, 1, reader.SkippedRows())
}

func TestChunkReaderSkipsCSVSyntaxError(t *testing.T) {
	rows := []string{
		dataRow(0),
		`2025-03-01 10:00:01,po"rch,birds,0.80,birds.crow,0.60,,`,
		dataRow(2),
	}
	reader, err := NewChunkReader(writeLog(t, rows...), 10)
	require.NoError(t, err)

	chunk, err := reader.Next()
	require.NoError(t, err)
	assert.Len(t, chunk.Records, 2)
	assert.Equal(t, 1, chunk.Skipped)
}

func TestChunkReaderHeaderOnly(t *testing.T) {
	reader, err := NewChunkReader(writeLog(t), 10)
	require.NoError(t, err)
	_, err = reader.Next()
	assert.Equal(t, io.EOF, err)
}

func TestChunkReaderRecordsAreCopies(t *testing.T) {
	// csv.Reader reuses its row buffer, so parsed records must not alias it.
	rows := []string{
		"2025-03-01 10:00:00,porch,birds,0.80,birds.crow,0.60,,",
		"2025-03-01 10:00:05,drive,vehicles,0.70,vehicles.car,0.50,,",
	}
	reader, err := NewChunkReader(writeLog(t, rows...), 10)
	require.NoError(t, err)

	chunk, err := reader.Next()
	require.NoError(t, err)
	require.Len(t, chunk.Records, 2)
	assert.Equal(t, "porch", chunk.Records[0].Camera)
	assert.Equal(t, "drive", chunk.Records[1].Camera)
}
