package soundlog

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/cecat/soundviz-go/internal/errors"
)

// Chunk is an ordered, contiguous slice of parsed log records. Chunk slots
// count raw data rows, so a malformed row consumes its position: chunk
// boundaries depend only on file geometry, never on error density.
type Chunk struct {
	Index    int // 0-based, file order
	FirstRow int // 1-based data row number of the first slot
	LastRow  int // 1-based data row number of the last slot
	Records  []LogRecord
	Skipped  int // malformed rows skipped within this chunk
}

// ChunkReader partitions a sound log into fixed-size chunks in a single
// forward pass. It is not restartable once consumed.
type ChunkReader struct {
	path      string
	chunkSize int
	file      *os.File
	csv       *csv.Reader
	nextIndex int
	rowsRead  int
	skipped   int
	done      bool
}

// NewChunkReader opens the log at path and validates its header. A missing
// or unreadable file is fatal, as is a header that does not match the
// expected schema: aggregating a file with shifted columns would produce a
// misleading report.
func NewChunkReader(path string, chunkSize int) (*ChunkReader, error) {
	if chunkSize <= 0 {
		return nil, errors.Newf("chunk size must be positive, got %d", chunkSize).
			Component("soundlog").
			Category(errors.CategoryValidation).
			Build()
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("soundlog").
			Category(errors.CategoryFileIO).
			FileContext(path).
			Build()
	}

	r := csv.NewReader(bufio.NewReaderSize(file, 1<<20))
	r.FieldsPerRecord = -1 // field count is validated per row by the parser
	r.ReuseRecord = true

	cr := &ChunkReader{
		path:      path,
		chunkSize: chunkSize,
		file:      file,
		csv:       r,
	}

	if err := cr.readHeader(); err != nil {
		_ = file.Close()
		return nil, err
	}

	return cr, nil
}

func (cr *ChunkReader) readHeader() error {
	header, err := cr.csv.Read()
	if err != nil {
		return errors.Newf("missing header row: %v", err).
			Component("soundlog").
			Category(errors.CategoryValidation).
			FileContext(cr.path).
			Build()
	}
	if len(header) != len(Columns) {
		return errors.Newf("header has %d columns, expected %d", len(header), len(Columns)).
			Component("soundlog").
			Category(errors.CategoryValidation).
			FileContext(cr.path).
			Build()
	}
	for i, want := range Columns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return errors.Newf("header column %d is %q, expected %q", i+1, header[i], want).
				Component("soundlog").
				Category(errors.CategoryValidation).
				FileContext(cr.path).
				Build()
		}
	}
	return nil
}

// Next returns the next chunk, or io.EOF once the log is exhausted. The
// last chunk may hold fewer rows than the chunk size. Malformed rows are
// skipped with a warning and counted on the chunk.
func (cr *ChunkReader) Next() (*Chunk, error) {
	if cr.done {
		return nil, io.EOF
	}

	chunk := &Chunk{
		Index:    cr.nextIndex,
		FirstRow: cr.rowsRead + 1,
		Records:  make([]LogRecord, 0, cr.chunkSize),
	}

	slots := 0
	for slots < cr.chunkSize {
		row, err := cr.csv.Read()
		if err == io.EOF {
			cr.done = true
			_ = cr.file.Close()
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				// Not a row-level syntax problem: the underlying file is
				// failing and retrying would spin on the same error.
				cr.done = true
				_ = cr.file.Close()
				return nil, errors.New(err).
					Component("soundlog").
					Category(errors.CategoryFileIO).
					FileContext(cr.path).
					Build()
			}
			cr.rowsRead++
			slots++
			// CSV syntax errors are row-level conditions: skip the row,
			// the reader resynchronizes on the next line.
			chunk.Skipped++
			logger.Warn("skipping unreadable row",
				"file", cr.path, "row", cr.rowsRead, "error", err)
			continue
		}
		cr.rowsRead++
		slots++
		rec, err := ParseRecord(row, cr.rowsRead)
		if err != nil {
			chunk.Skipped++
			logger.Warn("skipping malformed row",
				"file", cr.path, "row", cr.rowsRead, "error", err)
			continue
		}
		chunk.Records = append(chunk.Records, rec)
	}

	if slots == 0 {
		return nil, io.EOF
	}

	chunk.LastRow = cr.rowsRead
	cr.nextIndex++
	cr.skipped += chunk.Skipped
	return chunk, nil
}

// RowsRead returns the number of data rows consumed so far.
func (cr *ChunkReader) RowsRead() int { return cr.rowsRead }

// SkippedRows returns the number of malformed rows skipped so far.
func (cr *ChunkReader) SkippedRows() int { return cr.skipped }

// Close releases the underlying file. Safe to call after exhaustion.
func (cr *ChunkReader) Close() error {
	if cr.done {
		return nil
	}
	cr.done = true
	return cr.file.Close()
}
