package errors

import (
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilder(t *testing.T) {
	err := Newf("row %d is broken", 7).
		Component("soundlog").
		Category(CategoryRowParsing).
		Context("extra", "value").
		Build()

	assert.Equal(t, "row 7 is broken", err.Error())
	assert.Equal(t, "soundlog", err.Component)
	assert.Equal(t, CategoryRowParsing, err.Category)
	assert.Equal(t, "value", err.Context["extra"])
	assert.False(t, err.Timestamp.IsZero())
}

func TestErrorBuilderDefaults(t *testing.T) {
	err := Newf("plain").Build()
	assert.Equal(t, ComponentUnknown, err.Component)
	assert.Equal(t, CategoryGeneric, err.Category)
}

func TestRowContext(t *testing.T) {
	err := Newf("bad field").
		RowContext(42, "class_score").
		Build()
	assert.Equal(t, 42, err.Context["row"])
	assert.Equal(t, "class_score", err.Context["field"])
}

func TestFileContext(t *testing.T) {
	err := Newf("cannot open").FileContext("/tmp/log.csv").Build()
	assert.Equal(t, "/tmp/log.csv", err.Context["file"])

	err = Newf("no path").FileContext("").Build()
	assert.NotContains(t, err.Context, "file")
}

func TestWrapKeepsTree(t *testing.T) {
	inner := FileError(fs.ErrNotExist, "/tmp/log.csv")
	outer := Wrap(inner).Component("analysis").Category(CategoryWorker).Build()
	assert.True(t, Is(outer, fs.ErrNotExist))
	assert.True(t, IsCategory(outer, CategoryWorker))
}

func TestUnwrapChain(t *testing.T) {
	sentinel := fmt.Errorf("sentinel")
	err := New(fmt.Errorf("wrapped: %w", sentinel)).
		Category(CategoryWorker).
		Build()
	assert.True(t, Is(err, sentinel))

	var enhanced *EnhancedError
	require.True(t, As(err, &enhanced))
	assert.Equal(t, CategoryWorker, enhanced.Category)
}

func TestIsCategory(t *testing.T) {
	err := FileError(fs.ErrNotExist, "/tmp/missing.csv")
	assert.True(t, IsCategory(err, CategoryFileIO))
	assert.False(t, IsCategory(err, CategoryValidation))
	assert.True(t, Is(err, fs.ErrNotExist))

	wrapped := fmt.Errorf("context: %w", err)
	assert.True(t, IsCategory(wrapped, CategoryFileIO), "category survives wrapping")

	assert.False(t, IsCategory(nil, CategoryFileIO))
	assert.False(t, IsCategory(fmt.Errorf("plain"), CategoryFileIO))
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		fatal    bool
	}{
		{CategoryFileIO, true},
		{CategoryValidation, true},
		{CategoryWorker, true},
		{CategoryConfiguration, true},
		{CategoryGeneric, true},
		{CategoryRowParsing, false},
		{CategoryEventTracking, false},
	}
	for _, tt := range tests {
		err := Newf("probe").Category(tt.category).Build()
		assert.Equal(t, tt.fatal, IsFatal(err), "category %s", tt.category)
	}

	assert.True(t, IsFatal(fmt.Errorf("plain")), "uncategorized errors are fatal")
}

func TestValidationError(t *testing.T) {
	err := ValidationError("chunk size must be positive")
	assert.Equal(t, CategoryValidation, err.Category)
	assert.Equal(t, "chunk size must be positive", err.Error())
}
