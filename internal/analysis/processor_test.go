package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cecat/soundviz-go/internal/soundlog"
)

var testBase = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// testRecord builds a record n seconds after the test base time.
func testRecord(n int, camera, group, class string, classScore float64, start, end bool) soundlog.LogRecord {
	return soundlog.LogRecord{
		Timestamp:  testBase.Add(time.Duration(n) * time.Second),
		Camera:     camera,
		Group:      group,
		GroupScore: 0.9,
		Class:      group + "." + class,
		GroupName:  group,
		ClassName:  class,
		ClassScore: classScore,
		GroupStart: start,
		GroupEnd:   end,
	}
}

func testChunk(index int, records ...soundlog.LogRecord) *soundlog.Chunk {
	return &soundlog.Chunk{Index: index, Records: records}
}

func TestProcessChunkCounts(t *testing.T) {
	chunk := testChunk(0,
		testRecord(0, "porch", "birds", "crow", 0.7, false, false),
		testRecord(10, "porch", "birds", "jay", 0.6, false, false),
		testRecord(20, "drive", "vehicles", "car", 0.5, false, false),
		testRecord(30, "porch", "birds", "crow", 0.8, false, false),
	)
	chunk.Skipped = 2

	pa := processChunk(chunk, 0, MatchOldestFirst)

	assert.Equal(t, 0, pa.ChunkIndex)
	assert.Equal(t, 4, pa.Rows)
	assert.Equal(t, 2, pa.Skipped)
	assert.Equal(t, testBase, pa.StartTime)
	assert.Equal(t, testBase.Add(30*time.Second), pa.EndTime)

	assert.Equal(t, map[string]int{"birds": 3, "vehicles": 1}, pa.GroupCounts)
	assert.Equal(t, map[string]int{"porch": 3, "drive": 1}, pa.CameraCounts)
	assert.Equal(t, map[string]map[string]int{
		"birds":    {"crow": 2, "jay": 1},
		"vehicles": {"car": 1},
	}, pa.GroupClassCounts)

	assert.Empty(t, pa.Ends)
	assert.Empty(t, pa.OpenAfter)
}

func TestProcessChunkNoiseThreshold(t *testing.T) {
	chunk := testChunk(0,
		testRecord(0, "porch", "birds", "crow", 0.8, false, false),
		testRecord(10, "porch", "birds", "jay", 0.2, false, false),
		testRecord(20, "porch", "birds", "crow", 0.5, false, false),
	)

	pa := processChunk(chunk, 0.5, MatchOldestFirst)

	// Low-score rows stay in row and group totals but vanish from the
	// class-level counts.
	assert.Equal(t, 3, pa.Rows)
	assert.Equal(t, map[string]int{"birds": 3}, pa.GroupCounts)
	assert.Equal(t, map[string]map[string]int{"birds": {"crow": 2}}, pa.GroupClassCounts)
}

func TestProcessChunkClosedEvent(t *testing.T) {
	chunk := testChunk(0,
		testRecord(0, "porch", "birds", "crow", 0.7, true, false),
		testRecord(5, "porch", "birds", "crow", 0.7, false, false),
		testRecord(12, "porch", "birds", "crow", 0.7, false, true),
	)

	pa := processChunk(chunk, 0, MatchOldestFirst)

	require.Len(t, pa.Ends, 1)
	end := pa.Ends[0]
	assert.Equal(t, "porch", end.Camera)
	assert.Equal(t, "birds", end.Group)
	assert.Equal(t, "crow", end.Class)
	assert.Equal(t, testBase, end.Start)
	assert.Equal(t, testBase.Add(12*time.Second), end.End)
	assert.False(t, end.StartOpen, "the start was found inside the chunk")
	assert.Empty(t, pa.OpenAfter)

	// The start marker is also an event occurrence for the hourly table.
	hour := testBase.Truncate(time.Hour)
	assert.Equal(t, 1, pa.HourlyEvents[hour]["porch"]["birds"])
}

func TestProcessChunkOpenFragments(t *testing.T) {
	chunk := testChunk(3,
		testRecord(0, "porch", "birds", "crow", 0.7, false, true),
		testRecord(10, "drive", "vehicles", "car", 0.7, true, false),
	)

	pa := processChunk(chunk, 0, MatchOldestFirst)

	require.Len(t, pa.Ends, 1)
	before := pa.Ends[0]
	assert.True(t, before.StartOpen)
	assert.Equal(t, "porch", before.Camera)
	assert.Equal(t, testBase, before.End)

	require.Len(t, pa.OpenAfter, 1)
	after := pa.OpenAfter[0]
	assert.True(t, after.EndOpen)
	assert.Equal(t, "drive", after.Camera)
	assert.Equal(t, testBase.Add(10*time.Second), after.Start)
}

func TestProcessChunkDistinctKeysDoNotMatch(t *testing.T) {
	// An end marker only pairs with a start sharing camera, group and class.
	chunk := testChunk(0,
		testRecord(0, "porch", "birds", "crow", 0.7, true, false),
		testRecord(5, "drive", "birds", "crow", 0.7, false, true),
	)

	pa := processChunk(chunk, 0, MatchOldestFirst)

	require.Len(t, pa.Ends, 1)
	assert.True(t, pa.Ends[0].StartOpen)
	assert.Len(t, pa.OpenAfter, 1)
}

func TestProcessChunkMatchPolicy(t *testing.T) {
	records := []soundlog.LogRecord{
		testRecord(0, "porch", "birds", "crow", 0.7, true, false),
		testRecord(10, "porch", "birds", "crow", 0.7, true, false),
		testRecord(20, "porch", "birds", "crow", 0.7, false, true),
	}

	pa := processChunk(testChunk(0, records...), 0, MatchOldestFirst)
	require.Len(t, pa.Ends, 1)
	assert.Equal(t, testBase, pa.Ends[0].Start, "fifo joins the oldest start")
	require.Len(t, pa.OpenAfter, 1)
	assert.Equal(t, testBase.Add(10*time.Second), pa.OpenAfter[0].Start)

	pa = processChunk(testChunk(0, records...), 0, MatchNewestFirst)
	require.Len(t, pa.Ends, 1)
	assert.Equal(t, testBase.Add(10*time.Second), pa.Ends[0].Start, "lifo joins the newest start")
	require.Len(t, pa.OpenAfter, 1)
	assert.Equal(t, testBase, pa.OpenAfter[0].Start)
}

func TestProcessChunkSpillOrder(t *testing.T) {
	chunk := testChunk(0,
		testRecord(0, "porch", "birds", "crow", 0.7, true, false),
		testRecord(5, "drive", "vehicles", "car", 0.7, true, false),
		testRecord(9, "porch", "birds", "jay", 0.7, true, false),
	)

	pa := processChunk(chunk, 0, MatchOldestFirst)

	require.Len(t, pa.OpenAfter, 3)
	assert.Equal(t, "crow", pa.OpenAfter[0].Class)
	assert.Equal(t, "car", pa.OpenAfter[1].Class)
	assert.Equal(t, "jay", pa.OpenAfter[2].Class)
}
