package analysis

import (
	"time"

	"github.com/cecat/soundviz-go/internal/soundlog"
)

// eventKey identifies the table an event fragment belongs to.
type eventKey struct {
	Camera string
	Group  string
	Class  string
}

// EventFragment is a possibly-incomplete event observed within one chunk.
// StartOpen marks a fragment whose start lies before the chunk (an end
// marker with no preceding start); EndOpen marks one whose end lies after
// the chunk (a start marker never closed within it).
type EventFragment struct {
	Camera    string
	Group     string
	Class     string
	Start     time.Time
	End       time.Time
	StartOpen bool
	EndOpen   bool
}

func (f *EventFragment) key() eventKey {
	return eventKey{Camera: f.Camera, Group: f.Group, Class: f.Class}
}

// PartialAggregate is the per-chunk summary produced by a single worker.
// It is owned exclusively by the worker that produced it until handed to
// the merger.
type PartialAggregate struct {
	ChunkIndex int
	Rows       int // valid rows counted in this chunk
	Skipped    int // malformed rows skipped in this chunk

	StartTime time.Time // earliest record timestamp in the chunk
	EndTime   time.Time // latest record timestamp in the chunk

	GroupCounts      map[string]int                       // rows per group
	GroupClassCounts map[string]map[string]int            // class rows within group, noise-thresholded
	CameraCounts     map[string]int                       // rows per camera
	HourlyEvents     map[time.Time]map[string]map[string]int // hour -> camera -> group event counts

	// Ends holds the chunk's end markers in row order. An entry with a
	// Start carries its provisional in-chunk pairing; StartOpen entries
	// found no in-chunk start. The merger settles both against starts
	// pending from earlier chunks, so pairing never depends on where a
	// chunk boundary falls.
	Ends      []EventFragment
	OpenAfter []EventFragment // start markers awaiting an end from a later chunk, row order
}

func newPartialAggregate(chunkIndex int) *PartialAggregate {
	return &PartialAggregate{
		ChunkIndex:       chunkIndex,
		GroupCounts:      make(map[string]int),
		GroupClassCounts: make(map[string]map[string]int),
		CameraCounts:     make(map[string]int),
		HourlyEvents:     make(map[time.Time]map[string]map[string]int),
	}
}

// processChunk maps one chunk to its partial aggregate. It is a pure
// function: no shared state, no dependency on other chunks. In-chunk
// start/end pairing is provisional: the merger re-pairs every end marker
// against starts still pending from earlier chunks, in row order.
func processChunk(chunk *soundlog.Chunk, noiseThreshold float64, policy MatchPolicy) *PartialAggregate {
	pa := newPartialAggregate(chunk.Index)
	pa.Skipped = chunk.Skipped

	// Start markers not yet closed within this chunk, in row order per key.
	open := make(map[eventKey][]*EventFragment)
	var openOrder []*EventFragment

	for i := range chunk.Records {
		rec := &chunk.Records[i]
		pa.Rows++

		if pa.StartTime.IsZero() || rec.Timestamp.Before(pa.StartTime) {
			pa.StartTime = rec.Timestamp
		}
		if rec.Timestamp.After(pa.EndTime) {
			pa.EndTime = rec.Timestamp
		}

		pa.GroupCounts[rec.GroupName]++
		pa.CameraCounts[rec.Camera]++

		// Scores below the noise threshold stay in row totals but are
		// excluded from class-level statistics.
		if rec.ClassScore >= noiseThreshold {
			classes := pa.GroupClassCounts[rec.GroupName]
			if classes == nil {
				classes = make(map[string]int)
				pa.GroupClassCounts[rec.GroupName] = classes
			}
			classes[rec.ClassName]++
		}

		if rec.GroupStart {
			hour := rec.Timestamp.Truncate(time.Hour)
			cameras := pa.HourlyEvents[hour]
			if cameras == nil {
				cameras = make(map[string]map[string]int)
				pa.HourlyEvents[hour] = cameras
			}
			groups := cameras[rec.Camera]
			if groups == nil {
				groups = make(map[string]int)
				cameras[rec.Camera] = groups
			}
			groups[rec.Group]++

			frag := &EventFragment{
				Camera: rec.Camera,
				Group:  rec.Group,
				Class:  rec.ClassName,
				Start:  rec.Timestamp,
			}
			open[frag.key()] = append(open[frag.key()], frag)
			openOrder = append(openOrder, frag)
		}

		if rec.GroupEnd {
			key := eventKey{Camera: rec.Camera, Group: rec.Group, Class: rec.ClassName}
			if frag := takeFragment(open, key, policy); frag != nil {
				pa.Ends = append(pa.Ends, EventFragment{
					Camera: frag.Camera,
					Group:  frag.Group,
					Class:  frag.Class,
					Start:  frag.Start,
					End:    rec.Timestamp,
				})
			} else {
				pa.Ends = append(pa.Ends, EventFragment{
					Camera:    rec.Camera,
					Group:     rec.Group,
					Class:     rec.ClassName,
					End:       rec.Timestamp,
					StartOpen: true,
				})
			}
		}
	}

	// Whatever is still open spills over the chunk boundary, in the order
	// the start markers appeared.
	for _, frag := range openOrder {
		if stillOpen(open, frag) {
			spill := *frag
			spill.EndOpen = true
			pa.OpenAfter = append(pa.OpenAfter, spill)
		}
	}

	return pa
}

// takeFragment removes and returns one pending fragment for key according
// to the matching policy, or nil when none is pending.
func takeFragment(open map[eventKey][]*EventFragment, key eventKey, policy MatchPolicy) *EventFragment {
	frags := open[key]
	if len(frags) == 0 {
		return nil
	}
	var frag *EventFragment
	if policy == MatchNewestFirst {
		frag = frags[len(frags)-1]
		open[key] = frags[:len(frags)-1]
	} else {
		frag = frags[0]
		open[key] = frags[1:]
	}
	if len(open[key]) == 0 {
		delete(open, key)
	}
	return frag
}

func stillOpen(open map[eventKey][]*EventFragment, frag *EventFragment) bool {
	for _, f := range open[frag.key()] {
		if f == frag {
			return true
		}
	}
	return false
}
