package analysis

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cecat/soundviz-go/internal/errors"
)

// EventStatus is the terminal state of a resolved event span.
type EventStatus string

const (
	// StatusClosed marks a span whose end marker was observed.
	StatusClosed EventStatus = "CLOSED"
	// StatusTruncated marks a span still open when the log ended.
	StatusTruncated EventStatus = "TRUNCATED"
)

// EventSpan is a resolved, temporally bounded detection.
type EventSpan struct {
	Camera string
	Group  string
	Class  string
	Start  time.Time
	End    time.Time
	Status EventStatus
}

// Duration returns the span length.
func (s EventSpan) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// MatchPolicy selects which pending start a boundary-crossing end marker is
// joined with when multiple events with the same (camera, group, class) key
// are open simultaneously. The documented default is oldest-first.
type MatchPolicy string

const (
	MatchOldestFirst MatchPolicy = "fifo"
	MatchNewestFirst MatchPolicy = "lifo"
)

// GlobalAggregate is the merged result of a whole run. It is mutated only
// by the merger, in chunk-index order, and immutable once the run completes.
type GlobalAggregate struct {
	RunID       string
	InputPath   string
	GeneratedAt time.Time

	StartTime time.Time // earliest record timestamp in the log
	EndTime   time.Time // latest record timestamp in the log

	TotalRows     int // valid rows counted
	SkippedRows   int // malformed rows skipped
	UnmatchedEnds int // end markers with no pending start, excluded from spans

	GroupCounts      map[string]int
	GroupClassCounts map[string]map[string]int
	CameraCounts     map[string]int
	HourlyEvents     map[time.Time]map[string]map[string]int

	EventSpans []EventSpan
}

// Merger folds ordered partial aggregates into a single global aggregate,
// stitching event fragments that straddle chunk boundaries. It is
// single-threaded and order-constrained: event stitching is not commutative
// across arbitrary merge order.
type Merger struct {
	policy    MatchPolicy
	nextIndex int

	agg     *GlobalAggregate
	pending map[eventKey][]*EventFragment // open-after fragments awaiting their end
}

// NewMerger returns a merger using the given matching policy. An empty
// policy defaults to oldest-first.
func NewMerger(policy MatchPolicy) *Merger {
	if policy == "" {
		policy = MatchOldestFirst
	}
	return &Merger{
		policy: policy,
		agg: &GlobalAggregate{
			GroupCounts:      make(map[string]int),
			GroupClassCounts: make(map[string]map[string]int),
			CameraCounts:     make(map[string]int),
			HourlyEvents:     make(map[time.Time]map[string]map[string]int),
		},
		pending: make(map[eventKey][]*EventFragment),
	}
}

// Fold consumes one partial aggregate. Partials must arrive in strictly
// ascending chunk-index order; anything else is a coordinator bug.
func (m *Merger) Fold(pa *PartialAggregate) error {
	if pa.ChunkIndex != m.nextIndex {
		return errors.Newf("partial aggregate for chunk %d folded out of order, expected chunk %d",
			pa.ChunkIndex, m.nextIndex).
			Component("analysis").
			Category(errors.CategoryValidation).
			Build()
	}
	m.nextIndex++

	agg := m.agg
	agg.TotalRows += pa.Rows
	agg.SkippedRows += pa.Skipped

	if !pa.StartTime.IsZero() && (agg.StartTime.IsZero() || pa.StartTime.Before(agg.StartTime)) {
		agg.StartTime = pa.StartTime
	}
	if pa.EndTime.After(agg.EndTime) {
		agg.EndTime = pa.EndTime
	}

	for group, count := range pa.GroupCounts {
		agg.GroupCounts[group] += count
	}
	for camera, count := range pa.CameraCounts {
		agg.CameraCounts[camera] += count
	}
	for group, classes := range pa.GroupClassCounts {
		dst := agg.GroupClassCounts[group]
		if dst == nil {
			dst = make(map[string]int)
			agg.GroupClassCounts[group] = dst
		}
		for class, count := range classes {
			dst[class] += count
		}
	}
	for hour, cameras := range pa.HourlyEvents {
		dstCameras := agg.HourlyEvents[hour]
		if dstCameras == nil {
			dstCameras = make(map[string]map[string]int)
			agg.HourlyEvents[hour] = dstCameras
		}
		for camera, groups := range cameras {
			dstGroups := dstCameras[camera]
			if dstGroups == nil {
				dstGroups = make(map[string]int)
				dstCameras[camera] = dstGroups
			}
			for group, count := range groups {
				dstGroups[group] += count
			}
		}
	}

	// Settle the chunk's end markers in row order against the pending
	// table. Under oldest-first matching a pending start from an earlier
	// chunk always outranks the provisional in-chunk pairing: the end
	// closes the pending start and the in-chunk start goes back on the
	// queue. Pending entries are older than any start matched inside this
	// chunk, so the append keeps the queue in start order. Newest-first
	// matching keeps in-chunk pairings: the in-chunk start is always the
	// newest candidate for its end.
	for i := range pa.Ends {
		frag := &pa.Ends[i]
		key := frag.key()
		switch {
		case frag.StartOpen:
			if start := takeFragment(m.pending, key, m.policy); start != nil {
				agg.EventSpans = append(agg.EventSpans, EventSpan{
					Camera: frag.Camera,
					Group:  frag.Group,
					Class:  frag.Class,
					Start:  start.Start,
					End:    frag.End,
					Status: StatusClosed,
				})
			} else {
				agg.UnmatchedEnds++
				logger.Warn("unmatched event end marker",
					"camera", frag.Camera, "group", frag.Group, "class", frag.Class,
					"end", frag.End)
			}
		case m.policy == MatchOldestFirst && len(m.pending[key]) > 0:
			start := takeFragment(m.pending, key, m.policy)
			agg.EventSpans = append(agg.EventSpans, EventSpan{
				Camera: frag.Camera,
				Group:  frag.Group,
				Class:  frag.Class,
				Start:  start.Start,
				End:    frag.End,
				Status: StatusClosed,
			})
			m.pending[key] = append(m.pending[key], &EventFragment{
				Camera:  frag.Camera,
				Group:   frag.Group,
				Class:   frag.Class,
				Start:   frag.Start,
				EndOpen: true,
			})
		default:
			agg.EventSpans = append(agg.EventSpans, EventSpan{
				Camera: frag.Camera,
				Group:  frag.Group,
				Class:  frag.Class,
				Start:  frag.Start,
				End:    frag.End,
				Status: StatusClosed,
			})
		}
	}

	for i := range pa.OpenAfter {
		frag := pa.OpenAfter[i]
		m.pending[frag.key()] = append(m.pending[frag.key()], &frag)
	}

	return nil
}

// Finalize flushes fragments still pending as TRUNCATED spans and returns
// the completed global aggregate. Truncated spans use the last record
// timestamp of the run as their end so their durations stay meaningful.
func (m *Merger) Finalize() *GlobalAggregate {
	for _, frags := range m.pending {
		for _, frag := range frags {
			m.agg.EventSpans = append(m.agg.EventSpans, EventSpan{
				Camera: frag.Camera,
				Group:  frag.Group,
				Class:  frag.Class,
				Start:  frag.Start,
				End:    m.agg.EndTime,
				Status: StatusTruncated,
			})
		}
	}
	m.pending = make(map[eventKey][]*EventFragment)

	// Canonical span order. Append order depends on where chunk boundaries
	// fall, so the output is sorted to keep the aggregate identical for any
	// chunk size or worker count.
	sort.Slice(m.agg.EventSpans, func(i, j int) bool {
		a, b := m.agg.EventSpans[i], m.agg.EventSpans[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if !a.End.Equal(b.End) {
			return a.End.Before(b.End)
		}
		if a.Camera != b.Camera {
			return a.Camera < b.Camera
		}
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		return a.Status < b.Status
	})

	m.agg.RunID = uuid.New().String()
	m.agg.GeneratedAt = time.Now()
	return m.agg
}
