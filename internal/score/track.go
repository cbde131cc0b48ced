package score

import "sort"

// Track owns a sequence of events sorted by non-decreasing time, bound to one
// target sink. Appends in time order stay O(1); an out-of-order append
// triggers a full resort keyed by (time, insertion order).
type Track struct {
	events   []Event
	target   EventSink
	nextSeq  uint64
	observer func(Event, float64)
}

func NewTrack(target EventSink) *Track {
	return &Track{target: target}
}

// SetTarget rebinds the track to a sink. The track does not own the sink.
func (t *Track) SetTarget(target EventSink) { t.target = target }

// SetObserver installs a hook invoked for every dispatched event, after
// delivery to the target. Used for diagnostic logging.
func (t *Track) SetObserver(fn func(ev Event, realTime float64)) { t.observer = fn }

// Add appends an event, keeping the sequence sorted by time.
func (t *Track) Add(ev Event) {
	ev.seq = t.nextSeq
	t.nextSeq++
	if n := len(t.events); n > 0 && ev.Time < t.events[n-1].Time {
		t.events = append(t.events, ev)
		sort.Slice(t.events, func(i, j int) bool {
			if t.events[i].Time != t.events[j].Time {
				return t.events[i].Time < t.events[j].Time
			}
			return t.events[i].seq < t.events[j].seq
		})
		return
	}
	t.events = append(t.events, ev)
}

// Clear drops all events.
func (t *Track) Clear() { t.events = t.events[:0] }

// Len returns the number of scheduled events.
func (t *Track) Len() int { return len(t.events) }

// Dispatch delivers every event with time in [prevTime, curTime) to the
// target, in ascending time order, exactly once. realTime is passed through
// to the sink. No-op when the track is empty or unbound.
func (t *Track) Dispatch(prevTime, curTime, realTime float64) {
	if len(t.events) == 0 || t.target == nil {
		return
	}
	i := sort.Search(len(t.events), func(i int) bool {
		return t.events[i].Time >= prevTime
	})
	for ; i < len(t.events) && t.events[i].Time < curTime; i++ {
		t.target.ProcessEvent(t.events[i], realTime)
		if t.observer != nil {
			t.observer(t.events[i], realTime)
		}
	}
}
