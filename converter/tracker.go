// converter/tracker.go

package converter

// Snapshot is a point-in-time view of conversion progress
type Snapshot struct {
	Total        int
	Encoded      int
	EncodeFailed int
	CopiedBack   int
	CopyFailed   int
	Last         Result
}

// Done returns the number of tasks that finished encoding, successfully or not
func (s Snapshot) Done() int {
	return s.Encoded + s.EncodeFailed
}

// Fraction returns encode progress in [0, 1]
func (s Snapshot) Fraction() float64 {
	if s.Total == 0 {
		return 1
	}
	return float64(s.Done()) / float64(s.Total)
}

// Tracker owns the live progress counters. Workers send results on the channel
// returned by Updates; a single goroutine applies them and calls the observer,
// so observers never run concurrently with each other.
type Tracker struct {
	updates  chan Result
	done     chan struct{}
	observer func(Snapshot)
	snap     Snapshot
}

// NewTracker starts a tracker for total tasks. observer may be nil.
func NewTracker(total int, observer func(Snapshot)) *Tracker {
	t := &Tracker{
		updates:  make(chan Result, 16),
		done:     make(chan struct{}),
		observer: observer,
		snap:     Snapshot{Total: total},
	}
	go t.loop()
	return t
}

// Updates returns the channel workers report on
func (t *Tracker) Updates() chan<- Result {
	return t.updates
}

// Close stops the tracker after all queued results are applied and returns the final snapshot.
// No sends may happen after Close.
func (t *Tracker) Close() Snapshot {
	close(t.updates)
	<-t.done
	return t.snap
}

func (t *Tracker) loop() {
	defer close(t.done)
	for r := range t.updates {
		switch {
		case r.Stage == StageCopyBack && r.Success:
			t.snap.CopiedBack++
		case r.Stage == StageCopyBack:
			t.snap.CopyFailed++
		case r.Success:
			t.snap.Encoded++
		default:
			t.snap.EncodeFailed++
		}
		t.snap.Last = r
		if t.observer != nil {
			t.observer(t.snap)
		}
	}
}
