// Package merge implements C10: the k-way merge/print loop, draining one
// bounded channel per live worker and emitting messages in global
// chronological order, per spec.md §4.10.
package merge

import (
	"reflect"
	"time"

	"github.com/dalibo/logsift/internal/cancel"
	"github.com/dalibo/logsift/internal/worker"
)

// Printer renders one emitted message, already chosen as the current
// global minimum, for the file identified by pathID.
type Printer func(pathID int, msg worker.Message)

// SummaryHandler is invoked once per file with its terminal summary.
type SummaryHandler func(pathID int, s worker.Summary)

type workerState struct {
	ch   <-chan worker.ChanDatum
	stop chan struct{}

	fileInfoReceived bool
	initErr          error

	hasPending    bool
	pending       worker.Message
	pendingIsLast bool
}

// Merger drains registered workers' channels in global datetime order.
type Merger struct {
	flag  *cancel.Flag
	order []int // PathId, CLI order; also the tie-break order
	state map[int]*workerState

	print   Printer
	onInfo  func(pathID int, mtime time.Time, err error)
	onSum   SummaryHandler
}

// New returns an empty Merger polling flag for cancellation.
func New(flag *cancel.Flag, print Printer, onInfo func(pathID int, mtime time.Time, err error), onSum SummaryHandler) *Merger {
	return &Merger{flag: flag, state: make(map[int]*workerState), print: print, onInfo: onInfo, onSum: onSum}
}

// Register adds a live worker to the merge set. ch is the worker's
// bounded output channel; stop is closed by the Merger to request the
// worker exit early (on cancellation or unexpected channel closure).
// Workers must be registered in CLI argument order — that order is the
// tie-break for equal datetimes.
func (m *Merger) Register(pathID int, ch <-chan worker.ChanDatum, stop chan struct{}) {
	m.order = append(m.order, pathID)
	m.state[pathID] = &workerState{ch: ch, stop: stop}
}

func (m *Merger) removeFromOrder(pathID int) {
	for i, id := range m.order {
		if id == pathID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

func (m *Merger) disconnect(pathID int) {
	if st, ok := m.state[pathID]; ok {
		close(st.stop)
	}
	delete(m.state, pathID)
	m.removeFromOrder(pathID)
}

func (m *Merger) disconnectAll() {
	for _, id := range append([]int(nil), m.order...) {
		m.disconnect(id)
	}
}

// Run drives the merge loop to completion: every registered worker has
// disconnected, or cancellation was observed.
func (m *Merger) Run() {
	for {
		if m.flag != nil && m.flag.Cancelled() {
			m.disconnectAll()
			return
		}
		if len(m.order) == 0 {
			return
		}

		var needAttn []int
		for _, id := range m.order {
			st := m.state[id]
			if !st.fileInfoReceived || !st.hasPending {
				needAttn = append(needAttn, id)
			}
		}

		if len(needAttn) > 0 {
			m.serviceOne(needAttn)
			continue
		}

		m.emitMinimum()
	}
}

func (m *Merger) serviceOne(needAttn []int) {
	cases := make([]reflect.SelectCase, len(needAttn))
	for i, id := range needAttn {
		cases[i] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(m.state[id].ch)}
	}

	chosen, value, ok := reflect.Select(cases)
	id := needAttn[chosen]
	if !ok {
		// Worker's channel closed without a FileSummary (shouldn't happen
		// in normal operation); treat as a disconnect.
		m.disconnect(id)
		return
	}

	d := value.Interface().(worker.ChanDatum)
	st := m.state[id]
	switch d.Kind {
	case worker.KindFileInfo:
		st.fileInfoReceived = true
		st.initErr = d.Err
		if m.onInfo != nil {
			m.onInfo(id, d.MTime, d.Err)
		}
	case worker.KindNewMessage:
		st.pending = d.Msg
		st.pendingIsLast = d.IsLast
		st.hasPending = true
	case worker.KindFileSummary:
		if m.onSum != nil {
			m.onSum(id, d.Summary)
		}
		m.disconnect(id)
	}
}

func (m *Merger) emitMinimum() {
	best := -1
	for _, id := range m.order {
		st := m.state[id]
		if best == -1 || st.pending.DateTimeL.Before(m.state[best].pending.DateTimeL) {
			best = id
		}
	}
	if best == -1 {
		return
	}

	st := m.state[best]
	if m.print != nil {
		m.print(best, st.pending)
	}
	// The worker's own FileSummary datum drives disconnection, not
	// pendingIsLast — it's informational only, mirroring spec.md §4.9.
	st.hasPending = false
	st.pending = worker.Message{}
}
