package pll

// StartWriting opens a write span at the given time.
func (pll *State) StartWriting(when uint64) {
	pll.WriteStart = when
	pll.writeCount = 0
}

// IsWriting reports whether a write span is open.
func (pll *State) IsWriting() bool {
	return pll.WriteStart != Never
}

// Pending returns the number of buffered transitions not yet committed.
func (pll *State) Pending() int {
	return pll.writeCount
}

// CellEnd returns the end of the next write cell.
func (pll *State) CellEnd() uint64 {
	return advance(pll.Time, pll.Period)
}

// WriteNextBit emits one cell of the given value. The cell length is the
// current period, with no frequency tracking. It returns false without any
// change when the cell would end after limit.
func (pll *State) WriteNextBit(bit bool, sink FluxSink, limit uint64) bool {
	if pll.WriteStart == Never {
		pll.StartWriting(pll.Time)
	}

	end := advance(pll.Time, pll.Period)
	if end > limit {
		return false
	}

	if bit && pll.writeCount < WRITE_BUFFER_SIZE {
		pll.writeBuffer[pll.writeCount] = advance(pll.Time, pll.Period/2)
		pll.writeCount++
	}
	if pll.writeCount == WRITE_BUFFER_SIZE {
		pll.Commit(sink, end, false)
	}
	pll.Time = end
	return true
}

// Commit hands buffered transitions to the sink when the buffer is full
// or when flush is set, and starts a new span at the given time.
func (pll *State) Commit(sink FluxSink, when uint64, flush bool) {
	if pll.WriteStart == Never || when == pll.WriteStart {
		return
	}
	if !flush && pll.writeCount != WRITE_BUFFER_SIZE {
		return
	}
	if sink != nil {
		transitions := make([]uint64, pll.writeCount)
		copy(transitions, pll.writeBuffer[:pll.writeCount])
		sink.WriteFlux(pll.WriteStart, when, transitions)
	}
	pll.WriteStart = when
	pll.writeCount = 0
}

// StopWriting flushes the buffer up to the given time and closes the span.
func (pll *State) StopWriting(sink FluxSink, when uint64) {
	pll.Commit(sink, when, true)
	pll.WriteStart = Never
	pll.writeCount = 0
}
