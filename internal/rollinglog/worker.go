package rollinglog

// ScheduleTruncate asks the background worker for a size check. The request
// slot holds one pending request; further requests while it is full are
// coalesced into it. Never blocks.
func (f *File) ScheduleTruncate() {
	if f.ctx.Err() != nil {
		return
	}
	select {
	case f.kick <- struct{}{}:
	default:
	}
}

// run is the truncation worker. Errors are already reported by Truncate.
func (f *File) run() {
	defer close(f.done)
	for {
		select {
		case <-f.ctx.Done():
			return
		case <-f.kick:
			_ = f.Truncate(f.ctx, false)
		}
	}
}
