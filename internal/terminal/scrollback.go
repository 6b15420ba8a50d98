package terminal

// Scrollback is the ordered, append-only log of rendered lines. The only way
// to remove lines is Clear, which empties it and bumps the epoch so readers
// holding a cursor know to start over.
type Scrollback struct {
	lines []Line
	epoch uint64
}

// Append adds lines to the end of the log.
func (s *Scrollback) Append(lines ...Line) {
	s.lines = append(s.lines, lines...)
}

// Len returns the number of lines currently held.
func (s *Scrollback) Len() int {
	return len(s.lines)
}

// Lines returns a copy of every line.
func (s *Scrollback) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Since returns a copy of the lines at index n and after.
func (s *Scrollback) Since(n int) []Line {
	if n < 0 {
		n = 0
	}
	if n >= len(s.lines) {
		return nil
	}
	out := make([]Line, len(s.lines)-n)
	copy(out, s.lines[n:])
	return out
}

// Clear empties the log.
func (s *Scrollback) Clear() {
	s.lines = nil
	s.epoch++
}

// Epoch counts how many times the log has been cleared.
func (s *Scrollback) Epoch() uint64 {
	return s.epoch
}
