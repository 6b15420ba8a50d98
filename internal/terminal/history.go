package terminal

// History is the list of submitted commands plus the arrow-key cursor over it.
//
// The offset counts back from the most recent entry: 0 is the newest, and -1
// means nothing is selected and the live buffer is shown. Navigation never
// mutates the stored entries.
type History struct {
	entries []string
	limit   int
	offset  int
}

// NewHistory returns an empty history. A positive limit caps the number of
// stored entries, dropping the oldest first; zero keeps every entry for the
// life of the session.
func NewHistory(limit int) *History {
	if limit < 0 {
		limit = 0
	}
	return &History{limit: limit, offset: -1}
}

// Push records a submission verbatim and resets the cursor.
func (h *History) Push(raw string) {
	h.entries = append(h.entries, raw)
	if h.limit > 0 && len(h.entries) > h.limit {
		h.entries = append([]string(nil), h.entries[len(h.entries)-h.limit:]...)
	}
	h.offset = -1
}

// Up moves one entry further into the past. It returns the entry to show and
// true, or false when already at the oldest entry (or history is empty).
func (h *History) Up() (string, bool) {
	if len(h.entries) == 0 || h.offset >= len(h.entries)-1 {
		return "", false
	}
	h.offset++
	return h.entries[len(h.entries)-1-h.offset], true
}

// Down moves one entry toward the present. Stepping past the newest entry
// deselects history and yields an empty buffer. It returns false when
// nothing is selected.
func (h *History) Down() (string, bool) {
	switch {
	case h.offset > 0:
		h.offset--
		return h.entries[len(h.entries)-1-h.offset], true
	case h.offset == 0:
		h.offset = -1
		return "", true
	default:
		return "", false
	}
}

// Reset deselects history without touching the entries.
func (h *History) Reset() {
	h.offset = -1
}

// Offset returns the current cursor (-1 when nothing is selected).
func (h *History) Offset() int {
	return h.offset
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns a copy of the stored entries, oldest first.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}
