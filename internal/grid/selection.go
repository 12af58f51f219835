package grid

// Selection is the selected token of one stream generation. It never
// outlives the stream it was made for.
type Selection struct {
	generation uint64
	index      int
	count      int
	valid      bool
}

// Reset binds the selection to a new stream. Non-empty streams select the
// first token; empty streams select nothing.
func (s *Selection) Reset(generation uint64, count int) {
	s.generation = generation
	s.count = max(0, count)
	s.index = 0
	s.valid = s.count > 0
}

// Generation returns the stream generation the selection belongs to.
func (s Selection) Generation() uint64 {
	return s.generation
}

// Index returns the selected token index.
func (s Selection) Index() (int, bool) {
	return s.index, s.valid
}

// Select sets the selection if index exists in the given generation.
func (s *Selection) Select(generation uint64, index int) bool {
	if generation != s.generation || index < 0 || index >= s.count {
		return false
	}
	s.index = index
	s.valid = true
	return true
}

// Move shifts the selection by delta, clamped to the stream.
func (s *Selection) Move(delta int) {
	if s.count == 0 {
		return
	}
	if !s.valid {
		s.index, s.valid = 0, true
		return
	}
	s.index = max(0, min(s.index+delta, s.count-1))
}

// Home selects the first token.
func (s *Selection) Home() {
	if s.count > 0 {
		s.index, s.valid = 0, true
	}
}

// End selects the last token.
func (s *Selection) End() {
	if s.count > 0 {
		s.index, s.valid = s.count-1, true
	}
}
