package session

// Stats counts what happened during the session. Nothing is kept beyond the process lifetime.
type Stats struct {
	Submitted    int64 `json:"submitted"`
	Succeeded    int64 `json:"succeeded"`
	Failed       int64 `json:"failed"`
	Discarded    int64 `json:"discarded"`
	Picks        int64 `json:"picks"`
	PickCancels  int64 `json:"pick_cancels"`
	PickFailures int64 `json:"pick_failures"`
}

// SuccessRate is Succeeded over the answers that reached the screen.
func (s Stats) SuccessRate() float64 {
	shown := s.Succeeded + s.Failed
	if shown == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(shown)
}

// Stats returns a snapshot of the counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
