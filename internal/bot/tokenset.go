package bot

import "sync"

// TokenSet records which tokens were processed in the current cycle.
// It is safe for concurrent use.
type TokenSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewTokenSet creates an empty set
func NewTokenSet() *TokenSet {
	return &TokenSet{seen: make(map[string]struct{})}
}

// MarkIfNew adds token and reports whether it was absent. Exactly one of
// several concurrent callers with the same token gets true.
func (s *TokenSet) MarkIfNew(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[token]; ok {
		return false
	}
	s.seen[token] = struct{}{}
	return true
}

// Clear empties the set at the start of a cycle
func (s *TokenSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = make(map[string]struct{})
}

// Len returns the number of tokens marked this cycle
func (s *TokenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
