// ABOUTME: Transient notifications shown once on the next rendered page
// ABOUTME: Flashes live in memory only and are consumed when read

package session

// FlashKind selects how a notification is styled.
type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
	FlashInfo    FlashKind = "info"
)

// Flash is a one-shot notification for the operator.
type Flash struct {
	Kind    FlashKind
	Message string
}

// AddFlash queues a notification for the next page render.
func (s *Session) AddFlash(kind FlashKind, message string) {
	if message == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashes = append(s.flashes, Flash{Kind: kind, Message: message})
}

// TakeFlashes returns and clears the queued notifications.
func (s *Session) TakeFlashes() []Flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.flashes
	s.flashes = nil
	return f
}
