package auth

// Service decides which Telegram users may talk to the bot.
// An empty allowlist lets everyone in.
type Service struct {
	allowedUsers map[int64]bool
}

func New(initial []int64) *Service {
	s := &Service{allowedUsers: make(map[int64]bool)}
	for _, id := range initial {
		s.allowedUsers[id] = true
	}
	return s
}

func (s *Service) IsAllowed(userID int64) bool {
	if len(s.allowedUsers) == 0 {
		return true
	}
	return s.allowedUsers[userID]
}

// Restricted reports whether an allowlist is in effect.
func (s *Service) Restricted() bool {
	return len(s.allowedUsers) > 0
}
