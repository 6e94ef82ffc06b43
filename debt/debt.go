package debt

// Status is the debt state reported by the backend for the current user.
// A user with DebtUser set may only visit the debt-resolution routes.
type Status struct {
	DebtUser     bool    `json:"debtUser"`
	Amount       float64 `json:"amount,omitempty"`
	Currency     string  `json:"currency,omitempty"`
	PendingTrips int     `json:"pendingTrips,omitempty"`
	DueDate      string  `json:"dueDate,omitempty"`
}

// Blocked reports whether s restricts navigation. A nil status never does.
func (s *Status) Blocked() bool {
	return s != nil && s.DebtUser
}

// Clone returns a copy of s.
func (s *Status) Clone() *Status {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
