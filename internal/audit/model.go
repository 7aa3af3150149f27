package audit

import "time"

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Actions recorded outside page navigation.
const (
	ActionLogin    = "login"
	ActionVerified = "mfa_verified"
	ActionLogout   = "logout"
)

// Entry is one append-only audit record.
type Entry struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// Filter narrows a query. A zero Filter returns the newest entries of every user.
type Filter struct {
	Username string
	Limit    int
}

func (f Filter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultLimit
	case f.Limit > maxLimit:
		return maxLimit
	default:
		return f.Limit
	}
}
