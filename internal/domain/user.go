package domain

import "time"

// User represents an account holding a prepaid credit balance.
type User struct {
	ID        string
	Email     string
	Name      string
	Credits   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanAfford reports whether the balance covers the given cost. Advisory
// only: the credit ledger's conditional debit is the sole authority for
// whether a job proceeds.
func (u User) CanAfford(cost int) bool {
	return u.Credits >= cost
}
