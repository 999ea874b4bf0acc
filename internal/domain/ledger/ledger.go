// Package ledger owns the persisted transaction ("lancamento") model and its
// Postgres repository. The import pipeline reads candidates from and commits
// results into this collection; it never mutates rows it did not create.
package ledger

import (
	"errors"
	"time"
)

// Direction tells whether money came in or went out. The wire values match
// the stored vocabulary used by the rest of the system.
type Direction string

const (
	DirectionIn  Direction = "entrada"
	DirectionOut Direction = "saida"
)

// Opposite returns the complementary direction.
func (d Direction) Opposite() Direction {
	if d == DirectionIn {
		return DirectionOut
	}
	return DirectionIn
}

// Payment methods stored on committed transactions.
const (
	MethodPix    = "pix"
	MethodDebit  = "debito"
	MethodCredit = "credito"
	MethodBoleto = "boleto"
	MethodOther  = "outro"
)

// Transaction is a persisted ledger entry. Amount is always a non-negative
// magnitude; Direction alone carries the sign.
type Transaction struct {
	ID          string
	Date        string // ISO YYYY-MM-DD
	Description string
	Category    string
	Direction   Direction
	Amount      float64
	Method      string
	Responsible string
	Origin      string
	Note        string
	CreatedAt   time.Time
}

// ErrNotFound is returned when a referenced transaction does not exist.
var ErrNotFound = errors.New("transaction not found")
