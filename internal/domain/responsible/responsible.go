// Package responsible attributes a transaction to the household member who
// caused it, based on names appearing in the description.
package responsible

import (
	"strings"

	"github.com/financeia/financeia/internal/domain/ledger"
)

// Household members transactions are attributed to.
const (
	PersonDavi = "Davi"
	PersonAna  = "Ana"
)

type nameEntry struct {
	Name   string
	Person string
}

// nameTable maps counterparty names to the member behind the movement.
// First hit wins.
var nameTable = []nameEntry{
	{"albino", PersonDavi},
	{"sheila", PersonDavi},
	{"ana jullya", PersonAna},
	{"ana lima", PersonAna},
	{"davi miranda", PersonDavi},
	{"davi stark", PersonDavi},
	{"joão victor amaral", PersonDavi},
	{"joao victor amaral", PersonDavi},
	{"victor amaral", PersonDavi},
}

// Detect returns who a transaction belongs to. Income with no recognized
// name defaults to Davi, the account holder; spending with no recognized
// name stays unattributed.
func Detect(description string, direction ledger.Direction) string {
	lowered := strings.ToLower(description)
	for _, entry := range nameTable {
		if strings.Contains(lowered, entry.Name) {
			return entry.Person
		}
	}
	if direction == ledger.DirectionIn {
		return PersonDavi
	}
	return ""
}
