// Package sniffer classifies uploaded statements by source bank.
// Detection looks at the first bytes of content (authoritative) and the
// filename (secondary signal).
package sniffer

import (
	"errors"
	"strings"
)

// Bank identifies a supported statement source.
type Bank string

const (
	BankInter   Bank = "inter"
	BankNubank  Bank = "nubank"
	BankUnknown Bank = "desconhecido"
)

// ErrUnknownBank is returned when no signature matches; the upload is
// rejected with a client error.
var ErrUnknownBank = errors.New("unrecognized bank format")

// DetectBank classifies a document from its filename and content prefix.
// Nubank signatures are checked first: Inter's "conta corrente" phrase is
// generic enough to show up in other banks' statements.
func DetectBank(filename, contentPrefix string) Bank {
	name := strings.ToLower(filename)
	text := strings.ToLower(contentPrefix)

	if strings.Contains(text, "nubank") || strings.Contains(text, "nu pagamentos") || strings.Contains(name, "nu_") {
		return BankNubank
	}
	if strings.Contains(text, "banco inter") || strings.Contains(text, "conta corrente") ||
		strings.Contains(text, "extrato conta corrente") {
		return BankInter
	}

	return BankUnknown
}
