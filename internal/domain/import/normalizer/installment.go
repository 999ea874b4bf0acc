package normalizer

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	installmentOfRe = regexp.MustCompile(`parcela\s+(\d+)\s+de\s+(\d+)`)
	installmentInRe = regexp.MustCompile(`em\s+(\d+)x`)
)

// Installment describes a detected N-of-M plan. Index nil means the
// statement names the plan size but not which charge this is; that is
// distinct from index 1.
type Installment struct {
	Index *int
	Total *int
}

// ExtractInstallment scans a description for installment phrasing.
// "Parcela 2 de 4" wins over "em 4x"; the first matching pattern stops the
// search. A nonsensical pair (index beyond total) is discarded entirely.
func ExtractInstallment(description string) Installment {
	desc := strings.ToLower(description)

	if m := installmentOfRe.FindStringSubmatch(desc); m != nil {
		index, _ := strconv.Atoi(m[1])
		total, _ := strconv.Atoi(m[2])
		if index > total {
			return Installment{}
		}
		return Installment{Index: &index, Total: &total}
	}

	if m := installmentInRe.FindStringSubmatch(desc); m != nil {
		total, _ := strconv.Atoi(m[1])
		return Installment{Total: &total}
	}

	return Installment{}
}
