// Package naming owns the t_<Given>_<Family> convention for per-employee
// tables. Every call site that needs a table name goes through here.
package naming

import (
	"strings"

	"github.com/worktime/worktime-backend/pkg/errors"
)

// Prefix starts every per-employee table name
const Prefix = "t_"

// MaxIdentifierBytes is PostgreSQL's NAMEDATALEN-1; longer names are truncated silently by the server
const MaxIdentifierBytes = 63

// folding covers Slovak, Czech and German diacritics. Anything else passes through.
var folding = map[rune]rune{
	'á': 'a', 'ä': 'a', 'č': 'c', 'ď': 'd', 'é': 'e', 'ě': 'e',
	'í': 'i', 'ĺ': 'l', 'ľ': 'l', 'ň': 'n', 'ó': 'o', 'ô': 'o',
	'ö': 'o', 'ŕ': 'r', 'ř': 'r', 'š': 's', 'ť': 't', 'ú': 'u',
	'ů': 'u', 'ü': 'u', 'ý': 'y', 'ž': 'z',
	'Á': 'A', 'Ä': 'A', 'Č': 'C', 'Ď': 'D', 'É': 'E', 'Ě': 'E',
	'Í': 'I', 'Ĺ': 'L', 'Ľ': 'L', 'Ň': 'N', 'Ó': 'O', 'Ô': 'O',
	'Ö': 'O', 'Ŕ': 'R', 'Ř': 'R', 'Š': 'S', 'Ť': 'T', 'Ú': 'U',
	'Ů': 'U', 'Ü': 'U', 'Ý': 'Y', 'Ž': 'Z',
}

// Normalize folds mapped diacritics to their base letter
func Normalize(text string) string {
	return strings.Map(func(r rune) rune {
		if base, ok := folding[r]; ok {
			return base
		}
		return r
	}, text)
}

// TableName returns t_<Normalize(given)>_<Normalize(family)>.
// Empty components are allowed and yield names like "t__Novak".
func TableName(givenName, familyName string) string {
	return Prefix + Normalize(givenName) + "_" + Normalize(familyName)
}

// Validate rejects names PostgreSQL would truncate or cannot store
func Validate(table string) error {
	if len(table) > MaxIdentifierBytes || strings.ContainsRune(table, 0) {
		return errors.InvalidIdentifier(table)
	}
	return nil
}

// IsTableName reports whether name follows the per-employee convention
func IsTableName(name string) bool {
	rest, ok := strings.CutPrefix(name, Prefix)
	return ok && strings.Contains(rest, "_")
}
