package resolve

import "strings"

// index holds pre-normalized views of the registry names for fast matching.
// Built once per Resolve call so mid-run mints are always visible.
type index struct {
	byLower   map[string]string // lowercase name → code
	byNoSpace map[string]string // lowercase, whitespace-stripped name → code
}

// Matcher is one rule of the resolution cascade. Matchers run in order and
// the first hit wins, so a later matcher can never shadow an earlier, more
// specific one.
type Matcher struct {
	Name  string
	Match func(ix *index, name string) (code string, ok bool)
}

// DefaultMatchers returns the standard cascade:
//  1. exact case-insensitive match
//  2. match after stripping all whitespace ("Green Gram" vs "GreenGram")
//  3. match after truncating at the first '(' or '-' and trimming
//     ("Wheat (Desi)" vs "Wheat"), tried plain then whitespace-stripped
func DefaultMatchers() []Matcher {
	return []Matcher{
		{
			Name: "exact",
			Match: func(ix *index, name string) (string, bool) {
				code, ok := ix.byLower[strings.ToLower(strings.TrimSpace(name))]
				return code, ok
			},
		},
		{
			Name: "no_space",
			Match: func(ix *index, name string) (string, bool) {
				code, ok := ix.byNoSpace[stripSpace(strings.ToLower(name))]
				return code, ok
			},
		},
		{
			Name: "truncated",
			Match: func(ix *index, name string) (string, bool) {
				stem := truncateQualifier(strings.ToLower(name))
				if stem == "" {
					return "", false
				}
				if code, ok := ix.byLower[stem]; ok {
					return code, true
				}
				code, ok := ix.byNoSpace[stripSpace(stem)]
				return code, ok
			},
		},
	}
}

// truncateQualifier cuts a name at the first '(' or '-' and trims the
// remainder, dropping variety/grade qualifiers like "Wheat (Desi)" or
// "Banana - Green".
func truncateQualifier(name string) string {
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	if i := strings.IndexByte(name, '-'); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
