package service

import "strings"

// Canonical term labels stored on results.
const (
	TermFirst  = "1st Term"
	TermSecond = "2nd Term"
	TermThird  = "3rd Term"
)

var termAliases = map[string]string{
	"1": TermFirst, "1st": TermFirst, "first": TermFirst, "1st term": TermFirst, "first term": TermFirst, "term 1": TermFirst,
	"2": TermSecond, "2nd": TermSecond, "second": TermSecond, "2nd term": TermSecond, "second term": TermSecond, "term 2": TermSecond,
	"3": TermThird, "3rd": TermThird, "third": TermThird, "3rd term": TermThird, "third term": TermThird, "term 3": TermThird,
}

// NormalizeTerm maps the spellings in circulation onto one canonical label so that
// "First Term" and "1st Term" never address different rows. Unknown labels are returned trimmed.
func NormalizeTerm(raw string) string {
	trimmed := strings.TrimSpace(raw)
	key := strings.ToLower(strings.Join(strings.Fields(trimmed), " "))
	if canonical, ok := termAliases[key]; ok {
		return canonical
	}
	return trimmed
}
