package models

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind identifies the type of an Open Library record.
type Kind string

const (
	// KindEdition is a specific published instance of a work (OL...M).
	KindEdition Kind = "edition"
	// KindWork is a conceptual bibliographic entity (OL...W).
	KindWork Kind = "work"
	// KindAuthor is a named contributor (OL...A).
	KindAuthor Kind = "author"
)

// Path returns the URL path segment for the kind, e.g. "books" for
// editions as used in /books/OL123M.json.
func (k Kind) Path() string {
	switch k {
	case KindEdition:
		return "books"
	case KindWork:
		return "works"
	case KindAuthor:
		return "authors"
	}
	return ""
}

var olidRE = regexp.MustCompile(`^OL\d+[AMW]$`)

var extractRE = map[Kind]*regexp.Regexp{
	KindEdition: regexp.MustCompile(`/books/([0-9a-zA-Z]+)`),
	KindWork:    regexp.MustCompile(`/works/([0-9a-zA-Z]+)`),
	KindAuthor:  regexp.MustCompile(`/authors/([0-9a-zA-Z]+)`),
}

// KindOf derives a record's kind from the suffix letter of its OLID.
func KindOf(olid string) (Kind, error) {
	if !olidRE.MatchString(strings.ToUpper(olid)) {
		return "", fmt.Errorf("unknown type for olid: %s", olid)
	}
	switch olid[len(olid)-1] {
	case 'M', 'm':
		return KindEdition, nil
	case 'W', 'w':
		return KindWork, nil
	default:
		return KindAuthor, nil
	}
}

// FullKey returns the Open Library JSON key, /<type-path>/<olid>, as
// used by the API, e.g. /books/OL123M.
func FullKey(olid string) (string, error) {
	kind, err := KindOf(olid)
	if err != nil {
		return "", err
	}
	return "/" + kind.Path() + "/" + olid, nil
}

// OLIDFromKey strips the path prefix from a key such as /works/OL1W.
func OLIDFromKey(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}

// ExtractOLID pulls an OLID for the given kind out of an
// openlibrary.org URL, e.g. the info_url of a bibkey match:
//
//	ExtractOLID("https://openlibrary.org/books/OL25943366M", KindEdition)
//
// Returns "" when the URL carries no matching OLID.
func ExtractOLID(url string, kind Kind) string {
	re, ok := extractRE[kind]
	if !ok {
		return ""
	}
	m := re.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}
