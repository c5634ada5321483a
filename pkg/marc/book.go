package marc

import (
	"strings"

	"github.com/internetarchive/olclient/pkg/models"
)

// MARC 21 fields the Book mapping reads.
// See http://www.loc.gov/marc/bibliographic
const (
	tagISBN       = "020"
	tagMainAuthor = "100"
	tagTitle      = "245"
	tagImprint    = "260"
)

// AuthorName returns the record's main author in "First Last" order.
// Field 100 stores names inverted, e.g. "Fromm, Erich".
func (r *Record) AuthorName() string {
	field := r.Field(tagMainAuthor)
	if field == nil {
		return ""
	}
	name := cleanValue(field.Subfield('a'))
	if name == "" {
		return ""
	}
	parts := strings.Split(name, ", ")
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " ")
}

// ISBN returns the record's ISBN with hyphens stripped and any
// trailing qualifier (e.g. "(pbk.)") dropped, or "".
func (r *Record) ISBN() string {
	for _, field := range r.FieldsByTag(tagISBN) {
		value := strings.TrimSpace(field.Subfield('a'))
		if value == "" {
			continue
		}
		if i := strings.IndexByte(value, ' '); i >= 0 {
			value = value[:i]
		}
		return strings.ReplaceAll(value, "-", "")
	}
	return ""
}

// ToBook maps the record onto the standardized Book model.
func (r *Record) ToBook() (*models.Book, error) {
	identifiers := models.Identifiers{}
	if isbn := r.ISBN(); isbn != "" {
		idType := models.IDISBN10
		if len(isbn) == 13 {
			idType = models.IDISBN13
		}
		if err := identifiers.Add(idType, isbn); err != nil {
			return nil, err
		}
	}

	var title, subtitle string
	if field := r.Field(tagTitle); field != nil {
		title = cleanValue(field.Subfield('a'))
		subtitle = cleanValue(field.Subfield('b'))
	}

	var publishLocation, publisher, publishDate string
	if field := r.Field(tagImprint); field != nil {
		publishLocation = cleanValue(field.Subfield('a'))
		publisher = cleanValue(field.Subfield('b'))
		publishDate = cleanValue(field.Subfield('c'))
	}

	book := &models.Book{
		Title:           title,
		Subtitle:        subtitle,
		Publisher:       publisher,
		PublishDate:     publishDate,
		PublishLocation: publishLocation,
		Identifiers:     identifiers,
	}
	if name := r.AuthorName(); name != "" {
		book.Authors = append(book.Authors, &models.Author{
			Name:        name,
			Identifiers: models.Identifiers{},
		})
	}
	return book, nil
}

// cleanValue strips the ISBD punctuation catalogers append to subfield
// values, e.g. "Wege aus einer kranken Gesellschaft :" or "Fromm, Erich,".
func cleanValue(value string) string {
	return strings.TrimRight(strings.TrimSpace(value), " :;/,.")
}
