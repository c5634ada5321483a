package openlibrary

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/internetarchive/olclient/pkg/models"
)

// SearchResults is the container for the results of the Search API
type SearchResults struct {
	Start    int         `json:"start"`
	NumFound int         `json:"num_found"`
	Docs     []SearchDoc `json:"docs"`
}

// First returns the closest match, or nil when nothing was found
func (r *SearchResults) First() *SearchDoc {
	if len(r.Docs) == 0 {
		return nil
	}
	return &r.Docs[0]
}

// SearchDoc is an aggregate work summarizing all editions of a book,
// as returned by /search.json.
type SearchDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	Subtitle         string   `json:"subtitle"`
	Subject          []string `json:"subject"`
	AuthorName       []string `json:"author_name"`
	AuthorKey        []string `json:"author_key"`
	EditionKey       []string `json:"edition_key"`
	Publisher        []string `json:"publisher"`
	PublishDate      []string `json:"publish_date"`
	PublishPlace     []string `json:"publish_place"`
	FirstPublishYear int      `json:"first_publish_year"`
	ISBN             []string `json:"isbn"`
	LCCN             []string `json:"lccn"`
	OCLC             []string `json:"oclc"`
	IDGoodreads      []string `json:"id_goodreads"`
	IDLibraryThing   []string `json:"id_librarything"`
	Language         []string `json:"language"`
}

// ToBook converts a search document to the standardized Book model.
// Author names and author keys correspond one-to-one, in order.
func (d *SearchDoc) ToBook() *models.Book {
	identifiers := models.Identifiers{
		models.IDOLID:         {models.ExtractOLID(d.Key, models.KindWork)},
		models.IDISBNs:        d.ISBN,
		models.IDOCLC:         d.OCLC,
		models.IDLCCN:         d.LCCN,
		models.IDGoodreads:    d.IDGoodreads,
		models.IDLibraryThing: d.IDLibraryThing,
	}

	var authors []*models.Author
	for i, name := range d.AuthorName {
		author := &models.Author{Name: name, Identifiers: models.Identifiers{}}
		if i < len(d.AuthorKey) {
			author.Identifiers[models.IDOLID] = []string{models.OLIDFromKey(d.AuthorKey[i])}
		}
		authors = append(authors, author)
	}

	publisher := ""
	if len(d.Publisher) > 0 {
		publisher = d.Publisher[0]
	}
	publishDate := ""
	if d.FirstPublishYear > 0 {
		publishDate = strconv.Itoa(d.FirstPublishYear)
	}

	return &models.Book{
		Title:       d.Title,
		Subtitle:    d.Subtitle,
		Authors:     authors,
		Publisher:   publisher,
		PublishDate: publishDate,
		Identifiers: identifiers,
	}
}

// SearchWorks finds catalog works matching a title and/or author using
// the Search API. At least one of the two is required.
func (c *Client) SearchWorks(ctx context.Context, title, author string) (*SearchResults, error) {
	if title == "" && author == "" {
		return nil, fmt.Errorf("author or title required for metadata search")
	}

	query := url.Values{}
	if title != "" {
		query.Set("title", title)
	}
	if author != "" {
		query.Set("author", author)
	}

	var results SearchResults
	if err := c.getJSON(ctx, "/search.json?"+query.Encode(), &results); err != nil {
		return nil, err
	}

	c.logger.Debug("Work search completed", map[string]interface{}{
		"title":     title,
		"author":    author,
		"num_found": results.NumFound,
	})
	return &results, nil
}
