package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/internetarchive/olclient/pkg/models"
)

const (
	// worksLimit is the default page size for an author's works listing
	worksLimit = 50
)

// Author is a named contributor to one or more works in the catalog
type Author struct {
	OLID      string
	Name      string
	Bio       string
	BirthDate string
	DeathDate string

	raw map[string]json.RawMessage
}

// UnmarshalJSON decodes the API's author representation
func (a *Author) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	delete(raw, "type")
	a.OLID = models.OLIDFromKey(popString(raw, "key"))
	a.Name = popString(raw, "name")
	a.Bio = popText(raw, "bio")
	a.BirthDate = popString(raw, "birth_date")
	a.DeathDate = popString(raw, "death_date")
	a.raw = raw
	return nil
}

// Document returns the JSON document representation of the author
// suitable for saving back via the API.
func (a *Author) Document() map[string]interface{} {
	doc := make(map[string]interface{}, len(a.raw)+6)
	for k, v := range a.raw {
		doc[k] = v
	}
	doc["key"] = "/authors/" + a.OLID
	doc["type"] = typeRef{Key: "/type/author"}
	if a.Name != "" {
		doc["name"] = a.Name
	}
	if a.Bio != "" {
		doc["bio"] = textNode(a.Bio)
	}
	if a.BirthDate != "" {
		doc["birth_date"] = a.BirthDate
	}
	if a.DeathDate != "" {
		doc["death_date"] = a.DeathDate
	}
	return doc
}

// MarshalJSON implements json.Marshaler
func (a *Author) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Document())
}

// Key returns the author's full catalog key
func (a *Author) Key() string {
	return "/authors/" + a.OLID
}

// GetAuthor retrieves an author by olid
func (c *Client) GetAuthor(ctx context.Context, olid string) (*Author, error) {
	body, err := c.getRecord(ctx, "/authors/"+olid)
	if err != nil {
		return nil, err
	}

	var author Author
	if err := json.Unmarshal(body, &author); err != nil {
		return nil, fmt.Errorf("unable to decode author %s: %w", olid, err)
	}
	if author.OLID == "" {
		author.OLID = olid
	}
	return &author, nil
}

// SaveAuthor writes the author back to the catalog with an edit comment
func (c *Client) SaveAuthor(ctx context.Context, author *Author, comment string) error {
	if author.OLID == "" {
		return fmt.Errorf("author has no olid")
	}
	return c.putDocument(ctx, author.Key(), author.Document(), comment)
}

// AuthorWorks returns one page of the works associated with an author.
// limit defaults to 50, offset to 0.
func (c *Client) AuthorWorks(ctx context.Context, olid string, limit, offset int) ([]*Work, error) {
	if limit <= 0 {
		limit = worksLimit
	}
	if offset < 0 {
		offset = 0
	}

	path := fmt.Sprintf("/authors/%s/works.json?limit=%d&offset=%d", olid, limit, offset)
	var page struct {
		Entries []*Work `json:"entries"`
	}
	if err := c.getJSON(ctx, path, &page); err != nil {
		return nil, err
	}

	c.logger.Debug("Fetched author works", map[string]interface{}{
		"olid":   olid,
		"count":  len(page.Entries),
		"limit":  limit,
		"offset": offset,
	})
	return page.Entries, nil
}

// AuthorMatch is one result of the author autocomplete API
type AuthorMatch struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// OLID returns the matched author's bare OLID
func (m AuthorMatch) OLID() string {
	return models.OLIDFromKey(m.Key)
}

// SearchAuthors finds authors with names similar to the query using
// the author autocomplete API.
func (c *Client) SearchAuthors(ctx context.Context, name string, limit int) ([]AuthorMatch, error) {
	if name == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 1
	}

	path := fmt.Sprintf("/authors/_autocomplete?q=%s&limit=%d", url.QueryEscape(name), limit)
	var matches []AuthorMatch
	if err := c.getJSON(ctx, path, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// GetAuthorOLIDByName resolves an author name to an OLID when the
// autocomplete API has an exact (case-insensitive) match. Common names
// can have several valid matches; the first wins.
func (c *Client) GetAuthorOLIDByName(ctx context.Context, name string) (string, error) {
	matches, err := c.SearchAuthors(ctx, name, 1)
	if err != nil {
		return "", err
	}

	want := strings.TrimSpace(strings.ToLower(name))
	for _, match := range matches {
		if strings.TrimSpace(strings.ToLower(match.Name)) == want {
			return match.OLID(), nil
		}
	}
	return "", fmt.Errorf("no author named %q: %w", name, ErrNotFound)
}
