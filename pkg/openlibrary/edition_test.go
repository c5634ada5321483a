package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internetarchive/olclient/pkg/models"
)

const editionJSON = `{
	"key": "/books/OL23575801M",
	"type": {"key": "/type/edition"},
	"title": "The Autobiography of Benjamin Franklin",
	"works": [{"key": "/works/OL16517263W"}],
	"authors": [{"key": "/authors/OL26170A"}],
	"publishers": ["Dover Publications"],
	"publish_date": "1996",
	"number_of_pages": 144,
	"isbn_10": ["0486290735"],
	"isbn_13": ["9780486290737"],
	"ocaid": "autobiographyofb00fran",
	"source_records": ["marc:x"]
}`

func TestGetEdition(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/books/OL23575801M.json", r.URL.Path)
		fmt.Fprint(w, editionJSON)
	}))

	edition, err := client.GetEdition(context.Background(), "OL23575801M")
	require.NoError(t, err)
	assert.Equal(t, "OL23575801M", edition.OLID)
	assert.Equal(t, "OL16517263W", edition.WorkOLID)
	assert.Equal(t, []string{"OL26170A"}, edition.AuthorOLIDs)
	assert.Equal(t, []string{"Dover Publications"}, edition.Publishers)
	assert.Equal(t, 144, edition.NumberOfPages)
	assert.Equal(t, []string{"0486290735"}, edition.ISBN10)
	assert.Equal(t, "autobiographyofb00fran", edition.Ocaid)

	doc := edition.Document()
	assert.Contains(t, doc, "source_records")
	assert.Equal(t, "/books/OL23575801M", doc["key"])
	assert.Equal(t, []keyRef{{Key: "/works/OL16517263W"}}, doc["works"])
}

func TestGetBibkeyMetadata(t *testing.T) {
	tests := []struct {
		name    string
		key     Bibkey
		value   string
		body    string
		wantErr error
		wantURL string
	}{
		{
			name:    "isbn match",
			key:     BibkeyISBN,
			value:   "0374202915",
			body:    `{"ISBN:0374202915": {"bib_key": "ISBN:0374202915", "info_url": "https://openlibrary.org/books/OL23575801M/Flamethrowers"}}`,
			wantURL: "https://openlibrary.org/books/OL23575801M/Flamethrowers",
		},
		{
			name:    "no match",
			key:     BibkeyOCLC,
			value:   "0000",
			body:    `{}`,
			wantErr: ErrNotFound,
		},
		{
			name:    "unsupported scheme",
			key:     Bibkey("DOI"),
			value:   "x",
			wantErr: ErrInvalidBibkey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/api/books.json", r.URL.Path)
				require.Equal(t, fmt.Sprintf("%s:%s", tt.key, tt.value), r.URL.Query().Get("bibkeys"))
				fmt.Fprint(w, tt.body)
			}))

			meta, err := client.GetBibkeyMetadata(context.Background(), tt.key, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, meta.InfoURL)
		})
	}
}

func TestGetEditionByISBN(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/books.json":
			fmt.Fprint(w, `{"ISBN:0486290735": {"bib_key": "ISBN:0486290735", "info_url": "https://openlibrary.org/books/OL23575801M/x"}}`)
		case "/books/OL23575801M.json":
			fmt.Fprint(w, editionJSON)
		default:
			t.Fatalf("unexpected request: %s", r.URL)
		}
	}))

	edition, err := client.GetEditionByISBN(context.Background(), "0486290735")
	require.NoError(t, err)
	assert.Equal(t, "OL23575801M", edition.OLID)
	assert.Equal(t, "The Autobiography of Benjamin Franklin", edition.Title)
}

func TestCreateBook(t *testing.T) {
	var gotForm map[string]string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/authors/_autocomplete":
			fmt.Fprint(w, `[{"key": "/authors/OL2514725A", "name": "Benjamin Franklin"}]`)
		case "/books/add":
			require.NoError(t, r.ParseForm())
			gotForm = map[string]string{}
			for k := range r.PostForm {
				gotForm[k] = r.PostForm.Get(k)
			}
			http.Redirect(w, r, "/books/OL25943366M/Test_Book", http.StatusFound)
		case "/books/OL25943366M/Test_Book":
			w.WriteHeader(http.StatusOK)
		case "/books/OL25943366M.json":
			fmt.Fprint(w, `{"key": "/books/OL25943366M", "title": "Test Book"}`)
		default:
			t.Fatalf("unexpected request: %s", r.URL)
		}
	}))

	author, err := models.NewAuthor("Benjamin Franklin")
	require.NoError(t, err)
	book := &models.Book{
		Title:       "Test Book",
		Authors:     []*models.Author{author},
		Publisher:   "Test Publisher",
		PublishDate: "2015",
		Identifiers: models.Identifiers{models.IDISBN10: {"1234567890"}},
	}

	edition, err := client.CreateBook(context.Background(), book, "")
	require.NoError(t, err)
	assert.Equal(t, "OL25943366M", edition.OLID)

	assert.Equal(t, "Test Book", gotForm["book_title"])
	assert.Equal(t, "isbn_10", gotForm["id_name"])
	assert.Equal(t, "1234567890", gotForm["id_value"])
	assert.Equal(t, "Benjamin Franklin", gotForm["author_names--0"])
	assert.Equal(t, "/authors/OL2514725A", gotForm["authors--0--author--key"])
}

func TestCreateBookNewAuthor(t *testing.T) {
	var gotForm map[string]string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/authors/_autocomplete":
			fmt.Fprint(w, `[]`)
		case "/books/add":
			require.NoError(t, r.ParseForm())
			gotForm = map[string]string{}
			for k := range r.PostForm {
				gotForm[k] = r.PostForm.Get(k)
			}
			http.Redirect(w, r, "/books/OL1M/x", http.StatusFound)
		case "/books/OL1M/x":
			w.WriteHeader(http.StatusOK)
		case "/books/OL1M.json":
			fmt.Fprint(w, `{"key": "/books/OL1M", "title": "x"}`)
		default:
			t.Fatalf("unexpected request: %s", r.URL)
		}
	}))

	author, err := models.NewAuthor("Totally Unknown Writer")
	require.NoError(t, err)
	book := &models.Book{
		Title:       "x",
		Authors:     []*models.Author{author},
		Identifiers: models.Identifiers{models.IDISBN13: {"9781234567897"}},
	}

	_, err = client.CreateBook(context.Background(), book, "")
	require.NoError(t, err)
	assert.Equal(t, "__new__", gotForm["authors--0--author--key"])
}

func TestCreateBookRejected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/authors/_autocomplete":
			fmt.Fprint(w, `[]`)
		case "/books/add":
			if r.Method == http.MethodPost {
				// bounced back to the add form: duplicate record
				http.Redirect(w, r, "/books/add", http.StatusFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			t.Fatalf("unexpected request: %s", r.URL)
		}
	}))

	author, err := models.NewAuthor("A Writer")
	require.NoError(t, err)
	book := &models.Book{
		Title:       "Duplicate",
		Authors:     []*models.Author{author},
		Identifiers: models.Identifiers{models.IDISBN10: {"1234567890"}},
	}

	_, err = client.CreateBook(context.Background(), book, "")
	assert.ErrorIs(t, err, ErrCreateFailed)
}

func TestCreateBookRequiresIdentifier(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	author, err := models.NewAuthor("A Writer")
	require.NoError(t, err)
	book := &models.Book{Title: "No IDs", Authors: []*models.Author{author}}

	_, err = client.CreateBook(context.Background(), book, "")
	assert.ErrorContains(t, err, "isbn_10, isbn_13, lccn, or ocaid required")
}

func TestAddCover(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/books/OL1M/-/add-cover", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "", r.FormValue("file"))
		assert.Equal(t, "https://example.com/cover.jpg", r.FormValue("url"))
		assert.Equal(t, "submit", r.FormValue("upload"))
		w.WriteHeader(http.StatusOK)
	}))

	err := client.AddCover(context.Background(), "OL1M", "https://example.com/cover.jpg")
	require.NoError(t, err)
}

func TestAddCoverFromFile(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "cover.png", header.Filename)
		assert.Equal(t, "https://", r.FormValue("url"))
		assert.Equal(t, "Submit", r.FormValue("upload"))
		w.WriteHeader(http.StatusOK)
	}))

	err := client.AddCoverFromFile(context.Background(), "OL1M", "cover.png", []byte("png-bytes"), "image/png")
	require.NoError(t, err)
}

func TestEditionMarshalRoundTrip(t *testing.T) {
	var edition Edition
	require.NoError(t, json.Unmarshal([]byte(editionJSON), &edition))

	out, err := json.Marshal(&edition)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "/books/OL23575801M", doc["key"])
	assert.Contains(t, doc, "source_records")
	assert.Equal(t, []interface{}{"9780486290737"}, doc["isbn_13"])
}
