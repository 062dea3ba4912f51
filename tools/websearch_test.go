package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestSearchFormatsTopResults(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><style>.x{}</style></head><body><p>Border talks resumed today.</p></body></html>`))
	}))
	defer page.Close()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token-1", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(`{"web":{"results":[
			{"title":"First","url":"` + page.URL + `","description":"snippet one"},
			{"title":"Second","url":"` + page.URL + `","description":"snippet two"},
			{"title":"Third","url":"` + page.URL + `","description":"snippet three"},
			{"title":"Fourth","url":"` + page.URL + `","description":"dropped"}
		]}}`))
	}))
	defer api.Close()

	client := NewBraveClient("token-1")
	client.endpoint = api.URL

	results, err := client.Search(context.Background(), "border dispute")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "First", results[0].Title)
	assert.Contains(t, results[0].Content, "Border talks resumed")

	formatted := FormatResults(results)
	assert.Contains(t, formatted, "Title:First\nSnippet:snippet one")
	assert.Equal(t, 2, strings.Count(formatted, "\n\n"))
}

func TestSearchWithoutKeyFails(t *testing.T) {
	client := NewBraveClient("")
	_, err := client.Search(context.Background(), "anything")
	assert.Error(t, err)
}

func TestFormatResultsEmpty(t *testing.T) {
	assert.Equal(t, NoSearchResults, FormatResults(nil))
}

func TestLinks(t *testing.T) {
	results := []SearchResult{{Link: "https://a.example"}, {Link: ""}, {Link: "https://b.example"}}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, Links(results))
}

func TestExtractTextSkipsScripts(t *testing.T) {
	doc := `<html><head><script>var x = 1;</script></head><body><h1>Heading</h1><p>Body text.</p></body></html>`
	node, err := html.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	text := ExtractText(node)
	assert.Equal(t, "Heading Body text.", text)
	assert.NotContains(t, text, "var x")
}
