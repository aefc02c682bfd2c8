package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docqa/internal/loader"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Location
		wantErr bool
	}{
		{name: "repo root", input: "github:acme/handbook", want: Location{Owner: "acme", Repo: "handbook"}},
		{name: "with path", input: "github:acme/handbook/docs/guides", want: Location{Owner: "acme", Repo: "handbook", Path: "docs/guides"}},
		{name: "with ref", input: "github:acme/handbook/docs@v1.2.0", want: Location{Owner: "acme", Repo: "handbook", Path: "docs", Ref: "v1.2.0"}},
		{name: "trailing slash", input: "github:acme/handbook/docs/", want: Location{Owner: "acme", Repo: "handbook", Path: "docs"}},
		{name: "missing repo", input: "github:acme", wantErr: true},
		{name: "empty ref", input: "github:acme/handbook@", wantErr: true},
		{name: "no scheme", input: "acme/handbook", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLocation(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLocation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocation_String(t *testing.T) {
	loc := Location{Owner: "acme", Repo: "handbook", Path: "docs", Ref: "main"}
	assert.Equal(t, "github:acme/handbook/docs@main", loc.String())

	parsed, err := ParseLocation(loc.String())
	require.NoError(t, err)
	assert.Equal(t, loc, parsed)
}

type contentEntry struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Encoding string `json:"encoding,omitempty"`
	Content  string `json:"content,omitempty"`
	SHA      string `json:"sha,omitempty"`

	DownloadURL string `json:"download_url,omitempty"`
}

// fakeRepo serves the contents API for a small repository.
func fakeRepo(t *testing.T, wantRef string) *Client {
	t.Helper()

	dirs := map[string][]contentEntry{
		"docs": {
			{Type: "file", Name: "intro.md", Path: "docs/intro.md"},
			{Type: "file", Name: ".hidden.md", Path: "docs/.hidden.md"},
			{Type: "file", Name: "logo.svg", Path: "docs/logo.svg"},
			{Type: "dir", Name: "guides", Path: "docs/guides"},
		},
		"docs/guides": {
			{Type: "file", Name: "setup.txt", Path: "docs/guides/setup.txt"},
		},
	}
	files := map[string]string{
		"docs/intro.md":         "# Intro\n\nWelcome.",
		"docs/guides/setup.txt": "Run the installer.",
	}
	// Large files come back with encoding "none" and must be downloaded.
	large := map[string]string{
		"archive/big.txt": "Archived release notes.",
	}

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if body, ok := large[strings.TrimPrefix(r.URL.Path, "/raw/")]; ok {
			_, _ = w.Write([]byte(body))
			return
		}

		assert.Equal(t, wantRef, r.URL.Query().Get("ref"))

		p := strings.TrimPrefix(r.URL.Path, "/repos/acme/handbook/contents/")
		w.Header().Set("Content-Type", "application/json")
		if p == "archive" {
			_ = json.NewEncoder(w).Encode([]contentEntry{{
				Type:        "file",
				Name:        "big.txt",
				Path:        "archive/big.txt",
				DownloadURL: server.URL + "/raw/archive/big.txt",
			}})
			return
		}
		if _, ok := large[p]; ok {
			_ = json.NewEncoder(w).Encode(contentEntry{Type: "file", Name: "big.txt", Path: p, Encoding: "none"})
			return
		}
		if entries, ok := dirs[p]; ok {
			_ = json.NewEncoder(w).Encode(entries)
			return
		}
		if body, ok := files[p]; ok {
			_ = json.NewEncoder(w).Encode(contentEntry{
				Type:     "file",
				Name:     p[strings.LastIndex(p, "/")+1:],
				Path:     p,
				Encoding: "base64",
				Content:  wrap(base64.StdEncoding.EncodeToString([]byte(body)), 8),
				SHA:      "abc123",
			})
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	t.Cleanup(server.Close)

	client, err := NewClient("", nil)
	require.NoError(t, err)
	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base
	return client
}

// wrap breaks s into lines of n characters, the way the contents API wraps base64.
func wrap(s string, n int) string {
	var b strings.Builder
	for len(s) > n {
		b.WriteString(s[:n])
		b.WriteString("\n")
		s = s[n:]
	}
	b.WriteString(s)
	return b.String()
}

func TestFetcher_ListFiles(t *testing.T) {
	client := fakeRepo(t, "")
	f := NewFetcher(client, Location{Owner: "acme", Repo: "handbook", Path: "docs"})

	files, err := f.ListFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"intro.md", "logo.svg", "guides/setup.txt"}, files)
}

func TestFetcher_ListFilesWithFilter(t *testing.T) {
	client := fakeRepo(t, "")
	f := NewFetcher(client, Location{Owner: "acme", Repo: "handbook", Path: "docs"}, WithFilter(loader.SupportedPath))

	files, err := f.ListFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"intro.md", "guides/setup.txt"}, files)
}

func TestFetcher_FetchFile(t *testing.T) {
	client := fakeRepo(t, "v2")
	f := NewFetcher(client, Location{Owner: "acme", Repo: "handbook", Path: "docs", Ref: "v2"})

	file, err := f.FetchFile(context.Background(), "guides/setup.txt")
	require.NoError(t, err)
	assert.Equal(t, "guides/setup.txt", file.Path)
	assert.Equal(t, "Run the installer.", string(file.Content))
	assert.Equal(t, "https://raw.githubusercontent.com/acme/handbook/v2/docs/guides/setup.txt", file.URL)
}

func TestFetcher_FetchFileDownloadsLargeFiles(t *testing.T) {
	client := fakeRepo(t, "")
	f := NewFetcher(client, Location{Owner: "acme", Repo: "handbook", Path: "archive"})

	file, err := f.FetchFile(context.Background(), "big.txt")
	require.NoError(t, err)
	assert.Equal(t, "Archived release notes.", string(file.Content))
	assert.Equal(t, "https://raw.githubusercontent.com/acme/handbook/HEAD/archive/big.txt", file.URL)
}

func TestFetcher_FetchFileNotFound(t *testing.T) {
	client := fakeRepo(t, "")
	f := NewFetcher(client, Location{Owner: "acme", Repo: "handbook", Path: "docs"})

	_, err := f.FetchFile(context.Background(), "missing.md")
	assert.ErrorContains(t, err, "docs/missing.md")
}

func TestFetcher_LoadRemote(t *testing.T) {
	client := fakeRepo(t, "")
	f := NewFetcher(client, Location{Owner: "acme", Repo: "handbook", Path: "docs"}, WithFilter(loader.SupportedPath))

	docs, err := loader.New().LoadRemote(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "https://raw.githubusercontent.com/acme/handbook/HEAD/docs/intro.md", docs[0].Metadata.Source)
	assert.Contains(t, docs[0].Content, "Welcome.")
	assert.Equal(t, "Run the installer.", docs[1].Content)
}
