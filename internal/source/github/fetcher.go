package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/go-github/v81/github"

	"github.com/bull/docqa/internal/loader"
)

// Scheme prefixes a --docs value that points at a GitHub repository.
const Scheme = "github:"

var ErrInvalidLocation = errors.New("invalid github location")

// Location identifies a directory in a GitHub repository.
type Location struct {
	Owner string
	Repo  string
	Path  string // Directory inside the repository, empty for the root
	Ref   string // Branch, tag or commit, empty for the default branch
}

// IsLocation reports whether s uses the github: scheme.
func IsLocation(s string) bool {
	return strings.HasPrefix(s, Scheme)
}

// ParseLocation parses "github:owner/repo[/path][@ref]".
func ParseLocation(s string) (Location, error) {
	if !IsLocation(s) {
		return Location{}, fmt.Errorf("%w: %q lacks the %s prefix", ErrInvalidLocation, s, Scheme)
	}
	rest := strings.TrimPrefix(s, Scheme)

	var loc Location
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		loc.Ref = rest[at+1:]
		rest = rest[:at]
		if loc.Ref == "" {
			return Location{}, fmt.Errorf("%w: empty ref in %q", ErrInvalidLocation, s)
		}
	}

	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Location{}, fmt.Errorf("%w: %q, want github:owner/repo[/path][@ref]", ErrInvalidLocation, s)
	}
	loc.Owner, loc.Repo = parts[0], parts[1]
	if len(parts) == 3 {
		loc.Path = strings.Trim(parts[2], "/")
	}
	return loc, nil
}

// String returns the location in github: form.
func (l Location) String() string {
	s := Scheme + l.Owner + "/" + l.Repo
	if l.Path != "" {
		s += "/" + l.Path
	}
	if l.Ref != "" {
		s += "@" + l.Ref
	}
	return s
}

// Fetcher lists and downloads files below a repository directory. It implements
// loader.RemoteSource.
type Fetcher struct {
	client *Client
	loc    Location
	filter func(string) bool
}

var _ loader.RemoteSource = (*Fetcher)(nil)

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithFilter keeps only files whose path satisfies keep.
func WithFilter(keep func(string) bool) FetcherOption {
	return func(f *Fetcher) { f.filter = keep }
}

// NewFetcher creates a fetcher for loc.
func NewFetcher(client *Client, loc Location, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client: client,
		loc:    loc,
		filter: func(string) bool { return true },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Location returns the repository directory the fetcher reads.
func (f *Fetcher) Location() Location { return f.loc }

func (f *Fetcher) contentOptions() *github.RepositoryContentGetOptions {
	if f.loc.Ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: f.loc.Ref}
}

// ListFiles recursively lists the files below the location, relative to it.
func (f *Fetcher) ListFiles(ctx context.Context) ([]string, error) {
	return f.listRecursive(ctx, f.loc.Path, "")
}

func (f *Fetcher) listRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	var files []string

	_, dirContents, _, err := f.client.Repositories.GetContents(ctx, f.loc.Owner, f.loc.Repo, fullPath, f.contentOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to get contents of %s: %w", fullPath, err)
	}

	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}
		if strings.HasPrefix(*item.Name, ".") {
			continue
		}

		itemRelPath := path.Join(relativePath, *item.Name)

		switch *item.Type {
		case "file":
			if f.filter(itemRelPath) {
				files = append(files, itemRelPath)
			}

		case "dir":
			subFiles, err := f.listRecursive(ctx, path.Join(fullPath, *item.Name), itemRelPath)
			if err != nil {
				return nil, err
			}
			files = append(files, subFiles...)
		}
	}

	return files, nil
}

// FetchFile downloads one file by its path relative to the location.
func (f *Fetcher) FetchFile(ctx context.Context, relativePath string) (*loader.RemoteFile, error) {
	fullPath := path.Join(f.loc.Path, relativePath)

	fileContent, _, _, err := f.client.Repositories.GetContents(ctx, f.loc.Owner, f.loc.Repo, fullPath, f.contentOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to get content of %s: %w", fullPath, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	var content []byte
	if fileContent.GetEncoding() == "none" || fileContent.Content == nil {
		// Files over 1 MB come back without inline content.
		content, err = f.download(ctx, fullPath)
		if err != nil {
			return nil, err
		}
	} else {
		// GetContent decodes base64 itself.
		text, err := fileContent.GetContent()
		if err != nil {
			return nil, fmt.Errorf("failed to decode content of %s: %w", fullPath, err)
		}
		content = []byte(text)
	}

	return &loader.RemoteFile{
		Path:    relativePath,
		URL:     f.rawURL(fullPath),
		Content: content,
	}, nil
}

func (f *Fetcher) download(ctx context.Context, fullPath string) ([]byte, error) {
	rc, _, err := f.client.Repositories.DownloadContents(ctx, f.loc.Owner, f.loc.Repo, fullPath, f.contentOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", fullPath, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fullPath, err)
	}
	return content, nil
}

func (f *Fetcher) rawURL(fullPath string) string {
	ref := f.loc.Ref
	if ref == "" {
		ref = "HEAD"
	}
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", f.loc.Owner, f.loc.Repo, ref, fullPath)
}

// LatestCommitSHA retrieves the SHA of the most recent commit touching the location.
func (f *Fetcher) LatestCommitSHA(ctx context.Context) (string, error) {
	opts := &github.CommitsListOptions{
		Path:        f.loc.Path,
		SHA:         f.loc.Ref,
		ListOptions: github.ListOptions{PerPage: 1},
	}
	commits, _, err := f.client.Repositories.ListCommits(ctx, f.loc.Owner, f.loc.Repo, opts)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}

	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for path %s", f.loc.Path)
	}

	if commits[0].SHA == nil {
		return "", fmt.Errorf("commit SHA is nil")
	}

	return *commits[0].SHA, nil
}
