// Package repolist parses the list of tracked repositories and derives their
// storage keys and clone URLs.
package repolist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Sentinel errors.
var (
	ErrEmptyEntry   = errors.New("empty repository entry")
	ErrInvalidEntry = errors.New("invalid repository entry")
)

var keySeparators = regexp.MustCompile(`[/\\:\s]+`)

// Repo is one tracked repository.
type Repo struct {
	// Name is the entry as written, e.g. "owner/name" or a full URL.
	Name string
	// Key names the repository's history, badge and chart artifacts.
	Key string
	// URL is what gets cloned.
	URL string
}

// Key derives the storage key of a repository name: path separators, colons
// and whitespace runs become a single '-'.
func Key(name string) string {
	return keySeparators.ReplaceAllString(strings.TrimSpace(name), "-")
}

// New builds a Repo from an entry. "owner/name" entries are cloned from
// baseURL; entries carrying a scheme (or scp-like git@host:path) are cloned
// as given and keyed by their path without a ".git" suffix.
func New(entry, baseURL string) (Repo, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return Repo{}, ErrEmptyEntry
	}

	if strings.Contains(entry, "://") || strings.HasPrefix(entry, "git@") {
		name := nameFromURL(entry)
		if name == "" {
			return Repo{}, fmt.Errorf("%w: %q", ErrInvalidEntry, entry)
		}

		return Repo{Name: name, Key: Key(name), URL: entry}, nil
	}

	name := strings.Trim(strings.TrimSuffix(entry, ".git"), "/")
	if name == "" || strings.ContainsAny(name, " \t") {
		return Repo{}, fmt.Errorf("%w: %q", ErrInvalidEntry, entry)
	}

	return Repo{
		Name: name,
		Key:  Key(name),
		URL:  strings.TrimSuffix(baseURL, "/") + "/" + name + ".git",
	}, nil
}

func nameFromURL(raw string) string {
	rest := raw

	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+len("://"):]
		if j := strings.Index(rest, "/"); j >= 0 {
			rest = rest[j+1:]
		} else {
			return ""
		}
	} else if i := strings.Index(rest, ":"); i >= 0 {
		rest = rest[i+1:]
	}

	return strings.Trim(strings.TrimSuffix(strings.TrimSuffix(rest, "/"), ".git"), "/")
}

// Rejected is an entry that could not be turned into a Repo.
type Rejected struct {
	Entry string
	// Line is the 1-based line of a repos file entry, 0 otherwise.
	Line int
	Err  error
}

func (r Rejected) Error() string {
	if r.Line > 0 {
		return fmt.Sprintf("line %d: %v", r.Line, r.Err)
	}

	return r.Err.Error()
}

func (r Rejected) Unwrap() error { return r.Err }

// Parse reads one entry per line. Blank lines and lines starting with '#'
// are skipped; duplicates keep their first occurrence. Malformed entries are
// returned as rejected and do not stop the others. The error is only set
// when r fails.
func Parse(r io.Reader, baseURL string) ([]Repo, []Rejected, error) {
	var (
		repos    []Repo
		rejected []Rejected
	)

	seen := make(map[string]bool)
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		repo, err := New(line, baseURL)
		if err != nil {
			rejected = append(rejected, Rejected{Entry: line, Line: lineNo, Err: err})

			continue
		}

		if seen[repo.Key] {
			continue
		}

		seen[repo.Key] = true
		repos = append(repos, repo)
	}

	err := scanner.Err()
	if err != nil {
		return nil, nil, fmt.Errorf("read repository list: %w", err)
	}

	return repos, rejected, nil
}

// Load parses the file at path. A missing file yields no repositories.
func Load(path, baseURL string) ([]Repo, []Rejected, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, nil
	}

	if err != nil {
		return nil, nil, fmt.Errorf("open repository list: %w", err)
	}
	defer file.Close()

	return Parse(file, baseURL)
}

// Merge appends entries to repos, skipping keys already present. Malformed
// entries are returned as rejected.
func Merge(repos []Repo, entries []string, baseURL string) ([]Repo, []Rejected) {
	var rejected []Rejected

	seen := make(map[string]bool, len(repos))
	for _, r := range repos {
		seen[r.Key] = true
	}

	for _, entry := range entries {
		repo, err := New(entry, baseURL)
		if err != nil {
			rejected = append(rejected, Rejected{Entry: entry, Err: err})

			continue
		}

		if seen[repo.Key] {
			continue
		}

		seen[repo.Key] = true
		repos = append(repos, repo)
	}

	return repos, rejected
}
