package gitlib

import (
	"context"
	"errors"
	"fmt"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrNoCredentials is returned by the credentials callback when the remote
// asks for authentication but no token was configured.
var ErrNoCredentials = errors.New("remote requires credentials")

// Repository wraps a libgit2 repository with a working tree.
type Repository struct {
	repo *git2go.Repository
	path string
}

// Credentials authenticate HTTPS clones. Token is used as the password.
type Credentials struct {
	Username string
	Token    string
}

// OpenRepository opens a git repository at the given path.
func OpenRepository(path string) (*Repository, error) {
	repo, err := git2go.OpenRepository(path)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo, path: path}, nil
}

// Clone clones url into path and checks out the default branch.
// Credentials are only offered when the remote asks for them.
func Clone(ctx context.Context, url, path string, creds Credentials) (*Repository, error) {
	opts := &git2go.CloneOptions{
		FetchOptions: git2go.FetchOptions{
			RemoteCallbacks: git2go.RemoteCallbacks{
				CredentialsCallback: credentialsCallback(creds),
				TransferProgressCallback: func(git2go.TransferProgress) error {
					return ctx.Err()
				},
			},
		},
	}

	repo, err := git2go.Clone(url, path, opts)
	if err != nil {
		return nil, fmt.Errorf("clone repository: %w", err)
	}

	return &Repository{repo: repo, path: path}, nil
}

func credentialsCallback(creds Credentials) git2go.CredentialsCallback {
	return func(_ string, _ string, allowed git2go.CredentialType) (*git2go.Credential, error) {
		if creds.Token == "" || allowed&git2go.CredentialTypeUserpassPlaintext == 0 {
			return nil, ErrNoCredentials
		}

		cred, err := git2go.NewCredentialUserpassPlaintext(creds.Username, creds.Token)
		if err != nil {
			return nil, fmt.Errorf("build credentials: %w", err)
		}

		return cred, nil
	}
}

// Path returns the repository working directory.
func (r *Repository) Path() string {
	return r.path
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// Head returns the HEAD reference target.
func (r *Repository) Head() (Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return Hash{}, fmt.Errorf("get HEAD: %w", err)
	}
	defer ref.Free()

	return HashFromOid(ref.Target()), nil
}

// Checkout detaches HEAD at hash and forces the working tree to match it.
// Files that do not exist in the target commit are removed.
func (r *Repository) Checkout(hash Hash) error {
	commit, err := r.repo.LookupCommit(hash.ToOid())
	if err != nil {
		return fmt.Errorf("lookup commit %s: %w", hash, err)
	}
	defer commit.Free()

	tree, err := commit.Tree()
	if err != nil {
		return fmt.Errorf("get tree of %s: %w", hash, err)
	}
	defer tree.Free()

	err = r.repo.CheckoutTree(tree, &git2go.CheckoutOptions{
		Strategy: git2go.CheckoutForce | git2go.CheckoutRemoveUntracked,
	})
	if err != nil {
		return fmt.Errorf("checkout %s: %w", hash, err)
	}

	err = r.repo.SetHeadDetached(hash.ToOid())
	if err != nil {
		return fmt.Errorf("detach HEAD at %s: %w", hash, err)
	}

	return nil
}

// Signature is the committer of a log entry. When keeps the committer's
// own offset.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// LogEntry is one commit of the log.
type LogEntry struct {
	Hash      Hash
	Committer Signature
}

// Log lists the commits reachable from HEAD, oldest first. Commits whose
// committer time is before since are skipped; a zero since keeps everything.
func (r *Repository) Log(since time.Time) ([]LogEntry, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}
	defer walk.Free()

	err = walk.PushHead()
	if err != nil {
		return nil, fmt.Errorf("push HEAD to revwalk: %w", err)
	}

	// Topological order guarantees parents come before children once reversed.
	walk.Sorting(git2go.SortTime | git2go.SortTopological)

	var entries []LogEntry

	err = walk.Iterate(func(commit *git2go.Commit) bool {
		defer commit.Free()

		sig := commit.Committer()
		if !since.IsZero() && sig.When.Before(since) {
			return true
		}

		entries = append(entries, LogEntry{
			Hash:      HashFromOid(commit.Id()),
			Committer: Signature{Name: sig.Name, Email: sig.Email, When: sig.When},
		})

		return true
	})
	if err != nil {
		return nil, fmt.Errorf("revwalk iterate: %w", err)
	}

	reverseEntries(entries)

	return entries, nil
}

// reverseEntries reverses the order of commits (to oldest first).
func reverseEntries(entries []LogEntry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
