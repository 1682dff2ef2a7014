// Package repository provides the Operator abstraction over Git hosting
// providers (GitLab and Gitee) used by the explorer. Each provider translates
// the same small set of operations (file read/write, directory listing,
// branches, members, merge requests) into its own wire protocol and
// normalizes the results into the types declared here.
package repository

import (
	"context"
	"errors"
)

// FallbackBranch is used whenever a backend reports no default branch.
const FallbackBranch = "master"

// Object types reported by both backends' tree endpoints.
const (
	EntryBlob = "blob"
	EntryTree = "tree"
)

// ErrNotImplemented is returned for operations a backend does not support.
var ErrNotImplemented = errors.New("operation not implemented")

// Kind identifies an Operator implementation.
type Kind string

const (
	// KindGitLab is the GitLab-compatible backend (the default for any host).
	KindGitLab Kind = "gitlab"
	// KindGitee is the Gitee backend.
	KindGitee Kind = "gitee"
)

// TreeEntry is one item of a single directory listing.
type TreeEntry struct {
	Name string // Base name of the entry
	Type string // EntryBlob or EntryTree
	Path string // Full slash-separated path within the repository
}

// IsFile reports whether the entry is a blob.
func (e TreeEntry) IsFile() bool {
	return e.Type == EntryBlob
}

// Member is a user that can be assigned to a merge request.
type Member struct {
	Username string
	ID       int
}

// CommitResult describes the outcome of an Upload.
type CommitResult struct {
	Path      string
	Branch    string
	CommitSHA string // Empty when the backend does not report it
}

// MergeResult identifies a created merge request.
type MergeResult struct {
	ID     int
	IID    int
	WebURL string
}

// Operator defines the operations the explorer needs from a Git hosting
// provider. repoID is the provider's project path ("group/project").
//
// Directory listing cost differs per backend: GitLab lists one directory per
// request, while Gitee fetches the whole branch tree and filters it locally,
// so a single Tree call is proportional to the repository size there.
type Operator interface {
	// Kind names the backend variant.
	Kind() Kind

	// Upload creates the file at path on branch, or updates it when it
	// already exists. content is the plain file content; backends encode it
	// as their API requires.
	Upload(ctx context.Context, repoID, path, branch, content, message string) (*CommitResult, error)

	// Merge opens a merge request from source into target assigned to assignee.
	Merge(ctx context.Context, repoID, source, target, title string, assignee Member) (*MergeResult, error)

	// Members lists the users that can be assigned in the repository.
	Members(ctx context.Context, repoID string) ([]Member, error)

	// Raw returns the content of the file at path on ref.
	Raw(ctx context.Context, repoID, path, ref string) (string, error)

	// Tree lists the direct children of path on branch.
	Tree(ctx context.Context, repoID, branch, path string) ([]TreeEntry, error)

	// DefaultBranch returns the repository's default branch, or
	// FallbackBranch when the provider reports none.
	DefaultBranch(ctx context.Context, repoID string) (string, error)

	// Branches lists branch names.
	Branches(ctx context.Context, repoID string) ([]string, error)
}

// Config holds common configuration for repository clients
type Config struct {
	// Token is the authentication token for accessing private repositories
	// For GitLab: Personal Access Token
	// For Gitee: personal access_token
	Token string

	// BaseURL is the base URL for the API endpoint.
	// For GitLab this is the instance origin (api/v4 is appended by the
	// client library); for Gitee it is the full API root.
	BaseURL string
}

// normalizePath strips leading and trailing slashes so that the repository
// root ("/") becomes the empty path.
func normalizePath(p string) string {
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	for len(p) > 0 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	return p
}

// baseName returns the last element of a slash-separated path.
// e.g., "path/to/file.txt" -> "file.txt"
func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
