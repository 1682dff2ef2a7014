package repository

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-querystring/query"
	"github.com/hashicorp/go-cleanhttp"
)

// DefaultGiteeAPIURL is the public Gitee REST v5 root.
const DefaultGiteeAPIURL = "https://gitee.com/api/v5"

// GiteeError is returned for any non-2xx Gitee response.
type GiteeError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *GiteeError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gitee: %s %s: %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("gitee: %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from either backend.
func IsNotFound(err error) bool {
	var giteeErr *GiteeError
	if errors.As(err, &giteeErr) {
		return giteeErr.StatusCode == http.StatusNotFound
	}
	return isGitLabNotFound(err)
}

// GiteeClient implements the Operator interface against the Gitee REST API
// with plain HTTP requests. The token travels as the access_token query
// parameter on every call.
type GiteeClient struct {
	http    *http.Client
	baseURL string
	config  Config
}

// NewGiteeClient creates a Gitee client. An empty BaseURL selects
// DefaultGiteeAPIURL; a nil httpClient selects a pooled client.
func NewGiteeClient(config Config, httpClient *http.Client) *GiteeClient {
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
	}
	base := config.BaseURL
	if base == "" {
		base = DefaultGiteeAPIURL
	}
	return &GiteeClient{
		http:    httpClient,
		baseURL: strings.TrimRight(base, "/"),
		config:  config,
	}
}

// giteeQuery is encoded into the query string of every request.
type giteeQuery struct {
	AccessToken string `url:"access_token"`
	Ref         string `url:"ref,omitempty"`
	Recursive   int    `url:"recursive,omitempty"`
	Page        int    `url:"page,omitempty"`
	PerPage     int    `url:"per_page,omitempty"`
}

type giteeContentBody struct {
	Content string `json:"content"`
	Message string `json:"message"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

type giteeContent struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Content  string `json:"content"`
	SHA      string `json:"sha"`
}

type giteeCommitResponse struct {
	Content struct {
		Path string `json:"path"`
		SHA  string `json:"sha"`
	} `json:"content"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type giteeRepo struct {
	DefaultBranch string `json:"default_branch"`
}

type giteeBranch struct {
	Name string `json:"name"`
}

type giteeTree struct {
	SHA       string `json:"sha"`
	Truncated bool   `json:"truncated"`
	Tree      []struct {
		Path string `json:"path"`
		Mode string `json:"mode"`
		Type string `json:"type"`
		SHA  string `json:"sha"`
	} `json:"tree"`
}

type giteeCollaborator struct {
	ID    int    `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
}

// Kind implements Operator.
func (g *GiteeClient) Kind() Kind {
	return KindGitee
}

// Upload looks up the current sha of path on branch. With a sha the file is
// updated (Gitee requires it), without one it is created.
func (g *GiteeClient) Upload(ctx context.Context, repoID, path, branch, content, message string) (*CommitResult, error) {
	filePath := normalizePath(path)
	endpoint := g.contentsEndpoint(repoID, filePath)

	sha, err := g.fileSHA(ctx, endpoint, branch)
	if err != nil && !IsNotFound(err) {
		return nil, fmt.Errorf("failed to read %s from Gitee: %w", filePath, err)
	}

	body := giteeContentBody{
		Content: base64.StdEncoding.EncodeToString([]byte(content)),
		Message: message,
		Branch:  branch,
	}
	method := http.MethodPost
	if sha != "" {
		method = http.MethodPut
		body.SHA = sha
	}

	var resp giteeCommitResponse
	if err := g.do(ctx, method, endpoint, giteeQuery{}, body, &resp); err != nil {
		return nil, fmt.Errorf("failed to commit %s to Gitee: %w", filePath, err)
	}

	result := &CommitResult{Path: filePath, Branch: branch, CommitSHA: resp.Commit.SHA}
	if resp.Content.Path != "" {
		result.Path = resp.Content.Path
	}
	return result, nil
}

// fileSHA returns the blob sha of the file behind endpoint, or "" when the
// path holds no file. Gitee answers a missing path with an empty array.
func (g *GiteeClient) fileSHA(ctx context.Context, endpoint, ref string) (string, error) {
	var raw json.RawMessage
	if err := g.do(ctx, http.MethodGet, endpoint, giteeQuery{Ref: ref}, nil, &raw); err != nil {
		return "", err
	}
	if isJSONArray(raw) {
		return "", nil
	}
	var content giteeContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return "", fmt.Errorf("failed to decode Gitee contents: %w", err)
	}
	return content.SHA, nil
}

// Merge is not supported: Gitee pull requests were never mapped onto the
// merge request model.
func (g *GiteeClient) Merge(_ context.Context, _, _, _, _ string, _ Member) (*MergeResult, error) {
	return nil, fmt.Errorf("gitee merge request: %w", ErrNotImplemented)
}

// Members lists the first page (100) of repository collaborators.
func (g *GiteeClient) Members(ctx context.Context, repoID string) ([]Member, error) {
	var collaborators []giteeCollaborator
	if err := g.do(ctx, http.MethodGet, "/repos/"+repoID+"/collaborators",
		giteeQuery{Page: 1, PerPage: listPageSize}, nil, &collaborators); err != nil {
		return nil, fmt.Errorf("failed to list members from Gitee: %w", err)
	}

	members := make([]Member, 0, len(collaborators))
	for _, c := range collaborators {
		members = append(members, Member{Username: c.Login, ID: c.ID})
	}
	return members, nil
}

// Raw fetches the file at ref and decodes its base64 content as text.
func (g *GiteeClient) Raw(ctx context.Context, repoID, path, ref string) (string, error) {
	filePath := normalizePath(path)

	var raw json.RawMessage
	if err := g.do(ctx, http.MethodGet, g.contentsEndpoint(repoID, filePath), giteeQuery{Ref: ref}, nil, &raw); err != nil {
		return "", fmt.Errorf("failed to get file content from Gitee: %w", err)
	}
	if isJSONArray(raw) {
		return "", fmt.Errorf("path is not a file: %s", filePath)
	}

	var content giteeContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return "", fmt.Errorf("failed to decode Gitee contents: %w", err)
	}

	decoded, err := base64.StdEncoding.DecodeString(content.Content)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64 content: %w", err)
	}
	return string(decoded), nil
}

// Tree fetches the whole branch tree recursively and keeps the direct
// children of path. Gitee offers no path-scoped listing.
func (g *GiteeClient) Tree(ctx context.Context, repoID, branch, path string) ([]TreeEntry, error) {
	var tree giteeTree
	if err := g.do(ctx, http.MethodGet, "/repos/"+repoID+"/git/trees/"+url.PathEscape(branch),
		giteeQuery{Recursive: 1}, nil, &tree); err != nil {
		return nil, fmt.Errorf("failed to get repository tree from Gitee: %w", err)
	}
	if tree.Truncated {
		slog.Warn("Gitee tree listing truncated", "repo", repoID, "branch", branch)
	}

	entries := make([]TreeEntry, 0, len(tree.Tree))
	for _, item := range tree.Tree {
		entries = append(entries, TreeEntry{
			Name: baseName(item.Path),
			Type: item.Type,
			Path: item.Path,
		})
	}
	return DirectChildren(entries, path), nil
}

// DirectChildren keeps the entries that sit exactly one level below dir.
// The directory itself, deeper descendants and siblings that merely share a
// name prefix are dropped.
func DirectChildren(entries []TreeEntry, dir string) []TreeEntry {
	prefix := normalizePath(dir)
	if prefix != "" {
		prefix += "/"
	}

	children := make([]TreeEntry, 0)
	for _, e := range entries {
		if !strings.HasPrefix(e.Path, prefix) {
			continue
		}
		rest := e.Path[len(prefix):]
		if rest == "" || strings.Contains(rest, "/") {
			continue
		}
		children = append(children, e)
	}
	return children
}

// DefaultBranch returns the repository's default branch or FallbackBranch.
func (g *GiteeClient) DefaultBranch(ctx context.Context, repoID string) (string, error) {
	var repo giteeRepo
	if err := g.do(ctx, http.MethodGet, "/repos/"+repoID, giteeQuery{}, nil, &repo); err != nil {
		return "", fmt.Errorf("failed to get repository info from Gitee: %w", err)
	}
	if repo.DefaultBranch == "" {
		return FallbackBranch, nil
	}
	return repo.DefaultBranch, nil
}

// Branches lists branch names.
func (g *GiteeClient) Branches(ctx context.Context, repoID string) ([]string, error) {
	var branches []giteeBranch
	if err := g.do(ctx, http.MethodGet, "/repos/"+repoID+"/branches", giteeQuery{}, nil, &branches); err != nil {
		return nil, fmt.Errorf("failed to list branches from Gitee: %w", err)
	}

	names := make([]string, 0, len(branches))
	for _, b := range branches {
		names = append(names, b.Name)
	}
	return names, nil
}

func (g *GiteeClient) contentsEndpoint(repoID, filePath string) string {
	segments := strings.Split(filePath, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/repos/" + repoID + "/contents/" + strings.Join(segments, "/")
}

// do performs one API call. endpoint is relative to the API root and may
// contain escaped segments; body, when non-nil, is sent as JSON; out, when
// non-nil, receives the decoded JSON response.
func (g *GiteeClient) do(ctx context.Context, method, endpoint string, q giteeQuery, body, out any) error {
	q.AccessToken = g.config.Token
	values, err := query.Values(q)
	if err != nil {
		return fmt.Errorf("failed to encode query: %w", err)
	}

	u, err := url.Parse(g.baseURL + endpoint)
	if err != nil {
		return fmt.Errorf("invalid Gitee endpoint %q: %w", endpoint, err)
	}
	u.RawQuery = values.Encode()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	}

	slog.Debug("Gitee request", "method", method, "path", u.Path)

	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("failed to close Gitee response body", "error", closeErr)
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read Gitee response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &GiteeError{StatusCode: resp.StatusCode, Method: method, Path: u.Path}
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &msg) == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode Gitee response: %w", err)
	}
	return nil
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
