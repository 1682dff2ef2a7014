package repository

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// treePageSize is the requested page size of a tree listing. GitLab caps it
// server side, so Tree follows NextPage.
const treePageSize = 1000

// listPageSize is used for paginated branch and member listings.
const listPageSize = 100

// GitLabClient implements the Operator interface for GitLab repositories
type GitLabClient struct {
	api    GitLabAPI
	config Config
}

// NewGitLabClient creates a new GitLab client with the provided configuration.
// BaseURL is the instance origin (e.g. https://gitlab.example.com); when it is
// empty gitlab.com is used. Retries are disabled: every failure is returned to
// the caller as is.
func NewGitLabClient(config Config, httpClient *http.Client) (*GitLabClient, error) {
	opts := []gitlab.ClientOptionFunc{gitlab.WithoutRetries()}

	// Set custom base URL for self-hosted GitLab if provided
	if config.BaseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(config.BaseURL))
	}
	if httpClient != nil {
		opts = append(opts, gitlab.WithHTTPClient(httpClient))
	}

	client, err := gitlab.NewClient(config.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}

	return NewGitLabClientWithAPI(config, wrapGitLabClient(client)), nil
}

// NewGitLabClientWithAPI builds a client on top of already constructed services.
func NewGitLabClientWithAPI(config Config, api GitLabAPI) *GitLabClient {
	return &GitLabClient{api: api, config: config}
}

// Kind implements Operator.
func (g *GitLabClient) Kind() Kind {
	return KindGitLab
}

// Upload reads the file first; an existing file is updated, a missing one is
// created. The update carries the last commit id seen by the read so GitLab
// rejects it if the file changed in between.
func (g *GitLabClient) Upload(ctx context.Context, repoID, path, branch, content, message string) (*CommitResult, error) {
	filePath := normalizePath(path)
	encoded := base64.StdEncoding.EncodeToString([]byte(content))

	existing, _, err := g.api.RepositoryFiles.GetFile(repoID, filePath, &gitlab.GetFileOptions{
		Ref: gitlab.Ptr(branch),
	}, gitlab.WithContext(ctx))

	var info *gitlab.FileInfo
	switch {
	case err == nil:
		opts := &gitlab.UpdateFileOptions{
			Branch:        gitlab.Ptr(branch),
			Encoding:      gitlab.Ptr("base64"),
			Content:       gitlab.Ptr(encoded),
			CommitMessage: gitlab.Ptr(message),
		}
		if existing != nil && existing.LastCommitID != "" {
			opts.LastCommitID = gitlab.Ptr(existing.LastCommitID)
		}
		info, _, err = g.api.RepositoryFiles.UpdateFile(repoID, filePath, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to update %s on GitLab: %w", filePath, err)
		}
	case IsNotFound(err):
		info, _, err = g.api.RepositoryFiles.CreateFile(repoID, filePath, &gitlab.CreateFileOptions{
			Branch:        gitlab.Ptr(branch),
			Encoding:      gitlab.Ptr("base64"),
			Content:       gitlab.Ptr(encoded),
			CommitMessage: gitlab.Ptr(message),
		}, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s on GitLab: %w", filePath, err)
		}
	default:
		return nil, fmt.Errorf("failed to read %s from GitLab: %w", filePath, err)
	}

	result := &CommitResult{Path: filePath, Branch: branch}
	if info != nil {
		result.Path = info.FilePath
		result.Branch = info.Branch
	}
	return result, nil
}

// Merge creates a merge request assigned to assignee.
func (g *GitLabClient) Merge(ctx context.Context, repoID, source, target, title string, assignee Member) (*MergeResult, error) {
	mr, _, err := g.api.MergeRequests.CreateMergeRequest(repoID, &gitlab.CreateMergeRequestOptions{
		Title:        gitlab.Ptr(title),
		SourceBranch: gitlab.Ptr(source),
		TargetBranch: gitlab.Ptr(target),
		AssigneeID:   gitlab.Ptr(assignee.ID),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create merge request on GitLab: %w", err)
	}

	return &MergeResult{ID: mr.ID, IID: mr.IID, WebURL: mr.WebURL}, nil
}

// Members lists all project members, including inherited ones.
func (g *GitLabClient) Members(ctx context.Context, repoID string) ([]Member, error) {
	opts := &gitlab.ListProjectMembersOptions{
		ListOptions: gitlab.ListOptions{PerPage: listPageSize},
	}

	members := make([]Member, 0)
	page := 1
	for {
		opts.Page = page

		list, resp, err := g.api.ProjectMembers.ListAllProjectMembers(repoID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list members from GitLab: %w", err)
		}
		for _, m := range list {
			members = append(members, Member{Username: m.Username, ID: m.ID})
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}

	return members, nil
}

// Raw returns the raw content of a file at ref.
func (g *GitLabClient) Raw(ctx context.Context, repoID, path, ref string) (string, error) {
	filePath := normalizePath(path)

	data, _, err := g.api.RepositoryFiles.GetRawFile(repoID, filePath, &gitlab.GetRawFileOptions{
		Ref: gitlab.Ptr(ref),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to get file content from GitLab: %w", err)
	}

	return string(data), nil
}

// Tree lists a single directory level of branch, following every page.
func (g *GitLabClient) Tree(ctx context.Context, repoID, branch, path string) ([]TreeEntry, error) {
	opts := &gitlab.ListTreeOptions{
		ListOptions: gitlab.ListOptions{
			PerPage: treePageSize,
		},
	}
	if p := normalizePath(path); p != "" {
		opts.Path = gitlab.Ptr(p)
	}
	if branch != "" {
		opts.Ref = gitlab.Ptr(branch)
	}

	entries := make([]TreeEntry, 0)
	page := 1
	for {
		opts.Page = page

		nodes, resp, err := g.api.Repositories.ListTree(repoID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list files from GitLab: %w", err)
		}
		for _, node := range nodes {
			entries = append(entries, TreeEntry{
				Name: node.Name,
				Type: node.Type,
				Path: node.Path,
			})
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}

	return entries, nil
}

// DefaultBranch returns the project's default branch or FallbackBranch.
func (g *GitLabClient) DefaultBranch(ctx context.Context, repoID string) (string, error) {
	project, _, err := g.api.Projects.GetProject(repoID, nil, gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to get repository info from GitLab: %w", err)
	}

	if project == nil || project.DefaultBranch == "" {
		return FallbackBranch, nil
	}
	return project.DefaultBranch, nil
}

// Branches lists every branch name of the project.
func (g *GitLabClient) Branches(ctx context.Context, repoID string) ([]string, error) {
	opts := &gitlab.ListBranchesOptions{
		ListOptions: gitlab.ListOptions{PerPage: listPageSize},
	}

	names := make([]string, 0)
	page := 1
	for {
		opts.Page = page

		branches, resp, err := g.api.Branches.ListBranches(repoID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list branches from GitLab: %w", err)
		}
		for _, b := range branches {
			names = append(names, b.Name)
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}

	return names, nil
}

// isGitLabNotFound reports whether err is a GitLab 404 response.
func isGitLabNotFound(err error) bool {
	var errResp *gitlab.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return errResp.Response.StatusCode == http.StatusNotFound
	}
	return false
}
