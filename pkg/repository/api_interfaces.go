package repository

// This file defines narrow interfaces and lightweight wrappers around the
// GitLab API client. Only the methods the GitLab backend calls are exposed,
// so unit tests can inject deterministic fakes without HTTP.
//
// To use in tests:
//   - Create a struct implementing the needed interface(s).
//   - Build a GitLabAPI from them and pass it to NewGitLabClientWithAPI.

import (
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// GitLabProjectsService abstracts project metadata retrieval.
type GitLabProjectsService interface {
	GetProject(projectID string, opts *gitlab.GetProjectOptions, options ...gitlab.RequestOptionFunc) (*gitlab.Project, *gitlab.Response, error)
}

// GitLabRepositoriesService abstracts tree listing operations.
type GitLabRepositoriesService interface {
	ListTree(projectID string, opts *gitlab.ListTreeOptions, options ...gitlab.RequestOptionFunc) ([]*gitlab.TreeNode, *gitlab.Response, error)
}

// GitLabRepositoryFilesService abstracts file reads and writes.
type GitLabRepositoryFilesService interface {
	GetFile(projectID string, filePath string, opts *gitlab.GetFileOptions, options ...gitlab.RequestOptionFunc) (*gitlab.File, *gitlab.Response, error)
	GetRawFile(projectID string, filePath string, opts *gitlab.GetRawFileOptions, options ...gitlab.RequestOptionFunc) ([]byte, *gitlab.Response, error)
	CreateFile(projectID string, filePath string, opts *gitlab.CreateFileOptions, options ...gitlab.RequestOptionFunc) (*gitlab.FileInfo, *gitlab.Response, error)
	UpdateFile(projectID string, filePath string, opts *gitlab.UpdateFileOptions, options ...gitlab.RequestOptionFunc) (*gitlab.FileInfo, *gitlab.Response, error)
}

// GitLabBranchesService abstracts branch listing.
type GitLabBranchesService interface {
	ListBranches(projectID string, opts *gitlab.ListBranchesOptions, options ...gitlab.RequestOptionFunc) ([]*gitlab.Branch, *gitlab.Response, error)
}

// GitLabProjectMembersService abstracts member listing (inherited members included).
type GitLabProjectMembersService interface {
	ListAllProjectMembers(projectID string, opts *gitlab.ListProjectMembersOptions, options ...gitlab.RequestOptionFunc) ([]*gitlab.ProjectMember, *gitlab.Response, error)
}

// GitLabMergeRequestsService abstracts merge request creation.
type GitLabMergeRequestsService interface {
	CreateMergeRequest(projectID string, opts *gitlab.CreateMergeRequestOptions, options ...gitlab.RequestOptionFunc) (*gitlab.MergeRequest, *gitlab.Response, error)
}

// gitlabProjectsWrapper is the production wrapper for project metadata.
type gitlabProjectsWrapper struct {
	client *gitlab.Client
}

func (w *gitlabProjectsWrapper) GetProject(projectID string, opts *gitlab.GetProjectOptions, options ...gitlab.RequestOptionFunc) (*gitlab.Project, *gitlab.Response, error) {
	return w.client.Projects.GetProject(projectID, opts, options...)
}

// gitlabRepositoriesWrapper is the production wrapper for listing repository trees.
type gitlabRepositoriesWrapper struct {
	client *gitlab.Client
}

func (w *gitlabRepositoriesWrapper) ListTree(projectID string, opts *gitlab.ListTreeOptions, options ...gitlab.RequestOptionFunc) ([]*gitlab.TreeNode, *gitlab.Response, error) {
	return w.client.Repositories.ListTree(projectID, opts, options...)
}

// gitlabRepositoryFilesWrapper is the production wrapper for file access.
type gitlabRepositoryFilesWrapper struct {
	client *gitlab.Client
}

func (w *gitlabRepositoryFilesWrapper) GetFile(projectID string, filePath string, opts *gitlab.GetFileOptions, options ...gitlab.RequestOptionFunc) (*gitlab.File, *gitlab.Response, error) {
	return w.client.RepositoryFiles.GetFile(projectID, filePath, opts, options...)
}

func (w *gitlabRepositoryFilesWrapper) GetRawFile(projectID string, filePath string, opts *gitlab.GetRawFileOptions, options ...gitlab.RequestOptionFunc) ([]byte, *gitlab.Response, error) {
	return w.client.RepositoryFiles.GetRawFile(projectID, filePath, opts, options...)
}

func (w *gitlabRepositoryFilesWrapper) CreateFile(projectID string, filePath string, opts *gitlab.CreateFileOptions, options ...gitlab.RequestOptionFunc) (*gitlab.FileInfo, *gitlab.Response, error) {
	return w.client.RepositoryFiles.CreateFile(projectID, filePath, opts, options...)
}

func (w *gitlabRepositoryFilesWrapper) UpdateFile(projectID string, filePath string, opts *gitlab.UpdateFileOptions, options ...gitlab.RequestOptionFunc) (*gitlab.FileInfo, *gitlab.Response, error) {
	return w.client.RepositoryFiles.UpdateFile(projectID, filePath, opts, options...)
}

// gitlabBranchesWrapper is the production wrapper for branch listing.
type gitlabBranchesWrapper struct {
	client *gitlab.Client
}

func (w *gitlabBranchesWrapper) ListBranches(projectID string, opts *gitlab.ListBranchesOptions, options ...gitlab.RequestOptionFunc) ([]*gitlab.Branch, *gitlab.Response, error) {
	return w.client.Branches.ListBranches(projectID, opts, options...)
}

// gitlabProjectMembersWrapper is the production wrapper for member listing.
type gitlabProjectMembersWrapper struct {
	client *gitlab.Client
}

func (w *gitlabProjectMembersWrapper) ListAllProjectMembers(projectID string, opts *gitlab.ListProjectMembersOptions, options ...gitlab.RequestOptionFunc) ([]*gitlab.ProjectMember, *gitlab.Response, error) {
	return w.client.ProjectMembers.ListAllProjectMembers(projectID, opts, options...)
}

// gitlabMergeRequestsWrapper is the production wrapper for merge requests.
type gitlabMergeRequestsWrapper struct {
	client *gitlab.Client
}

func (w *gitlabMergeRequestsWrapper) CreateMergeRequest(projectID string, opts *gitlab.CreateMergeRequestOptions, options ...gitlab.RequestOptionFunc) (*gitlab.MergeRequest, *gitlab.Response, error) {
	return w.client.MergeRequests.CreateMergeRequest(projectID, opts, options...)
}

// GitLabAPI groups the narrowed GitLab service interfaces.
type GitLabAPI struct {
	Projects        GitLabProjectsService
	Repositories    GitLabRepositoriesService
	RepositoryFiles GitLabRepositoryFilesService
	Branches        GitLabBranchesService
	ProjectMembers  GitLabProjectMembersService
	MergeRequests   GitLabMergeRequestsService
}

// wrapGitLabClient constructs GitLabAPI from a *gitlab.Client.
func wrapGitLabClient(c *gitlab.Client) GitLabAPI {
	return GitLabAPI{
		Projects:        &gitlabProjectsWrapper{client: c},
		Repositories:    &gitlabRepositoriesWrapper{client: c},
		RepositoryFiles: &gitlabRepositoryFilesWrapper{client: c},
		Branches:        &gitlabBranchesWrapper{client: c},
		ProjectMembers:  &gitlabProjectMembersWrapper{client: c},
		MergeRequests:   &gitlabMergeRequestsWrapper{client: c},
	}
}
