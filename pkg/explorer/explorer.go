package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/greg-hellings/gitexplorer/pkg/registry"
	"github.com/greg-hellings/gitexplorer/pkg/repository"
	"github.com/greg-hellings/gitexplorer/pkg/state"
)

// Default messages used when none are configured.
const (
	DefaultCommitMessage     = "Update from gitexplorer"
	DefaultMergeRequestTitle = "Merge request from gitexplorer"
)

// Explorer turns the registry into root nodes and runs user commands.
type Explorer struct {
	registry *registry.Registry
	factory  OperatorFactory
	ui       UI
	logger   *slog.Logger

	commitMessage string
	mergeTitle    string
}

// Option customizes an Explorer.
type Option func(*Explorer)

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Explorer) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCommitMessage sets the message of commits made by SubmitContent.
func WithCommitMessage(msg string) Option {
	return func(e *Explorer) {
		if msg != "" {
			e.commitMessage = msg
		}
	}
}

// WithMergeRequestTitle sets the title of merge requests.
func WithMergeRequestTitle(title string) Option {
	return func(e *Explorer) {
		if title != "" {
			e.mergeTitle = title
		}
	}
}

// New creates an explorer. A nil factory selects repository.NewFactory().
func New(reg *registry.Registry, factory OperatorFactory, ui UI, opts ...Option) *Explorer {
	if factory == nil {
		factory = repository.NewFactory()
	}
	e := &Explorer{
		registry:      reg,
		factory:       factory,
		ui:            ui,
		logger:        slog.Default(),
		commitMessage: DefaultCommitMessage,
		mergeTitle:    DefaultMergeRequestTitle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resolution is the outcome of resolving one registry entry.
type Resolution struct {
	Repository registry.Repository
	Node       *Node
	Err        error
}

// Resolve resolves every registry entry sequentially, in registry order,
// keeping failures next to successes.
func (e *Explorer) Resolve(ctx context.Context) ([]Resolution, error) {
	repos, err := e.registry.List()
	if err != nil {
		return nil, err
	}

	out := make([]Resolution, 0, len(repos))
	for _, repo := range repos {
		node, err := e.resolveRoot(ctx, repo)
		out = append(out, Resolution{Repository: repo, Node: node, Err: err})
	}
	return out, nil
}

// Roots resolves every registry entry into a root node, in registry order.
// An entry that fails to resolve is logged and skipped; only a registry
// read failure is returned.
func (e *Explorer) Roots(ctx context.Context) ([]*Node, error) {
	resolved, err := e.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	roots := make([]*Node, 0, len(resolved))
	for _, r := range resolved {
		if r.Err != nil {
			e.logger.Warn("Skipping repository",
				"host", r.Repository.Host,
				"token", state.RedactToken(r.Repository.Token),
				"error", r.Err)
			continue
		}
		roots = append(roots, r.Node)
	}
	return roots, nil
}

func (e *Explorer) resolveRoot(ctx context.Context, repo registry.Repository) (*Node, error) {
	origin, repoID, err := SplitRepositoryURL(repo.Host)
	if err != nil {
		return nil, err
	}

	opts := repository.Options{Host: origin, Token: repo.Token}
	encoded, err := opts.Encode()
	if err != nil {
		return nil, err
	}
	op, err := e.factory.NewOperator(opts)
	if err != nil {
		return nil, err
	}

	branch, err := op.DefaultBranch(ctx, repoID)
	if err != nil {
		return nil, err
	}
	if branch == "" {
		branch = repository.FallbackBranch
	}

	e.logger.Debug("Resolved repository", "repo", repoID, "kind", op.Kind(), "branch", branch)

	return NewNode(NodeInfo{
		Name:   repoID,
		RepoID: repoID,
		Path:   RootPath,
		Branch: branch,
	}, BoundWithOptions(op, encoded), e.factory)
}

// NodeFor builds an unbound node for path inside the registered repository
// host without resolving the other registry entries. An empty branch is
// replaced by the repository's default branch.
func (e *Explorer) NodeFor(ctx context.Context, host, filePath, branch string, isFile bool) (*Node, error) {
	repo, ok, err := e.registry.Find(host)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("repository %s is not registered", host)
	}

	origin, repoID, err := SplitRepositoryURL(repo.Host)
	if err != nil {
		return nil, err
	}
	encoded, err := repository.Options{Host: origin, Token: repo.Token}.Encode()
	if err != nil {
		return nil, err
	}

	p := strings.Trim(filePath, "/")
	info := NodeInfo{Name: baseName(p), RepoID: repoID, Path: p, IsFile: isFile, Branch: branch}
	if p == "" {
		info.Name = repoID
		info.Path = RootPath
		info.IsFile = false
	}

	node, err := NewNode(info, Unbound(encoded), e.factory)
	if err != nil {
		return nil, err
	}

	if node.Branch == "" {
		op, err := node.Operator()
		if err != nil {
			return nil, err
		}
		b, err := op.DefaultBranch(ctx, repoID)
		if err != nil {
			return nil, err
		}
		if b == "" {
			b = repository.FallbackBranch
		}
		node.Branch = b
	}
	return node, nil
}

// Register stores host and token, prompting for whichever is empty.
func (e *Explorer) Register(_ context.Context, host, token string) error {
	var err error
	if host == "" {
		host, err = e.ui.Input("Repository URL", false)
		if e.aborted("Register repository", host, err) {
			return ignoreCancel(err)
		}
	}
	if _, _, err := SplitRepositoryURL(host); err != nil {
		return err
	}
	if token == "" {
		token, err = e.ui.Input("Access token", true)
		if e.aborted("Register repository", token, err) {
			return ignoreCancel(err)
		}
	}

	if err := e.registry.Register(host, token); err != nil {
		return err
	}
	e.logger.Info("Registered repository", "host", host, "token", state.RedactToken(token))
	e.ui.Info(fmt.Sprintf("Registered %s", host))
	return nil
}

// RemoveAll clears the registry.
func (e *Explorer) RemoveAll(_ context.Context) error {
	if err := e.registry.Reset(); err != nil {
		return err
	}
	e.ui.Info("Removed all repositories")
	return nil
}

// GetContent fetches a file node and shows it as a read-only document.
func (e *Explorer) GetContent(ctx context.Context, node *Node) error {
	content, err := node.Content(ctx)
	if err != nil {
		return fmt.Errorf("failed to get content of %s: %w", node.Path, err)
	}
	return e.ui.ShowDocument(node.String(), node.Language(), content)
}

// SubmitContent uploads content to a registered repository. The user picks
// the repository, the file path and the branch.
func (e *Explorer) SubmitContent(ctx context.Context, content string) error {
	const action = "Submit content"

	repos, err := e.registry.List()
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		e.ui.Warn("No repositories registered")
		return nil
	}

	hosts := make([]string, 0, len(repos))
	for _, r := range repos {
		hosts = append(hosts, r.Host)
	}
	host, err := e.ui.Pick("Repository", hosts, "")
	if e.aborted(action, host, err) {
		return ignoreCancel(err)
	}

	filePath, err := e.ui.Input("File path", false)
	if e.aborted(action, strings.Trim(filePath, "/ "), err) {
		return ignoreCancel(err)
	}

	root, err := e.NodeFor(ctx, host, "", "", false)
	if err != nil {
		return err
	}
	op, err := root.Operator()
	if err != nil {
		return err
	}

	branches, err := op.Branches(ctx, root.RepoID)
	if err != nil {
		return fmt.Errorf("failed to list branches: %w", err)
	}
	branch, err := e.ui.Pick("Branch", branches, root.Branch)
	if e.aborted(action, branch, err) {
		return ignoreCancel(err)
	}

	res, err := op.Upload(ctx, root.RepoID, filePath, branch, content, e.commitMessage)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", filePath, err)
	}
	e.ui.Info(fmt.Sprintf("Uploaded %s to %s@%s", res.Path, root.RepoID, res.Branch))
	return nil
}

// CreateMergeRequest asks for source, target and assignee, then opens a merge
// request. Missing selections and backend refusals end the flow with a
// warning.
func (e *Explorer) CreateMergeRequest(ctx context.Context, node *Node) error {
	const action = "Create merge request"

	op, err := node.Operator()
	if err != nil {
		return err
	}

	branches, err := op.Branches(ctx, node.RepoID)
	if err != nil {
		return fmt.Errorf("failed to list branches: %w", err)
	}

	source, err := e.ui.Pick("Source branch", branches, node.Branch)
	if errors.Is(err, ErrCancelled) {
		e.ui.Info(action + " cancelled")
		return nil
	} else if err != nil {
		return err
	}
	target, err := e.ui.Pick("Target branch", branches, "")
	if errors.Is(err, ErrCancelled) {
		e.ui.Info(action + " cancelled")
		return nil
	} else if err != nil {
		return err
	}
	if source == "" || target == "" {
		e.ui.Warn("Source and target branches are required")
		return nil
	}

	members, err := op.Members(ctx, node.RepoID)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}
	usernames := make([]string, 0, len(members))
	for _, m := range members {
		usernames = append(usernames, m.Username)
	}

	username, err := e.ui.Pick("Assignee", usernames, "")
	if errors.Is(err, ErrCancelled) {
		e.ui.Info(action + " cancelled")
		return nil
	} else if err != nil {
		return err
	}
	assignee, ok := findMember(members, username)
	if !ok {
		e.ui.Warn("An assignee is required")
		return nil
	}

	res, err := op.Merge(ctx, node.RepoID, source, target, e.mergeTitle, assignee)
	if err != nil {
		e.logger.Warn("Merge request failed", "repo", node.RepoID, "error", err)
		e.ui.Warn(fmt.Sprintf("Failed to create merge request: %v", err))
		return nil
	}

	msg := fmt.Sprintf("Created merge request %d", res.ID)
	if res.WebURL != "" {
		msg += ": " + res.WebURL
	}
	e.ui.Info(msg)
	return nil
}

// CopyPath writes the node path to the clipboard.
func (e *Explorer) CopyPath(node *Node) error {
	return e.copy(node.Path)
}

// CopyName writes the node name to the clipboard.
func (e *Explorer) CopyName(node *Node) error {
	return e.copy(node.Name)
}

func (e *Explorer) copy(text string) error {
	if err := e.ui.WriteClipboard(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	e.ui.Info(fmt.Sprintf("Copied %s", text))
	return nil
}

// aborted reports whether a prompt ended the flow, telling the user so.
func (e *Explorer) aborted(action, answer string, err error) bool {
	if err != nil && !errors.Is(err, ErrCancelled) {
		return true
	}
	if err != nil || strings.TrimSpace(answer) == "" {
		e.ui.Info(action + " cancelled")
		return true
	}
	return false
}

func ignoreCancel(err error) error {
	if errors.Is(err, ErrCancelled) {
		return nil
	}
	return err
}

func findMember(members []repository.Member, username string) (repository.Member, bool) {
	if username == "" {
		return repository.Member{}, false
	}
	for _, m := range members {
		if m.Username == username {
			return m, true
		}
	}
	return repository.Member{}, false
}

// SplitRepositoryURL splits a registered repository URL into the provider
// origin (scheme://authority) and the repository id (path without the
// surrounding slashes).
func SplitRepositoryURL(host string) (origin, repoID string, err error) {
	u, err := url.Parse(strings.TrimSpace(host))
	if err != nil {
		return "", "", fmt.Errorf("invalid repository URL %q: %w", host, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("invalid repository URL %q: scheme and host are required", host)
	}
	repoID = strings.Trim(u.Path, "/")
	if repoID == "" {
		return "", "", fmt.Errorf("invalid repository URL %q: repository path is required", host)
	}
	return u.Scheme + "://" + u.Host, repoID, nil
}
