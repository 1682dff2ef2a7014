// Package report summarizes the registered repositories and their trees for
// console output.
package report

import (
	"context"
	"fmt"

	"github.com/greg-hellings/gitexplorer/pkg/explorer"
	"github.com/greg-hellings/gitexplorer/pkg/repository"
	"github.com/greg-hellings/gitexplorer/pkg/state"
)

// RepositoryReport describes one registry entry after resolution.
type RepositoryReport struct {
	Host   string
	RepoID string
	Kind   repository.Kind
	Branch string
	// Token is redacted.
	Token string
	Error error
}

// Report contains the resolution results for the whole registry.
type Report struct {
	Repositories []RepositoryReport
}

// New builds a report from explorer resolutions.
func New(resolved []explorer.Resolution) *Report {
	rpt := &Report{Repositories: make([]RepositoryReport, 0, len(resolved))}
	for _, r := range resolved {
		rr := RepositoryReport{
			Host:  r.Repository.Host,
			Token: state.RedactToken(r.Repository.Token),
			Error: r.Err,
		}
		if r.Node != nil {
			rr.RepoID = r.Node.RepoID
			rr.Branch = r.Node.Branch
			if op, err := r.Node.Operator(); err == nil {
				rr.Kind = op.Kind()
			}
		}
		rpt.Repositories = append(rpt.Repositories, rr)
	}
	return rpt
}

// GetRepoIdentifier returns the repository id, or the host when resolution
// failed before an id was known.
func (r *RepositoryReport) GetRepoIdentifier() string {
	if r.RepoID != "" {
		return r.RepoID
	}
	return r.Host
}

// HasErrors returns true if any repository failed to resolve
func (r *Report) HasErrors() bool {
	for _, rr := range r.Repositories {
		if rr.Error != nil {
			return true
		}
	}
	return false
}

// GetErrors returns a map of host to error for failed repositories
func (r *Report) GetErrors() map[string]error {
	errs := make(map[string]error)
	for _, rr := range r.Repositories {
		if rr.Error != nil {
			errs[rr.Host] = rr.Error
		}
	}
	return errs
}

// TreeReport is an expanded subtree. Error is set when the node's children
// could not be listed.
type TreeReport struct {
	Name     string
	Path     string
	Kind     explorer.NodeKind
	Children []*TreeReport
	Error    error
}

// BuildTree expands node depth levels deep, one Children call per expanded
// directory. A depth of 0 lists only the node itself.
func BuildTree(ctx context.Context, node *explorer.Node, depth int) (*TreeReport, error) {
	if node == nil {
		return nil, fmt.Errorf("nil node")
	}

	tr := &TreeReport{Name: node.Name, Path: node.Path, Kind: node.Kind()}
	if depth <= 0 || node.IsFile {
		return tr, nil
	}

	children, err := node.Children(ctx)
	if err != nil {
		tr.Error = err
		return tr, nil
	}
	for _, child := range children {
		sub, err := BuildTree(ctx, child, depth-1)
		if err != nil {
			return nil, err
		}
		tr.Children = append(tr.Children, sub)
	}
	return tr, nil
}
