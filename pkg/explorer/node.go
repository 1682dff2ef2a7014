// Package explorer materializes registered repositories into lazily
// expanding trees and runs the user-facing commands on them.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/greg-hellings/gitexplorer/pkg/repository"
)

// RootPath is the path of a repository root node.
const RootPath = "/"

// ErrNoBinding is returned when a node is built with neither an operator nor
// serialized options to create one.
var ErrNoBinding = errors.New("explorer: node needs an operator or operator options")

// OperatorFactory builds an Operator from construction options.
// *repository.Factory is the production implementation.
type OperatorFactory interface {
	NewOperator(opts repository.Options) (repository.Operator, error)
}

// Binding says how a node reaches its backend: Bound nodes hold a live
// operator, Unbound nodes carry the options needed to create one.
type Binding struct {
	op      repository.Operator
	options string
}

// Bound shares an existing operator.
func Bound(op repository.Operator) Binding {
	return Binding{op: op}
}

// Unbound defers operator creation until first use. options is the JSON
// produced by repository.Options.Encode.
func Unbound(options string) Binding {
	return Binding{options: options}
}

// BoundWithOptions shares op and keeps options for the node's children.
func BoundWithOptions(op repository.Operator, options string) Binding {
	return Binding{op: op, options: options}
}

// IsBound reports whether the binding already holds an operator.
func (b Binding) IsBound() bool {
	return b.op != nil
}

// NodeInfo describes the entry a node represents.
type NodeInfo struct {
	Name   string
	RepoID string
	// Path is slash separated; the repository root is RootPath.
	Path   string
	IsFile bool
	Branch string
}

// NodeKind is the context value a UI attaches to a node.
type NodeKind string

const (
	KindRepo   NodeKind = "repo"
	KindFolder NodeKind = "folder"
	KindFile   NodeKind = "file"
)

// Node is one entry of a repository snapshot at a branch. It is safe for
// concurrent use.
type Node struct {
	NodeInfo

	options string
	factory OperatorFactory

	mu sync.Mutex
	op repository.Operator
}

// NewNode creates a node. A nil factory selects repository.NewFactory().
func NewNode(info NodeInfo, binding Binding, factory OperatorFactory) (*Node, error) {
	if binding.op == nil && binding.options == "" {
		return nil, ErrNoBinding
	}
	if info.Path == "" {
		info.Path = RootPath
	}
	if factory == nil {
		factory = repository.NewFactory()
	}
	return &Node{
		NodeInfo: info,
		options:  binding.options,
		factory:  factory,
		op:       binding.op,
	}, nil
}

// Operator returns the node's operator, creating it from the node options
// on first use.
func (n *Node) Operator() (repository.Operator, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.op != nil {
		return n.op, nil
	}

	opts, err := repository.ParseOptions(n.options)
	if err != nil {
		return nil, err
	}
	op, err := n.factory.NewOperator(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create operator for %s: %w", opts.Host, err)
	}
	n.op = op
	return op, nil
}

// Options returns the serialized operator options, if any.
func (n *Node) Options() string {
	return n.options
}

// Kind returns repo for the root, file or folder otherwise.
func (n *Node) Kind() NodeKind {
	switch {
	case n.Path == RootPath:
		return KindRepo
	case n.IsFile:
		return KindFile
	default:
		return KindFolder
	}
}

// Children lists the node's direct children with one Tree call. Files have
// no children and never reach the backend. Results are not cached.
func (n *Node) Children(ctx context.Context) ([]*Node, error) {
	if n.IsFile {
		return []*Node{}, nil
	}

	op, err := n.Operator()
	if err != nil {
		return nil, err
	}

	entries, err := op.Tree(ctx, n.RepoID, n.Branch, n.Path)
	if err != nil {
		return nil, err
	}

	children := make([]*Node, 0, len(entries))
	for _, e := range entries {
		children = append(children, &Node{
			NodeInfo: NodeInfo{
				Name:   e.Name,
				RepoID: n.RepoID,
				Path:   e.Path,
				IsFile: e.IsFile(),
				Branch: n.Branch,
			},
			options: n.options,
			factory: n.factory,
			op:      op,
		})
	}
	return children, nil
}

// Content returns the file's text at the node's branch.
func (n *Node) Content(ctx context.Context) (string, error) {
	if !n.IsFile {
		return "", fmt.Errorf("%s is not a file", n.Path)
	}
	op, err := n.Operator()
	if err != nil {
		return "", err
	}
	return op.Raw(ctx, n.RepoID, n.Path, n.Branch)
}

// Language returns the presentation language of the node's file name.
func (n *Node) Language() string {
	return LanguageFor(n.Name)
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	if n.Path == RootPath {
		return n.RepoID + "@" + n.Branch
	}
	return n.RepoID + "@" + n.Branch + ":" + strings.TrimPrefix(n.Path, "/")
}

// baseName returns the last element of a slash separated path.
func baseName(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}
