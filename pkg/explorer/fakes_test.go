package explorer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/greg-hellings/gitexplorer/pkg/repository"
)

// fakeOperator is an in-memory Operator recording every call by name.
type fakeOperator struct {
	mu sync.Mutex

	kind          repository.Kind
	defaultBranch string
	defaultErr    error
	branches      []string
	members       []repository.Member
	tree          map[string][]repository.TreeEntry
	files         map[string]string
	mergeErr      error

	calls   []string
	uploads []upload
	merges  []merge
}

type upload struct {
	repoID, path, branch, content, message string
}

type merge struct {
	repoID, source, target, title string
	assignee                      repository.Member
}

func newFakeOperator() *fakeOperator {
	return &fakeOperator{
		kind:          repository.KindGitLab,
		defaultBranch: "main",
		branches:      []string{"main", "dev"},
		tree:          map[string][]repository.TreeEntry{},
		files:         map[string]string{},
	}
}

func (f *fakeOperator) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeOperator) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeOperator) Kind() repository.Kind { return f.kind }

func (f *fakeOperator) Upload(_ context.Context, repoID, path, branch, content, message string) (*repository.CommitResult, error) {
	f.record("Upload")
	f.mu.Lock()
	f.uploads = append(f.uploads, upload{repoID, path, branch, content, message})
	f.mu.Unlock()
	return &repository.CommitResult{Path: strings.Trim(path, "/"), Branch: branch, CommitSHA: "abc"}, nil
}

func (f *fakeOperator) Merge(_ context.Context, repoID, source, target, title string, assignee repository.Member) (*repository.MergeResult, error) {
	f.record("Merge")
	if f.mergeErr != nil {
		return nil, f.mergeErr
	}
	f.mu.Lock()
	f.merges = append(f.merges, merge{repoID, source, target, title, assignee})
	f.mu.Unlock()
	return &repository.MergeResult{ID: 42, IID: 7, WebURL: "https://gitlab.example.com/g/p/-/merge_requests/7"}, nil
}

func (f *fakeOperator) Members(_ context.Context, _ string) ([]repository.Member, error) {
	f.record("Members")
	return f.members, nil
}

func (f *fakeOperator) Raw(_ context.Context, _, path, _ string) (string, error) {
	f.record("Raw")
	content, ok := f.files[path]
	if !ok {
		return "", errors.New("404 not found")
	}
	return content, nil
}

func (f *fakeOperator) Tree(_ context.Context, _, _, path string) ([]repository.TreeEntry, error) {
	f.record("Tree")
	return f.tree[path], nil
}

func (f *fakeOperator) DefaultBranch(_ context.Context, _ string) (string, error) {
	f.record("DefaultBranch")
	return f.defaultBranch, f.defaultErr
}

func (f *fakeOperator) Branches(_ context.Context, _ string) ([]string, error) {
	f.record("Branches")
	return f.branches, nil
}

// fakeFactory hands out operators keyed by the options' host authority.
type fakeFactory struct {
	mu        sync.Mutex
	operators map[string]*fakeOperator
	built     []repository.Options
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{operators: map[string]*fakeOperator{}}
}

func (f *fakeFactory) add(authority string, op *fakeOperator) {
	f.operators[authority] = op
}

func (f *fakeFactory) NewOperator(opts repository.Options) (repository.Operator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.built = append(f.built, opts)

	u, err := url.Parse(opts.Host)
	if err != nil {
		return nil, err
	}
	op, ok := f.operators[u.Host]
	if !ok {
		return nil, fmt.Errorf("no operator for %s", u.Host)
	}
	return op, nil
}

func (f *fakeFactory) buildCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.built)
}

// fakeUI answers prompts from queues and records everything shown.
type fakeUI struct {
	inputs []answer
	picks  []answer

	pickLabels   []string
	pickDefaults []string
	pickItems    [][]string

	infos     []string
	warnings  []string
	errors    []string
	clipboard string
	docs      []doc
}

type answer struct {
	value string
	err   error
}

type doc struct {
	title, language, content string
}

func (u *fakeUI) Input(_ string, _ bool) (string, error) {
	if len(u.inputs) == 0 {
		return "", ErrCancelled
	}
	a := u.inputs[0]
	u.inputs = u.inputs[1:]
	return a.value, a.err
}

func (u *fakeUI) Pick(label string, items []string, placeholder string) (string, error) {
	u.pickLabels = append(u.pickLabels, label)
	u.pickDefaults = append(u.pickDefaults, placeholder)
	u.pickItems = append(u.pickItems, items)
	if len(u.picks) == 0 {
		return "", ErrCancelled
	}
	a := u.picks[0]
	u.picks = u.picks[1:]
	return a.value, a.err
}

func (u *fakeUI) Info(msg string)  { u.infos = append(u.infos, msg) }
func (u *fakeUI) Warn(msg string)  { u.warnings = append(u.warnings, msg) }
func (u *fakeUI) Error(msg string) { u.errors = append(u.errors, msg) }

func (u *fakeUI) WriteClipboard(text string) error {
	u.clipboard = text
	return nil
}

func (u *fakeUI) ShowDocument(title, language, content string) error {
	u.docs = append(u.docs, doc{title, language, content})
	return nil
}

func answers(values ...string) []answer {
	out := make([]answer, 0, len(values))
	for _, v := range values {
		out = append(out, answer{value: v})
	}
	return out
}
