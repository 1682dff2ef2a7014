// Package registry persists the list of repositories the user registered.
//
// The list is kept as one JSON array under StateKey in a state.Store and is
// always rewritten as a whole.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/greg-hellings/gitexplorer/pkg/state"
)

// StateKey is the store key holding the serialized registry.
const StateKey = "gitexplorer.repositories"

// Repository is one registered repository connection.
type Repository struct {
	Host  string `json:"host"`
	Token string `json:"token"`
}

// Registry reads and writes the repository list through a state.Store.
type Registry struct {
	store state.Store
}

// New creates a registry on top of store.
func New(store state.Store) *Registry {
	return &Registry{store: store}
}

// List returns the registered repositories in registration order.
// A missing key yields an empty list.
func (r *Registry) List() ([]Repository, error) {
	raw, err := r.store.Get(StateKey)
	if errors.Is(err, state.ErrNotFound) {
		return []Repository{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return []Repository{}, nil
	}

	var repos []Repository
	if err := json.Unmarshal([]byte(raw), &repos); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	if repos == nil {
		repos = []Repository{}
	}
	return repos, nil
}

// Register adds host with token, or overwrites the token of the entry whose
// host matches exactly. The whole list is written back in one Set.
func (r *Registry) Register(host, token string) error {
	if host == "" {
		return errors.New("repository host cannot be empty")
	}

	repos, err := r.List()
	if err != nil {
		return err
	}

	found := false
	for i := range repos {
		if repos[i].Host == host {
			repos[i].Token = token
			found = true
			break
		}
	}
	if !found {
		repos = append(repos, Repository{Host: host, Token: token})
	}

	return r.save(repos)
}

// Find returns the entry registered for host.
func (r *Registry) Find(host string) (Repository, bool, error) {
	repos, err := r.List()
	if err != nil {
		return Repository{}, false, err
	}
	for _, repo := range repos {
		if repo.Host == host {
			return repo, true, nil
		}
	}
	return Repository{}, false, nil
}

// Reset removes every registered repository.
func (r *Registry) Reset() error {
	if err := r.store.Delete(StateKey); err != nil {
		return fmt.Errorf("failed to reset registry: %w", err)
	}
	return nil
}

func (r *Registry) save(repos []Repository) error {
	kept := make([]Repository, 0, len(repos))
	for _, repo := range repos {
		if repo.Host != "" {
			kept = append(kept, repo)
		}
	}

	data, err := json.Marshal(kept)
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}
	if err := r.store.Set(StateKey, string(data)); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	return nil
}
