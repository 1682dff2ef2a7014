package repository

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// giteeFake is a minimal in-process Gitee API recording every request.
type giteeFake struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []map[string]string
	handler  func(w http.ResponseWriter, r *http.Request)
}

func newGiteeFake(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*giteeFake, *GiteeClient) {
	t.Helper()
	fake := &giteeFake{handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		fake.mu.Lock()
		fake.requests = append(fake.requests, r)
		fake.bodies = append(fake.bodies, body)
		fake.mu.Unlock()
		fake.handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := NewGiteeClient(Config{Token: "gitee-token", BaseURL: srv.URL + "/api/v5"}, srv.Client())
	return fake, client
}

func (f *giteeFake) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.requests))
	for _, r := range f.requests {
		out = append(out, r.Method)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGiteeClient_Kind(t *testing.T) {
	client := NewGiteeClient(Config{Token: "t"}, nil)
	if client.Kind() != KindGitee {
		t.Errorf("Expected kind %s, got %s", KindGitee, client.Kind())
	}
	if client.baseURL != DefaultGiteeAPIURL {
		t.Errorf("Expected default base URL, got %s", client.baseURL)
	}
}

func TestGiteeAccessTokenOnEveryRequest(t *testing.T) {
	fake, client := newGiteeFake(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v5/repos/owner/repo":
			writeJSON(w, http.StatusOK, map[string]any{"default_branch": "main"})
		case "/api/v5/repos/owner/repo/branches":
			writeJSON(w, http.StatusOK, []map[string]any{{"name": "main"}})
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
		}
	})

	ctx := context.Background()
	if _, err := client.DefaultBranch(ctx, "owner/repo"); err != nil {
		t.Fatalf("DefaultBranch error: %v", err)
	}
	if _, err := client.Branches(ctx, "owner/repo"); err != nil {
		t.Fatalf("Branches error: %v", err)
	}

	for _, r := range fake.requests {
		if got := r.URL.Query().Get("access_token"); got != "gitee-token" {
			t.Errorf("%s %s: expected access_token query parameter, got %q", r.Method, r.URL.Path, got)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("%s %s: unexpected Authorization header", r.Method, r.URL.Path)
		}
	}
}

func TestGiteeDefaultBranch_Fallback(t *testing.T) {
	_, client := newGiteeFake(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"default_branch": ""})
	})

	branch, err := client.DefaultBranch(context.Background(), "owner/repo")
	if err != nil {
		t.Fatalf("DefaultBranch error: %v", err)
	}
	if branch != FallbackBranch {
		t.Errorf("Expected %s, got %s", FallbackBranch, branch)
	}
}

func TestGiteeTree_DirectChildrenOnly(t *testing.T) {
	fake, client := newGiteeFake(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v5/repos/owner/repo/git/trees/main" {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"sha": "root",
			"tree": []map[string]any{
				{"path": "a", "type": "tree"},
				{"path": "a/b.txt", "type": "blob"},
				{"path": "a/c/d.txt", "type": "blob"},
				{"path": "x", "type": "blob"},
			},
		})
	})

	entries, err := client.Tree(context.Background(), "owner/repo", "main", "a")
	if err != nil {
		t.Fatalf("Tree error: %v", err)
	}

	if len(entries) != 1 || entries[0].Path != "a/b.txt" {
		t.Fatalf("Expected only a/b.txt, got %+v", entries)
	}
	if entries[0].Name != "b.txt" || !entries[0].IsFile() {
		t.Errorf("Unexpected entry: %+v", entries[0])
	}
	if got := fake.requests[0].URL.Query().Get("recursive"); got != "1" {
		t.Errorf("Expected recursive=1, got %q", got)
	}
}

func TestDirectChildren(t *testing.T) {
	all := []TreeEntry{
		{Path: "a", Type: EntryTree},
		{Path: "a/b.txt", Type: EntryBlob},
		{Path: "a/c", Type: EntryTree},
		{Path: "a/c/d.txt", Type: EntryBlob},
		{Path: "ab.txt", Type: EntryBlob},
		{Path: "x", Type: EntryBlob},
	}

	tests := []struct {
		name     string
		dir      string
		expected []string
	}{
		{name: "root slash", dir: "/", expected: []string{"a", "ab.txt", "x"}},
		{name: "root empty", dir: "", expected: []string{"a", "ab.txt", "x"}},
		{name: "nested", dir: "a", expected: []string{"a/b.txt", "a/c"}},
		{name: "nested with slashes", dir: "/a/", expected: []string{"a/b.txt", "a/c"}},
		{name: "leaf dir", dir: "a/c", expected: []string{"a/c/d.txt"}},
		{name: "missing dir", dir: "nope", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DirectChildren(all, tt.dir)
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %v, got %+v", tt.expected, got)
			}
			for i := range got {
				if got[i].Path != tt.expected[i] {
					t.Errorf("Entry %d: expected %s, got %s", i, tt.expected[i], got[i].Path)
				}
			}
		})
	}
}

func TestGiteeUpload_ExistingFileIsUpdated(t *testing.T) {
	fake, client := newGiteeFake(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"type": "file", "path": "conf/app.yaml", "sha": "sha-1"})
		case http.MethodPut:
			writeJSON(w, http.StatusOK, map[string]any{
				"content": map[string]any{"path": "conf/app.yaml", "sha": "sha-2"},
				"commit":  map[string]any{"sha": "commit-2"},
			})
		default:
			t.Errorf("unexpected %s", r.Method)
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	res, err := client.Upload(context.Background(), "owner/repo", "/conf/app.yaml", "main", "key: value", "update")
	if err != nil {
		t.Fatalf("Upload error: %v", err)
	}

	methods := fake.methods()
	if len(methods) != 2 || methods[0] != http.MethodGet || methods[1] != http.MethodPut {
		t.Fatalf("Expected GET then PUT, got %v", methods)
	}
	if fake.requests[0].URL.Query().Get("ref") != "main" {
		t.Errorf("Expected ref=main on the lookup, got %q", fake.requests[0].URL.Query().Get("ref"))
	}
	if fake.requests[1].URL.Path != "/api/v5/repos/owner/repo/contents/conf/app.yaml" {
		t.Errorf("Unexpected update path %s", fake.requests[1].URL.Path)
	}

	body := fake.bodies[1]
	if body["sha"] != "sha-1" {
		t.Errorf("Expected sha-1 in update body, got %q", body["sha"])
	}
	if body["branch"] != "main" {
		t.Errorf("Expected branch main in update body, got %q", body["branch"])
	}
	if body["content"] != base64.StdEncoding.EncodeToString([]byte("key: value")) {
		t.Errorf("Unexpected content %q", body["content"])
	}
	if res.CommitSHA != "commit-2" {
		t.Errorf("Expected commit sha commit-2, got %s", res.CommitSHA)
	}
}

func TestGiteeUpload_MissingFileIsCreated(t *testing.T) {
	tests := []struct {
		name   string
		lookup func(w http.ResponseWriter)
	}{
		{
			name:   "empty listing",
			lookup: func(w http.ResponseWriter) { writeJSON(w, http.StatusOK, []any{}) },
		},
		{
			name: "not found",
			lookup: func(w http.ResponseWriter) {
				writeJSON(w, http.StatusNotFound, map[string]any{"message": "404 Not Found"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, client := newGiteeFake(t, func(w http.ResponseWriter, r *http.Request) {
				switch r.Method {
				case http.MethodGet:
					tt.lookup(w)
				case http.MethodPost:
					writeJSON(w, http.StatusCreated, map[string]any{
						"content": map[string]any{"path": "new.txt"},
						"commit":  map[string]any{"sha": "c1"},
					})
				default:
					t.Errorf("unexpected %s", r.Method)
					w.WriteHeader(http.StatusMethodNotAllowed)
				}
			})

			if _, err := client.Upload(context.Background(), "owner/repo", "new.txt", "dev", "hi", "add"); err != nil {
				t.Fatalf("Upload error: %v", err)
			}

			methods := fake.methods()
			if len(methods) != 2 || methods[1] != http.MethodPost {
				t.Fatalf("Expected GET then POST, got %v", methods)
			}
			if fake.bodies[1]["branch"] != "dev" {
				t.Errorf("Expected branch dev, got %q", fake.bodies[1]["branch"])
			}
			if _, ok := fake.bodies[1]["sha"]; ok {
				t.Error("Create body must not carry a sha")
			}
		})
	}
}

func TestGiteeUpload_LookupFailureIsReturned(t *testing.T) {
	fake, client := newGiteeFake(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "boom"})
	})

	_, err := client.Upload(context.Background(), "owner/repo", "a.txt", "main", "x", "msg")
	if err == nil {
		t.Fatal("Expected lookup error to propagate")
	}

	var giteeErr *GiteeError
	if !errors.As(err, &giteeErr) || giteeErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected *GiteeError with 500, got %v", err)
	}
	if len(fake.methods()) != 1 {
		t.Errorf("Expected no write after a failed lookup, got %v", fake.methods())
	}
}

func TestGiteeRaw(t *testing.T) {
	_, client := newGiteeFake(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ref") != "release" {
			t.Errorf("Expected ref=release, got %q", r.URL.Query().Get("ref"))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"type":     "file",
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte("apiVersion: v2\n")),
		})
	})

	content, err := client.Raw(context.Background(), "owner/repo", "Chart.yaml", "release")
	if err != nil {
		t.Fatalf("Raw error: %v", err)
	}
	if content != "apiVersion: v2\n" {
		t.Errorf("Unexpected content %q", content)
	}
}

func TestGiteeRaw_Directory(t *testing.T) {
	_, client := newGiteeFake(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []any{map[string]any{"type": "file", "path": "dir/a"}})
	})

	if _, err := client.Raw(context.Background(), "owner/repo", "dir", "main"); err == nil {
		t.Fatal("Expected an error for a directory path")
	}
}

func TestGiteeMembers(t *testing.T) {
	fake, client := newGiteeFake(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 11, "login": "alice", "name": "Alice"},
			{"id": 12, "login": "bob", "name": "Bob"},
		})
	})

	members, err := client.Members(context.Background(), "owner/repo")
	if err != nil {
		t.Fatalf("Members error: %v", err)
	}
	if len(members) != 2 || members[0].Username != "alice" || members[0].ID != 11 {
		t.Errorf("Unexpected members: %+v", members)
	}

	q := fake.requests[0].URL.Query()
	if q.Get("page") != "1" || q.Get("per_page") != "100" {
		t.Errorf("Expected page=1&per_page=100, got %s", fake.requests[0].URL.RawQuery)
	}
}

func TestGiteeMerge_NotImplemented(t *testing.T) {
	client := NewGiteeClient(Config{Token: "t"}, nil)

	_, err := client.Merge(context.Background(), "owner/repo", "a", "b", "title", Member{})
	if !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("Expected ErrNotImplemented, got %v", err)
	}
}

func TestGiteeErrorIsNotFound(t *testing.T) {
	_, client := newGiteeFake(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not Found Project"})
	})

	_, err := client.Branches(context.Background(), "owner/missing")
	if !IsNotFound(err) {
		t.Fatalf("Expected not found error, got %v", err)
	}

	var giteeErr *GiteeError
	if !errors.As(err, &giteeErr) || giteeErr.Message != "Not Found Project" {
		t.Errorf("Expected message from the response body, got %v", err)
	}
}
