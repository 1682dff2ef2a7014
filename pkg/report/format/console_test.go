package format

import (
	"bytes"
	"strings"
	"testing"

	"github.com/greg-hellings/gitexplorer/pkg/explorer"
	"github.com/greg-hellings/gitexplorer/pkg/report"
	"github.com/greg-hellings/gitexplorer/pkg/repository"
)

// helper to build a sample report
func sampleReport() *report.Report {
	return &report.Report{
		Repositories: []report.RepositoryReport{
			{
				Host:   "https://gitlab.example.com/group/project",
				RepoID: "group/project",
				Kind:   repository.KindGitLab,
				Branch: "main",
				Token:  "glpa***",
			},
			{
				Host:  "https://gitee.com",
				Token: "***",
				// Resolution failed before a repository id was known.
				Error: assertError("repository path is required"),
			},
		},
	}
}

// assertError creates a lightweight error for embedding in reports
type assertError string

func (e assertError) Error() string { return string(e) }

func TestConsoleFormatterBasicRender(t *testing.T) {
	rpt := sampleReport()

	var buf bytes.Buffer
	f := NewConsoleFormatter()
	f.EnableColors = false // deterministic output for assertions
	f.MaxRepoColWidth = 40

	if err := f.Render(rpt, &buf); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	out := buf.String()

	expectContains(t, out, "REPOSITORY", "repository header missing")
	expectContains(t, out, "group/project", "repository group/project missing")
	expectContains(t, out, "gitlab", "kind missing")
	expectContains(t, out, "main", "branch missing")
	expectContains(t, out, "glpa***", "redacted token missing")
	expectContains(t, out, "OK", "status marker missing for resolved repository")
	expectContains(t, out, "ERROR", "error marker missing for failing repository")
	expectContains(t, out, "Repositories resolved: 1/2 successful", "summary success count mismatch")

	// Error section details
	expectContains(t, out, "Errors:", "errors section header missing")
	expectContains(t, out, "https://gitee.com", "errored repository host missing")
	expectContains(t, out, "repository path is required", "error message missing")

	// Ensure no ANSI escapes when colors disabled
	if strings.Contains(out, "\x1b[") {
		t.Errorf("unexpected ANSI color sequences found when colors disabled")
	}
}

func TestConsoleFormatterNoErrorsSection(t *testing.T) {
	rpt := &report.Report{Repositories: sampleReport().Repositories[:1]}

	var buf bytes.Buffer
	f := NewConsoleFormatter()
	f.EnableColors = false
	f.MaxRepoColWidth = 40

	if err := f.Render(rpt, &buf); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if strings.Contains(buf.String(), "Errors:") {
		t.Errorf("unexpected errors section:\n%s", buf.String())
	}
}

func TestConsoleFormatterColorsEnabledShowsANSIForError(t *testing.T) {
	rpt := sampleReport()

	var buf bytes.Buffer
	f := NewConsoleFormatter()
	f.EnableColors = true
	f.MaxRepoColWidth = 40

	if err := f.Render(rpt, &buf); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	out := buf.String()

	// Look for colored ERROR (should contain ANSI ESC)
	if !strings.Contains(out, "\x1b[") {
		t.Errorf("expected ANSI color sequences but none found")
	}

	// Verify ERROR cell appears (even with color codes)
	if !strings.Contains(stripANSI(out), "ERROR") {
		t.Errorf("expected ERROR marker in output (stripANSI)")
	}
}

func TestConsoleFormatterNilReport(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter()
	err := f.Render(nil, &buf)
	if err == nil {
		t.Fatalf("expected error rendering nil report, got nil")
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"group/subgroup/project", 10, "group/sub…"},
		{"日本語のリポジトリ", 4, "日本語…"},
		{"x", 0, ""},
	}
	for _, tt := range tests {
		if got := truncateRunes(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestTreeFormatterRender(t *testing.T) {
	tree := &report.TreeReport{
		Name: "group/project",
		Path: "/",
		Kind: explorer.KindRepo,
		Children: []*report.TreeReport{
			{
				Name: "charts",
				Path: "charts",
				Kind: explorer.KindFolder,
				Children: []*report.TreeReport{
					{Name: "values.yaml", Path: "charts/values.yaml", Kind: explorer.KindFile},
				},
			},
			{Name: "broken", Path: "broken", Kind: explorer.KindFolder, Error: assertError("403 Forbidden")},
			{Name: "README.md", Path: "README.md", Kind: explorer.KindFile},
		},
	}

	var buf bytes.Buffer
	f := NewTreeFormatter()
	f.EnableColors = false

	if err := f.Render(tree, &buf); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	out := buf.String()
	expectContains(t, out, "group/project", "root missing")
	expectContains(t, out, "charts/", "folder marker missing")
	expectContains(t, out, "values.yaml", "nested file missing")
	expectContains(t, out, "README.md", "file missing")
	expectContains(t, out, "error: 403 Forbidden", "listing error missing")

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 6 {
		t.Errorf("expected 6 lines, got %d:\n%s", len(lines), out)
	}
	if strings.Index(out, "charts/") > strings.Index(out, "values.yaml") {
		t.Errorf("expected children after their parent:\n%s", out)
	}
}

func TestTreeFormatterNil(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTreeFormatter().Render(nil, &buf); err == nil {
		t.Fatal("expected error rendering nil tree")
	}
}

func expectContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Fatalf("%s: expected to contain %q\nFull output:\n%s", msg, substr, s)
	}
}

// stripANSI removes ANSI escape sequences for simplified checks.
func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == 0x1b {
			inEsc = true
			continue
		}
		if inEsc {
			// ESC sequences end with 'm' or a letter; simplistic but adequate here
			if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
				inEsc = false
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
