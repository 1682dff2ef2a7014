package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/greg-hellings/gitexplorer/pkg/report"
	consolefmt "github.com/greg-hellings/gitexplorer/pkg/report/format"
)

// list command flags
type listFlags struct {
	outputFormat    string
	repoColWidth    int
	failOnRepoError bool
	jsonIndent      bool
}

func newListCmd(a *app) *cobra.Command {
	var flags listFlags
	c := &cobra.Command{
		Use:   "list",
		Short: "Resolve and list the registered repositories",
		Long: strings.TrimSpace(`
Resolve every registered repository: select its backend, connect, and read its
default branch. Entries that fail to resolve are reported and skipped; they do
not prevent the others from being listed.

Formats:
  console (default) - adaptive terminal table
  json              - machine-readable JSON

Examples:
  gitexplorer list
  gitexplorer list --format json --json-indent
  gitexplorer list --no-color --fail-on-error
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, a, flags)
		},
	}

	c.Flags().StringVarP(&flags.outputFormat, "format", "f", "console", "Output format: console|json")
	c.Flags().IntVar(&flags.repoColWidth, "repo-col-width", 0, "Max width of the repository column (console format; 0=auto)")
	c.Flags().BoolVar(&flags.failOnRepoError, "fail-on-error", false, "Exit with non-zero status if any repository failed to resolve")
	c.Flags().BoolVar(&flags.jsonIndent, "json-indent", false, "Pretty-print JSON output")
	return c
}

func runList(cmd *cobra.Command, a *app, flags listFlags) error {
	start := time.Now()

	ctx, cancel := a.commandContext(cmd)
	defer cancel()

	resolved, err := a.explorer.Resolve(ctx)
	if err != nil {
		return err
	}
	rpt := report.New(resolved)

	switch strings.ToLower(flags.outputFormat) {
	case "console":
		formatter := consolefmt.NewConsoleFormatter()
		formatter.EnableColors = !a.flagNoColor
		if flags.repoColWidth > 0 {
			formatter.MaxRepoColWidth = flags.repoColWidth
		}
		if err := formatter.Render(rpt, a.out); err != nil {
			return fmt.Errorf("failed to render console output: %w", err)
		}
	case "json":
		if err := renderJSON(rpt, a.out, flags.jsonIndent); err != nil {
			return fmt.Errorf("failed to render JSON output: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format: %s", flags.outputFormat)
	}

	slog.Info("Repository listing complete",
		"repositories", len(rpt.Repositories),
		"duration", time.Since(start).String())

	if flags.failOnRepoError && rpt.HasErrors() {
		return errors.New("one or more repositories failed (fail-on-error enabled)")
	}
	return nil
}

// jsonOutput is the structured JSON shape of the list command.
type jsonOutput struct {
	Version      string           `json:"cliVersion"`
	GeneratedAt  time.Time        `json:"generatedAt"`
	Repositories []jsonRepository `json:"repositories"`
	Summary      jsonSummary      `json:"summary"`
}

type jsonRepository struct {
	Host   string `json:"host"`
	RepoID string `json:"repoId,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Branch string `json:"branch,omitempty"`
	Token  string `json:"token,omitempty"`
	Error  string `json:"error,omitempty"`
}

type jsonSummary struct {
	RepositoryCount int `json:"repositoryCount"`
	SuccessCount    int `json:"successCount"`
	ErrorCount      int `json:"errorCount"`
}

// renderJSON marshals the report to JSON with additional metadata.
func renderJSON(rpt *report.Report, w io.Writer, indent bool) error {
	payload := jsonOutput{
		Version:      version,
		GeneratedAt:  time.Now().UTC(),
		Repositories: make([]jsonRepository, 0, len(rpt.Repositories)),
	}
	for _, rr := range rpt.Repositories {
		jr := jsonRepository{
			Host:   rr.Host,
			RepoID: rr.RepoID,
			Kind:   string(rr.Kind),
			Branch: rr.Branch,
			Token:  rr.Token,
		}
		if rr.Error != nil {
			jr.Error = rr.Error.Error()
			payload.Summary.ErrorCount++
		} else {
			payload.Summary.SuccessCount++
		}
		payload.Repositories = append(payload.Repositories, jr)
	}
	payload.Summary.RepositoryCount = len(rpt.Repositories)

	var data []byte
	var err error
	if indent {
		data, err = json.MarshalIndent(payload, "", "  ")
	} else {
		data, err = json.Marshal(payload)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
	return nil
}
