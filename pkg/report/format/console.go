// Package format provides console rendering utilities for registry reports
// and repository trees. It adapts column widths to the terminal and supports
// color and truncation.
package format

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"

	"github.com/greg-hellings/gitexplorer/pkg/explorer"
	"github.com/greg-hellings/gitexplorer/pkg/report"
)

// ConsoleFormatter renders a registry Report in a terminal-friendly table
// that attempts to adapt to the current console width.
type ConsoleFormatter struct {
	// MaxRepoColWidth constrains the repository column. If 0, a dynamic
	// width is chosen based on terminal width (with a sane minimum).
	MaxRepoColWidth int

	// EnableColors toggles ANSI color output for status cells.
	EnableColors bool
}

// NewConsoleFormatter creates a formatter with sensible defaults.
func NewConsoleFormatter() *ConsoleFormatter {
	return &ConsoleFormatter{
		MaxRepoColWidth: 0,
		EnableColors:    true,
	}
}

// Render writes the formatted report to writer.
func (f *ConsoleFormatter) Render(rpt *report.Report, writer io.Writer) error {
	if rpt == nil {
		return fmt.Errorf("nil report")
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(writer)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateRows = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.DrawBorder = true

	tw.AppendHeader(table.Row{"Repository", "Kind", "Branch", "Token", "Status"})

	if colConfigs := f.buildColumnConfig(rpt, writer); len(colConfigs) > 0 {
		tw.SetColumnConfigs(colConfigs)
	}

	// Registry order is kept; it is the order roots are shown in.
	for i := range rpt.Repositories {
		rr := &rpt.Repositories[i]
		tw.AppendRow(table.Row{
			rr.GetRepoIdentifier(),
			f.dash(string(rr.Kind)),
			f.dash(rr.Branch),
			f.dash(rr.Token),
			f.statusCell(rr),
		})
	}

	tw.Render()

	successCount := 0
	for _, rr := range rpt.Repositories {
		if rr.Error == nil {
			successCount++
		}
	}

	if _, err := fmt.Fprintln(writer); err != nil {
		return fmt.Errorf("failed writing summary spacer newline: %w", err)
	}
	if _, err := fmt.Fprintf(writer, "Summary:\n"); err != nil {
		return fmt.Errorf("failed writing summary header: %w", err)
	}
	if _, err := fmt.Fprintf(writer, "  Repositories resolved: %d/%d successful\n", successCount, len(rpt.Repositories)); err != nil {
		return fmt.Errorf("failed writing repositories resolved line: %w", err)
	}

	if rpt.HasErrors() {
		if _, err := fmt.Fprintln(writer); err != nil {
			return fmt.Errorf("failed writing errors spacer newline: %w", err)
		}
		if _, err := fmt.Fprintf(writer, "Errors:\n"); err != nil {
			return fmt.Errorf("failed writing errors header: %w", err)
		}
		for _, rr := range rpt.Repositories {
			if rr.Error != nil {
				if _, err := fmt.Fprintf(writer, "  %-30s %v\n", rr.Host, rr.Error); err != nil {
					return fmt.Errorf("failed writing error line for %s: %w", rr.Host, err)
				}
			}
		}
	}

	return nil
}

func (f *ConsoleFormatter) statusCell(rr *report.RepositoryReport) string {
	if rr.Error != nil {
		return f.color("ERROR", text.FgRed)
	}
	return f.color("OK", text.FgGreen)
}

func (f *ConsoleFormatter) dash(s string) string {
	if s == "" {
		return f.color("—", text.FgHiBlack)
	}
	return s
}

// buildColumnConfig constrains the repository column to fit the terminal.
func (f *ConsoleFormatter) buildColumnConfig(rpt *report.Report, w io.Writer) []table.ColumnConfig {
	repoColWidth := f.MaxRepoColWidth
	if repoColWidth <= 0 {
		termWidth := detectTerminalWidth(w)
		if termWidth <= 0 {
			// Fallback: do not constrain if width unknown
			return nil
		}
		if termWidth < 60 {
			termWidth = 60
		}
		repoColWidth = dynamicRepoWidth(rpt, termWidth)
	}

	return []table.ColumnConfig{
		{
			Number:      1,
			WidthMax:    repoColWidth,
			WidthMin:    minInt(10, repoColWidth),
			Transformer: truncTransformer(repoColWidth),
		},
	}
}

// dynamicRepoWidth estimates a good repository column width, leaving room
// for the fixed-size kind, branch, token and status columns.
func dynamicRepoWidth(rpt *report.Report, termWidth int) int {
	maxLen := 0
	for i := range rpt.Repositories {
		l := utf8.RuneCountInString(rpt.Repositories[i].GetRepoIdentifier())
		if l > maxLen {
			maxLen = l
		}
	}

	const reserved = 6 + 20 + 8 + 6 + 8 // other columns plus borders
	available := termWidth - reserved
	if available < 15 {
		available = 15
	}
	if maxLen > available {
		return available
	}
	if maxLen < 15 {
		return 15
	}
	return maxLen
}

// TreeFormatter renders an expanded repository tree as an indented list.
type TreeFormatter struct {
	EnableColors bool
}

// NewTreeFormatter creates a tree formatter with colors enabled.
func NewTreeFormatter() *TreeFormatter {
	return &TreeFormatter{EnableColors: true}
}

// Render writes tree to writer.
func (f *TreeFormatter) Render(tree *report.TreeReport, writer io.Writer) error {
	if tree == nil {
		return fmt.Errorf("nil tree")
	}

	lw := list.NewWriter()
	lw.SetOutputMirror(writer)
	lw.SetStyle(list.StyleConnectedRounded)

	f.appendNode(lw, tree)
	lw.Render()
	return nil
}

func (f *TreeFormatter) appendNode(lw list.Writer, node *report.TreeReport) {
	lw.AppendItem(f.label(node))
	if node.Error != nil {
		lw.Indent()
		lw.AppendItem(f.color(fmt.Sprintf("error: %v", node.Error), text.FgRed))
		lw.UnIndent()
		return
	}
	if len(node.Children) == 0 {
		return
	}
	lw.Indent()
	for _, child := range node.Children {
		f.appendNode(lw, child)
	}
	lw.UnIndent()
}

func (f *TreeFormatter) label(node *report.TreeReport) string {
	switch node.Kind {
	case explorer.KindRepo:
		return f.color(node.Name, text.Bold)
	case explorer.KindFolder:
		return f.color(node.Name+"/", text.FgBlue)
	default:
		return node.Name
	}
}

func (f *TreeFormatter) color(s string, c text.Color) string {
	if !f.EnableColors {
		return s
	}
	return text.Colors{c}.Sprint(s)
}

// detectTerminalWidth attempts to get terminal width if writer is a file (stdout/stderr).
func detectTerminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			return width
		}
	}
	// Try stdout as fallback
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		return width
	}
	return -1
}

// truncTransformer returns a text.Transformer to ellipsize overly wide cells.
func truncTransformer(max int) text.Transformer {
	return func(val interface{}) string {
		s := fmt.Sprint(val)
		if runeLen := utf8.RuneCountInString(s); runeLen > max {
			if max <= 1 {
				return "…"
			}
			return truncateRunes(s, max)
		}
		return s
	}
}

// truncateRunes truncates a string to (max) runes with ellipsis.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	var b strings.Builder
	count := 0
	for _, r := range s {
		if count >= max-1 {
			break
		}
		b.WriteRune(r)
		count++
	}
	b.WriteRune('…')
	return b.String()
}

func (f *ConsoleFormatter) color(s string, c text.Color) string {
	if !f.EnableColors {
		return s
	}
	return text.Colors{c}.Sprint(s)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// RenderConsole renders the provided Report to the writer using the default console formatter.
func RenderConsole(rpt *report.Report, w io.Writer) error {
	return NewConsoleFormatter().Render(rpt, w)
}

// RenderTree renders the provided tree to the writer using the default tree formatter.
func RenderTree(tree *report.TreeReport, w io.Writer) error {
	return NewTreeFormatter().Render(tree, w)
}
