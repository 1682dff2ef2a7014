package main

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/greg-hellings/gitexplorer/pkg/explorer"
	"github.com/greg-hellings/gitexplorer/pkg/report"
	"github.com/greg-hellings/gitexplorer/pkg/repository"
	consolefmt "github.com/greg-hellings/gitexplorer/pkg/report/format"
)

func newTreeCmd(a *app) *cobra.Command {
	var (
		branch string
		depth  int
	)
	c := &cobra.Command{
		Use:   "tree <repository-url> [path]",
		Short: "Print the tree of a registered repository",
		Long: strings.TrimSpace(`
Print the entries below a directory of a registered repository. Every expanded
directory costs one listing call; on Gitee each call downloads the whole branch
tree, so keep --depth small for large repositories.`),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 2 {
				dir = args[1]
			}

			ctx, cancel := a.commandContext(cmd)
			defer cancel()

			node, err := a.explorer.NodeFor(ctx, args[0], dir, branch, false)
			if err != nil {
				return err
			}
			tree, err := report.BuildTree(ctx, node, depth)
			if err != nil {
				return err
			}

			formatter := consolefmt.NewTreeFormatter()
			formatter.EnableColors = !a.flagNoColor
			return formatter.Render(tree, a.out)
		},
	}
	c.Flags().StringVarP(&branch, "branch", "b", "", "Branch or ref (default: repository default branch)")
	c.Flags().IntVarP(&depth, "depth", "d", 1, "Number of directory levels to expand")
	return c
}

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Interactively browse the registered repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return browse(cmd.Context(), a.explorer, a.ui)
		},
	}
}

// Browser entries and actions.
const (
	entryUp     = ".."
	actionOpen  = "Show content"
	actionPath  = "Copy path"
	actionName  = "Copy name"
	actionMerge = "Create merge request"
	actionBack  = "Back"
)

// browse walks the registry interactively until the user cancels.
func browse(ctx context.Context, exp *explorer.Explorer, ui explorer.UI) error {
	if ctx == nil {
		ctx = context.Background()
	}

	roots, err := exp.Roots(ctx)
	if err != nil {
		return err
	}
	if len(roots) == 0 {
		ui.Warn("No repositories could be resolved")
		return nil
	}

	names, byName := rootLabels(roots)

	for {
		choice, err := ui.Pick("Repository", names, "")
		if errors.Is(err, explorer.ErrCancelled) || (err == nil && choice == "") {
			return nil
		}
		if err != nil {
			return err
		}
		root, ok := byName[choice]
		if !ok {
			ui.Warn(fmt.Sprintf("Unknown repository %s", choice))
			continue
		}
		if err := browseNode(ctx, exp, ui, root); err != nil {
			return err
		}
	}
}

// rootLabels names every root by its origin and project path, so the same
// project registered on two instances gets two distinct entries.
func rootLabels(roots []*explorer.Node) ([]string, map[string]*explorer.Node) {
	labels := make([]string, 0, len(roots))
	byLabel := make(map[string]*explorer.Node, len(roots))
	for _, r := range roots {
		label := r.Name
		if opts, err := repository.ParseOptions(r.Options()); err == nil {
			label = strings.TrimSuffix(opts.Host, "/") + "/" + r.Name
		}
		base := label
		for i := 2; byLabel[label] != nil; i++ {
			label = fmt.Sprintf("%s (%d)", base, i)
		}
		labels = append(labels, label)
		byLabel[label] = r
	}
	return labels, byLabel
}

// browseNode lists node's children until the user goes back up. Directories
// are listed afresh every time they are entered.
func browseNode(ctx context.Context, exp *explorer.Explorer, ui explorer.UI, node *explorer.Node) error {
	for {
		children, err := node.Children(ctx)
		if err != nil {
			ui.Warn(fmt.Sprintf("Failed to list %s: %v", node, err))
			return nil
		}

		items := []string{entryUp}
		if node.Kind() == explorer.KindRepo {
			items = append(items, actionMerge)
		}
		byLabel := make(map[string]*explorer.Node, len(children))
		for _, child := range children {
			label := child.Name
			if !child.IsFile {
				label += "/"
			}
			items = append(items, label)
			byLabel[label] = child
		}

		choice, err := ui.Pick(displayPath(node), items, "")
		if errors.Is(err, explorer.ErrCancelled) || (err == nil && (choice == "" || choice == entryUp)) {
			return nil
		}
		if err != nil {
			return err
		}

		if choice == actionMerge {
			if err := exp.CreateMergeRequest(ctx, node); err != nil {
				ui.Warn(err.Error())
			}
			continue
		}

		child, ok := byLabel[choice]
		if !ok {
			continue
		}
		if child.IsFile {
			if err := fileActions(ctx, exp, ui, child); err != nil {
				return err
			}
			continue
		}
		if err := browseNode(ctx, exp, ui, child); err != nil {
			return err
		}
	}
}

func fileActions(ctx context.Context, exp *explorer.Explorer, ui explorer.UI, file *explorer.Node) error {
	action, err := ui.Pick(displayPath(file), []string{actionOpen, actionPath, actionName, actionBack}, actionOpen)
	if errors.Is(err, explorer.ErrCancelled) {
		return nil
	}
	if err != nil {
		return err
	}

	switch action {
	case actionOpen:
		err = exp.GetContent(ctx, file)
	case actionPath:
		err = exp.CopyPath(file)
	case actionName:
		err = exp.CopyName(file)
	}
	if err != nil {
		ui.Warn(err.Error())
	}
	return nil
}

func displayPath(node *explorer.Node) string {
	if node.Path == explorer.RootPath {
		return node.RepoID + " (" + node.Branch + ")"
	}
	return path.Join(node.RepoID, node.Path) + " (" + node.Branch + ")"
}
