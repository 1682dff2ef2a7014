package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// headRef names the default branch without asking the backend; copy
// commands never contact it.
const headRef = "HEAD"

// commandContext returns the command's context, bounded by --timeout when
// one was given. Without it the transport defaults apply.
func (a *app) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if a.flagTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.flagTimeout)
}

func newRegisterCmd(a *app) *cobra.Command {
	var token string
	c := &cobra.Command{
		Use:   "register [repository-url]",
		Short: "Register a repository or update its token",
		Long: strings.TrimSpace(`
Register a repository by its URL, for example https://gitlab.example.com/group/project
or https://gitee.com/owner/repo. Registering an already known URL replaces its
token. Missing values are prompted for; the token is read without echo.`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host := ""
			if len(args) == 1 {
				host = args[0]
			}
			ctx, cancel := a.commandContext(cmd)
			defer cancel()
			return a.explorer.Register(ctx, host, token)
		},
	}
	c.Flags().StringVarP(&token, "token", "t", "", "Access token (prompted when omitted)")
	return c
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Remove all registered repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.commandContext(cmd)
			defer cancel()
			return a.explorer.RemoveAll(ctx)
		},
	}
}

func newCatCmd(a *app) *cobra.Command {
	var branch string
	c := &cobra.Command{
		Use:   "cat <repository-url> <path>",
		Short: "Print a file of a registered repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.commandContext(cmd)
			defer cancel()

			node, err := a.explorer.NodeFor(ctx, args[0], args[1], branch, true)
			if err != nil {
				return err
			}
			return a.explorer.GetContent(ctx, node)
		},
	}
	c.Flags().StringVarP(&branch, "branch", "b", "", "Branch or ref (default: repository default branch)")
	return c
}

func newSubmitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "submit <file>",
		Short: "Upload a local file to a registered repository",
		Long: strings.TrimSpace(`
Upload the content of a local file. The target repository, path and branch are
chosen interactively; the file is created or updated on that branch with the
configured commit message. Use "-" to read the content from standard input.`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readContent(args[0], a.in)
			if err != nil {
				return err
			}
			ctx, cancel := a.commandContext(cmd)
			defer cancel()
			return a.explorer.SubmitContent(ctx, content)
		},
	}
}

func readContent(name string, stdin io.Reader) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read standard input: %w", err)
		}
		return string(data), nil
	}
	// #nosec G304 the file is named by the user on the command line
	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return string(data), nil
}

func newMergeRequestCmd(a *app) *cobra.Command {
	var branch string
	c := &cobra.Command{
		Use:   "merge-request <repository-url>",
		Short: "Open a merge request on a registered repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.commandContext(cmd)
			defer cancel()

			node, err := a.explorer.NodeFor(ctx, args[0], "", branch, false)
			if err != nil {
				return err
			}
			return a.explorer.CreateMergeRequest(ctx, node)
		},
	}
	c.Flags().StringVarP(&branch, "branch", "b", "", "Preselected source branch (default: repository default branch)")
	return c
}

func newCopyPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "copy-path <repository-url> <path>",
		Short: "Copy the path of a repository entry to the clipboard",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.commandContext(cmd)
			defer cancel()

			node, err := a.explorer.NodeFor(ctx, args[0], args[1], headRef, true)
			if err != nil {
				return err
			}
			return a.explorer.CopyPath(node)
		},
	}
}

func newCopyNameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "copy-name <repository-url> <path>",
		Short: "Copy the name of a repository entry to the clipboard",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.commandContext(cmd)
			defer cancel()

			node, err := a.explorer.NodeFor(ctx, args[0], args[1], headRef, true)
			if err != nil {
				return err
			}
			return a.explorer.CopyName(node)
		},
	}
}
