package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	editorApp "pagebuilder/internal/app"
	"pagebuilder/internal/publish"
	"pagebuilder/internal/registry"
	"pagebuilder/internal/render"
	"pagebuilder/internal/secret"
	"pagebuilder/internal/service"
)

// mcpCmd serves the editor tools over stdio for MCP clients.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdin/stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return editorApp.ServeMCP(cfg, logger)
	},
}

// exportCmd writes a release's tree to a JSON file.
var exportCmd = &cobra.Command{
	Use:   "export <release-id> <file>",
	Short: "Export a release's theme schema as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(rt *editorApp.Runtime) error {
			if _, err := rt.Editor.Open(cmd.Context(), args[0]); err != nil {
				return err
			}
			if err := rt.Editor.Export(args[0], args[1]); err != nil {
				return err
			}
			logger.Info("exported", zap.String("release", args[0]), zap.String("file", args[1]))
			return nil
		})
	},
}

// publishCmd imports a JSON file into a release and saves it to the backend.
var publishCmd = &cobra.Command{
	Use:   "publish <release-id> <file>",
	Short: "Import a JSON theme schema and save it to the backend",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(rt *editorApp.Runtime) error {
			ctx := cmd.Context()
			if _, err := rt.Editor.Open(ctx, args[0]); err != nil {
				return err
			}
			if err := rt.Editor.Import(ctx, args[0], args[1]); err != nil {
				return err
			}
			if err := rt.Editor.Save(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved release %s\n", args[0])
			return nil
		})
	},
}

// tokenCmd stores the backend API token in the OS secret store.
var tokenCmd = &cobra.Command{
	Use:   "token [value]",
	Short: "Store the backend API token (empty value clears it)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := secret.Default(cfg.Data.Dir)
		if len(args) == 0 || args[0] == "" {
			return store.Delete(secret.PublishTokenKey)
		}
		return store.Set(secret.PublishTokenKey, []byte(args[0]))
	},
}

var renderOut string

// renderCmd renders a JSON theme schema to a standalone HTML document.
var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render an exported theme schema to HTML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		blocks, err := publish.ReadFile(args[0])
		if err != nil {
			return err
		}
		html, err := render.New(registry.Default()).Document(blocks)
		if err != nil {
			return err
		}
		if renderOut == "" {
			_, err = fmt.Fprint(cmd.OutOrStdout(), html)
			return err
		}
		return os.WriteFile(renderOut, []byte(html), 0o644)
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "output", "o", "", "Write HTML to this file instead of stdout")
}

func withRuntime(ctx context.Context, fn func(rt *editorApp.Runtime) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := editorApp.Build(ctx, cfg, logger, service.NopEmitter{})
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())
	return fn(rt)
}
