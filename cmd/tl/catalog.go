package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"testlab/internal/app"
	"testlab/internal/domain"
	"testlab/internal/engine"
	"testlab/internal/ids"
)

func folderCmd() *cobra.Command {
	folder := &cobra.Command{Use: "folder", Short: "Manage the folder tree"}
	folder.AddCommand(folderListCmd())
	folder.AddCommand(folderTreeCmd())
	folder.AddCommand(folderAddCmd())
	folder.AddCommand(folderRenameCmd())
	folder.AddCommand(folderDeleteCmd())
	return folder
}

func folderListCmd() *cobra.Command {
	var roots bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, s session) error {
				folders, err := s.Svc.Engine.Folders.List(ctx)
				if err != nil {
					return err
				}
				if roots {
					folders = engine.Roots(folders)
				}
				return printFolders(folders)
			})
		},
	}
	cmd.Flags().BoolVar(&roots, "roots", false, "only root folders")
	return cmd
}

func folderTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Show root folders with their subfolders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, s session) error {
				folders, err := s.Svc.Engine.Folders.List(ctx)
				if err != nil {
					return err
				}
				return printFolderTree(engine.Tree(folders))
			})
		},
	}
}

func folderAddCmd() *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a root folder, or a subfolder with --parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, s session) error {
				f, err := s.Svc.CreateFolder(ctx, app.FolderInput{Name: args[0], ParentID: parent})
				if err != nil {
					return err
				}
				return printJSONOrTable(f)
			})
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "root folder id")
	return cmd
}

func folderRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, s session) error {
				return s.Svc.RenameFolder(ctx, args[0], args[1])
			})
		},
	}
}

func folderDeleteCmd() *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a folder and its direct subfolders",
		Long: `Deletes the folder and every folder whose parent it is. Scripts filed under
removed subfolders are kept and show up in "script orphans" unless --purge is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, s session) error {
				return s.Svc.DeleteFolder(ctx, args[0], purge)
			})
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "also delete scripts filed under removed subfolders")
	return cmd
}

func scriptCmd() *cobra.Command {
	script := &cobra.Command{Use: "script", Short: "Manage the script catalog"}
	script.AddCommand(scriptListCmd())
	script.AddCommand(scriptShowCmd())
	script.AddCommand(scriptAddCmd())
	script.AddCommand(scriptEditCmd())
	script.AddCommand(scriptDeleteCmd())
	script.AddCommand(scriptOrphansCmd())
	return script
}

func scriptListCmd() *cobra.Command {
	var f engine.ScriptFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog scripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, s session) error {
				scripts, err := s.Svc.Engine.Catalog.List(ctx)
				if err != nil {
					return err
				}
				return printScripts(engine.Filter(scripts, f))
			})
		},
	}
	cmd.Flags().StringVar(&f.SubfolderID, "folder", "", "subfolder id")
	cmd.Flags().StringVar(&f.Search, "search", "", "match scriptId or description (case-insensitive)")
	return cmd
}

func scriptShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, s session) error {
				sc, err := s.Svc.Engine.Catalog.Get(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(sc)
			})
		},
	}
}

// scriptFlags binds the script form to command flags.
type scriptFlags struct {
	in          app.ScriptInput
	env         string
	testType    string
	screenshots []string
}

func (sf *scriptFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sf.in.ScriptID, "id", "", "script identifier, e.g. TC-001")
	cmd.Flags().StringVar(&sf.in.ShortDescription, "desc", "", "short description")
	cmd.Flags().StringVar(&sf.env, "env", "", "Online, Batch or \"Online & Batch\"")
	cmd.Flags().StringVar(&sf.testType, "type", "", "Positive or Negative")
	cmd.Flags().StringVar(&sf.in.Purpose, "purpose", "", "purpose")
	cmd.Flags().StringArrayVar(&sf.in.Assumptions, "assume", nil, "assumption (repeatable)")
	cmd.Flags().StringVar(&sf.in.ExpectedResults, "expected", "", "expected results")
	cmd.Flags().StringVar(&sf.in.ScriptDetails, "details", "", "script steps")
	cmd.Flags().StringArrayVar(&sf.screenshots, "screenshot", nil, "path=description (repeatable)")
	cmd.Flags().StringVar(&sf.in.SubfolderID, "folder", "", "subfolder id")
}

func (sf *scriptFlags) input(now time.Time) app.ScriptInput {
	in := sf.in
	in.TestEnvironment = domain.TestEnvironment(sf.env)
	in.TestType = domain.TestType(sf.testType)
	in.Screenshots = parseScreenshots(sf.screenshots, now)
	return in
}

// parseScreenshots turns path=description flags into screenshot records.
func parseScreenshots(specs []string, now time.Time) []domain.Screenshot {
	var out []domain.Screenshot
	for _, spec := range specs {
		path, desc, _ := strings.Cut(spec, "=")
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		out = append(out, domain.Screenshot{
			ID:          ids.New("screenshot", now),
			Filename:    filepath.Base(path),
			Description: strings.TrimSpace(desc),
			Path:        path,
		})
	}
	return out
}

func scriptAddCmd() *cobra.Command {
	var sf scriptFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a script to the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, s session) error {
				sc, err := s.Svc.CreateScript(ctx, sf.input(time.Now()))
				if err != nil {
					return err
				}
				return printJSONOrTable(sc)
			})
		},
	}
	sf.bind(cmd)
	return cmd
}

func scriptEditCmd() *cobra.Command {
	var sf scriptFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Replace a script's fields",
		Long:  "Edit submits the whole form: fields not given are reset, just like saving the edit form.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, s session) error {
				current, err := s.Svc.Engine.Catalog.Get(ctx, args[0])
				if err != nil {
					return err
				}
				in := sf.input(time.Now())
				if !cmd.Flags().Changed("screenshot") {
					in.Screenshots = current.Screenshots
				}
				if !cmd.Flags().Changed("folder") {
					in.SubfolderID = current.SubfolderID
				}
				return s.Svc.EditScript(ctx, args[0], in)
			})
		},
	}
	sf.bind(cmd)
	return cmd
}

func scriptDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a script from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, s session) error {
				return s.Svc.Engine.Catalog.Delete(ctx, args[0])
			})
		},
	}
}

func scriptOrphansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orphans",
		Short: "List scripts whose subfolder no longer exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, s session) error {
				scripts, err := s.Svc.Engine.Catalog.Orphans(ctx)
				if err != nil {
					return err
				}
				if len(scripts) == 0 && !jsonOutput() {
					fmt.Println("No orphaned scripts.")
					return nil
				}
				return printScripts(scripts)
			})
		},
	}
}
