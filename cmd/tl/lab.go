package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"testlab/internal/app"
	"testlab/internal/domain"
	"testlab/internal/engine"
	"testlab/internal/events"
)

func projectCmd() *cobra.Command {
	project := &cobra.Command{Use: "project", Short: "Manage test projects"}
	project.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the acting user's projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, s session) error {
				projects, err := s.Svc.Engine.Projects.List(ctx, s.UserID)
				if err != nil {
					return err
				}
				return printProjects(projects)
			})
		},
	})

	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a project owned by the acting user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, s session) error {
				p, err := s.Svc.CreateProject(ctx, name, s.UserID)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "project name")
	project.AddCommand(create)

	project.AddCommand(&cobra.Command{
		Use:   "use <id>",
		Short: "Make a project the default for this workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, s session) error {
				id, err := s.Svc.ResolveProject(ctx, args[0], s.UserID)
				if err != nil {
					return err
				}
				path := filepath.Join(viper.GetString("workspace"), ".env")
				if err := setEnvValue(path, "TESTLAB_PROJECT", id); err != nil {
					return err
				}
				fmt.Printf("Using project %s\n", id)
				return nil
			})
		},
	})
	return project
}

func labCmd() *cobra.Command {
	lab := &cobra.Command{Use: "lab", Short: "Execute imported scripts in the active project"}
	lab.AddCommand(labImportCmd())
	lab.AddCommand(labListCmd())
	lab.AddCommand(labRecordCmd("save", "Save remarks and evidence; pending scripts move to in-progress"))
	lab.AddCommand(labRecordCmd("complete", "Mark an imported script completed"))
	lab.AddCommand(labSummaryCmd())
	return lab
}

func labImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <scriptId>...",
		Short: "Snapshot catalog scripts into the project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, s session, projectID string) error {
				res, err := s.Svc.ImportScripts(ctx, projectID, args...)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(res)
				}
				fmt.Printf("Imported %d script(s)\n", len(res.Imported))
				if len(res.Skipped) > 0 {
					fmt.Printf("Already imported: %s\n", strings.Join(res.Skipped, ", "))
				}
				if len(res.Missing) > 0 {
					fmt.Printf("Not in catalog: %s\n", strings.Join(res.Missing, ", "))
				}
				return nil
			})
		},
	}
}

func labListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List imported scripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, s session, projectID string) error {
				items, err := s.Svc.Engine.Projects.Imported(ctx, projectID)
				if err != nil {
					return err
				}
				if status != "" {
					var kept []domain.ImportedScript
					for _, it := range items {
						if string(it.Status) == status {
							kept = append(kept, it)
						}
					}
					items = kept
				}
				issues, err := s.Svc.Engine.Issues.List(ctx, projectID)
				if err != nil {
					return err
				}
				return printImported(items, issues)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "pending, in-progress or completed")
	return cmd
}

func labRecordCmd(use, short string) *cobra.Command {
	var remarks string
	var shots []string
	cmd := &cobra.Command{
		Use:   use + " <importedId>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, s session) error {
				evidence := parseScreenshots(shots, time.Now())
				if use == "complete" {
					return s.Svc.MarkComplete(ctx, args[0], remarks, evidence)
				}
				return s.Svc.SaveProgress(ctx, args[0], remarks, evidence)
			})
		},
	}
	cmd.Flags().StringVar(&remarks, "remarks", "", "execution remarks")
	cmd.Flags().StringArrayVar(&shots, "screenshot", nil, "path=description (repeatable; replaces stored evidence)")
	return cmd
}

func labSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Execution counts for the project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, s session, projectID string) error {
				sum, err := s.Svc.Summary(ctx, projectID)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(sum)
				}
				tw := newTable("Total", "Completed", "Pending", "With open issues")
				tw.AppendRow([]any{sum.Total, sum.Completed, sum.Pending, sum.WithOpenIssues})
				tw.Render()
				return nil
			})
		},
	}
}

func issueCmd() *cobra.Command {
	issue := &cobra.Command{Use: "issue", Short: "Track issues found during execution"}
	issue.AddCommand(issueListCmd())
	issue.AddCommand(issueRaiseCmd())
	issue.AddCommand(issueLinkCmd("link"))
	issue.AddCommand(issueLinkCmd("unlink"))
	issue.AddCommand(issueFixCmd())
	issue.AddCommand(issueReopenCmd())
	return issue
}

func issueListCmd() *cobra.Command {
	var importedID string
	var open bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List project issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, s session, projectID string) error {
				issues, err := s.Svc.Engine.Issues.List(ctx, projectID)
				if err != nil {
					return err
				}
				switch {
				case importedID != "" && open:
					issues = app.OpenIssues(issues, importedID)
				case importedID != "":
					issues = linkedTo(issues, importedID)
				case open:
					var kept []domain.Issue
					for _, is := range issues {
						if is.Status != domain.IssueFixed {
							kept = append(kept, is)
						}
					}
					issues = kept
				}
				return printIssues(issues)
			})
		},
	}
	cmd.Flags().StringVar(&importedID, "script", "", "only issues linked to this imported script")
	cmd.Flags().BoolVar(&open, "open", false, "only open or reopened issues")
	return cmd
}

func linkedTo(issues []domain.Issue, importedID string) []domain.Issue {
	var out []domain.Issue
	for _, is := range issues {
		for _, id := range is.ScriptIDs {
			if id == importedID {
				out = append(out, is)
				break
			}
		}
	}
	return out
}

func issueRaiseCmd() *cobra.Command {
	var in app.IssueInput
	var shots []string
	cmd := &cobra.Command{
		Use:   "raise <importedId>",
		Short: "Open a new issue linked to an imported script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, s session, projectID string) error {
				in.Screenshots = parseScreenshots(shots, time.Now())
				issue, err := s.Svc.RaiseIssue(ctx, projectID, args[0], in)
				if err != nil {
					return err
				}
				if jsonOutput() {
					return printJSON(issue)
				}
				fmt.Printf("Raised issue #%d (%s)\n", issue.IssueNumber, issue.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "issue title")
	cmd.Flags().StringVar(&in.Description, "desc", "", "issue description")
	cmd.Flags().StringArrayVar(&shots, "screenshot", nil, "path=description (repeatable)")
	return cmd
}

func issueLinkCmd(use string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <issue> <importedId>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " an issue and an imported script (issue by #number or id)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, s session, projectID string) error {
				issueID, err := resolveIssue(ctx, s.Svc.Engine, projectID, args[0])
				if err != nil {
					return err
				}
				if use == "unlink" {
					return s.Svc.UnlinkIssue(ctx, issueID, args[1])
				}
				linked, err := s.Svc.LinkIssue(ctx, issueID, args[1])
				if err != nil {
					return err
				}
				if !linked {
					fmt.Println("Already linked.")
				}
				return nil
			})
		},
	}
}

func issueFixCmd() *cobra.Command {
	var resolution string
	cmd := &cobra.Command{
		Use:   "fix <issue>",
		Short: "Mark an issue fixed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, s session, projectID string) error {
				issueID, err := resolveIssue(ctx, s.Svc.Engine, projectID, args[0])
				if err != nil {
					return err
				}
				return s.Svc.FixIssue(ctx, issueID, resolution)
			})
		},
	}
	cmd.Flags().StringVar(&resolution, "resolution", "", "how the issue was fixed")
	return cmd
}

func issueReopenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reopen <issue>",
		Short: "Reopen a fixed issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, s session, projectID string) error {
				issueID, err := resolveIssue(ctx, s.Svc.Engine, projectID, args[0])
				if err != nil {
					return err
				}
				return s.Svc.ReopenIssue(ctx, issueID)
			})
		},
	}
}

// resolveIssue accepts an issue id, or an issue number ("3" or "#3") within the project.
func resolveIssue(ctx context.Context, e *engine.Engine, projectID, ref string) (string, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(ref, "#"))
	if err != nil {
		return ref, nil
	}
	issues, err := e.Issues.List(ctx, projectID)
	if err != nil {
		return "", err
	}
	for _, is := range issues {
		if is.IssueNumber == n {
			return is.ID, nil
		}
	}
	return "", fmt.Errorf("issue #%d not found in project %s", n, projectID)
}

func logTailCmd() *cobra.Command {
	var n int
	var f events.Filter
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent activity, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, s session) error {
				if s.Svc.Engine.Events == nil {
					return fmt.Errorf("activity log is disabled")
				}
				evts, err := s.Svc.Engine.Events.Latest(ctx, n, f)
				if err != nil {
					return err
				}
				return printEvents(evts)
			})
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 20, "number of events (0 for all)")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type, e.g. issue.raised")
	cmd.Flags().StringVar(&f.EntityKind, "entity-kind", "", "folder, script, project, imported_script or issue")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	cmd.Flags().StringVar(&f.ProjectID, "project-id", "", "project id")
	return cmd
}
