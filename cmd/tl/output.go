package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/viper"

	"testlab/internal/domain"
	"testlab/internal/engine"
)

func newTable(header ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row(header))
	return tw
}

func executionStatus(s domain.ExecutionStatus) string {
	switch s {
	case domain.StatusCompleted:
		return color.New(color.FgGreen).Sprint(s)
	case domain.StatusInProgress:
		return color.New(color.FgYellow).Sprint(s)
	default:
		return color.New(color.FgHiBlack).Sprint(s)
	}
}

func issueStatus(s domain.IssueStatus) string {
	switch s {
	case domain.IssueFixed:
		return color.New(color.FgGreen).Sprint(s)
	case domain.IssueReopened:
		return color.New(color.FgHiYellow).Sprint(s)
	default:
		return color.New(color.FgRed).Sprint(s)
	}
}

func printFolders(folders []domain.Folder) error {
	if jsonOutput() {
		return printJSON(folders)
	}
	names := map[string]string{}
	for _, f := range folders {
		names[f.ID] = f.Name
	}
	tw := newTable("ID", "Name", "Parent")
	for _, f := range folders {
		tw.AppendRow(table.Row{f.ID, f.Name, names[f.ParentID]})
	}
	tw.Render()
	return nil
}

func printFolderTree(nodes []engine.FolderNode) error {
	if jsonOutput() {
		return printJSON(nodes)
	}
	for i, n := range nodes {
		printFolderNode(n, "", i == len(nodes)-1)
	}
	return nil
}

func printFolderNode(n engine.FolderNode, prefix string, last bool) {
	connector := "├── "
	newPrefix := prefix + "│   "
	if last {
		connector = "└── "
		newPrefix = prefix + "    "
	}
	fmt.Printf("%s%s%s %s\n", prefix, connector, n.Folder.Name, color.New(color.FgHiBlack).Sprint(n.Folder.ID))
	for i, c := range n.Children {
		printFolderNode(c, newPrefix, i == len(n.Children)-1)
	}
}

func printScripts(scripts []domain.Script) error {
	if jsonOutput() {
		return printJSON(scripts)
	}
	tw := newTable("ID", "Script", "Description", "Environment", "Type", "Subfolder", "Updated")
	for _, s := range scripts {
		tw.AppendRow(table.Row{s.ID, s.ScriptID, s.ShortDescription, s.TestEnvironment, s.TestType, s.SubfolderID, s.UpdatedAt})
	}
	tw.Render()
	return nil
}

func printProjects(projects []domain.Project) error {
	if jsonOutput() {
		return printJSON(projects)
	}
	tw := newTable("ID", "Name", "Owner", "Created")
	for _, p := range projects {
		tw.AppendRow(table.Row{p.ID, p.Name, p.UserID, p.CreatedAt})
	}
	tw.Render()
	return nil
}

func printImported(items []domain.ImportedScript, issues []domain.Issue) error {
	if jsonOutput() {
		return printJSON(items)
	}
	numbers := map[string]int{}
	for _, is := range issues {
		numbers[is.ID] = is.IssueNumber
	}
	tw := newTable("ID", "Script", "Description", "Status", "Issues", "Completed")
	for _, imp := range items {
		var refs []string
		for _, id := range imp.Issues {
			refs = append(refs, fmt.Sprintf("#%d", numbers[id]))
		}
		tw.AppendRow(table.Row{imp.ID, imp.Script.ScriptID, imp.Script.ShortDescription, executionStatus(imp.Status), strings.Join(refs, " "), imp.CompletedAt})
	}
	tw.Render()
	return nil
}

func printIssues(issues []domain.Issue) error {
	if jsonOutput() {
		return printJSON(issues)
	}
	tw := newTable("#", "ID", "Title", "Status", "Scripts", "Resolution", "Updated")
	for _, is := range issues {
		res := ""
		if is.Resolution != nil {
			res = *is.Resolution
		}
		tw.AppendRow(table.Row{is.IssueNumber, is.ID, is.Title, issueStatus(is.Status), len(is.ScriptIDs), res, is.UpdatedAt})
	}
	tw.Render()
	return nil
}

func printEvents(evts []domain.Event) error {
	if jsonOutput() {
		return printJSON(evts)
	}
	tw := newTable("Time", "Type", "Entity", "Project")
	for _, e := range evts {
		tw.AppendRow(table.Row{e.TS, e.Type, e.EntityKind + ":" + e.EntityID, e.ProjectID})
	}
	tw.Render()
	return nil
}

func jsonOutput() bool { return viper.GetBool("json") }
