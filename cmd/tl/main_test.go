package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testlab/internal/domain"
	"testlab/internal/engine"
	"testlab/internal/store"
)

func TestSetEnvValueKeepsOtherEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("TESTLAB_USER=alice\n"), 0o644))

	require.NoError(t, setEnvValue(path, "TESTLAB_PROJECT", "project_1"))
	require.NoError(t, setEnvValue(path, "TESTLAB_PROJECT", "project_2"))

	env, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"TESTLAB_USER": "alice", "TESTLAB_PROJECT": "project_2"}, env)
}

func TestSetEnvValueCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, setEnvValue(path, "TESTLAB_PROJECT", "p"))
	env, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "p", env["TESTLAB_PROJECT"])
}

func TestParseScreenshots(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	shots := parseScreenshots([]string{"shots/login.png=after submit", " =ignored", "err.png"}, now)
	require.Len(t, shots, 2)
	assert.Equal(t, "login.png", shots[0].Filename)
	assert.Equal(t, "after submit", shots[0].Description)
	assert.Equal(t, "shots/login.png", shots[0].Path)
	assert.Equal(t, "err.png", shots[1].Filename)
	assert.Empty(t, shots[1].Description)
	assert.NotEqual(t, shots[0].ID, shots[1].ID)
}

func TestResolveIssue(t *testing.T) {
	ctx := context.Background()
	eng := engine.New(store.New(store.NewMemoryBackend(), nil), nil)
	first, err := eng.Issues.Add(ctx, domain.NewIssue{Title: "a", Status: domain.IssueOpen, ProjectID: "p1"})
	require.NoError(t, err)
	second, err := eng.Issues.Add(ctx, domain.NewIssue{Title: "b", Status: domain.IssueOpen, ProjectID: "p1"})
	require.NoError(t, err)

	id, err := resolveIssue(ctx, eng, "p1", "#2")
	require.NoError(t, err)
	assert.Equal(t, second.ID, id)

	id, err = resolveIssue(ctx, eng, "p1", "1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, id)

	id, err = resolveIssue(ctx, eng, "p1", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, id)

	_, err = resolveIssue(ctx, eng, "p2", "#1")
	assert.ErrorContains(t, err, "not found")
}

func TestLinkedTo(t *testing.T) {
	issues := []domain.Issue{
		{ID: "a", ScriptIDs: []string{"x", "y"}},
		{ID: "b", ScriptIDs: []string{"y"}},
		{ID: "c"},
	}
	got := linkedTo(issues, "y")
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Empty(t, linkedTo(issues, "z"))
}
