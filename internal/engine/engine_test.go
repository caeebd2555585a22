package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"testlab/internal/domain"
	"testlab/internal/engine"
	"testlab/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testEnv struct {
	Engine  *engine.Engine
	Backend *store.MemoryBackend
	Ctx     context.Context
}

// newTestEnv returns an engine over memory storage whose clock advances one
// millisecond per reading.
func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	b := store.NewMemoryBackend()
	eng := engine.New(store.New(b, nil), nil)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	eng.Now = func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}
	return testEnv{Engine: eng, Backend: b, Ctx: context.Background()}
}

// snapshot captures the raw bytes of every collection.
func (env testEnv) snapshot(t *testing.T) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, k := range store.Keys {
		b, err := env.Backend.Load(env.Ctx, k)
		if err == store.ErrKeyNotFound {
			continue
		}
		require.NoError(t, err)
		out[k] = string(b)
	}
	return out
}

func sampleScript(subfolderID string) domain.NewScript {
	return domain.NewScript{
		ScriptID:         "TC-001",
		ShortDescription: "Login with valid credentials",
		TestEnvironment:  domain.EnvOnline,
		TestType:         domain.TypePositive,
		Purpose:          "verify login",
		Assumptions:      []string{"user exists", "service up"},
		ExpectedResults:  "dashboard shown",
		ScriptDetails:    "1. open\n2. login",
		Screenshots:      []domain.Screenshot{{ID: "shot-1", Filename: "a.png", Description: "form", Path: "data:image/png;base64,AAA"}},
		SubfolderID:      subfolderID,
	}
}

func TestGeneratedIDsAreDistinct(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	e.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	seen := map[string]bool{}
	add := func(id string) {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	root, err := e.Folders.Add(env.Ctx, "root", "")
	require.NoError(t, err)
	add(root.ID)
	for i := 0; i < 50; i++ {
		f, err := e.Folders.Add(env.Ctx, "sub", root.ID)
		require.NoError(t, err)
		add(f.ID)
		s, err := e.Catalog.Add(env.Ctx, sampleScript(f.ID))
		require.NoError(t, err)
		add(s.ID)
		p, err := e.Projects.Add(env.Ctx, "p", "user01")
		require.NoError(t, err)
		add(p.ID)
		imp, ok, err := e.Projects.Import(env.Ctx, s.ID, p.ID)
		require.NoError(t, err)
		require.True(t, ok)
		add(imp.ID)
		is, err := e.Issues.Add(env.Ctx, domain.NewIssue{Title: "t", ProjectID: p.ID, Status: domain.IssueOpen})
		require.NoError(t, err)
		add(is.ID)
	}
}

func TestAddFolderSetsSubfolderFlag(t *testing.T) {
	env := newTestEnv(t)
	root, err := env.Engine.Folders.Add(env.Ctx, "Payments", "")
	require.NoError(t, err)
	assert.False(t, root.IsSubfolder)
	assert.Empty(t, root.ParentID)

	sub, err := env.Engine.Folders.Add(env.Ctx, "Cards", root.ID)
	require.NoError(t, err)
	assert.True(t, sub.IsSubfolder)
	assert.Equal(t, root.ID, sub.ParentID)

	folders, err := env.Engine.Folders.List(env.Ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Folder{root}, engine.Roots(folders))
	assert.Equal(t, []domain.Folder{sub}, engine.Subfolders(folders, root.ID))
	tree := engine.Tree(folders)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, sub.ID, tree[0].Children[0].Folder.ID)
}

func TestUpdateFolderRenames(t *testing.T) {
	env := newTestEnv(t)
	f, err := env.Engine.Folders.Add(env.Ctx, "old", "")
	require.NoError(t, err)
	require.NoError(t, env.Engine.Folders.Update(env.Ctx, f.ID, domain.FolderPatch{Name: domain.Ptr("new")}))
	folders, err := env.Engine.Folders.List(env.Ctx)
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "new", folders[0].Name)
	assert.Equal(t, f.ID, folders[0].ID)
}

func TestDeleteFolderCascadesToSubfoldersOnly(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	r, err := e.Folders.Add(env.Ctx, "R", "")
	require.NoError(t, err)
	s, err := e.Folders.Add(env.Ctx, "S", r.ID)
	require.NoError(t, err)
	other, err := e.Folders.Add(env.Ctx, "Other", "")
	require.NoError(t, err)
	sc, err := e.Catalog.Add(env.Ctx, sampleScript(s.ID))
	require.NoError(t, err)

	require.NoError(t, e.Folders.Delete(env.Ctx, r.ID))

	folders, err := e.Folders.List(env.Ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Folder{other}, folders)

	scripts, err := e.Catalog.List(env.Ctx)
	require.NoError(t, err)
	require.Len(t, scripts, 1)
	assert.Equal(t, sc.ID, scripts[0].ID)

	orphans, err := e.Catalog.Orphans(env.Ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, sc.ID, orphans[0].ID)
}

func TestDeleteFolderWithEmptyIDKeepsRoots(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Folders.Add(env.Ctx, "R", "")
	require.NoError(t, err)
	before := env.snapshot(t)
	require.NoError(t, env.Engine.Folders.Delete(env.Ctx, ""))
	assert.Empty(t, cmp.Diff(before, env.snapshot(t)))
}

func TestPurgeFolderRemovesScripts(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	r, _ := e.Folders.Add(env.Ctx, "R", "")
	s1, _ := e.Folders.Add(env.Ctx, "S1", r.ID)
	keep, _ := e.Folders.Add(env.Ctx, "Keep", "")
	s2, _ := e.Folders.Add(env.Ctx, "S2", keep.ID)
	_, err := e.Catalog.Add(env.Ctx, sampleScript(s1.ID))
	require.NoError(t, err)
	kept, err := e.Catalog.Add(env.Ctx, sampleScript(s2.ID))
	require.NoError(t, err)

	require.NoError(t, e.Folders.Purge(env.Ctx, r.ID))

	scripts, err := e.Catalog.List(env.Ctx)
	require.NoError(t, err)
	require.Len(t, scripts, 1)
	assert.Equal(t, kept.ID, scripts[0].ID)
	orphans, err := e.Catalog.Orphans(env.Ctx)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}

func TestSnapshotIsolation(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	sc, err := e.Catalog.Add(env.Ctx, sampleScript("sub"))
	require.NoError(t, err)
	p, err := e.Projects.Add(env.Ctx, "Release 1", "user01")
	require.NoError(t, err)
	imp, ok, err := e.Projects.Import(env.Ctx, sc.ID, p.ID)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, e.Catalog.Update(env.Ctx, sc.ID, domain.ScriptPatch{
		ShortDescription: domain.Ptr("changed"),
		Assumptions:      &[]string{"different"},
	}))
	require.NoError(t, e.Catalog.Delete(env.Ctx, sc.ID))

	got, err := e.Projects.ImportedByID(env.Ctx, imp.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(sc, got.Script); diff != "" {
		t.Fatalf("snapshot changed (-want +got):\n%s", diff)
	}
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, sc.ID, got.OriginalScriptID)
	assert.Empty(t, got.Issues)
	assert.Empty(t, got.TestScreenshots)
}

func TestImportUnknownScriptIsNoop(t *testing.T) {
	env := newTestEnv(t)
	p, err := env.Engine.Projects.Add(env.Ctx, "p", "user01")
	require.NoError(t, err)
	before := env.snapshot(t)
	_, ok, err := env.Engine.Projects.Import(env.Ctx, "script_missing", p.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, cmp.Diff(before, env.snapshot(t)))
}

func TestDuplicateImportAllowed(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	sc, _ := e.Catalog.Add(env.Ctx, sampleScript("sub"))
	p, _ := e.Projects.Add(env.Ctx, "p", "user01")
	a, _, err := e.Projects.Import(env.Ctx, sc.ID, p.ID)
	require.NoError(t, err)
	b, _, err := e.Projects.Import(env.Ctx, sc.ID, p.ID)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	imported, err := e.Projects.Imported(env.Ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, imported, 2)
	for _, s := range imported {
		assert.Equal(t, sc.ID, s.OriginalScriptID)
	}
}

func TestProjectsFilteredByOwner(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	mine, _ := e.Projects.Add(env.Ctx, "mine", "user01")
	_, _ = e.Projects.Add(env.Ctx, "theirs", "user02")
	_, _ = e.Projects.Add(env.Ctx, "mine", "user01")

	got, err := e.Projects.List(env.Ctx, "user01")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, mine.ID, got[0].ID)

	none, err := e.Projects.List(env.Ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestImportedScriptStatusIsPermissive(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	sc, _ := e.Catalog.Add(env.Ctx, sampleScript("sub"))
	p, _ := e.Projects.Add(env.Ctx, "p", "user01")
	imp, _, _ := e.Projects.Import(env.Ctx, sc.ID, p.ID)

	done := "2024-02-01T00:00:00.000Z"
	require.NoError(t, e.Projects.UpdateImported(env.Ctx, imp.ID, domain.ImportedScriptPatch{
		Status:      domain.Ptr(domain.StatusCompleted),
		Remarks:     domain.Ptr("all good"),
		CompletedAt: &done,
	}))
	require.NoError(t, e.Projects.UpdateImported(env.Ctx, imp.ID, domain.ImportedScriptPatch{
		Status: domain.Ptr(domain.StatusPending),
	}))

	got, err := e.Projects.ImportedByID(env.Ctx, imp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, "all good", got.Remarks)
	assert.Equal(t, done, got.CompletedAt)
}

func TestPerProjectIssueNumbering(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	p1, _ := e.Projects.Add(env.Ctx, "P1", "user01")
	p2, _ := e.Projects.Add(env.Ctx, "P2", "user01")

	a, err := e.Issues.Add(env.Ctx, domain.NewIssue{Title: "a", ProjectID: p1.ID, Status: domain.IssueOpen})
	require.NoError(t, err)
	b, err := e.Issues.Add(env.Ctx, domain.NewIssue{Title: "b", ProjectID: p1.ID, Status: domain.IssueOpen})
	require.NoError(t, err)
	c, err := e.Issues.Add(env.Ctx, domain.NewIssue{Title: "c", ProjectID: p2.ID, Status: domain.IssueOpen})
	require.NoError(t, err)

	assert.Equal(t, 1, a.IssueNumber)
	assert.Equal(t, 2, b.IssueNumber)
	assert.Equal(t, 1, c.IssueNumber)
}

func TestNextNumberIsMaxBased(t *testing.T) {
	issues := []domain.Issue{
		{ProjectID: "p1", IssueNumber: 1},
		{ProjectID: "p1", IssueNumber: 7},
		{ProjectID: "p2", IssueNumber: 40},
	}
	assert.Equal(t, 8, engine.NextNumber(issues, "p1"))
	assert.Equal(t, 41, engine.NextNumber(issues, "p2"))
	assert.Equal(t, 1, engine.NextNumber(issues, "p3"))
}

func TestUnknownIDsAreNoops(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	r, _ := e.Folders.Add(env.Ctx, "R", "")
	_, _ = e.Folders.Add(env.Ctx, "S", r.ID)
	sc, _ := e.Catalog.Add(env.Ctx, sampleScript("S"))
	p, _ := e.Projects.Add(env.Ctx, "p", "user01")
	imp, _, _ := e.Projects.Import(env.Ctx, sc.ID, p.ID)
	is, _ := e.Issues.Add(env.Ctx, domain.NewIssue{Title: "t", ProjectID: p.ID})
	require.NoError(t, e.Issues.Link(env.Ctx, is.ID, imp.ID))

	before := env.snapshot(t)
	require.NoError(t, e.Folders.Update(env.Ctx, "nonexistent", domain.FolderPatch{Name: domain.Ptr("x")}))
	require.NoError(t, e.Folders.Delete(env.Ctx, "nonexistent"))
	require.NoError(t, e.Folders.Purge(env.Ctx, "nonexistent"))
	require.NoError(t, e.Catalog.Update(env.Ctx, "nonexistent", domain.ScriptPatch{Purpose: domain.Ptr("x")}))
	require.NoError(t, e.Catalog.Delete(env.Ctx, "nonexistent"))
	require.NoError(t, e.Projects.UpdateImported(env.Ctx, "nonexistent", domain.ImportedScriptPatch{Remarks: domain.Ptr("x")}))
	require.NoError(t, e.Issues.Update(env.Ctx, "nonexistent", domain.IssuePatch{Title: domain.Ptr("x")}))
	require.NoError(t, e.Issues.Link(env.Ctx, "nonexistent", "nonexistent"))
	require.NoError(t, e.Issues.Link(env.Ctx, is.ID, imp.ID))
	require.NoError(t, e.Issues.Unlink(env.Ctx, "nonexistent", "nonexistent"))

	if diff := cmp.Diff(before, env.snapshot(t)); diff != "" {
		t.Fatalf("collections changed (-before +after):\n%s", diff)
	}
}

func TestScriptTimestamps(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	sc, err := e.Catalog.Add(env.Ctx, sampleScript("sub"))
	require.NoError(t, err)
	assert.Equal(t, sc.CreatedAt, sc.UpdatedAt)

	require.NoError(t, e.Catalog.Update(env.Ctx, sc.ID, domain.ScriptPatch{Purpose: domain.Ptr("new purpose")}))
	got, err := e.Catalog.Get(env.Ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, sc.CreatedAt, got.CreatedAt)
	assert.Equal(t, "new purpose", got.Purpose)

	created, err := domain.ParseTime(got.CreatedAt)
	require.NoError(t, err)
	updated, err := domain.ParseTime(got.UpdatedAt)
	require.NoError(t, err)
	assert.True(t, updated.After(created), "updatedAt %s not after createdAt %s", got.UpdatedAt, got.CreatedAt)
}

func TestCatalogStoresAssumptionsAsGiven(t *testing.T) {
	env := newTestEnv(t)
	in := sampleScript("sub")
	in.Assumptions = []string{"a", "", "  "}
	sc, err := env.Engine.Catalog.Add(env.Ctx, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "", "  "}, sc.Assumptions)
}

func TestGetUnknownReturnsErrNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Catalog.Get(env.Ctx, "missing")
	assert.ErrorIs(t, err, engine.ErrNotFound)
	_, err = env.Engine.Projects.Get(env.Ctx, "missing")
	assert.ErrorIs(t, err, engine.ErrNotFound)
	_, err = env.Engine.Issues.Get(env.Ctx, "missing")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestFilterScripts(t *testing.T) {
	scripts := []domain.Script{
		{ID: "1", ScriptID: "TC-LOGIN-01", ShortDescription: "Login ok", SubfolderID: "a"},
		{ID: "2", ScriptID: "TC-PAY-01", ShortDescription: "Card payment", SubfolderID: "b"},
		{ID: "3", ScriptID: "TC-PAY-02", ShortDescription: "Refund after LOGIN", SubfolderID: "b"},
	}
	ids := func(in []domain.Script) []string {
		var out []string
		for _, s := range in {
			out = append(out, s.ID)
		}
		return out
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids(engine.Filter(scripts, engine.ScriptFilter{})))
	assert.Equal(t, []string{"2", "3"}, ids(engine.Filter(scripts, engine.ScriptFilter{SubfolderID: "b"})))
	assert.Equal(t, []string{"1", "3"}, ids(engine.Filter(scripts, engine.ScriptFilter{Search: "login"})))
	assert.Equal(t, []string{"3"}, ids(engine.Filter(scripts, engine.ScriptFilter{SubfolderID: "b", Search: "Login"})))
}

func TestEventsRecordedOnMutations(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine
	f, _ := e.Folders.Add(env.Ctx, "R", "")
	require.NoError(t, e.Folders.Update(env.Ctx, "missing", domain.FolderPatch{Name: domain.Ptr("x")}))
	require.NoError(t, e.Folders.Delete(env.Ctx, f.ID))

	evts, err := e.Events.Latest(env.Ctx, 0, eventsFilter("folder", f.ID))
	require.NoError(t, err)
	require.Len(t, evts, 2)
	assert.Equal(t, "folder.deleted", evts[0].Type)
	assert.Equal(t, "folder.created", evts[1].Type)
}

func TestWithoutEventsWritesNoLog(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.WithoutEvents()
	_, err := env.Engine.Folders.Add(env.Ctx, "R", "")
	require.NoError(t, err)
	_, err = env.Backend.Load(env.Ctx, store.KeyEvents)
	assert.ErrorIs(t, err, store.ErrKeyNotFound)
}
