package engine

import (
	"context"
	"strings"

	"testlab/internal/domain"
	"testlab/internal/events"
	"testlab/internal/store"
)

// Folders manages the two-level folder tree.
type Folders struct {
	e *Engine
}

func (f Folders) List(ctx context.Context) ([]domain.Folder, error) {
	return store.List[domain.Folder](ctx, f.e.Store, store.KeyFolders)
}

// Add creates a root folder, or a subfolder when parentID is set. The parent is not checked.
func (f Folders) Add(ctx context.Context, name, parentID string) (domain.Folder, error) {
	t, _ := f.e.stamp()
	folder := domain.Folder{
		ID:          f.e.newID("folder", t),
		Name:        name,
		ParentID:    parentID,
		IsSubfolder: parentID != "",
	}
	err := store.Update(ctx, f.e.Store, store.KeyFolders, func(items []domain.Folder) ([]domain.Folder, bool) {
		return append(items, folder), true
	})
	if err != nil {
		return domain.Folder{}, err
	}
	f.e.record(ctx, "folder.created", "folder", folder.ID, "", events.Payload{"name": name, "parent_id": parentID})
	return folder, nil
}

func (f Folders) Update(ctx context.Context, id string, p domain.FolderPatch) error {
	found := false
	err := store.Update(ctx, f.e.Store, store.KeyFolders, func(items []domain.Folder) ([]domain.Folder, bool) {
		i := indexOf(items, func(x domain.Folder) bool { return x.ID == id })
		if i < 0 {
			return items, false
		}
		items[i] = p.Apply(items[i])
		found = true
		return items, true
	})
	if err != nil {
		return err
	}
	if !found {
		f.e.missing("folder.update", id)
		return nil
	}
	f.e.record(ctx, "folder.updated", "folder", id, "", nil)
	return nil
}

// Delete removes the folder and its direct subfolders in one write. Scripts
// filed under a removed subfolder are left in place and become orphans; use
// Purge to remove them too.
func (f Folders) Delete(ctx context.Context, id string) error {
	removed, err := f.remove(ctx, id)
	if err != nil || len(removed) == 0 {
		return err
	}
	f.e.record(ctx, "folder.deleted", "folder", id, "", events.Payload{"removed": strings.Join(removed, ",")})
	return nil
}

// Purge is Delete followed by removal of every script filed under a removed folder.
func (f Folders) Purge(ctx context.Context, id string) error {
	removed, err := f.remove(ctx, id)
	if err != nil || len(removed) == 0 {
		return err
	}
	gone := make(map[string]bool, len(removed))
	for _, r := range removed {
		gone[r] = true
	}
	var scripts []string
	err = store.Update(ctx, f.e.Store, store.KeyScripts, func(items []domain.Script) ([]domain.Script, bool) {
		kept := items[:0]
		for _, s := range items {
			if gone[s.SubfolderID] {
				scripts = append(scripts, s.ID)
				continue
			}
			kept = append(kept, s)
		}
		return kept, len(scripts) > 0
	})
	if err != nil {
		return err
	}
	f.e.record(ctx, "folder.purged", "folder", id, "", events.Payload{
		"removed": strings.Join(removed, ","),
		"scripts": strings.Join(scripts, ","),
	})
	return nil
}

func (f Folders) remove(ctx context.Context, id string) ([]string, error) {
	var removed []string
	err := store.Update(ctx, f.e.Store, store.KeyFolders, func(items []domain.Folder) ([]domain.Folder, bool) {
		kept := items[:0]
		for _, x := range items {
			if x.ID == id || (x.ParentID != "" && x.ParentID == id) {
				removed = append(removed, x.ID)
				continue
			}
			kept = append(kept, x)
		}
		return kept, len(removed) > 0
	})
	if err == nil && len(removed) == 0 {
		f.e.missing("folder.delete", id)
	}
	return removed, err
}

// Roots returns the top-level folders.
func Roots(folders []domain.Folder) []domain.Folder {
	var out []domain.Folder
	for _, f := range folders {
		if !f.IsSubfolder {
			out = append(out, f)
		}
	}
	return out
}

// Subfolders returns the folders whose parent is parentID.
func Subfolders(folders []domain.Folder, parentID string) []domain.Folder {
	var out []domain.Folder
	for _, f := range folders {
		if f.ParentID != "" && f.ParentID == parentID {
			out = append(out, f)
		}
	}
	return out
}

// AllSubfolders returns every folder flagged as a subfolder.
func AllSubfolders(folders []domain.Folder) []domain.Folder {
	var out []domain.Folder
	for _, f := range folders {
		if f.IsSubfolder {
			out = append(out, f)
		}
	}
	return out
}

type FolderNode struct {
	Folder   domain.Folder `json:"folder"`
	Children []FolderNode  `json:"children,omitempty"`
}

// Tree arranges folders as roots with their subfolders, in stored order.
func Tree(folders []domain.Folder) []FolderNode {
	var nodes []FolderNode
	for _, r := range Roots(folders) {
		n := FolderNode{Folder: r}
		for _, s := range Subfolders(folders, r.ID) {
			n.Children = append(n.Children, FolderNode{Folder: s})
		}
		nodes = append(nodes, n)
	}
	return nodes
}
