package depgraph

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"

	"golang.org/x/sys/unix"

	"github.com/specialistvlad/layergraph/internal/ctxlog"
	"github.com/specialistvlad/layergraph/internal/users"
)

// PopulateDynamicItems records the items that exist under root after the
// layer was compiled but that no feature declared, such as files installed
// by the package manager. Users and groups are read from the image's
// /etc/passwd and /etc/group; missing databases are treated as empty.
//
// New items are placed in the End phase. Items already known are left
// untouched, so running it again on the same root adds nothing. It returns
// the number of items added.
func (g *Graph) PopulateDynamicItems(ctx context.Context, root string) (int, error) {
	logger := ctxlog.FromContext(ctx)
	added := 0

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		var st unix.Stat_t
		if err := unix.Lstat(p, &st); err != nil {
			return fmt.Errorf("lstat %s: %w", p, err)
		}
		mode := uint32(st.Mode)
		item := EntryItem(filepath.ToSlash(rel), fileTypeOf(mode), mode&0o7777)
		if g.addDynamic(item) {
			added++
		}
		return nil
	})
	if err != nil {
		return added, fmt.Errorf("scanning %s: %w", root, err)
	}

	passwd, err := users.ReadPasswd(root)
	if err != nil {
		return added, fmt.Errorf("reading users: %w", err)
	}
	for _, u := range passwd.Records() {
		if g.addDynamic(UserItem(u.Name)) {
			added++
		}
	}
	group, err := users.ReadGroup(root)
	if err != nil {
		return added, fmt.Errorf("reading groups: %w", err)
	}
	for _, gr := range group.Records() {
		if g.addDynamic(GroupItem(gr.Name)) {
			added++
		}
	}

	logger.Debug("PopulateDynamicItems: Scan complete.", "root", root, "added", added)
	return added, nil
}

// addDynamic inserts item unless its key already resolves to an item. A key
// that was only ever required is taken over by the discovered item.
func (g *Graph) addDynamic(item Item) bool {
	key := item.Key()
	if id, ok := g.items[key]; ok && g.g.node(id).Kind == NodeItem {
		return false
	}
	id := g.g.addNode(Node{Kind: NodeItem, Item: &item})
	g.g.updateEdge(g.end[0], id, EdgePartOf, nil)
	g.g.updateEdge(id, g.end[1], EdgeAfter, nil)
	g.items[key] = id

	at := slices.Index(g.topo, g.end[1])
	if at < 0 {
		at = len(g.topo)
	}
	g.topo = slices.Insert(g.topo, at, id)
	return true
}

func fileTypeOf(mode uint32) FileType {
	switch mode & unix.S_IFMT {
	case unix.S_IFDIR:
		return FileTypeDirectory
	case unix.S_IFLNK:
		return FileTypeSymlink
	case unix.S_IFBLK:
		return FileTypeBlockDevice
	case unix.S_IFCHR:
		return FileTypeCharDevice
	case unix.S_IFIFO:
		return FileTypeFifo
	case unix.S_IFSOCK:
		return FileTypeSocket
	default:
		return FileTypeFile
	}
}
