package depgraph

import (
	"fmt"
	"path"
	"strings"
)

// FileType is the type of a filesystem entry.
type FileType int

const (
	FileTypeFile FileType = iota
	FileTypeDirectory
	FileTypeSymlink
	FileTypeBlockDevice
	FileTypeCharDevice
	FileTypeFifo
	FileTypeSocket
)

func (t FileType) String() string {
	switch t {
	case FileTypeFile:
		return "file"
	case FileTypeDirectory:
		return "directory"
	case FileTypeSymlink:
		return "symlink"
	case FileTypeBlockDevice:
		return "block-device"
	case FileTypeCharDevice:
		return "char-device"
	case FileTypeFifo:
		return "fifo"
	case FileTypeSocket:
		return "socket"
	default:
		return fmt.Sprintf("FileType(%d)", int(t))
	}
}

// KeyKind is the namespace of an ItemKey.
type KeyKind string

const (
	KeyPath  KeyKind = "path"
	KeyUser  KeyKind = "user"
	KeyGroup KeyKind = "group"
	KeyLayer KeyKind = "layer"
)

// ItemKey is the identity of an item, independent of its full value. Two
// items with the same key describe "the same" thing.
type ItemKey struct {
	Kind KeyKind `cbor:"kind"`
	Name string  `cbor:"name"`
}

// PathKey returns the key of a filesystem path. The path is cleaned so that
// "/etc/" and "/etc" are the same item.
func PathKey(p string) ItemKey {
	return ItemKey{Kind: KeyPath, Name: CleanPath(p)}
}

// UserKey returns the key of a user account.
func UserKey(name string) ItemKey { return ItemKey{Kind: KeyUser, Name: name} }

// GroupKey returns the key of a group.
func GroupKey(name string) ItemKey { return ItemKey{Kind: KeyGroup, Name: name} }

// LayerKey returns the key of a layer dependency.
func LayerKey(label string) ItemKey { return ItemKey{Kind: KeyLayer, Name: label} }

func (k ItemKey) String() string {
	return string(k.Kind) + ":" + k.Name
}

// CleanPath normalizes an absolute path in the image.
func CleanPath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// FsEntry is a filesystem entry that exists in the image.
type FsEntry struct {
	Path     string   `cbor:"path"`
	FileType FileType `cbor:"file_type"`
	Mode     uint32   `cbor:"mode"`
}

// RemovedPath records that a path was deleted.
type RemovedPath struct {
	Path string `cbor:"path"`
}

// User is a user account.
type User struct {
	Name string `cbor:"name"`
}

// Group is a group.
type Group struct {
	Name string `cbor:"name"`
}

// Layer is another, already resolved layer that this one may look into.
type Layer struct {
	Label string `cbor:"label"`
	Graph *Graph `cbor:"graph"`
}

// Item is a concrete piece of system state. Exactly one field is set. Entry
// and Removed are both path items and share the same key space.
type Item struct {
	Entry   *FsEntry     `cbor:"entry,omitempty"`
	Removed *RemovedPath `cbor:"removed,omitempty"`
	User    *User        `cbor:"user,omitempty"`
	Group   *Group       `cbor:"group,omitempty"`
	Layer   *Layer       `cbor:"layer,omitempty"`
}

// EntryItem builds a path item for an existing filesystem entry.
func EntryItem(p string, ft FileType, mode uint32) Item {
	return Item{Entry: &FsEntry{Path: CleanPath(p), FileType: ft, Mode: mode}}
}

// RemovedItem builds the undo item of a deleted path.
func RemovedItem(p string) Item {
	return Item{Removed: &RemovedPath{Path: CleanPath(p)}}
}

// UserItem builds a user item.
func UserItem(name string) Item { return Item{User: &User{Name: name}} }

// GroupItem builds a group item.
func GroupItem(name string) Item { return Item{Group: &Group{Name: name}} }

// LayerItem builds a layer item embedding a resolved graph.
func LayerItem(label string, g *Graph) Item { return Item{Layer: &Layer{Label: label, Graph: g}} }

// Key returns the identity of the item.
func (i Item) Key() ItemKey {
	switch {
	case i.Entry != nil:
		return PathKey(i.Entry.Path)
	case i.Removed != nil:
		return PathKey(i.Removed.Path)
	case i.User != nil:
		return UserKey(i.User.Name)
	case i.Group != nil:
		return GroupKey(i.Group.Name)
	case i.Layer != nil:
		return LayerKey(i.Layer.Label)
	default:
		return ItemKey{}
	}
}

// undoes reports whether i supersedes prev, an item with the same key:
// removing something that exists, or recreating something that was removed.
func (i Item) undoes(prev Item) bool {
	if i.Removed != nil {
		return prev.Removed == nil
	}
	if i.Entry != nil {
		return prev.Removed != nil
	}
	return false
}

func (i Item) String() string {
	switch {
	case i.Entry != nil:
		return fmt.Sprintf("%s %s (%04o)", i.Entry.FileType, i.Entry.Path, i.Entry.Mode)
	case i.Removed != nil:
		return fmt.Sprintf("removed %s", i.Removed.Path)
	case i.User != nil:
		return fmt.Sprintf("user %s", i.User.Name)
	case i.Group != nil:
		return fmt.Sprintf("group %s", i.Group.Name)
	case i.Layer != nil:
		return fmt.Sprintf("layer %s", i.Layer.Label)
	default:
		return "empty item"
	}
}
