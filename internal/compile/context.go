// Package compile applies resolved features to a layer's root directory.
//
// The depgraph decides what runs and in which order; this package is what
// actually runs it. Side effects that need a package manager or process
// isolation are delegated to the PackageManager and CommandRunner
// collaborators supplied in the Context.
package compile

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/specialistvlad/layergraph/internal/depgraph"
	"github.com/specialistvlad/layergraph/internal/users"
)

// PackageManager resolves and applies rpm transactions inside a root.
type PackageManager interface {
	// Resolve checks that the transaction can be applied, without applying
	// it.
	Resolve(ctx context.Context, root string, tx Transaction) error
	// Apply installs and removes the packages of tx.
	Apply(ctx context.Context, root string, tx Transaction) error
}

// CommandRunner runs a command inside root as the given user.
type CommandRunner interface {
	Run(ctx context.Context, root, user string, cmd []string) error
}

// Context is shared by every feature compiled into one layer.
type Context struct {
	// Label identifies the layer being compiled.
	Label string
	// Root is the directory the layer is built into.
	Root string

	PackageManager PackageManager
	CommandRunner  CommandRunner
}

// DstPath maps an absolute path in the image to its location under Root.
func (c *Context) DstPath(p string) string {
	return filepath.Join(c.Root, filepath.FromSlash(depgraph.CleanPath(p)))
}

// UID resolves a user name through the image's own /etc/passwd. The
// database is read on every call because features earlier in the same layer
// may have added to it.
func (c *Context) UID(name string) (uint32, error) {
	passwd, err := users.ReadPasswd(c.Root)
	if err != nil {
		return 0, fmt.Errorf("reading users: %w", err)
	}
	u, ok := passwd.UserByName(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoSuchUser, name)
	}
	return u.UID, nil
}

// GID resolves a group name through the image's own /etc/group.
func (c *Context) GID(name string) (uint32, error) {
	group, err := users.ReadGroup(c.Root)
	if err != nil {
		return 0, fmt.Errorf("reading groups: %w", err)
	}
	g, ok := group.GroupByName(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoSuchGroup, name)
	}
	return g.GID, nil
}
