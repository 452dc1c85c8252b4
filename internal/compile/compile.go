package compile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
	"golang.org/x/sys/unix"

	"github.com/specialistvlad/layergraph/internal/ctxlog"
	"github.com/specialistvlad/layergraph/internal/features"
	"github.com/specialistvlad/layergraph/internal/users"
)

// Compile applies a single feature to the layer root.
func Compile(ctx context.Context, c *Context, f features.Feature) error {
	switch d := f.Data.(type) {
	case features.EnsureDirExists:
		return ensureDir(c, d)
	case features.Install:
		return install(c, d)
	case features.Symlink:
		return symlink(c, d)
	case features.Remove:
		return remove(c, d)
	case features.User:
		return addUser(c, d)
	case features.Group:
		return addGroup(c, d)
	case features.Extract:
		return extract(ctx, c, d)
	case features.Rpm:
		if c.PackageManager == nil {
			return ErrNoPackageManager
		}
		return c.PackageManager.Apply(ctx, c.Root, NewTransaction(d.Install, d.Remove))
	case features.Genrule:
		if c.CommandRunner == nil {
			return ErrNoCommandRunner
		}
		user := d.User
		if user == "" {
			user = "root"
		}
		return c.CommandRunner.Run(ctx, c.Root, user, d.Cmd)
	case features.Requires:
		return nil
	default:
		return fmt.Errorf("cannot compile feature of type %T", f.Data)
	}
}

func ensureDir(c *Context, d features.EnsureDirExists) error {
	dst := c.DstPath(d.Dir)
	if err := os.Mkdir(dst, 0o700); err != nil {
		if !errors.Is(err, fs.ErrExist) {
			return err
		}
		info, statErr := os.Lstat(dst)
		if statErr != nil {
			return statErr
		}
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", d.Dir)
		}
	}
	return setOwnership(c, dst, d.User, d.Group, d.Mode)
}

func install(c *Context, d features.Install) error {
	dst := c.DstPath(d.Dst)
	if err := copyFile(d.Src, dst); err != nil {
		return err
	}
	return setOwnership(c, dst, d.User, d.Group, d.Mode)
}

func symlink(c *Context, d features.Symlink) error {
	dst := c.DstPath(d.Link)
	err := os.Symlink(d.Target, dst)
	if err == nil || !errors.Is(err, fs.ErrExist) {
		return err
	}
	existing, readErr := os.Readlink(dst)
	if readErr != nil {
		return fmt.Errorf("%s exists and is not a symlink", d.Link)
	}
	if existing != d.Target {
		return fmt.Errorf("%s already points to %s, not %s", d.Link, existing, d.Target)
	}
	return nil
}

func remove(c *Context, d features.Remove) error {
	dst := c.DstPath(d.Path)
	if _, err := os.Lstat(dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !d.MustExist {
			return nil
		}
		return err
	}
	return os.RemoveAll(dst)
}

func addUser(c *Context, d features.User) error {
	passwd, err := users.ReadPasswd(c.Root)
	if err != nil {
		return err
	}
	group, err := users.ReadGroup(c.Root)
	if err != nil {
		return err
	}
	primary, ok := group.GroupByName(d.PrimaryGroup)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchGroup, d.PrimaryGroup)
	}
	uid := passwd.NextUID()
	if d.UID != nil {
		uid = *d.UID
	}
	if err := passwd.Add(users.UserRecord{
		Name:     d.Name,
		Password: "x",
		UID:      uid,
		GID:      primary.GID,
		Comment:  d.Comment,
		HomeDir:  d.HomeDir,
		Shell:    d.Shell,
	}); err != nil {
		return err
	}
	for _, name := range d.SupplementaryGroups {
		if _, ok := group.GroupByName(name); !ok {
			return fmt.Errorf("%w: %s", ErrNoSuchGroup, name)
		}
		if err := group.AddMember(name, d.Name); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(c.DstPath("/etc"), 0o755); err != nil {
		return err
	}
	if err := passwd.Write(c.Root); err != nil {
		return err
	}
	return group.Write(c.Root)
}

func addGroup(c *Context, d features.Group) error {
	group, err := users.ReadGroup(c.Root)
	if err != nil {
		return err
	}
	gid := group.NextGID()
	if d.GID != nil {
		gid = *d.GID
	}
	if err := group.Add(users.GroupRecord{Name: d.Name, Password: "x", GID: gid}); err != nil {
		return err
	}
	if err := os.MkdirAll(c.DstPath("/etc"), 0o755); err != nil {
		return err
	}
	return group.Write(c.Root)
}

func extract(ctx context.Context, c *Context, d features.Extract) error {
	logger := ctxlog.FromContext(ctx)
	switch {
	case d.Buck != nil:
		return extractFile(d.Buck.Src, c.DstPath(d.Buck.Dst))
	case d.Layer != nil:
		if d.Layer.Root == "" {
			return fmt.Errorf("extract from %s: layer root is not known", d.Layer.Layer)
		}
		for _, bin := range d.Layer.Binaries {
			src := filepath.Join(d.Layer.Root, filepath.FromSlash(bin))
			if err := extractFile(src, c.DstPath(bin)); err != nil {
				return err
			}
			logger.Debug("Extracted binary.", "layer", d.Layer.Layer, "binary", bin)
		}
		return nil
	default:
		return errors.New("extract: exactly one of buck or layer must be set")
	}
}

// extractFile copies src to dst unless dst already holds the same content.
func extractFile(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		same, err := sameContent(src, dst)
		if err != nil {
			return err
		}
		if !same {
			return &ExtractConflictError{Src: src, Dst: dst}
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Chmod(dst, 0o555)
}

func sameContent(a, b string) (bool, error) {
	ha, err := hashFile(a)
	if err != nil {
		return false, err
	}
	hb, err := hashFile(b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}

func hashFile(p string) ([32]byte, error) {
	var sum [32]byte
	f, err := os.Open(p)
	if err != nil {
		return sum, err
	}
	defer f.Close()
	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return sum, fmt.Errorf("hashing %s: %w", p, err)
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}

// setOwnership chowns then chmods, in that order: chown clears the setuid
// and setgid bits.
func setOwnership(c *Context, p, user, group string, mode features.Mode) error {
	uid, err := c.UID(user)
	if err != nil {
		return err
	}
	gid, err := c.GID(group)
	if err != nil {
		return err
	}
	if err := unix.Lchown(p, int(uid), int(gid)); err != nil {
		return fmt.Errorf("chown %s: %w", p, err)
	}
	if err := unix.Chmod(p, uint32(mode)); err != nil {
		return fmt.Errorf("chmod %s: %w", p, err)
	}
	return nil
}
