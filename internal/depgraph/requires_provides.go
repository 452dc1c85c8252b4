package depgraph

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/specialistvlad/layergraph/internal/features"
)

var errUnknownFeature = errors.New("unknown feature kind")

// provides returns the items a feature will create.
func provides(f features.Feature) ([]Item, error) {
	switch d := f.Data.(type) {
	case features.EnsureDirExists:
		if err := checkPath("dir", d.Dir, false); err != nil {
			return nil, err
		}
		return []Item{EntryItem(d.Dir, FileTypeDirectory, uint32(d.Mode))}, nil
	case features.Install:
		if d.Src == "" {
			return nil, errors.New("src must not be empty")
		}
		if err := checkPath("dst", d.Dst, false); err != nil {
			return nil, err
		}
		return []Item{EntryItem(d.Dst, FileTypeFile, uint32(d.Mode))}, nil
	case features.Symlink:
		if err := checkPath("link", d.Link, false); err != nil {
			return nil, err
		}
		return []Item{EntryItem(d.Link, FileTypeSymlink, 0o777)}, nil
	case features.Remove:
		if err := checkPath("path", d.Path, false); err != nil {
			return nil, err
		}
		return []Item{RemovedItem(d.Path)}, nil
	case features.User:
		if d.Name == "" {
			return nil, errors.New("user name must not be empty")
		}
		return []Item{UserItem(d.Name)}, nil
	case features.Group:
		if d.Name == "" {
			return nil, errors.New("group name must not be empty")
		}
		return []Item{GroupItem(d.Name)}, nil
	case features.Extract:
		// Only the binaries that were asked for are provided. The libraries
		// they pull in are checked for content conflicts when extracting,
		// otherwise every layer extracting from the same toolchain would
		// conflict on libc.
		switch {
		case d.Buck != nil && d.Layer == nil:
			if err := checkPath("dst", d.Buck.Dst, false); err != nil {
				return nil, err
			}
			return []Item{EntryItem(d.Buck.Dst, FileTypeFile, 0o555)}, nil
		case d.Layer != nil && d.Buck == nil:
			if len(d.Layer.Binaries) == 0 {
				return nil, errors.New("extract: no binaries listed")
			}
			items := make([]Item, 0, len(d.Layer.Binaries))
			for _, bin := range d.Layer.Binaries {
				if err := checkPath("binary", bin, false); err != nil {
					return nil, err
				}
				items = append(items, EntryItem(bin, FileTypeFile, 0o555))
			}
			return items, nil
		default:
			return nil, errors.New("extract: exactly one of buck or layer must be set")
		}
	case features.Rpm, features.Genrule, features.Requires:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %T", errUnknownFeature, f.Data)
	}
}

// requires returns the preconditions of a feature.
func requires(f features.Feature) ([]Requirement, error) {
	switch d := f.Data.(type) {
	case features.EnsureDirExists:
		if d.User == "" || d.Group == "" {
			return nil, errors.New("user and group must not be empty")
		}
		return []Requirement{
			{Key: UserKey(d.User), Validator: Exists()},
			{Key: GroupKey(d.Group), Validator: Exists()},
			parentDir(d.Dir),
		}, nil
	case features.Install:
		if d.User == "" || d.Group == "" {
			return nil, errors.New("user and group must not be empty")
		}
		return []Requirement{
			{Key: UserKey(d.User), Validator: Exists()},
			{Key: GroupKey(d.Group), Validator: Exists()},
			parentDir(d.Dst),
		}, nil
	case features.Symlink:
		if d.Target == "" {
			return nil, errors.New("symlink target must not be empty")
		}
		target := d.Target
		if !strings.HasPrefix(target, "/") {
			target = path.Join(path.Dir(CleanPath(d.Link)), target)
		}
		want := FileTypeFile
		if d.IsDirectory {
			want = FileTypeDirectory
		}
		return []Requirement{
			{Key: PathKey(target), Validator: IsFileType(want)},
			parentDir(d.Link),
		}, nil
	case features.Remove:
		// must_exist is enforced on the undo edge, see GraphBuilder.AddFeature.
		return nil, nil
	case features.User:
		if d.PrimaryGroup == "" {
			return nil, fmt.Errorf("user %q: primary_group must not be empty", d.Name)
		}
		reqs := []Requirement{{Key: GroupKey(d.PrimaryGroup), Validator: Exists()}}
		for _, g := range d.SupplementaryGroups {
			reqs = append(reqs, Requirement{Key: GroupKey(g), Validator: Exists()})
		}
		return reqs, nil
	case features.Group:
		return nil, nil
	case features.Rpm:
		if len(d.Install) == 0 && len(d.Remove) == 0 {
			return nil, errors.New("rpm: nothing to install or remove")
		}
		return nil, nil
	case features.Extract:
		switch {
		case d.Buck != nil && d.Layer == nil:
			if d.Buck.Src == "" {
				return nil, errors.New("extract: src must not be empty")
			}
			return []Requirement{parentDir(d.Buck.Dst)}, nil
		case d.Layer != nil && d.Buck == nil:
			if d.Layer.Layer == "" {
				return nil, errors.New("extract: layer label must not be empty")
			}
			reqs := make([]Requirement, 0, 2*len(d.Layer.Binaries))
			for _, bin := range d.Layer.Binaries {
				reqs = append(reqs,
					Requirement{
						Key:       LayerKey(d.Layer.Layer),
						Validator: ItemInLayer(PathKey(bin), Exists()),
					},
					parentDir(bin),
				)
			}
			return reqs, nil
		default:
			return nil, errors.New("extract: exactly one of buck or layer must be set")
		}
	case features.Genrule:
		if len(d.Cmd) == 0 {
			return nil, errors.New("genrule: cmd must not be empty")
		}
		return nil, nil
	case features.Requires:
		reqs := make([]Requirement, 0, len(d.Files)+len(d.Users)+len(d.Groups))
		for _, p := range d.Files {
			if err := checkPath("file", p, true); err != nil {
				return nil, err
			}
			reqs = append(reqs, Requirement{Key: PathKey(p), Validator: Exists()})
		}
		for _, u := range d.Users {
			reqs = append(reqs, Requirement{Key: UserKey(u), Validator: Exists()})
		}
		for _, g := range d.Groups {
			reqs = append(reqs, Requirement{Key: GroupKey(g), Validator: Exists()})
		}
		return reqs, nil
	default:
		return nil, fmt.Errorf("%w: %T", errUnknownFeature, f.Data)
	}
}

// parentDir requires the parent of p to be a directory.
func parentDir(p string) Requirement {
	return Requirement{Key: PathKey(path.Dir(CleanPath(p))), Validator: IsFileType(FileTypeDirectory)}
}

func checkPath(field, p string, allowRoot bool) error {
	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("%s %q must be an absolute path", field, p)
	}
	if !allowRoot && CleanPath(p) == "/" {
		return fmt.Errorf("%s must not be /", field)
	}
	return nil
}
