// This file contains the logic for translating HCL schema structs into the
// format-agnostic configuration model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"

	"github.com/specialistvlad/layergraph/internal/config"
	"github.com/specialistvlad/layergraph/internal/ctxlog"
	"github.com/specialistvlad/layergraph/internal/features"
)

const (
	defaultDirMode  features.Mode = 0o755
	defaultFileMode features.Mode = 0o644
)

// translateLayer converts a layer block into the agnostic model. Paths are
// resolved against dir, the declaring file's directory.
func translateLayer(dir string, b *LayerBlock) config.LayerRef {
	return config.LayerRef{
		Label: b.Label,
		Graph: resolvePath(dir, b.Graph),
		Root:  resolvePath(dir, b.Root),
	}
}

// translateFeature decodes a feature block's body according to its kind.
func translateFeature(ctx context.Context, dir string, b *FeatureBlock) (features.Feature, error) {
	logger := ctxlog.FromContext(ctx).With("feature_kind", b.Kind, "feature_name", b.Name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Translating HCL feature to internal config model.")

	data, err := decodeFeatureBody(ctx, dir, b)
	if err != nil {
		return features.Feature{}, fmt.Errorf("feature %q %q: %w", b.Kind, b.Name, err)
	}
	return features.Feature{Label: b.Name, Data: features.Defaults(b.Name, data)}, nil
}

func decodeFeatureBody(ctx context.Context, dir string, b *FeatureBlock) (features.Data, error) {
	decode := func(target any) error {
		if diags := gohcl.DecodeBody(b.Body, nil, target); diags.HasErrors() {
			return diags
		}
		return nil
	}

	switch features.Kind(b.Kind) {
	case features.KindEnsureDirExists:
		var body ensureDirExistsBody
		if err := decode(&body); err != nil {
			return nil, err
		}
		mode, err := evalMode(ctx, body.Mode, defaultDirMode)
		if err != nil {
			return nil, err
		}
		return features.EnsureDirExists{
			Dir:   body.Dir,
			Mode:  mode,
			User:  deref(body.User),
			Group: deref(body.Group),
		}, nil

	case features.KindInstall:
		var body installBody
		if err := decode(&body); err != nil {
			return nil, err
		}
		mode, err := evalMode(ctx, body.Mode, defaultFileMode)
		if err != nil {
			return nil, err
		}
		return features.Install{
			Src:   resolvePath(dir, body.Src),
			Dst:   body.Dst,
			Mode:  mode,
			User:  deref(body.User),
			Group: deref(body.Group),
		}, nil

	case features.KindSymlink:
		var body symlinkBody
		if err := decode(&body); err != nil {
			return nil, err
		}
		return features.Symlink{
			Link:        body.Link,
			Target:      body.Target,
			IsDirectory: body.IsDirectory != nil && *body.IsDirectory,
		}, nil

	case features.KindRemove:
		var body removeBody
		if err := decode(&body); err != nil {
			return nil, err
		}
		return features.Remove{Path: body.Path, MustExist: body.MustExist != nil && *body.MustExist}, nil

	case features.KindUser:
		var body userBody
		if err := decode(&body); err != nil {
			return nil, err
		}
		uid, err := evalID(ctx, body.UID, "uid")
		if err != nil {
			return nil, err
		}
		return features.User{
			Name:                deref(body.Name),
			UID:                 uid,
			PrimaryGroup:        body.PrimaryGroup,
			SupplementaryGroups: body.SupplementaryGroups,
			HomeDir:             deref(body.HomeDir),
			Shell:               deref(body.Shell),
			Comment:             deref(body.Comment),
		}, nil

	case features.KindGroup:
		var body groupBody
		if err := decode(&body); err != nil {
			return nil, err
		}
		gid, err := evalID(ctx, body.GID, "gid")
		if err != nil {
			return nil, err
		}
		return features.Group{Name: deref(body.Name), GID: gid}, nil

	case features.KindRpm:
		var body rpmBody
		if err := decode(&body); err != nil {
			return nil, err
		}
		return features.Rpm{Install: body.Install, Remove: body.Remove}, nil

	case features.KindExtract:
		var body extractBody
		if err := decode(&body); err != nil {
			return nil, err
		}
		var ex features.Extract
		if body.Buck != nil {
			ex.Buck = &features.ExtractBuck{Src: resolvePath(dir, body.Buck.Src), Dst: body.Buck.Dst}
		}
		if body.Layer != nil {
			ex.Layer = &features.ExtractLayer{Layer: body.Layer.Label, Binaries: body.Layer.Binaries}
		}
		return ex, nil

	case features.KindGenrule:
		var body genruleBody
		if err := decode(&body); err != nil {
			return nil, err
		}
		return features.Genrule{Cmd: body.Cmd, User: deref(body.User)}, nil

	case features.KindRequires:
		var body requiresBody
		if err := decode(&body); err != nil {
			return nil, err
		}
		return features.Requires{Files: body.Files, Users: body.Users, Groups: body.Groups}, nil

	default:
		return nil, fmt.Errorf("unknown feature kind %q (known kinds: %v)", b.Kind, features.Kinds())
	}
}
