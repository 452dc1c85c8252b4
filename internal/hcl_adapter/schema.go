package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is the top-level structure of a layer declaration file.
type fileRoot struct {
	Parent   *string         `hcl:"parent,optional"`
	Layers   []*LayerBlock   `hcl:"layer,block"`
	Features []*FeatureBlock `hcl:"feature,block"`
}

// LayerBlock represents a `layer "<label>" {}` block naming an already built
// layer.
type LayerBlock struct {
	Label string `hcl:"label,label"`
	Graph string `hcl:"graph"`
	Root  string `hcl:"root,optional"`
}

// FeatureBlock represents a `feature "<kind>" "<name>" {}` block. Its body
// is decoded once the kind is known.
type FeatureBlock struct {
	Kind string   `hcl:"kind,label"`
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// --- Feature bodies ---

type ensureDirExistsBody struct {
	Dir   string         `hcl:"dir"`
	Mode  hcl.Expression `hcl:"mode,optional"`
	User  *string        `hcl:"user,optional"`
	Group *string        `hcl:"group,optional"`
}

type installBody struct {
	Src   string         `hcl:"src"`
	Dst   string         `hcl:"dst"`
	Mode  hcl.Expression `hcl:"mode,optional"`
	User  *string        `hcl:"user,optional"`
	Group *string        `hcl:"group,optional"`
}

type symlinkBody struct {
	Link        string `hcl:"link"`
	Target      string `hcl:"target"`
	IsDirectory *bool  `hcl:"is_directory,optional"`
}

type removeBody struct {
	Path      string `hcl:"path"`
	MustExist *bool  `hcl:"must_exist,optional"`
}

type userBody struct {
	Name                *string        `hcl:"name,optional"`
	UID                 hcl.Expression `hcl:"uid,optional"`
	PrimaryGroup        string         `hcl:"primary_group"`
	SupplementaryGroups []string       `hcl:"supplementary_groups,optional"`
	HomeDir             *string        `hcl:"home_dir,optional"`
	Shell               *string        `hcl:"shell,optional"`
	Comment             *string        `hcl:"comment,optional"`
}

type groupBody struct {
	Name *string        `hcl:"name,optional"`
	GID  hcl.Expression `hcl:"gid,optional"`
}

type rpmBody struct {
	Install []string `hcl:"install,optional"`
	Remove  []string `hcl:"remove,optional"`
}

type extractBody struct {
	Buck  *extractBuckBody  `hcl:"buck,block"`
	Layer *extractLayerBody `hcl:"layer,block"`
}

type extractBuckBody struct {
	Src string `hcl:"src"`
	Dst string `hcl:"dst"`
}

type extractLayerBody struct {
	Label    string   `hcl:"label"`
	Binaries []string `hcl:"binaries"`
}

type genruleBody struct {
	Cmd  []string `hcl:"cmd"`
	User *string  `hcl:"user,optional"`
}

type requiresBody struct {
	Files  []string `hcl:"files,optional"`
	Users  []string `hcl:"users,optional"`
	Groups []string `hcl:"groups,optional"`
}
