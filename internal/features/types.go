package features

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mode is a unix permission mode, including the setuid, setgid and sticky
// bits.
type Mode uint32

// ParseMode parses an octal mode string such as "0755", "755" or "0o755".
func ParseMode(s string) (Mode, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0o"), "0O")
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid mode %q: %w", s, err)
	}
	return modeInRange(s, v)
}

func modeInRange(s string, v uint64) (Mode, error) {
	if v > 0o7777 {
		return 0, fmt.Errorf("invalid mode %q: out of range", s)
	}
	return Mode(v), nil
}

func (m Mode) String() string {
	return fmt.Sprintf("%04o", uint32(m))
}

// UnmarshalYAML accepts either a quoted octal string ("0755") or an integer
// literal. Integer literals with a leading zero are read as octal.
func (m *Mode) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: mode must be a scalar", value.Line)
	}
	var (
		parsed Mode
		err    error
	)
	if value.Tag == "!!int" {
		var v uint64
		if v, err = strconv.ParseUint(value.Value, 0, 32); err == nil {
			parsed, err = modeInRange(value.Value, v)
		}
	} else {
		parsed, err = ParseMode(value.Value)
	}
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*m = parsed
	return nil
}

// EnsureDirExists creates a directory if it does not already exist.
type EnsureDirExists struct {
	Dir   string `cbor:"dir" yaml:"dir"`
	Mode  Mode   `cbor:"mode" yaml:"mode"`
	User  string `cbor:"user" yaml:"user"`
	Group string `cbor:"group" yaml:"group"`
}

// Install copies a regular file from the build host into the image.
type Install struct {
	Src   string `cbor:"src" yaml:"src"`
	Dst   string `cbor:"dst" yaml:"dst"`
	Mode  Mode   `cbor:"mode" yaml:"mode"`
	User  string `cbor:"user" yaml:"user"`
	Group string `cbor:"group" yaml:"group"`
}

// Symlink creates a symbolic link at Link pointing to Target.
type Symlink struct {
	Link        string `cbor:"link" yaml:"link"`
	Target      string `cbor:"target" yaml:"target"`
	IsDirectory bool   `cbor:"is_directory,omitempty" yaml:"is_directory,omitempty"`
}

// Remove deletes a path from the image.
type Remove struct {
	Path      string `cbor:"path" yaml:"path"`
	MustExist bool   `cbor:"must_exist,omitempty" yaml:"must_exist,omitempty"`
}

// User adds an account to the image's user database.
type User struct {
	Name                string   `cbor:"name" yaml:"name"`
	UID                 *uint32  `cbor:"uid,omitempty" yaml:"uid,omitempty"`
	PrimaryGroup        string   `cbor:"primary_group" yaml:"primary_group"`
	SupplementaryGroups []string `cbor:"supplementary_groups,omitempty" yaml:"supplementary_groups,omitempty"`
	HomeDir             string   `cbor:"home_dir" yaml:"home_dir"`
	Shell               string   `cbor:"shell" yaml:"shell"`
	Comment             string   `cbor:"comment,omitempty" yaml:"comment,omitempty"`
}

func (u User) String() string {
	return fmt.Sprintf("{Name:%s UID:%s PrimaryGroup:%s SupplementaryGroups:%v HomeDir:%s Shell:%s Comment:%s}",
		u.Name, optionalID(u.UID), u.PrimaryGroup, u.SupplementaryGroups, u.HomeDir, u.Shell, u.Comment)
}

// Group adds a group to the image's group database.
type Group struct {
	Name string  `cbor:"name" yaml:"name"`
	GID  *uint32 `cbor:"gid,omitempty" yaml:"gid,omitempty"`
}

func (g Group) String() string {
	return fmt.Sprintf("{Name:%s GID:%s}", g.Name, optionalID(g.GID))
}

// Rpm installs and removes packages through the image's package manager.
type Rpm struct {
	Install []string `cbor:"install,omitempty" yaml:"install,omitempty"`
	Remove  []string `cbor:"remove,omitempty" yaml:"remove,omitempty"`
}

// Extract copies binaries, together with the libraries they load, into the
// image. Exactly one of Buck or Layer is set.
type Extract struct {
	Buck  *ExtractBuck  `cbor:"buck,omitempty" yaml:"buck,omitempty"`
	Layer *ExtractLayer `cbor:"layer,omitempty" yaml:"layer,omitempty"`
}

// ExtractBuck extracts a binary built on the host.
type ExtractBuck struct {
	Src string `cbor:"src" yaml:"src"`
	Dst string `cbor:"dst" yaml:"dst"`
}

// ExtractLayer extracts binaries out of another, already built layer.
type ExtractLayer struct {
	// Layer is the label of the source layer.
	Layer string `cbor:"layer" yaml:"layer"`
	// Root is the on-disk root of the source layer. Filled in from the
	// layer dependency declaration when loading.
	Root     string   `cbor:"root,omitempty" yaml:"root,omitempty"`
	Binaries []string `cbor:"binaries" yaml:"binaries"`
}

func (e Extract) String() string {
	switch {
	case e.Buck != nil && e.Layer == nil:
		return fmt.Sprintf("{Buck:%+v}", *e.Buck)
	case e.Layer != nil && e.Buck == nil:
		return fmt.Sprintf("{Layer:%+v}", *e.Layer)
	default:
		return "{invalid}"
	}
}

// Genrule runs an arbitrary command inside the image.
type Genrule struct {
	Cmd  []string `cbor:"cmd" yaml:"cmd"`
	User string   `cbor:"user" yaml:"user"`
}

// Requires declares items that must already be present, without creating
// anything.
type Requires struct {
	Files  []string `cbor:"files,omitempty" yaml:"files,omitempty"`
	Users  []string `cbor:"users,omitempty" yaml:"users,omitempty"`
	Groups []string `cbor:"groups,omitempty" yaml:"groups,omitempty"`
}

func (EnsureDirExists) Kind() Kind { return KindEnsureDirExists }
func (Install) Kind() Kind         { return KindInstall }
func (Symlink) Kind() Kind         { return KindSymlink }
func (Remove) Kind() Kind          { return KindRemove }
func (User) Kind() Kind            { return KindUser }
func (Group) Kind() Kind           { return KindGroup }
func (Rpm) Kind() Kind             { return KindRpm }
func (Extract) Kind() Kind         { return KindExtract }
func (Genrule) Kind() Kind         { return KindGenrule }
func (Requires) Kind() Kind        { return KindRequires }

func (EnsureDirExists) isData() {}
func (Install) isData()         {}
func (Symlink) isData()         {}
func (Remove) isData()          {}
func (User) isData()            {}
func (Group) isData()           {}
func (Rpm) isData()             {}
func (Extract) isData()         {}
func (Genrule) isData()         {}
func (Requires) isData()        {}

func optionalID(id *uint32) string {
	if id == nil {
		return "auto"
	}
	return strconv.FormatUint(uint64(*id), 10)
}
