// Package users reads and writes the colon-separated /etc/passwd and
// /etc/group databases of an image.
package users

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FirstDynamicID is where id allocation starts for accounts declared
// without an explicit id.
const FirstDynamicID uint32 = 1000

// ErrExists is returned when adding a record whose name is already taken.
var ErrExists = errors.New("already exists")

// UserRecord is one line of /etc/passwd.
type UserRecord struct {
	Name     string
	Password string
	UID      uint32
	GID      uint32
	Comment  string
	HomeDir  string
	Shell    string
}

func (u UserRecord) String() string {
	return strings.Join([]string{
		u.Name,
		u.Password,
		strconv.FormatUint(uint64(u.UID), 10),
		strconv.FormatUint(uint64(u.GID), 10),
		u.Comment,
		u.HomeDir,
		u.Shell,
	}, ":")
}

// GroupRecord is one line of /etc/group.
type GroupRecord struct {
	Name     string
	Password string
	GID      uint32
	Members  []string
}

func (g GroupRecord) String() string {
	return strings.Join([]string{
		g.Name,
		g.Password,
		strconv.FormatUint(uint64(g.GID), 10),
		strings.Join(g.Members, ","),
	}, ":")
}

// EtcPasswd is a parsed /etc/passwd.
type EtcPasswd struct {
	records []UserRecord
}

// EtcGroup is a parsed /etc/group.
type EtcGroup struct {
	records []GroupRecord
}

// ParsePasswd parses the contents of an /etc/passwd file. Blank lines and
// comments are skipped.
func ParsePasswd(src string) (*EtcPasswd, error) {
	p := &EtcPasswd{}
	for i, line := range lines(src) {
		if line == "" {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) != 7 {
			return nil, fmt.Errorf("passwd line %d: expected 7 fields, got %d", i+1, len(fields))
		}
		uid, err := parseID(fields[2])
		if err != nil {
			return nil, fmt.Errorf("passwd line %d: uid: %w", i+1, err)
		}
		gid, err := parseID(fields[3])
		if err != nil {
			return nil, fmt.Errorf("passwd line %d: gid: %w", i+1, err)
		}
		p.records = append(p.records, UserRecord{
			Name:     fields[0],
			Password: fields[1],
			UID:      uid,
			GID:      gid,
			Comment:  fields[4],
			HomeDir:  fields[5],
			Shell:    fields[6],
		})
	}
	return p, nil
}

// ParseGroup parses the contents of an /etc/group file.
func ParseGroup(src string) (*EtcGroup, error) {
	g := &EtcGroup{}
	for i, line := range lines(src) {
		if line == "" {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) != 4 {
			return nil, fmt.Errorf("group line %d: expected 4 fields, got %d", i+1, len(fields))
		}
		gid, err := parseID(fields[2])
		if err != nil {
			return nil, fmt.Errorf("group line %d: gid: %w", i+1, err)
		}
		var members []string
		if fields[3] != "" {
			members = strings.Split(fields[3], ",")
		}
		g.records = append(g.records, GroupRecord{
			Name:     fields[0],
			Password: fields[1],
			GID:      gid,
			Members:  members,
		})
	}
	return g, nil
}

// ReadPasswd loads <root>/etc/passwd. A missing file is an empty database.
func ReadPasswd(root string) (*EtcPasswd, error) {
	src, err := readOptional(filepath.Join(root, "etc", "passwd"))
	if err != nil {
		return nil, err
	}
	return ParsePasswd(src)
}

// ReadGroup loads <root>/etc/group. A missing file is an empty database.
func ReadGroup(root string) (*EtcGroup, error) {
	src, err := readOptional(filepath.Join(root, "etc", "group"))
	if err != nil {
		return nil, err
	}
	return ParseGroup(src)
}

// Records returns the users in file order.
func (p *EtcPasswd) Records() []UserRecord {
	return append([]UserRecord(nil), p.records...)
}

// UserByName looks up a user.
func (p *EtcPasswd) UserByName(name string) (UserRecord, bool) {
	for _, r := range p.records {
		if r.Name == name {
			return r, true
		}
	}
	return UserRecord{}, false
}

// NextUID returns the lowest unused uid at or above FirstDynamicID.
func (p *EtcPasswd) NextUID() uint32 {
	next := FirstDynamicID
	for _, r := range p.records {
		if r.UID >= next && r.UID < 60000 {
			next = r.UID + 1
		}
	}
	return next
}

// Add appends a user.
func (p *EtcPasswd) Add(r UserRecord) error {
	if _, ok := p.UserByName(r.Name); ok {
		return fmt.Errorf("user %q: %w", r.Name, ErrExists)
	}
	p.records = append(p.records, r)
	return nil
}

func (p *EtcPasswd) String() string {
	var sb strings.Builder
	for _, r := range p.records {
		sb.WriteString(r.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Write writes the database to <root>/etc/passwd.
func (p *EtcPasswd) Write(root string) error {
	return os.WriteFile(filepath.Join(root, "etc", "passwd"), []byte(p.String()), 0o644)
}

// Records returns the groups in file order.
func (g *EtcGroup) Records() []GroupRecord {
	return append([]GroupRecord(nil), g.records...)
}

// GroupByName looks up a group.
func (g *EtcGroup) GroupByName(name string) (GroupRecord, bool) {
	for _, r := range g.records {
		if r.Name == name {
			return r, true
		}
	}
	return GroupRecord{}, false
}

// NextGID returns the lowest unused gid at or above FirstDynamicID.
func (g *EtcGroup) NextGID() uint32 {
	next := FirstDynamicID
	for _, r := range g.records {
		if r.GID >= next && r.GID < 60000 {
			next = r.GID + 1
		}
	}
	return next
}

// Add appends a group.
func (g *EtcGroup) Add(r GroupRecord) error {
	if _, ok := g.GroupByName(r.Name); ok {
		return fmt.Errorf("group %q: %w", r.Name, ErrExists)
	}
	g.records = append(g.records, r)
	return nil
}

// AddMember appends user to the member list of the named group.
func (g *EtcGroup) AddMember(group, user string) error {
	for i := range g.records {
		if g.records[i].Name != group {
			continue
		}
		for _, m := range g.records[i].Members {
			if m == user {
				return nil
			}
		}
		g.records[i].Members = append(g.records[i].Members, user)
		return nil
	}
	return fmt.Errorf("group %q does not exist", group)
}

func (g *EtcGroup) String() string {
	var sb strings.Builder
	for _, r := range g.records {
		sb.WriteString(r.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Write writes the database to <root>/etc/group.
func (g *EtcGroup) Write(root string) error {
	return os.WriteFile(filepath.Join(root, "etc", "group"), []byte(g.String()), 0o644)
}

func lines(src string) []string {
	out := strings.Split(src, "\n")
	for i, l := range out {
		l = strings.TrimRight(l, "\r")
		if strings.HasPrefix(strings.TrimSpace(l), "#") {
			l = ""
		}
		out[i] = l
	}
	return out
}

func parseID(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}
