package compile

import (
	"errors"
	"fmt"
)

var (
	ErrNoSuchUser       = errors.New("no such user")
	ErrNoSuchGroup      = errors.New("no such group")
	ErrNoPackageManager = errors.New("rpm features need a package manager")
	ErrNoCommandRunner  = errors.New("genrule features need a command runner")
)

// ExtractConflictError is returned when an extracted file would replace an
// existing file with different content. Identical content is not a conflict,
// which is what lets several extracts share the same libraries.
type ExtractConflictError struct {
	Src string
	Dst string
}

func (e *ExtractConflictError) Error() string {
	return fmt.Sprintf("extract conflict: %s already exists with content different from %s", e.Dst, e.Src)
}
