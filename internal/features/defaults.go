package features

// Defaults fills in the fields a declaration may leave out. Owners default
// to root, accounts are named after their declaration, and system accounts
// get no login shell.
func Defaults(label string, d Data) Data {
	switch v := d.(type) {
	case EnsureDirExists:
		v.User, v.Group = or(v.User, "root"), or(v.Group, "root")
		return v
	case Install:
		v.User, v.Group = or(v.User, "root"), or(v.Group, "root")
		return v
	case User:
		v.Name = or(v.Name, label)
		v.HomeDir = or(v.HomeDir, "/")
		v.Shell = or(v.Shell, "/sbin/nologin")
		return v
	case Group:
		v.Name = or(v.Name, label)
		return v
	case Genrule:
		v.User = or(v.User, "root")
		return v
	default:
		return d
	}
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
