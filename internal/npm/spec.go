package npm

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ErrInvalidSpec reports a package name or version specifier that cannot be
// classified under any of the registry's specifier rules.
var ErrInvalidSpec = errors.New("invalid package spec")

// SpecType identifies which specifier rule a raw version string matched.
type SpecType int

const (
	// SpecVersion is an exact semantic version, e.g. "1.2.3".
	SpecVersion SpecType = iota
	// SpecRange is a semantic-version range, e.g. "^1.0.0" or "1.x".
	SpecRange
	// SpecTag is a registry dist-tag, e.g. "latest" or "next".
	SpecTag
	// SpecDirectory is a package folder on the local filesystem.
	SpecDirectory
	// SpecTarball is a packed .tgz archive on the local filesystem.
	SpecTarball
	// SpecRemoteTarball is a tarball fetched over HTTP(S).
	SpecRemoteTarball
	// SpecGit is a git repository reference.
	SpecGit
)

// String returns the specifier rule name as the registry ecosystem spells it.
func (t SpecType) String() string {
	switch t {
	case SpecVersion:
		return "version"
	case SpecRange:
		return "range"
	case SpecTag:
		return "tag"
	case SpecDirectory:
		return "directory"
	case SpecTarball:
		return "file"
	case SpecRemoteTarball:
		return "remote"
	case SpecGit:
		return "git"
	default:
		return "unknown"
	}
}

// Spec is the canonical form of a name+version request after classification.
type Spec struct {
	// Type is the matched specifier rule.
	Type SpecType
	// Name is the package name the request was made for.
	Name string
	// Value is the canonical payload for Type: the normalized version,
	// the range or tag as written, a cleaned filesystem path, or a URL.
	Value string
	// Raw is the version specifier exactly as the caller wrote it.
	Raw string
}

// String renders the spec in name@specifier form.
func (s Spec) String() string {
	return s.Name + "@" + s.Raw
}

var (
	// Registry package-name grammar: optional @scope/ prefix, then a
	// lowercase URL-safe name that does not start with a dot or underscore.
	namePattern = regexp.MustCompile(`^(@[a-z0-9-*~][a-z0-9-*._~]*/)?[a-z0-9-~][a-z0-9-._~]*$`)

	// Dist-tags are free-form but must stay URL- and shell-safe.
	tagPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// ValidName reports whether name is a well-formed registry package name.
func ValidName(name string) bool {
	return len(name) <= 214 && namePattern.MatchString(name)
}

// ParseSpec classifies a (name, versionSpec) request into a Spec using the
// registry's specifier rules. An empty versionSpec means "latest". Malformed
// names and unclassifiable specifiers fail with ErrInvalidSpec.
func ParseSpec(name, versionSpec string) (Spec, error) {
	if !ValidName(name) {
		return Spec{}, fmt.Errorf("%w: bad package name %q", ErrInvalidSpec, name)
	}

	raw := strings.TrimSpace(versionSpec)
	if raw == "" {
		raw = "latest"
	}
	spec := Spec{Name: name, Raw: raw}

	// Local paths first: an explicit file: scheme or a path-looking prefix.
	if path, ok := localPath(raw); ok {
		spec.Value = path
		if isTarballPath(path) {
			spec.Type = SpecTarball
		} else {
			spec.Type = SpecDirectory
		}
		return spec, nil
	}

	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		spec.Type = SpecRemoteTarball
		spec.Value = raw
		return spec, nil
	}

	if isGitSpec(raw) {
		spec.Type = SpecGit
		spec.Value = raw
		return spec, nil
	}

	// Exact version before range: "1.2.3" parses as both.
	if v, err := semver.StrictNewVersion(strings.TrimPrefix(raw, "v")); err == nil {
		spec.Type = SpecVersion
		spec.Value = v.String()
		return spec, nil
	}

	if _, err := semver.NewConstraint(raw); err == nil {
		spec.Type = SpecRange
		spec.Value = raw
		return spec, nil
	}

	if tagPattern.MatchString(raw) {
		spec.Type = SpecTag
		spec.Value = raw
		return spec, nil
	}

	return Spec{}, fmt.Errorf("%w: %q is not a version, range, tag, path, or URL", ErrInvalidSpec, raw)
}

// localPath extracts a filesystem path from a specifier when it has a file:
// scheme or a relative/absolute path prefix. Returns ok=false otherwise.
func localPath(raw string) (string, bool) {
	if after, ok := strings.CutPrefix(raw, "file:"); ok {
		after = strings.TrimPrefix(after, "//")
		return filepath.Clean(after), true
	}
	switch {
	case strings.HasPrefix(raw, "./"), strings.HasPrefix(raw, "../"),
		strings.HasPrefix(raw, "/"), strings.HasPrefix(raw, "~/"),
		raw == ".", raw == "..":
		return filepath.Clean(raw), true
	}
	// Windows drive-letter paths like C:\pkg or C:/pkg.
	if len(raw) >= 3 && raw[1] == ':' && (raw[2] == '\\' || raw[2] == '/') {
		return filepath.Clean(raw), true
	}
	return "", false
}

// isTarballPath reports whether a local path names a packed archive.
func isTarballPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".tgz") ||
		strings.HasSuffix(lower, ".tar.gz") ||
		strings.HasSuffix(lower, ".tar")
}

// isGitSpec reports whether a specifier is a git repository reference:
// a git URL scheme, a hosted-service shorthand like "github:user/repo",
// or the bare "user/repo" form.
func isGitSpec(raw string) bool {
	for _, prefix := range []string{
		"git://", "git+ssh://", "git+http://", "git+https://", "git+file://",
		"github:", "gitlab:", "bitbucket:", "gist:",
	} {
		if strings.HasPrefix(raw, prefix) {
			return true
		}
	}
	// Bare "user/repo" shorthand: exactly one slash, no spec-like characters.
	if strings.Count(raw, "/") == 1 && !strings.ContainsAny(raw, "@: ") {
		parts := strings.SplitN(raw, "/", 2)
		return parts[0] != "" && parts[1] != ""
	}
	return false
}
