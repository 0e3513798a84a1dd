package npm

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/nlepage/go-tarfs"

	"github.com/nodex-labs/nodex/internal/manifest"
)

// DefaultRegistryURL is the public npm registry.
const DefaultRegistryURL = "https://registry.npmjs.org"

var (
	// ErrNotFound reports a package or version the registry does not know.
	ErrNotFound = errors.New("package not found")
	// ErrUnsupportedSpec reports a specifier type metadata cannot be
	// fetched for (remote tarballs and git references resolve at install
	// time, not through the registry).
	ErrUnsupportedSpec = errors.New("unsupported spec for metadata fetch")
)

// IsDefaultRegistry reports whether url points at the public registry.
func IsDefaultRegistry(registryURL string) bool {
	return strings.TrimRight(registryURL, "/") == DefaultRegistryURL
}

// Metadata is the resolved description of one concrete package version.
type Metadata struct {
	Name        string
	Version     string
	Description string
	Engines     map[string]string
	Deprecated  string
	// Tarball is the registry download URL for the version, when the
	// metadata came from a registry document. Empty for local specs.
	Tarball string
	// Versions lists every published version in registry order when the
	// metadata came from a registry document. Nil for local specs.
	Versions []string
}

// Client fetches package metadata from an npm-compatible registry.
type Client struct {
	registryURL string
	httpClient  *http.Client
	cache       *Cache
}

// Option configures a Client.
type Option func(*Client)

// WithRegistryURL points the client at a registry other than the public one.
func WithRegistryURL(u string) Option {
	return func(c *Client) {
		c.registryURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCache backs packument fetches with an on-disk cache.
func WithCache(cache *Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// NewClient creates a registry client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		registryURL: DefaultRegistryURL,
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegistryURL returns the registry this client talks to.
func (c *Client) RegistryURL() string {
	return c.registryURL
}

// Resolve classifies a name+version request into its canonical specifier.
func (c *Client) Resolve(name, versionSpec string) (Spec, error) {
	return ParseSpec(name, versionSpec)
}

// FetchMetadata returns the concrete version metadata a spec designates.
// Registry specs (version, range, tag) consult the packument; directory and
// tarball specs read the package manifest from disk. Remote tarball and git
// specs fail with ErrUnsupportedSpec.
func (c *Client) FetchMetadata(ctx context.Context, spec Spec) (*Metadata, error) {
	switch spec.Type {
	case SpecVersion, SpecRange, SpecTag:
		return c.registryMetadata(ctx, spec)
	case SpecDirectory:
		return directoryMetadata(spec.Value)
	case SpecTarball:
		return tarballMetadata(spec.Value)
	default:
		return nil, fmt.Errorf("%w: %s spec %q", ErrUnsupportedSpec, spec.Type, spec.Raw)
	}
}

// ListVersions returns every published version of name in the order the
// registry document reports them (publish order, not sorted).
func (c *Client) ListVersions(ctx context.Context, name string) ([]string, error) {
	doc, err := c.packument(ctx, name)
	if err != nil {
		return nil, err
	}
	return doc.VersionOrder(), nil
}

// DistTags returns the registry's dist-tag table for name.
func (c *Client) DistTags(ctx context.Context, name string) (map[string]string, error) {
	doc, err := c.packument(ctx, name)
	if err != nil {
		return nil, err
	}
	return doc.DistTags, nil
}

// registryMetadata picks the concrete version a registry spec designates
// out of the package's packument.
func (c *Client) registryMetadata(ctx context.Context, spec Spec) (*Metadata, error) {
	doc, err := c.packument(ctx, spec.Name)
	if err != nil {
		return nil, err
	}

	var version string
	switch spec.Type {
	case SpecVersion:
		version = spec.Value
	case SpecTag:
		v, ok := doc.DistTags[spec.Value]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no %q dist-tag", ErrNotFound, spec.Name, spec.Value)
		}
		version = v
	case SpecRange:
		v, err := maxSatisfying(doc, spec.Value)
		if err != nil {
			return nil, err
		}
		if v == "" {
			return nil, fmt.Errorf("%w: no version of %s satisfies %q", ErrNotFound, spec.Name, spec.Value)
		}
		version = v
	}

	info, ok := doc.Versions[version]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no version %s", ErrNotFound, spec.Name, version)
	}
	return &Metadata{
		Name:        doc.Name,
		Version:     info.Version,
		Description: info.Description,
		Engines:     info.Engines,
		Deprecated:  info.Deprecated,
		Tarball:     info.Dist.Tarball,
		Versions:    doc.VersionOrder(),
	}, nil
}

// maxSatisfying returns the highest published version satisfying the range,
// or "" when none does. Unparseable published versions are skipped.
func maxSatisfying(doc *Packument, rangeSpec string) (string, error) {
	constraint, err := semver.NewConstraint(rangeSpec)
	if err != nil {
		return "", fmt.Errorf("%w: bad range %q", ErrInvalidSpec, rangeSpec)
	}
	var best *semver.Version
	var bestRaw string
	for _, raw := range doc.VersionOrder() {
		v, err := semver.NewVersion(raw)
		if err != nil {
			continue
		}
		if !constraint.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestRaw = raw
		}
	}
	return bestRaw, nil
}

// directoryMetadata reads the manifest of a package folder on disk.
func directoryMetadata(dir string) (*Metadata, error) {
	m, err := manifest.Load(filepath.Join(dir, "package.json"))
	if err != nil {
		return nil, fmt.Errorf("reading package folder %s: %w", dir, err)
	}
	return &Metadata{
		Name:        m.Name,
		Version:     m.Version,
		Description: m.Description,
		Engines:     m.Engines,
	}, nil
}

// tarballMetadata reads the manifest out of a packed .tgz archive without
// unpacking it. Gzip compression is detected by magic number rather than
// file extension.
func tarballMetadata(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening tarball: %w", err)
	}
	defer f.Close()

	// Read the first two bytes and check for the gzip magic number.
	head := make([]byte, 2)
	n, err := io.ReadFull(f, head)
	if err != nil {
		return nil, fmt.Errorf("reading tarball: %w", err)
	}

	var reader io.Reader = io.MultiReader(bytes.NewReader(head[:n]), f)
	if head[0] == 0x1F && head[1] == 0x8B {
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return nil, fmt.Errorf("decompressing tarball: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	tfs, err := tarfs.New(reader)
	if err != nil {
		return nil, fmt.Errorf("reading tarball: %w", err)
	}

	data, err := readArchiveManifest(tfs)
	if err != nil {
		return nil, fmt.Errorf("reading tarball %s: %w", path, err)
	}
	m, err := manifest.Parse(data, path)
	if err != nil {
		return nil, err
	}
	return &Metadata{
		Name:        m.Name,
		Version:     m.Version,
		Description: m.Description,
		Engines:     m.Engines,
	}, nil
}

// readArchiveManifest finds package.json inside a packed archive. Packed
// archives conventionally root everything under "package/", but any single
// top-level folder is accepted.
func readArchiveManifest(tfs fs.FS) ([]byte, error) {
	if data, err := fs.ReadFile(tfs, "package/package.json"); err == nil {
		return data, nil
	}
	matches, err := fs.Glob(tfs, "*/package.json")
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("archive contains no package.json")
	}
	return fs.ReadFile(tfs, matches[0])
}

// packument fetches the registry metadata document for name, consulting the
// cache first when one is configured.
func (c *Client) packument(ctx context.Context, name string) (*Packument, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: bad package name %q", ErrInvalidSpec, name)
	}

	if c.cache != nil {
		if body, ok := c.cache.Get(name); ok {
			if doc, err := parsePackument(body); err == nil {
				return doc, nil
			}
			// Corrupt cache entry, fall through to the network.
		}
	}

	// Scoped names keep their slash percent-encoded in the request path.
	reqURL := c.registryURL + "/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "nodex-registry")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching metadata for %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d for %s", resp.StatusCode, name)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	doc, err := parsePackument(body)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		// Best effort. Resolution still works without caching.
		c.cache.Put(name, body)
	}
	return doc, nil
}
