package updater

import (
	"net/http"
	"time"

	"github.com/nodex-labs/nodex/internal/branding"
)

// DefaultTimeout bounds each release check and download when no timeout is
// configured.
const DefaultTimeout = time.Minute

// Release is one published build as the GitHub release API reports it.
type Release struct {
	Version   string    `json:"tag_name"`
	Assets    []Asset   `json:"assets"`
	Published time.Time `json:"published_at"`
	HTMLURL   string    `json:"html_url"`
}

// Asset is a downloadable file attached to a release.
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Updater checks for, downloads, and installs newer builds of the binary.
type Updater struct {
	currentVersion string
	httpClient     *http.Client
	mirror         string
	timeout        time.Duration
}

// Option configures an Updater.
type Option func(*Updater)

// WithHTTPClient sets a custom HTTP client. A custom client carries its own
// timeout; WithTimeout does not apply to it.
func WithHTTPClient(c *http.Client) Option {
	return func(u *Updater) {
		u.httpClient = c
	}
}

// WithMirror sets an alternate host for release assets. Metadata still comes
// from the GitHub API; only asset URLs are rewritten.
func WithMirror(mirror string) Option {
	return func(u *Updater) {
		u.mirror = mirror
	}
}

// WithTimeout bounds each release check and download.
func WithTimeout(d time.Duration) Option {
	return func(u *Updater) {
		if d > 0 {
			u.timeout = d
		}
	}
}

// New creates an Updater for the given build version.
func New(currentVersion string, opts ...Option) *Updater {
	u := &Updater{
		currentVersion: currentVersion,
		timeout:        DefaultTimeout,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.httpClient == nil {
		u.httpClient = &http.Client{Timeout: u.timeout}
	}
	return u
}

// CurrentVersion returns the version this updater was created with.
func (u *Updater) CurrentVersion() string {
	return u.currentVersion
}

// userAgent identifies update traffic in release-host logs.
func userAgent() string {
	return branding.CLIName() + "-updater"
}

// findAsset returns the release asset with the exact name, or nil.
func findAsset(assets []Asset, name string) *Asset {
	for i := range assets {
		if assets[i].Name == name {
			return &assets[i]
		}
	}
	return nil
}
