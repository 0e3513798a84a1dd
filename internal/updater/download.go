package updater

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nodex-labs/nodex/internal/branding"
)

// checksumsFile is the asset GoReleaser publishes with one sha256 per
// archive.
const checksumsFile = "checksums.txt"

// DownloadBinary downloads the release archive for the current platform into
// destDir and returns its path.
func (u *Updater) DownloadBinary(release *Release, destDir string) (string, error) {
	asset, err := SelectAssetForPlatform(release.Assets)
	if err != nil {
		return "", err
	}

	resp, err := u.get(asset.DownloadURL)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", asset.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	destPath := filepath.Join(destDir, asset.Name)
	f, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("creating download file: %w", err)
	}
	defer f.Close()

	progress := &progressWriter{total: resp.ContentLength, last: -1}
	if _, err := io.Copy(f, io.TeeReader(resp.Body, progress)); err != nil {
		return "", fmt.Errorf("writing download: %w", err)
	}
	progress.finish()

	return destPath, nil
}

// VerifyChecksum fetches the release checksum table and compares the
// archive's sha256 against it.
func (u *Updater) VerifyChecksum(release *Release, archivePath string) error {
	asset := findAsset(release.Assets, checksumsFile)
	if asset == nil {
		return fmt.Errorf("%s not found in release assets", checksumsFile)
	}

	resp, err := u.get(asset.DownloadURL)
	if err != nil {
		return fmt.Errorf("downloading checksums: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("checksums download returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading checksums: %w", err)
	}

	archiveName := filepath.Base(archivePath)
	expected, ok := parseChecksums(body)[archiveName]
	if !ok {
		return fmt.Errorf("no checksum found for %s in %s", archiveName, checksumsFile)
	}

	actual, err := fileSHA256(archivePath)
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}

// ExtractBinary pulls the CLI binary out of a tar.gz or zip archive and
// returns the extracted path.
func ExtractBinary(archivePath, destDir string) (string, error) {
	if strings.HasSuffix(archivePath, ".zip") {
		return extractFromZip(archivePath, destDir)
	}
	return extractFromTarGz(archivePath, destDir)
}

// get issues a GET with the updater's user agent.
func (u *Updater) get(url string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent())
	return u.httpClient.Do(req)
}

// parseChecksums reads "sha256  filename" lines into a filename-keyed map.
// Unparsable lines are skipped.
func parseChecksums(data []byte) map[string]string {
	sums := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		parts := strings.Fields(line)
		if len(parts) == 2 {
			sums[parts[1]] = parts[0]
		}
	}
	return sums
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening archive for checksum: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("computing checksum: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// progressWriter reports percent complete to stderr as bytes pass through.
// With an unknown total it stays silent.
type progressWriter struct {
	total   int64
	written int64
	last    int
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.total > 0 {
		if pct := int(p.written * 100 / p.total); pct != p.last {
			fmt.Fprintf(os.Stderr, "\rDownloading... %d%%", pct)
			p.last = pct
		}
	}
	return len(b), nil
}

func (p *progressWriter) finish() {
	if p.total > 0 {
		fmt.Fprintln(os.Stderr)
	}
}

// isCLIBinary matches the archive entry that holds the binary itself,
// whatever directory prefix the archive carries.
func isCLIBinary(entryName string) bool {
	base := filepath.Base(entryName)
	return base == branding.CLIName() || base == branding.CLIName()+".exe"
}

func extractFromTarGz(archivePath, destDir string) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading tar entry: %w", err)
		}
		if !isCLIBinary(hdr.Name) {
			continue
		}

		destPath := filepath.Join(destDir, filepath.Base(hdr.Name))
		out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY, 0755)
		if err != nil {
			return "", fmt.Errorf("creating binary file: %w", err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return "", fmt.Errorf("extracting binary: %w", err)
		}
		out.Close()
		return destPath, nil
	}

	return "", fmt.Errorf("%s binary not found in archive", branding.CLIName())
}

func extractFromZip(archivePath, destDir string) (string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening zip archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if !isCLIBinary(f.Name) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("opening zip entry: %w", err)
		}

		destPath := filepath.Join(destDir, filepath.Base(f.Name))
		out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY, 0755)
		if err != nil {
			rc.Close()
			return "", fmt.Errorf("creating binary file: %w", err)
		}

		if _, err := io.Copy(out, rc); err != nil {
			out.Close()
			rc.Close()
			return "", fmt.Errorf("extracting binary: %w", err)
		}
		out.Close()
		rc.Close()
		return destPath, nil
	}

	return "", fmt.Errorf("%s binary not found in zip archive", branding.CLIName())
}
