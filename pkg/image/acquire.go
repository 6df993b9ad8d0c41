// Package image resolves an operator-supplied image source into a validated
// local file. A source is either a filesystem path (after home and environment
// expansion), an HTTP(S) URL downloaded with resume support, or an s3:// URI
// fetched through the storage client.
package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/mik-tf/isobootmaker/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

// Failure reasons surfaced to the orchestrator for re-prompting.
var (
	ErrFileMissing    = errors.New("image file missing or not a regular file")
	ErrWrongExtension = errors.New("image file does not carry the recognized extension")
	ErrDownloadFailed = errors.New("image download failed")
)

// Resolved is the outcome of a successful Resolve call.
type Resolved struct {
	Path   string
	Source string // "local", "http", or "s3"
	SHA256 string // set for s3 downloads only
}

// S3Downloader fetches an s3://bucket/key URI into destDir and returns the
// local path plus the checksum computed while streaming.
type S3Downloader interface {
	DownloadURI(ctx context.Context, uri, destDir string) (localPath, sha256 string, err error)
}

// Acquirer resolves and validates image sources.
type Acquirer struct {
	downloadDir string
	extension   string
	s3          S3Downloader

	httpClient   *http.Client
	showProgress bool
}

// NewAcquirer returns an acquirer that stores downloads in downloadDir and
// accepts files carrying extension (an exact, case-sensitive suffix). s3 may
// be nil to disable s3:// sources.
func NewAcquirer(downloadDir, extension string, s3 S3Downloader) *Acquirer {
	return &Acquirer{
		downloadDir:  downloadDir,
		extension:    extension,
		s3:           s3,
		httpClient:   http.DefaultClient,
		showProgress: true,
	}
}

// Resolve turns input into a validated local image path. Remote sources are
// downloaded first; local inputs are expanded but never interpreted by a
// shell. Any failure returns control to the caller for re-prompting.
func (a *Acquirer) Resolve(ctx context.Context, input string) (Resolved, error) {
	switch {
	case isHTTPURL(input):
		localPath, err := a.downloadHTTP(ctx, input)
		if err != nil {
			return Resolved{}, err
		}
		if err := a.Validate(localPath); err != nil {
			return Resolved{}, err
		}
		return Resolved{Path: localPath, Source: "http"}, nil

	case isS3URI(input):
		if a.s3 == nil {
			return Resolved{}, fmt.Errorf("%w: s3 sources are not configured", ErrDownloadFailed)
		}
		if err := os.MkdirAll(a.downloadDir, 0o755); err != nil {
			return Resolved{}, apperrors.Wrap(err, "creating download directory")
		}
		localPath, sum, err := a.s3.DownloadURI(ctx, input, a.downloadDir)
		if err != nil {
			slog.Error("s3_download_failed", "uri", input, "error", err)
			return Resolved{}, fmt.Errorf("%w: %v", ErrDownloadFailed, err)
		}
		if err := a.Validate(localPath); err != nil {
			return Resolved{}, err
		}
		return Resolved{Path: localPath, Source: "s3", SHA256: sum}, nil

	default:
		localPath := ExpandPath(input)
		if err := a.Validate(localPath); err != nil {
			return Resolved{}, err
		}
		return Resolved{Path: localPath, Source: "local"}, nil
	}
}

// Validate checks that path names an existing regular file with the
// recognized image extension.
func (a *Acquirer) Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("%s: %w", path, ErrFileMissing)
	}
	if !strings.HasSuffix(path, a.extension) {
		return fmt.Errorf("%s: %w", path, ErrWrongExtension)
	}
	return nil
}

// downloadHTTP fetches rawURL into the download directory, named after the
// URL's final path segment. If a partial file already exists the transfer
// resumes with a Range request instead of starting over.
func (a *Acquirer) downloadHTTP(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("%w: cannot derive a file name from %s", ErrDownloadFailed, rawURL)
	}

	if err := os.MkdirAll(a.downloadDir, 0o755); err != nil {
		return "", apperrors.Wrap(err, "creating download directory")
	}
	dest := filepath.Join(a.downloadDir, name)

	var offset int64
	if info, err := os.Stat(dest); err == nil {
		offset = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	slog.Info("download_started", "url", rawURL, "dest", dest, "resume_offset", offset)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		slog.Error("download_failed", "url", rawURL, "error", err)
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	var flags int
	switch resp.StatusCode {
	case http.StatusPartialContent:
		flags = os.O_WRONLY | os.O_APPEND
	case http.StatusOK:
		// Server ignored the range; start over.
		offset = 0
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case http.StatusRequestedRangeNotSatisfiable:
		// The partial file already covers the whole object.
		slog.Info("download_already_complete", "dest", dest)
		return dest, nil
	default:
		return "", fmt.Errorf("%w: HTTP %d from %s", ErrDownloadFailed, resp.StatusCode, rawURL)
	}

	f, err := os.OpenFile(dest, flags, 0o644)
	if err != nil {
		return "", apperrors.Wrap(err, "opening download destination")
	}
	defer f.Close()

	var w io.Writer = f
	if a.showProgress {
		total := offset + resp.ContentLength
		bar := progressbar.NewOptions64(total,
			progressbar.OptionSetDescription("downloading "+name),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(15),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionFullWidth(),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
		)
		bar.Set64(offset)
		w = io.MultiWriter(f, bar)
	}

	written, err := io.Copy(w, resp.Body)
	if err != nil {
		slog.Error("download_failed", "url", rawURL, "written", written, "error", err)
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	slog.Info("download_complete", "url", rawURL, "dest", dest, "size", offset+written)
	return dest, nil
}

func isHTTPURL(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

func isS3URI(input string) bool {
	return strings.HasPrefix(input, "s3://")
}

// ExpandPath substitutes a leading ~ with the user home directory and
// expands $VAR / ${VAR} references. Nothing is ever passed to a shell.
func ExpandPath(input string) string {
	expanded := os.Expand(input, os.Getenv)
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			expanded = filepath.Join(home, strings.TrimPrefix(expanded, "~"))
		}
	}
	return filepath.Clean(expanded)
}
