// Package httpfs implements the HTTP backend collaborator described in
// spec §6: GET for read, PUT via the write-stream wrapper (pkg/vfs's
// WriteStream) for write, DELETE for delete, and anchor-scraping browse
// that yields only immediate children and rejects cross-origin or
// nested-path anchors.
package httpfs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
	"github.com/objectfs/vfscore/pkg/vfstypes"
)

// Backend roots a VFS subtree at an HTTP base URL.
type Backend struct {
	name    string
	baseURL *url.URL
	client  *http.Client
}

// New creates a Backend rooted at baseURL. client may be nil, in which
// case http.DefaultClient is used.
func New(name, baseURL string, client *http.Client) (*Backend, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, vfserrors.New(vfserrors.KindInvalidPath, "invalid base URL").WithPath(baseURL).WithCause(err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Backend{name: name, baseURL: u, client: client}, nil
}

func (b *Backend) Name() string { return b.name }

func (b *Backend) resolve(path string) *url.URL {
	ref := &url.URL{Path: strings.TrimPrefix(path, "/")}
	return b.baseURL.ResolveReference(ref)
}

func translateHTTPStatus(status int, path string) error {
	switch {
	case status == http.StatusNotFound:
		return vfserrors.New(vfserrors.KindFileNotFound, "not found").WithPath(path)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return vfserrors.New(vfserrors.KindUnauthorized, "access denied").WithPath(path)
	case status >= 400:
		return vfserrors.New(vfserrors.KindIoError, fmt.Sprintf("unexpected status %d", status)).WithPath(path)
	default:
		return nil
	}
}

var anchorRe = regexp.MustCompile(`(?i)<a\s+[^>]*href\s*=\s*["']([^"']+)["']`)

// Browse fetches path's document and extracts anchor references whose
// resolved target is same-origin and an immediate child of path (spec
// §6: "reject cross-origin, reject any anchor whose path contains a
// deeper / within the base").
func (b *Backend) Browse(ctx context.Context, path string) ([]vfstypes.Entry, error) {
	target := b.resolve(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, vfserrors.New(vfserrors.KindIoError, "request construction failed").WithPath(path).WithCause(err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, vfserrors.New(vfserrors.KindIoError, "request failed").WithPath(path).WithCause(err)
	}
	defer resp.Body.Close()
	if err := translateHTTPStatus(resp.StatusCode, path); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, vfserrors.New(vfserrors.KindIoError, "failed to read body").WithPath(path).WithCause(err)
	}

	matches := anchorRe.FindAllStringSubmatch(string(body), -1)
	seen := make(map[string]bool, len(matches))
	var out []vfstypes.Entry
	for _, m := range matches {
		href := m[1]
		childURL, err := target.Parse(href)
		if err != nil {
			continue
		}
		if childURL.Scheme != target.Scheme || childURL.Host != target.Host {
			continue
		}

		rel := strings.TrimPrefix(childURL.Path, target.Path)
		rel = strings.TrimPrefix(rel, "/")
		rel = strings.TrimSuffix(rel, "/")
		if rel == "" || strings.Contains(rel, "/") {
			continue
		}
		if seen[rel] {
			continue
		}
		seen[rel] = true

		isDir := strings.HasSuffix(href, "/")
		kind := vfstypes.KindFile
		length := int64(-1)
		if isDir {
			kind = vfstypes.KindDirectory
		} else {
			length = -1
		}
		childPath := rel
		if path != "" {
			childPath = path + "/" + rel
		}
		out = append(out, vfstypes.Entry{Path: childPath, Name: rel, Kind: kind, Length: length})
	}
	return out, nil
}

// GetEntry issues a HEAD request to determine whether path exists.
func (b *Backend) GetEntry(ctx context.Context, path string) (*vfstypes.Entry, error) {
	target := b.resolve(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target.String(), nil)
	if err != nil {
		return nil, vfserrors.New(vfserrors.KindIoError, "request construction failed").WithPath(path).WithCause(err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, vfserrors.New(vfserrors.KindIoError, "request failed").WithPath(path).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := translateHTTPStatus(resp.StatusCode, path); err != nil {
		return nil, err
	}

	segs := strings.Split(strings.TrimSuffix(path, "/"), "/")
	name := path
	if len(segs) > 0 {
		name = segs[len(segs)-1]
	}
	return &vfstypes.Entry{
		Path:   path,
		Name:   name,
		Kind:   vfstypes.KindFile,
		Length: resp.ContentLength,
	}, nil
}

// CreateDirectory is not supported: HTTP has no directory-creation verb.
func (b *Backend) CreateDirectory(ctx context.Context, path string) error {
	return vfserrors.New(vfserrors.KindNotSupported, "http backend does not support createDirectory").WithPath(path)
}

// SetAttribute is not supported: HTTP has no attribute-setting verb.
func (b *Backend) SetAttribute(ctx context.Context, path string, attr vfstypes.Attr) error {
	return vfserrors.New(vfserrors.KindNotSupported, "http backend does not support setAttribute").WithPath(path)
}

// Move is not supported: HTTP has no native rename/move verb.
func (b *Backend) Move(ctx context.Context, src, dst string) error {
	return vfserrors.New(vfserrors.KindNotSupported, "http backend does not support move").WithPath(src)
}

// Delete issues a DELETE request.
func (b *Backend) Delete(ctx context.Context, path string, recursive bool) error {
	target := b.resolve(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target.String(), nil)
	if err != nil {
		return vfserrors.New(vfserrors.KindIoError, "request construction failed").WithPath(path).WithCause(err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return vfserrors.New(vfserrors.KindIoError, "request failed").WithPath(path).WithCause(err)
	}
	defer resp.Body.Close()
	return translateHTTPStatus(resp.StatusCode, path)
}

// Observe is not supported: plain HTTP carries no change-notification
// mechanism.
func (b *Backend) Observe(ctx context.Context, filter string, sink vfstypes.Sink, dispatcher vfstypes.Dispatcher) (vfstypes.Subscription, error) {
	return nil, vfserrors.New(vfserrors.KindNotSupported, "http backend does not support observe").WithComponent(b.name)
}
