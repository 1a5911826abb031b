package httpfs

import (
	"context"
	"io"
	"net/http"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
	"github.com/objectfs/vfscore/pkg/vfs"
	"github.com/objectfs/vfscore/pkg/vfstypes"
)

// Open issues a GET for read access and a PUT (via the write-stream
// wrapper) for write access, per spec §6's HTTP backend contract.
func (b *Backend) Open(ctx context.Context, path string, mode vfstypes.OpenMode, access vfstypes.AccessMode, share vfstypes.ShareMode) (vfstypes.Stream, error) {
	switch {
	case access.Has(vfstypes.AccessWrite):
		return b.openWrite(ctx, path)
	default:
		return b.openRead(ctx, path)
	}
}

func (b *Backend) openRead(ctx context.Context, path string) (vfstypes.Stream, error) {
	target := b.resolve(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, vfserrors.New(vfserrors.KindIoError, "request construction failed").WithPath(path).WithCause(err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, vfserrors.New(vfserrors.KindIoError, "request failed").WithPath(path).WithCause(err)
	}
	if err := translateHTTPStatus(resp.StatusCode, path); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return &readStream{body: resp.Body}, nil
}

func (b *Backend) openWrite(ctx context.Context, path string) (vfstypes.Stream, error) {
	target := b.resolve(path)
	return vfs.NewWriteStream(func(body io.Reader) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.String(), body)
		if err != nil {
			return err
		}
		resp, err := b.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		return translateHTTPStatus(resp.StatusCode, path)
	}), nil
}

// readStream wraps a GET response body as a read-only vfstypes.Stream.
type readStream struct {
	body io.ReadCloser
}

func (s *readStream) Read(p []byte) (int, error) { return s.body.Read(p) }

func (s *readStream) Write(p []byte) (int, error) {
	return 0, vfserrors.New(vfserrors.KindNotSupported, "read stream does not support write")
}

func (s *readStream) Seek(offset int64, whence int) (int64, error) {
	return 0, vfserrors.New(vfserrors.KindNotSupported, "read stream does not support seek")
}

func (s *readStream) Close() error { return s.body.Close() }
