package vfs

import (
	"io"
	"sync"

	vfserrors "github.com/objectfs/vfscore/pkg/errors"
)

// WriteStream wraps a write-to-network backend's open-for-write call
// (spec §4.7): the backend kicks off its request against the read side
// of an io.Pipe in a goroutine it supplies (start), and Close signals
// end-of-body, waits for the request to finish, and surfaces any
// backend-reported failure at close time rather than at write time.
type WriteStream struct {
	pw *io.PipeWriter

	done      chan error
	closeOnce sync.Once
	closeErr  error
}

// NewWriteStream starts a write stream whose request body is fed from
// the Write calls made on the returned *WriteStream. start receives the
// read side of the body pipe and must consume it to completion (or
// until it errors), reporting the terminal outcome as its return value;
// NewWriteStream runs it on its own goroutine.
func NewWriteStream(start func(body io.Reader) error) *WriteStream {
	pr, pw := io.Pipe()
	ws := &WriteStream{pw: pw, done: make(chan error, 1)}
	go func() {
		err := start(pr)
		pr.Close()
		ws.done <- err
	}()
	return ws
}

// Write feeds p into the request body.
func (w *WriteStream) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

// Read is not supported: a WriteStream is write-only.
func (w *WriteStream) Read(p []byte) (int, error) {
	return 0, vfserrors.New(vfserrors.KindNotSupported, "write stream does not support read")
}

// Seek is not supported: the underlying request body is a one-way pipe.
func (w *WriteStream) Seek(offset int64, whence int) (int64, error) {
	return 0, vfserrors.New(vfserrors.KindNotSupported, "write stream does not support seek")
}

// Close resolves the completion promise by closing the pipe's write
// side, awaits the backend's request-completion response, and surfaces
// any failure it reports. Calling Close more than once returns the same
// result every time.
func (w *WriteStream) Close() error {
	w.closeOnce.Do(func() {
		w.pw.Close()
		err := <-w.done
		if err != nil {
			w.closeErr = vfserrors.New(vfserrors.KindIoError, "write request failed").WithCause(err)
		}
	})
	return w.closeErr
}

var _ Stream = (*WriteStream)(nil)
