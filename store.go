package gzipi

import (
	"context"
	"io"
	"os"
	"strings"
)

// ByteRange is an inclusive byte range for a ranged read, in the style of
// an HTTP Range header.
type ByteRange struct {
	Start, End int64
}

// Store abstracts the object-store backend addressed by a path: every
// component that names a path rather than taking an io.Reader/io.Writer
// directly goes through one of these, so the same code works against the
// local filesystem or a remote bucket (SPEC_FULL.md section 4.10).
type Store interface {
	// Size returns the size in bytes of the object at path.
	Size(ctx context.Context, path string) (int64, error)
	// OpenRead opens path for reading. If rng is non-nil, only that byte
	// range is returned; otherwise the whole object is returned.
	OpenRead(ctx context.Context, path string, rng *ByteRange) (io.ReadCloser, error)
	// OpenWrite opens path for writing, truncating any existing object.
	OpenWrite(ctx context.Context, path string) (io.WriteCloser, error)
	// Exists reports whether an object exists at path.
	Exists(ctx context.Context, path string) bool
}

// ResolveStore returns the Store implementation that should handle path:
// S3Store for "s3://..." paths, LocalStore otherwise.
func ResolveStore(path string) Store {
	if strings.HasPrefix(path, "s3://") {
		return NewS3Store()
	}
	return LocalStore{}
}

// LocalStore is a Store backed by the local filesystem.
type LocalStore struct{}

func (LocalStore) Size(_ context.Context, path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, errWrap(ErrIO, err)
	}
	return fi.Size(), nil
}

func (LocalStore) Exists(_ context.Context, path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (LocalStore) OpenWrite(_ context.Context, path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errWrap(ErrIO, err)
	}
	return f, nil
}

func (LocalStore) OpenRead(_ context.Context, path string, rng *ByteRange) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errWrap(ErrIO, err)
	}
	if rng == nil {
		return f, nil
	}
	if _, err := f.Seek(rng.Start, io.SeekStart); err != nil {
		f.Close()
		return nil, errWrap(ErrIO, err)
	}
	return &limitedReadCloser{r: io.LimitReader(f, rng.End-rng.Start+1), c: f}, nil
}

// limitedReadCloser pairs an io.LimitReader view of a file with that
// file's own Close, so a ranged local read still closes its descriptor.
type limitedReadCloser struct {
	r io.Reader
	c io.Closer
}

func (l *limitedReadCloser) Read(p []byte) (int, error) { return l.r.Read(p) }
func (l *limitedReadCloser) Close() error               { return l.c.Close() }

// readerAtStore adapts a Store into an io.ReaderAt over one fixed-size
// object, as needed by BinarySearch. It performs one ranged OpenRead per
// ReadAt call; callers that need many small reads against a remote Store
// should prefer buffering (see BinarySearch's own threshold-driven
// in-memory buffering) over calling this directly in a tight loop.
type readerAtStore struct {
	ctx   context.Context
	store Store
	path  string
	size  int64
}

func (s *readerAtStore) ReadAt(p []byte, off int64) (int, error) {
	if off >= s.size {
		return 0, io.EOF
	}
	end := off + int64(len(p)) - 1
	if end >= s.size {
		end = s.size - 1
	}
	rc, err := s.store.OpenRead(s.ctx, s.path, &ByteRange{Start: off, End: end})
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	want := end - off + 1
	n, err := io.ReadFull(rc, p[:want])
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if err == nil && want < int64(len(p)) {
		// The requested range was clipped to the object's size: per the
		// io.ReaderAt contract, a short read must carry a non-nil error.
		err = io.EOF
	}
	return n, err
}
