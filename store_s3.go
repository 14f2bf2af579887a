package gzipi

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Store is a Store backed by an S3-compatible bucket, addressed by
// "s3://bucket/key" paths.
type S3Store struct {
	client   *s3.S3
	uploader *s3manager.Uploader
}

// NewS3Store builds an S3Store from the default AWS session (environment,
// shared config file, or EC2/ECS instance role, in the usual SDK order).
func NewS3Store() *S3Store {
	sess := session.Must(session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	}))
	return &S3Store{
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
	}
}

// splitS3Path splits an "s3://bucket/key" path into its bucket and key.
func splitS3Path(path string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(path, "s3://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: malformed s3 path %q", ErrIO, path)
	}
	return parts[0], parts[1], nil
}

func (s *S3Store) Size(ctx context.Context, path string) (int64, error) {
	bucket, key, err := splitS3Path(path)
	if err != nil {
		return 0, err
	}
	out, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, errWrap(ErrIO, err)
	}
	return aws.Int64Value(out.ContentLength), nil
}

func (s *S3Store) Exists(ctx context.Context, path string) bool {
	bucket, key, err := splitS3Path(path)
	if err != nil {
		return false
	}
	_, err = s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return err == nil
}

func (s *S3Store) OpenRead(ctx context.Context, path string, rng *ByteRange) (io.ReadCloser, error) {
	bucket, key, err := splitS3Path(path)
	if err != nil {
		return nil, err
	}
	in := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if rng != nil {
		in.Range = aws.String(fmt.Sprintf("bytes=%d-%d", rng.Start, rng.End))
	}
	out, err := s.client.GetObjectWithContext(ctx, in)
	if err != nil {
		return nil, errWrap(ErrIO, err)
	}
	return out.Body, nil
}

func (s *S3Store) OpenWrite(ctx context.Context, path string) (io.WriteCloser, error) {
	bucket, key, err := splitS3Path(path)
	if err != nil {
		return nil, err
	}
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, uploadErr := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		done <- uploadErr
	}()
	return &s3WriteCloser{pw: pw, done: done}, nil
}

// s3WriteCloser streams writes into an s3manager upload running in a
// background goroutine, fed through an io.Pipe; Close waits for the
// upload to finish and surfaces its error.
type s3WriteCloser struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *s3WriteCloser) Write(p []byte) (int, error) { return w.pw.Write(p) }

func (w *s3WriteCloser) Close() error {
	if err := w.pw.Close(); err != nil {
		return errWrap(ErrIO, err)
	}
	if err := <-w.done; err != nil {
		return errWrap(ErrIO, err)
	}
	return nil
}
