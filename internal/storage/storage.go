// Package storage reads source images and writes exported bytes for the
// editor hosts. Locations may be local paths, http(s) URLs, s3://bucket/key
// objects, data: URIs, "-" for standard streams or "clipboard:".
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/example/layerpaint/internal/clipboard"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxReadBytes bounds how much a single source may deliver.
const MaxReadBytes = 256 << 20

var (
	// ErrDecode is returned when a source cannot be decoded as an image.
	ErrDecode = errors.New("decode image")
	// ErrUnsupported is returned for locations that cannot be read or
	// written.
	ErrUnsupported = errors.New("unsupported location")
)

// Store resolves references against its transports.
type Store struct {
	http   *http.Client
	s3     s3iface.S3API
	region string

	readClipboard  func() (image.Image, error)
	writeClipboard func(image.Image) error

	stdin  io.Reader
	stdout io.Writer
}

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient sets the client used for http(s) sources.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Store) { s.http = c }
}

// WithS3 sets the S3 client. Without it one is created from the default
// AWS credential chain on first use.
func WithS3(c s3iface.S3API) Option {
	return func(s *Store) { s.s3 = c }
}

// WithRegion sets the AWS region for the default S3 client.
func WithRegion(region string) Option {
	return func(s *Store) { s.region = region }
}

// WithClipboard replaces the clipboard functions.
func WithClipboard(read func() (image.Image, error), write func(image.Image) error) Option {
	return func(s *Store) {
		s.readClipboard = read
		s.writeClipboard = write
	}
}

// WithStdio sets the streams used for "-".
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(s *Store) {
		s.stdin = in
		s.stdout = out
	}
}

// New returns a Store using the process defaults.
func New(opts ...Option) *Store {
	s := &Store{
		http:           http.DefaultClient,
		readClipboard:  clipboard.ReadImage,
		writeClipboard: clipboard.WriteImage,
		stdin:          os.Stdin,
		stdout:         os.Stdout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Decode decodes data with every registered image format.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, format, nil
}

// Open fetches and decodes the image at ref.
func (s *Store) Open(ctx context.Context, ref string) (image.Image, error) {
	r, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	if r.Kind == KindClipboard {
		img, err := s.readClipboard()
		if err != nil {
			return nil, fmt.Errorf("read clipboard: %w", err)
		}
		return img, nil
	}
	data, err := s.Read(ctx, r)
	if err != nil {
		return nil, err
	}
	img, _, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r, err)
	}
	return img, nil
}

// Read returns the raw bytes at r.
func (s *Store) Read(ctx context.Context, r Ref) ([]byte, error) {
	switch r.Kind {
	case KindFile:
		f, err := os.Open(r.Path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return readLimited(f)
	case KindStdio:
		return readLimited(s.stdin)
	case KindData:
		return r.Data, nil
	case KindHTTP:
		return s.readHTTP(ctx, r.URL)
	case KindS3:
		return s.readS3(ctx, r)
	}
	return nil, fmt.Errorf("%w: cannot read %s", ErrUnsupported, r.Kind)
}

// Write stores data at ref. http(s) and data: locations are read-only.
// Clipboard targets receive the decoded image.
func (s *Store) Write(ctx context.Context, ref string, data []byte) error {
	r, err := ParseRef(ref)
	if err != nil {
		return err
	}
	switch r.Kind {
	case KindFile:
		if dir := filepath.Dir(r.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		return os.WriteFile(r.Path, data, 0o644)
	case KindStdio:
		_, err := s.stdout.Write(data)
		return err
	case KindS3:
		return s.writeS3(ctx, r, data)
	case KindClipboard:
		img, _, err := Decode(data)
		if err != nil {
			return err
		}
		if err := s.writeClipboard(img); err != nil {
			return fmt.Errorf("write clipboard: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: cannot write %s", ErrUnsupported, r.Kind)
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxReadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxReadBytes {
		return nil, fmt.Errorf("source larger than %d bytes", MaxReadBytes)
	}
	return data, nil
}

func (s *Store) readHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}
	return readLimited(resp.Body)
}

func (s *Store) s3Client() (s3iface.S3API, error) {
	if s.s3 != nil {
		return s.s3, nil
	}
	cfg := aws.NewConfig()
	if s.region != "" {
		cfg = cfg.WithRegion(s.region)
	}
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            *cfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	s.s3 = s3.New(sess)
	return s.s3, nil
}

func (s *Store) readS3(ctx context.Context, r Ref) ([]byte, error) {
	c, err := s.s3Client()
	if err != nil {
		return nil, err
	}
	out, err := c.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.Bucket),
		Key:    aws.String(r.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r, err)
	}
	defer out.Body.Close()
	return readLimited(out.Body)
}

func (s *Store) writeS3(ctx context.Context, r Ref, data []byte) error {
	c, err := s.s3Client()
	if err != nil {
		return err
	}
	_, err = c.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.Bucket),
		Key:           aws.String(r.Key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(http.DetectContentType(data)),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", r, err)
	}
	return nil
}
