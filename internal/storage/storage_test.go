package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})
	return img
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage()); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
	}{
		{"shot.png", KindFile},
		{"/tmp/shot.png", KindFile},
		{"file:///tmp/shot.png", KindFile},
		{"-", KindStdio},
		{"https://example.com/a.png", KindHTTP},
		{"s3://bucket/dir/a.png", KindS3},
		{"data:image/png;base64,AAAA", KindData},
		{"clipboard:", KindClipboard},
	}
	for _, tt := range tests {
		r, err := ParseRef(tt.in)
		if err != nil {
			t.Fatalf("ParseRef(%q): %v", tt.in, err)
		}
		if r.Kind != tt.kind {
			t.Errorf("ParseRef(%q) kind = %v, want %v", tt.in, r.Kind, tt.kind)
		}
	}
	r, _ := ParseRef("s3://bucket/dir/a.png")
	if r.Bucket != "bucket" || r.Key != "dir/a.png" {
		t.Errorf("s3 ref = %+v", r)
	}
	for _, bad := range []string{"", "ftp://host/a.png", "s3://bucket"} {
		if _, err := ParseRef(bad); !errors.Is(err, ErrUnsupported) {
			t.Errorf("ParseRef(%q) err = %v", bad, err)
		}
	}
	if _, err := ParseRef("data:nocomma"); !errors.Is(err, ErrDecode) {
		t.Errorf("malformed data URI err = %v", err)
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "a.png")
	s := New()
	if err := s.Write(context.Background(), path, pngBytes(t)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	img, err := s.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if img.Bounds().Dx() != 4 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
}

func TestDecodeFailureWrapsErrDecode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.png")
	s := New()
	if err := s.Write(context.Background(), path, []byte("not an image")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Open(context.Background(), path); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestExtraDecoders(t *testing.T) {
	for name, enc := range map[string]func(io.Writer, image.Image) error{
		"bmp":  bmp.Encode,
		"tiff": func(w io.Writer, m image.Image) error { return tiff.Encode(w, m, nil) },
	} {
		var buf bytes.Buffer
		if err := enc(&buf, testImage()); err != nil {
			t.Fatalf("%s encode: %v", name, err)
		}
		_, format, err := Decode(buf.Bytes())
		if err != nil || format != name {
			t.Errorf("Decode %s: format %q err %v", name, format, err)
		}
	}
}

func TestDataURI(t *testing.T) {
	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))
	img, err := New().Open(context.Background(), ref)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if img.Bounds().Dy() != 3 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if err := New().Write(context.Background(), ref, nil); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("data URIs should be read-only, got %v", err)
	}
}

func TestHTTP(t *testing.T) {
	data := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/a.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	defer srv.Close()

	s := New(WithHTTPClient(srv.Client()))
	if _, err := s.Open(context.Background(), srv.URL+"/a.png"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.Open(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Fatalf("expected error for 404")
	}
	if err := s.Write(context.Background(), srv.URL+"/a.png", data); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("http sink should be unsupported, got %v", err)
	}
}

type fakeS3 struct {
	s3iface.S3API
	objects map[string][]byte
	puts    []*s3.PutObjectInput
}

func (f *fakeS3) GetObjectWithContext(_ aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)] = data
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func TestS3(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	s := New(WithS3(fake))
	ctx := context.Background()
	if err := s.Write(ctx, "s3://shots/out/a.png", pngBytes(t)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := aws.StringValue(fake.puts[0].ContentType); got != "image/png" {
		t.Errorf("content type = %q", got)
	}
	img, err := s.Open(ctx, "s3://shots/out/a.png")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if img.Bounds().Dx() != 4 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if _, err := s.Open(ctx, "s3://shots/none.png"); err == nil {
		t.Fatalf("expected missing object error")
	}
}

func TestStdioAndClipboard(t *testing.T) {
	var out bytes.Buffer
	var clip image.Image
	s := New(
		WithStdio(bytes.NewReader(pngBytes(t)), &out),
		WithClipboard(
			func() (image.Image, error) { return clip, nil },
			func(img image.Image) error { clip = img; return nil },
		),
	)
	ctx := context.Background()
	img, err := s.Open(ctx, "-")
	if err != nil {
		t.Fatalf("Open stdin: %v", err)
	}
	if err := s.Write(ctx, "-", []byte("xyz")); err != nil || out.String() != "xyz" {
		t.Fatalf("stdout write: %q %v", out.String(), err)
	}
	if err := s.Write(ctx, "clipboard:", pngBytes(t)); err != nil {
		t.Fatalf("clipboard write: %v", err)
	}
	got, err := s.Open(ctx, "clipboard:")
	if err != nil || got.Bounds() != img.Bounds() {
		t.Fatalf("clipboard read: %v %v", got, err)
	}
}
