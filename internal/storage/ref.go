package storage

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// Kind identifies where a reference points.
type Kind int

const (
	KindFile Kind = iota
	KindStdio
	KindHTTP
	KindS3
	KindData
	KindClipboard
)

var kindNames = map[Kind]string{
	KindFile:      "file",
	KindStdio:     "stdio",
	KindHTTP:      "http",
	KindS3:        "s3",
	KindData:      "data",
	KindClipboard: "clipboard",
}

func (k Kind) String() string { return kindNames[k] }

// Ref is a parsed image location.
type Ref struct {
	Kind Kind
	// Path is the local path for KindFile.
	Path string
	// URL is the full address for KindHTTP.
	URL    string
	Bucket string
	Key    string
	// Data is the decoded payload of a data: URI.
	Data []byte
}

func (r Ref) String() string {
	switch r.Kind {
	case KindFile:
		return r.Path
	case KindStdio:
		return "-"
	case KindHTTP:
		return r.URL
	case KindS3:
		return "s3://" + r.Bucket + "/" + r.Key
	case KindData:
		return fmt.Sprintf("data:(%d bytes)", len(r.Data))
	case KindClipboard:
		return "clipboard:"
	}
	return "?"
}

// ParseRef classifies s. Plain paths and file:// URLs are files, "-" is
// standard input or output, "clipboard:" is the desktop clipboard.
func ParseRef(s string) (Ref, error) {
	switch {
	case s == "":
		return Ref{}, fmt.Errorf("%w: empty location", ErrUnsupported)
	case s == "-":
		return Ref{Kind: KindStdio}, nil
	case s == "clipboard:" || s == "clipboard":
		return Ref{Kind: KindClipboard}, nil
	case strings.HasPrefix(s, "data:"):
		data, err := parseDataURI(s)
		if err != nil {
			return Ref{}, err
		}
		return Ref{Kind: KindData, Data: data}, nil
	}

	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// No scheme, or a Windows drive letter.
		return Ref{Kind: KindFile, Path: s}, nil
	}
	switch strings.ToLower(u.Scheme) {
	case "file":
		return Ref{Kind: KindFile, Path: u.Path}, nil
	case "http", "https":
		return Ref{Kind: KindHTTP, URL: s}, nil
	case "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Ref{}, fmt.Errorf("%w: s3 location needs a bucket and key: %q", ErrUnsupported, s)
		}
		return Ref{Kind: KindS3, Bucket: u.Host, Key: key}, nil
	}
	return Ref{}, fmt.Errorf("%w: scheme %q", ErrUnsupported, u.Scheme)
}

// parseDataURI decodes data:[<mediatype>][;base64],<payload>.
func parseDataURI(s string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data URI", ErrDecode)
	}
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: data URI: %v", ErrDecode, err)
		}
		return data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: data URI: %v", ErrDecode, err)
	}
	return []byte(text), nil
}
