package model

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/satchel/pkg/domain/types"
)

const (
	// SchemeFile is the only scheme that resolves to a local path
	SchemeFile = "file"

	// FallbackName names downloads of the root, which has no base name
	FallbackName = "download"
)

// URI identifies a file or directory reachable by the backend
type URI struct {
	u *url.URL
}

// ParseURI parses a URI string. A bare absolute path is treated as a file URI.
func ParseURI(s string) (*URI, error) {
	if strings.TrimSpace(s) == "" {
		return nil, goerr.New("empty URI", goerr.T(types.ErrTagBadRequest))
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, goerr.Wrap(err, "malformed URI", goerr.V("uri", s), goerr.T(types.ErrTagBadRequest))
	}

	if u.Scheme == "" {
		if !path.IsAbs(u.Path) {
			return nil, goerr.New("URI must have a scheme or an absolute path",
				goerr.V("uri", s), goerr.T(types.ErrTagBadRequest))
		}
		u.Scheme = SchemeFile
	}
	if u.Opaque != "" {
		return nil, goerr.New("opaque URI is not supported", goerr.V("uri", s), goerr.T(types.ErrTagBadRequest))
	}

	return &URI{u: u}, nil
}

// MustParseURI is ParseURI for constants in tests and CLI defaults
func MustParseURI(s string) *URI {
	u, err := ParseURI(s)
	if err != nil {
		panic(err)
	}
	return u
}

// String returns the canonical form used for parent comparison
func (x *URI) String() string {
	return x.u.String()
}

// Base returns the last path segment, or FallbackName for the root
func (x *URI) Base() string {
	base := path.Base(x.u.Path)
	if base == "/" || base == "." {
		return FallbackName
	}
	return base
}

// Parent returns the URI of the immediate containing directory. Query and
// fragment are dropped.
func (x *URI) Parent() *URI {
	p := strings.TrimSuffix(x.u.Path, "/")
	if p == "" {
		p = "/"
	}

	return &URI{u: &url.URL{
		Scheme: x.u.Scheme,
		User:   x.u.User,
		Host:   x.u.Host,
		Path:   path.Dir(p),
	}}
}

// FSPath resolves the URI to a local filesystem path
func (x *URI) FSPath() (string, error) {
	if x.u.Scheme != SchemeFile {
		return "", goerr.New("unsupported URI scheme",
			goerr.V("uri", x.String()),
			goerr.V("scheme", x.u.Scheme),
			goerr.T(types.ErrTagBadRequest))
	}
	if x.u.Host != "" && x.u.Host != "localhost" {
		return "", goerr.New("file URI must not refer to a remote host",
			goerr.V("uri", x.String()), goerr.T(types.ErrTagBadRequest))
	}

	return filepath.FromSlash(path.Clean(x.u.Path)), nil
}
