package model

import (
	"encoding/json"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/satchel/pkg/domain/types"
)

// RequestKind selects the download strategy
type RequestKind int

const (
	RequestUnknown RequestKind = iota
	RequestSingle
	RequestMulti
)

// String implements fmt.Stringer
func (k RequestKind) String() string {
	switch k {
	case RequestSingle:
		return "single"
	case RequestMulti:
		return "multi"
	default:
		return "unknown"
	}
}

// RequestKindOf maps an HTTP method to the strategy serving it
func RequestKindOf(method string) RequestKind {
	switch method {
	case http.MethodGet:
		return RequestSingle
	case http.MethodPut:
		return RequestMulti
	default:
		return RequestUnknown
	}
}

// DownloadRequest is what a client asks for. A one-element set is always
// sent as RequestSingle.
type DownloadRequest struct {
	Kind RequestKind
	URIs []*URI
}

// NewDownloadRequest builds a request for the given URIs
func NewDownloadRequest(uris []*URI) *DownloadRequest {
	kind := RequestMulti
	if len(uris) == 1 {
		kind = RequestSingle
	}
	return &DownloadRequest{Kind: kind, URIs: uris}
}

// FileDownloadData is the PUT body of a multi-file download
type FileDownloadData struct {
	URIs []string `json:"uris"`
}

var fileDownloadDataSchema = newFileDownloadDataSchema()

func newFileDownloadDataSchema() *openapi3.Schema {
	schema := openapi3.NewObjectSchema().
		WithProperty("uris", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema()))
	schema.Required = []string{"uris"}
	return schema
}

// ParseFileDownloadData decodes and validates a PUT body. An empty URI list
// is syntactically valid here; emptiness is checked by the caller.
func ParseFileDownloadData(body []byte) (*FileDownloadData, error) {
	if len(body) == 0 {
		return nil, goerr.New("request body must be defined when downloading multiple files",
			goerr.T(types.ErrTagBadRequest))
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, goerr.Wrap(err, "request body is not valid JSON",
			goerr.V("body", string(body)), goerr.T(types.ErrTagBadRequest))
	}
	if err := fileDownloadDataSchema.VisitJSON(raw); err != nil {
		return nil, goerr.Wrap(err, "unexpected body format, cannot extract the URIs",
			goerr.V("body", string(body)), goerr.T(types.ErrTagBadRequest))
	}

	var data FileDownloadData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, goerr.Wrap(err, "failed to decode request body",
			goerr.V("body", string(body)), goerr.T(types.ErrTagBadRequest))
	}

	return &data, nil
}

// ParseURIs parses every URI in the body, stopping at the first invalid one
func (x *FileDownloadData) ParseURIs() ([]*URI, error) {
	uris := make([]*URI, 0, len(x.URIs))
	for _, s := range x.URIs {
		u, err := ParseURI(s)
		if err != nil {
			return nil, err
		}
		uris = append(uris, u)
	}
	return uris, nil
}

// FileStat is the subset of file metadata the handlers need
type FileStat struct {
	URI         *URI
	Path        string
	IsDirectory bool
	Size        int64
}

// Artifact is a file ready to be served. Temporary holds every temp path
// owned by the request; they must be released after serving.
type Artifact struct {
	Path      string
	Name      string
	Temporary []string
}
