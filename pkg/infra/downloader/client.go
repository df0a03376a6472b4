package downloader

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/satchel/pkg/domain/interfaces"
	"github.com/m-mizutani/satchel/pkg/domain/model"
)

// maxErrorBody bounds how much of a failed response is kept for the log
const maxErrorBody = 4 << 10

// Saver persists a downloaded payload under the suggested name and returns
// where it ended up
type Saver interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// Client requests files from a download endpoint and saves the result
type Client struct {
	endpoint   *url.URL
	httpClient *http.Client
	stater     interfaces.FileStater
	saver      Saver
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithSaver sets where payloads are saved. Defaults to the current directory.
func WithSaver(saver Saver) Option {
	return func(c *Client) {
		c.saver = saver
	}
}

// New creates a Client for the download endpoint URL, e.g.
// http://localhost:8080/file-download
func New(endpoint string, stater interfaces.FileStater, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid download endpoint", goerr.V("endpoint", endpoint))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, goerr.New("download endpoint must be an http(s) URL", goerr.V("endpoint", endpoint))
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""

	c := &Client{
		endpoint:   u,
		httpClient: http.DefaultClient,
		stater:     stater,
		saver:      NewDirSaver("."),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Download fetches uris and saves them. It never fails loudly: every error is
// logged together with the URIs and nothing is saved.
func (c *Client) Download(ctx context.Context, uris []*model.URI) {
	if len(uris) == 0 {
		return
	}

	logger := ctxlog.From(ctx)
	saved, err := c.download(ctx, uris)
	if err != nil {
		logger.Error("Error occurred when downloading", "uris", uriStrings(uris), "error", err)
		return
	}

	logger.Debug("Downloaded files", "uris", uriStrings(uris), "saved", saved)
}

func (c *Client) download(ctx context.Context, uris []*model.URI) (string, error) {
	name, err := c.SuggestedName(ctx, uris)
	if err != nil {
		return "", err
	}

	req, err := c.NewRequest(ctx, uris)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", goerr.Wrap(err, "failed to send download request", goerr.V("url", req.URL.String()))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", goerr.New("received unexpected status code",
			goerr.V("status", resp.StatusCode),
			goerr.V("status_text", resp.Status),
			goerr.V("body", string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read response body")
	}

	return c.saver.Save(ctx, name, data)
}

// SuggestedName derives the save name: the base name of a single file, with
// .zip for a directory, or <parent name>.zip for several URIs
func (c *Client) SuggestedName(ctx context.Context, uris []*model.URI) (string, error) {
	if len(uris) == 0 {
		return "", goerr.New("no URIs to download")
	}

	dl := model.NewDownloadRequest(uris)
	first := dl.URIs[0]
	switch dl.Kind {
	case model.RequestMulti:
		return first.Parent().Base() + ".zip", nil

	case model.RequestSingle:
		stat, err := c.stater.Stat(ctx, first)
		if err != nil {
			return "", err
		}
		if stat == nil {
			return "", goerr.New("file does not exist", goerr.V("uri", first.String()))
		}
		if stat.IsDirectory {
			return first.Base() + ".zip", nil
		}
		return first.Base(), nil

	default:
		return "", goerr.New("unsupported download request", goerr.V("kind", dl.Kind.String()))
	}
}

// NewRequest builds GET <endpoint>/?uri= for one URI and PUT <endpoint> with
// a JSON body for several
func (c *Client) NewRequest(ctx context.Context, uris []*model.URI) (*http.Request, error) {
	if len(uris) == 0 {
		return nil, goerr.New("no URIs to download")
	}

	dl := model.NewDownloadRequest(uris)
	u := *c.endpoint
	switch dl.Kind {
	case model.RequestSingle:
		u.Path += "/"
		u.RawQuery = url.Values{"uri": {dl.URIs[0].String()}}.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create download request", goerr.V("url", u.String()))
		}
		return req, nil

	case model.RequestMulti:
		body, err := json.Marshal(&model.FileDownloadData{URIs: uriStrings(dl.URIs)})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to marshal download request body")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, u.String(), bytes.NewReader(body))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create download request", goerr.V("url", u.String()))
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil

	default:
		return nil, goerr.New("unsupported download request", goerr.V("kind", dl.Kind.String()))
	}
}

func uriStrings(uris []*model.URI) []string {
	out := make([]string, len(uris))
	for i, u := range uris {
		out[i] = u.String()
	}
	return out
}
