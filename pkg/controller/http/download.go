package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/satchel/pkg/domain/interfaces"
	"github.com/m-mizutani/satchel/pkg/domain/model"
	"github.com/m-mizutani/satchel/pkg/domain/types"
)

// maxBodySize bounds the multi-file JSON body
const maxBodySize = 8 << 20

// contentTypes covers extensions the mime package may not know on every host
var contentTypes = map[string]string{
	".zip": "application/zip",
}

// DownloadHandler serves files and archives from the workspace
type DownloadHandler struct {
	downloadUC interfaces.DownloadUseCase
}

// NewDownloadHandler creates a new DownloadHandler
func NewDownloadHandler(downloadUC interfaces.DownloadUseCase) *DownloadHandler {
	return &DownloadHandler{
		downloadUC: downloadUC,
	}
}

// Handle dispatches by method: GET downloads one URI, PUT downloads many
func (h *DownloadHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch model.RequestKindOf(r.Method) {
	case model.RequestSingle:
		h.HandleSingle(w, r)
	case model.RequestMulti:
		h.HandleMulti(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet+", "+http.MethodPut)
	}
}

// HandleSingle serves the file named by the uri query parameter. A directory
// is served as <name>.zip.
func (h *DownloadHandler) HandleSingle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	body, err := readBody(r, maxBodySize)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	if !isEmptyBody(body) {
		writeError(ctx, w, goerr.New("the request body must be empty when downloading a single file",
			goerr.V("body", string(body)), goerr.T(types.ErrTagBadRequest)))
		return
	}

	values, ok := r.URL.Query()["uri"]
	if !ok || len(values) != 1 || values[0] == "" {
		writeError(ctx, w, goerr.New("cannot access the 'uri' query from the request",
			goerr.V("query", r.URL.RawQuery), goerr.T(types.ErrTagBadRequest)))
		return
	}

	uri, err := model.ParseURI(values[0])
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	artifact, err := h.downloadUC.PrepareSingle(ctx, uri)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	h.serve(ctx, w, artifact)
}

// HandleMulti archives the URIs of a FileDownloadData body into
// <parent name>.zip and serves it.
func (h *DownloadHandler) HandleMulti(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}

	body, err := readBody(r, maxBodySize)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	data, err := model.ParseFileDownloadData(body)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	uris, err := data.ParseURIs()
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	artifact, err := h.downloadUC.PrepareMulti(ctx, uris)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	h.serve(ctx, w, artifact)
}

// serve streams the artifact and then schedules cleanup of its temp paths.
// Cleanup is scheduled only once the body has been written, and also when
// serving fails.
func (h *DownloadHandler) serve(ctx context.Context, w http.ResponseWriter, artifact *model.Artifact) {
	defer scheduleCleanup(ctx, h.downloadUC, artifact)

	if err := serveFile(ctx, w, artifact.Path, artifact.Name); err != nil {
		writeError(ctx, w, err)
	}
}

func scheduleCleanup(ctx context.Context, uc interfaces.DownloadUseCase, artifact *model.Artifact) {
	uc.Release(ctx, artifact)
}

// serveFile writes the file at filePath as an attachment named name. Errors
// are returned only while nothing has been written yet; a broken stream is
// logged since the status line is already sent.
func serveFile(ctx context.Context, w http.ResponseWriter, filePath, name string) error {
	logger := ctxlog.From(ctx)

	f, err := os.Open(filePath)
	if err != nil {
		return goerr.Wrap(err, "failed to open file for download", goerr.V("path", filePath))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return goerr.Wrap(err, "failed to stat file for download", goerr.V("path", filePath))
	}

	header := w.Header()
	if contentType := inferContentType(name); contentType != "" {
		header.Set("Content-Type", contentType)
	} else {
		logger.Debug("Cannot determine the content type, omitting the header", "name", name)
		// nil suppresses content sniffing by net/http
		header["Content-Type"] = nil
	}
	header.Set("Content-Disposition", contentDisposition(name))
	header.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, f); err != nil {
		logger.Warn("Download stream interrupted", "path", filePath, "error", err)
	}
	return nil
}

// inferContentType returns the MIME type for name's extension, or "" if unknown
func inferContentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		return ""
	}
	if contentType, ok := contentTypes[ext]; ok {
		return contentType
	}
	return mime.TypeByExtension(ext)
}

func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allow string) {
	w.Header().Set("Allow", allow)
	writeError(r.Context(), w, goerr.New("unexpected HTTP method",
		goerr.V("method", r.Method),
		goerr.V("expected", allow),
		goerr.T(types.ErrTagMethodNotAllowed)))
}

func readBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read request body", goerr.T(types.ErrTagBadRequest))
	}
	if int64(len(body)) > limit {
		return nil, goerr.New("request body is too large",
			goerr.V("limit", limit), goerr.T(types.ErrTagBadRequest))
	}
	return body, nil
}

// isEmptyBody accepts no body, whitespace, or an empty JSON object
func isEmptyBody(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return true
	}

	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return false
	}
	return obj != nil && len(obj) == 0
}
