package cli_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/satchel/pkg/cli"
	controller "github.com/m-mizutani/satchel/pkg/controller/http"
	"github.com/m-mizutani/satchel/pkg/infra/archive"
	"github.com/m-mizutani/satchel/pkg/infra/fs"
	"github.com/m-mizutani/satchel/pkg/infra/tempdir"
	"github.com/m-mizutani/satchel/pkg/usecase"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	uc := usecase.NewDownload(fs.NewLocal(), archive.New(), tempdir.New(tempdir.WithRoot(t.TempDir())))
	server, err := controller.NewServer(context.Background(), uc)
	gt.NoError(t, err)

	srv := httptest.NewServer(server.Handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_Download(t *testing.T) {
	srv := newServer(t)

	ws := t.TempDir()
	gt.NoError(t, os.WriteFile(filepath.Join(ws, "a.txt"), []byte("A"), 0644))
	gt.NoError(t, os.WriteFile(filepath.Join(ws, "b.txt"), []byte("B"), 0644))
	parent := filepath.Base(ws)

	testCases := map[string]struct {
		uris     []string
		wantFile string
		wantErr  bool
	}{
		"single file": {
			uris:     []string{filepath.Join(ws, "a.txt")},
			wantFile: "a.txt",
		},
		"multiple files": {
			uris:     []string{filepath.Join(ws, "a.txt"), filepath.Join(ws, "b.txt")},
			wantFile: parent + ".zip",
		},
		"missing file": {
			uris:    []string{filepath.Join(ws, "missing.txt")},
			wantErr: true,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			out := t.TempDir()
			args := []string{
				"satchel", "--log-level", "error", "--log-format", "text",
				"download", "--url", srv.URL + "/file-download", "--output", out,
			}
			args = append(args, tc.uris...)

			err := cli.Run(context.Background(), args)
			if tc.wantErr {
				gt.Error(t, err)
				entries, readErr := os.ReadDir(out)
				gt.NoError(t, readErr)
				gt.A(t, entries).Length(0)
				return
			}

			gt.NoError(t, err)
			_, err = os.Stat(filepath.Join(out, tc.wantFile))
			gt.NoError(t, err)
		})
	}
}

func TestRun_InvalidLogLevel(t *testing.T) {
	err := cli.Run(context.Background(), []string{"satchel", "--log-level", "verbose", "download", "/tmp/x"})
	gt.Error(t, err)
}

func TestRun_DownloadWithoutURI(t *testing.T) {
	err := cli.Run(context.Background(), []string{"satchel", "--log-format", "text", "--log-level", "error", "download"})
	gt.Error(t, err)
}
