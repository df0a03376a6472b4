package model_test

import (
	"net/http"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/satchel/pkg/domain/model"
	"github.com/m-mizutani/satchel/pkg/domain/types"
)

func TestRequestKindOf(t *testing.T) {
	gt.Value(t, model.RequestKindOf(http.MethodGet)).Equal(model.RequestSingle)
	gt.Value(t, model.RequestKindOf(http.MethodPut)).Equal(model.RequestMulti)
	gt.Value(t, model.RequestKindOf(http.MethodPost)).Equal(model.RequestUnknown)
	gt.Value(t, model.RequestKindOf(http.MethodDelete)).Equal(model.RequestUnknown)
}

func TestNewDownloadRequest(t *testing.T) {
	one := model.NewDownloadRequest([]*model.URI{model.MustParseURI("file:///ws/a.txt")})
	gt.Value(t, one.Kind).Equal(model.RequestSingle)

	two := model.NewDownloadRequest([]*model.URI{
		model.MustParseURI("file:///ws/a.txt"),
		model.MustParseURI("file:///ws/b.txt"),
	})
	gt.Value(t, two.Kind).Equal(model.RequestMulti)
}

func TestParseFileDownloadData(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantLen int
		wantErr bool
	}{
		{
			name:    "two uris",
			body:    `{"uris":["file:///ws/dir/a.txt","file:///ws/dir/b.txt"]}`,
			wantLen: 2,
		},
		{
			name:    "empty uris is syntactically valid",
			body:    `{"uris":[]}`,
			wantLen: 0,
		},
		{
			name:    "empty body",
			body:    "",
			wantErr: true,
		},
		{
			name:    "not JSON",
			body:    "uris=a",
			wantErr: true,
		},
		{
			name:    "missing uris",
			body:    `{"files":["a"]}`,
			wantErr: true,
		},
		{
			name:    "uris is not an array",
			body:    `{"uris":"file:///ws/a.txt"}`,
			wantErr: true,
		},
		{
			name:    "uri element is not a string",
			body:    `{"uris":[1,2]}`,
			wantErr: true,
		},
		{
			name:    "top level array",
			body:    `["file:///ws/a.txt"]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := model.ParseFileDownloadData([]byte(tt.body))
			if tt.wantErr {
				gt.Error(t, err)
				gt.True(t, goerr.HasTag(err, types.ErrTagBadRequest))
				return
			}
			gt.NoError(t, err)
			gt.Value(t, len(data.URIs)).Equal(tt.wantLen)
		})
	}
}

func TestFileDownloadData_ParseURIs(t *testing.T) {
	data := &model.FileDownloadData{URIs: []string{"file:///ws/a.txt", ""}}
	_, err := data.ParseURIs()
	gt.Error(t, err)

	data = &model.FileDownloadData{URIs: []string{"file:///ws/a.txt", "/ws/b.txt"}}
	uris, err := data.ParseURIs()
	gt.NoError(t, err)
	gt.Value(t, uris[1].String()).Equal("file:///ws/b.txt")
}
