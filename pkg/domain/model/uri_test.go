package model_test

import (
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/satchel/pkg/domain/model"
	"github.com/m-mizutani/satchel/pkg/domain/types"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "file URI",
			input: "file:///ws/a.txt",
			want:  "file:///ws/a.txt",
		},
		{
			name:  "absolute path without scheme",
			input: "/ws/a.txt",
			want:  "file:///ws/a.txt",
		},
		{
			name:  "percent encoded path",
			input: "file:///ws/my%20file.txt",
			want:  "file:///ws/my%20file.txt",
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
		{
			name:    "relative path",
			input:   "ws/a.txt",
			wantErr: true,
		},
		{
			name:    "malformed escape",
			input:   "file:///ws/%zz",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := model.ParseURI(tt.input)
			if tt.wantErr {
				gt.Error(t, err)
				gt.True(t, goerr.HasTag(err, types.ErrTagBadRequest))
				return
			}
			gt.NoError(t, err)
			gt.Value(t, u.String()).Equal(tt.want)
		})
	}
}

func TestURI_Parent(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "file:///ws/dir/a.txt", want: "file:///ws/dir"},
		{input: "file:///ws/dir/", want: "file:///ws"},
		{input: "file:///a.txt", want: "file:///"},
		{input: "file:///ws/a.txt?x=1#frag", want: "file:///ws"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			gt.Value(t, model.MustParseURI(tt.input).Parent().String()).Equal(tt.want)
		})
	}
}

func TestURI_SameParent(t *testing.T) {
	a := model.MustParseURI("file:///ws/dir/a.txt")
	b := model.MustParseURI("file:///ws/dir/b.txt")
	c := model.MustParseURI("file:///ws/other/c.txt")

	gt.Value(t, a.Parent().String()).Equal(b.Parent().String())
	gt.Value(t, a.Parent().String()).NotEqual(c.Parent().String())
}

func TestURI_Base(t *testing.T) {
	gt.Value(t, model.MustParseURI("file:///ws/dir/a.txt").Base()).Equal("a.txt")
	gt.Value(t, model.MustParseURI("file:///ws/dir/").Base()).Equal("dir")
	gt.Value(t, model.MustParseURI("file:///ws/dir").Parent().Base()).Equal("ws")

	t.Run("root falls back to a fixed name", func(t *testing.T) {
		gt.Value(t, model.MustParseURI("file:///").Base()).Equal(model.FallbackName)
		gt.Value(t, model.MustParseURI("file:///a.txt").Parent().Base()).Equal(model.FallbackName)
	})
}

func TestURI_FSPath(t *testing.T) {
	t.Run("file scheme", func(t *testing.T) {
		p, err := model.MustParseURI("file:///ws/my%20file.txt").FSPath()
		gt.NoError(t, err)
		gt.Value(t, p).Equal("/ws/my file.txt")
	})

	t.Run("localhost authority", func(t *testing.T) {
		p, err := model.MustParseURI("file://localhost/ws/a.txt").FSPath()
		gt.NoError(t, err)
		gt.Value(t, p).Equal("/ws/a.txt")
	})

	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := model.MustParseURI("https://example.com/a.txt").FSPath()
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, types.ErrTagBadRequest))
	})

	t.Run("remote host", func(t *testing.T) {
		_, err := model.MustParseURI("file://server/share/a.txt").FSPath()
		gt.Error(t, err)
	})
}
