package mirror

import (
	"dirmirror/internal/model"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeRoot(t *testing.T) {
	tests := map[string]string{
		"/s/":    "/s",
		"/s//":   "/s",
		"/s":     "/s",
		"/":      "/",
		"/a/b/c": "/a/b/c",
	}

	for in, want := range tests {
		require.Equal(t, want, NormalizeRoot(in), in)
	}
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		dst     string
		path    string
		want    string
		wantErr bool
	}{
		{name: "file", src: "/s", dst: "/d", path: "/s/a.txt", want: "/d/a.txt"},
		{name: "nested", src: "/s/", dst: "/mnt/d/", path: "/s/x/y/z", want: "/mnt/d/x/y/z"},
		{name: "root itself", src: "/s", dst: "/d", path: "/s", want: "/d"},
		{name: "shorter than root", src: "/src", dst: "/d", path: "/sr", wantErr: true},
		{name: "sibling sharing prefix", src: "/s", dst: "/d", path: "/s2/a", wantErr: true},
		{name: "outside root", src: "/s", dst: "/d", path: "/other/a", wantErr: true},
		{name: "filesystem root source", src: "/", dst: "/d", path: "/a/b", want: "/d/a/b"},
		{name: "filesystem root dest", src: "/s", dst: "/", path: "/s/a", want: "/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewTranslator(tt.src, tt.dst).Translate(tt.path)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrOutsideRoot)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestReverse(t *testing.T) {
	tr := NewTranslator("/s", "/d")

	got, err := tr.Reverse("/d/x/y")
	require.NoError(t, err)
	require.Equal(t, "/s/x/y", got)

	_, err = tr.Reverse("/s/x")
	require.ErrorIs(t, err, ErrOutsideRoot)
}

func TestGuard(t *testing.T) {
	g := NewGuard(Config{SourceRoot: "/s", DestRoot: "/d"})

	require.False(t, g.SafeDeleteTarget("/s"))
	require.False(t, g.SafeDeleteTarget("/d"))
	require.False(t, g.SafeDeleteTarget("/d/"))
	require.False(t, g.SafeDeleteTarget("/d/sub/.."))
	require.True(t, g.SafeDeleteTarget("/d/a.txt"))
	require.True(t, g.SafeDeleteTarget("/s/a.txt"))
}

func TestValidateRoots(t *testing.T) {
	require.ErrorIs(t, ValidateRoots("/s", "/s/"), ErrSameRoots)
	require.ErrorIs(t, ValidateRoots("/s", "/s/backup"), ErrDestInsideSource)
	require.NoError(t, ValidateRoots("/s", "/s2"))
	require.NoError(t, ValidateRoots("/data/s", "/data"))
}

func TestNewConfig(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(src, 0755))
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	tests := []struct {
		name    string
		src     string
		dst     string
		wantErr error
	}{
		{name: "missing source arg", src: "", dst: "/d", wantErr: ErrMissingRoot},
		{name: "missing dest arg", src: src, dst: " ", wantErr: ErrMissingRoot},
		{name: "same roots", src: src, dst: src + "/", wantErr: ErrSameRoots},
		{name: "dest inside source", src: src, dst: filepath.Join(src, "out"), wantErr: ErrDestInsideSource},
		{name: "source is a file", src: file, dst: filepath.Join(dir, "d"), wantErr: ErrSourceNotDir},
		{name: "source missing", src: filepath.Join(dir, "nope"), dst: filepath.Join(dir, "d"), wantErr: os.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(tt.src, tt.dst, model.PolicyMirror, false)
			require.Error(t, err)
			require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	cfg, err := NewConfig(src+"/", filepath.Join(dir, "dst")+"/", "", true)
	require.NoError(t, err)
	require.Equal(t, src, cfg.SourceRoot)
	require.Equal(t, filepath.Join(dir, "dst"), cfg.DestRoot)
	require.Equal(t, model.PolicyMirror, cfg.Policy)
	require.True(t, cfg.Verbose)
}
