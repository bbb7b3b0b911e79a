package autostart

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandLineQuotesEveryWord(t *testing.T) {
	got := commandLine("/opt/dir mirror/dirmirror", []string{"watch", "--source", "/home/me/My Docs"})
	require.Equal(t, `"/opt/dir mirror/dirmirror" "watch" "--source" "/home/me/My Docs"`, got)
}

func TestRenderUnit(t *testing.T) {
	requires := require.New(t)

	unit, err := renderUnit("/usr/local/bin/dirmirror", []string{"watch", "--source", "/s", "--dest", "/d"})
	requires.NoError(err)

	text := string(unit)
	requires.Contains(text, "[Service]\n")
	requires.Contains(text, `ExecStart="/usr/local/bin/dirmirror" "watch" "--source" "/s" "--dest" "/d"`)
	requires.Contains(text, "WantedBy=default.target")
}

func TestRenderPlist(t *testing.T) {
	requires := require.New(t)

	plist, err := renderPlist("/usr/local/bin/dirmirror", []string{"watch", "--dest", "/Volumes/A&B"})
	requires.NoError(err)

	var doc struct {
		Dict struct {
			Strings []string `xml:"string"`
			Arrays  []struct {
				Strings []string `xml:"string"`
			} `xml:"array"`
		} `xml:"dict"`
	}
	requires.NoError(xml.Unmarshal(plist, &doc))
	requires.Equal(launchLabel, doc.Dict.Strings[0])
	requires.Len(doc.Dict.Arrays, 1)
	requires.Equal([]string{"/usr/local/bin/dirmirror", "watch", "--dest", "/Volumes/A&B"}, doc.Dict.Arrays[0].Strings)
}

func TestTaskCommandLineKeepsWindowsPaths(t *testing.T) {
	tests := []struct {
		name string
		exec string
		args []string
		want string
	}{
		{
			name: "plain backslashes",
			exec: `C:\bin\dirmirror.exe`,
			args: []string{"watch", "--source", `D:\data`},
			want: `C:\bin\dirmirror.exe watch --source D:\data`,
		},
		{
			name: "spaces",
			exec: `C:\Program Files\dirmirror\dirmirror.exe`,
			args: []string{"--dest", `E:\My Backup`},
			want: `"C:\Program Files\dirmirror\dirmirror.exe" --dest "E:\My Backup"`,
		},
		{
			name: "trailing backslash inside quotes",
			exec: `C:\dm.exe`,
			args: []string{`E:\My Backup\`},
			want: `C:\dm.exe "E:\My Backup\\"`,
		},
		{
			name: "embedded quote and empty",
			exec: `C:\dm.exe`,
			args: []string{`a"b`, ""},
			want: `C:\dm.exe a\"b ""`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, taskCommandLine(tt.exec, tt.args))
		})
	}
}
