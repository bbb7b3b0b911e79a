package autostart

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"
)

const launchLabel = "io.github.dirmirror"

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
{{- range .Args}}
		<string>{{.}}</string>
{{- end}}
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<dict>
		<key>SuccessfulExit</key>
		<false/>
	</dict>
</dict>
</plist>
`

type DarwinAutoStarter struct{}

func (d *DarwinAutoStarter) plistPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(home, "Library", "LaunchAgents")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(dir, launchLabel+".plist"), nil
}

// renderPlist builds a LaunchAgent definition with XML-escaped arguments.
func renderPlist(execPath string, args []string) ([]byte, error) {
	all := make([]string, 0, len(args)+1)
	all = append(all, xmlEscape(execPath))
	for _, a := range args {
		all = append(all, xmlEscape(a))
	}

	var buf bytes.Buffer
	tmpl := template.Must(template.New("plist").Parse(plistTemplate))
	if err := tmpl.Execute(&buf, map[string]any{"Label": launchLabel, "Args": all}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func (d *DarwinAutoStarter) Install(execPath string, args []string) error {
	path, err := d.plistPath()
	if err != nil {
		return err
	}

	plist, err := renderPlist(execPath, args)
	if err != nil {
		return fmt.Errorf("failed to render launch agent: %w", err)
	}

	if err := os.WriteFile(path, plist, 0644); err != nil {
		return fmt.Errorf("failed to write launch agent: %w", err)
	}

	cmd := exec.Command("launchctl", "load", "-w", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to load launch agent: %w\n%s", err, out)
	}

	return nil
}

func (d *DarwinAutoStarter) Uninstall() error {
	path, err := d.plistPath()
	if err != nil {
		return err
	}

	_ = exec.Command("launchctl", "unload", "-w", path).Run()

	return os.Remove(path)
}

func (d *DarwinAutoStarter) IsInstalled() (bool, error) {
	path, err := d.plistPath()
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	return err == nil, nil
}
