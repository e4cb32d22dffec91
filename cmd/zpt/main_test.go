package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/zpt/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRenderCommand(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"templates/page.html": `<ul><li tal:repeat="i here/items" tal:content="i">x</li></ul>`,
		"model.yaml":          "items: [a, b]\n",
	})

	out, err := run(t, "render", "page.html",
		"--config", filepath.Join(dir, "absent.yaml"),
		"--dir", filepath.Join(dir, "templates"),
		"--model", filepath.Join(dir, "model.yaml"),
	)
	require.NoError(t, err)
	assert.Equal(t, `<ul><li>a</li><li>b</li></ul>`, out)
}

func TestCheckCommand(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"good.html": `<p tal:content="here/x">x</p>`,
		"bad.html":  `<p tal:content="a//b">x</p>`,
	})

	out, err := run(t, "check", "--config", filepath.Join(dir, "absent.yaml"), "--dir", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 templates have problems")
	assert.Contains(t, out, "FAIL bad.html")
	assert.Contains(t, out, "ok   good.html")
	assert.Contains(t, out, `in tal:content="a//b"`)
}

func TestReadModel(t *testing.T) {
	model, err := readModel("", nil)
	require.NoError(t, err)
	assert.Nil(t, model)

	model, err = readModel("-", strings.NewReader(`{"name": "json works too"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "json works too"}, model)

	_, err = readModel(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestPrintDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	printDiagnostics(&buf, termenv.Ascii, "a.html", []*domain.RenderError{{
		Source:     domain.SourceInfo{Name: "a.html", Line: 3},
		Statement:  "tal:define",
		Expression: "1x y",
		Err:        errors.New("malformed statement"),
	}})

	assert.Equal(t, "FAIL a.html\n  a.html:3 malformed statement\n      in tal:define=\"1x y\"\n", buf.String())
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "zpt 0.1.0-dev ("), out)
	assert.Contains(t, out, "expression types: exists, global, load, local, not, path, string\n")
	assert.Contains(t, out, "formats: html, xml\n")
}
