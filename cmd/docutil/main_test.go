package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aihub/doctools/internal/docx"
	"github.com/aihub/doctools/internal/docx/docxtest"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSample(t *testing.T) string {
	t.Helper()
	data := docxtest.Build(t, docxtest.Archive{
		Body: docxtest.P("Heading1", docxtest.R("Notes")) +
			docxtest.P("", docxtest.R("draft text")),
		Core: docxtest.Core("Ada", "", "Notes", "1", ""),
	})
	path := filepath.Join(t.TempDir(), "notes.docx")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestDocx2MD_Stdout(t *testing.T) {
	path := writeSample(t)

	out, err := run(t, "docx2md", path, "--stdout")
	require.NoError(t, err)
	assert.Contains(t, out, "# Notes\n")
	assert.Contains(t, out, "draft text\n")
	docx2mdCmd.Flags().Set("stdout", "false")
}

func TestDocx2MD_File(t *testing.T) {
	path := writeSample(t)
	target := filepath.Join(t.TempDir(), "out.md")

	_, err := run(t, "docx2md", path, "-o", target)
	require.NoError(t, err)
	docx2mdCmd.Flags().Set("output", "")

	md, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(md), "# Notes")
}

func TestReplace(t *testing.T) {
	path := writeSample(t)

	_, err := run(t, "replace", path, "draft", "final")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(filepath.Dir(path), "modified_notes.docx"))
	require.NoError(t, err)
	doc, err := docx.Read(data)
	require.NoError(t, err)
	assert.Equal(t, "final text", doc.Paragraphs()[1].Text())
}

func TestMetadata(t *testing.T) {
	out, err := run(t, "metadata", writeSample(t))
	require.NoError(t, err)
	assert.Contains(t, out, `"Author": "Ada"`)
	assert.Contains(t, out, `"Revision": 1`)
}

func TestWrongExtension(t *testing.T) {
	_, err := run(t, "pdf2docx", writeSample(t))
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("output", "", "")
	assert.Equal(t, "dir/report.md", outputPath(cmd, "dir/report.docx", ".md"))

	require.NoError(t, cmd.Flags().Set("output", "x.md"))
	assert.Equal(t, "x.md", outputPath(cmd, "dir/report.docx", ".md"))
}
