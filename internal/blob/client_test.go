package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskClientUpload(t *testing.T) {
	dir := t.TempDir()
	client := NewDiskClient(dir, "http://localhost:8080/files/")

	stored, err := client.Upload(context.Background(), "R1", Upload{
		FileName: "policy.pdf",
		MimeType: "application/pdf",
		Reader:   strings.NewReader("pdf bytes"),
	}, "U1")
	require.NoError(t, err)

	assert.Equal(t, int64(len("pdf bytes")), stored.FileSize)
	assert.Equal(t, "application/pdf", stored.MimeType)
	assert.True(t, strings.HasPrefix(stored.URL, "http://localhost:8080/files/R1/"))
	assert.True(t, strings.HasSuffix(stored.URL, ".pdf"))

	entries, err := os.ReadDir(filepath.Join(dir, "R1"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	content, err := os.ReadFile(filepath.Join(dir, "R1", entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(content))
}

func TestDiskClientInfersMimeType(t *testing.T) {
	client := NewDiskClient(t.TempDir(), "http://files.local")

	stored, err := client.Upload(context.Background(), "R1", Upload{
		FileName: "readme.unknownext",
		Reader:   strings.NewReader("x"),
	}, "U1")
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", stored.MimeType)
}

func TestDiskClientHonorsCancellation(t *testing.T) {
	client := NewDiskClient(t.TempDir(), "http://files.local")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Upload(ctx, "R1", Upload{
		FileName: "doc.pdf",
		Reader:   strings.NewReader("bytes"),
	}, "U1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSanitizeExt(t *testing.T) {
	cases := map[string]string{
		"policy.pdf":            ".pdf",
		"archive.TAR":           ".tar",
		"report.p7s":            ".p7s",
		"noextension":           "",
		"weird.p df":            "",
		"trailing.":             ".",
		"too.verylongextension": "",
	}
	for input, want := range cases {
		assert.Equal(t, want, sanitizeExt(input), input)
	}
}
