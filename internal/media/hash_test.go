package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "payload")
	require.NoError(t, os.WriteFile(path, content, 0644))

	return path
}

func TestHashFile(t *testing.T) {
	path := writeTempFile(t, []byte("hello"))

	tests := []struct {
		algorithm string
		want      string
	}{
		{"md5", "5d41402abc4b2a76b9719d911017c592"},
		{"sha1", "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"},
		{"sha256", "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
	}

	for _, tt := range tests {
		t.Run(tt.algorithm, func(t *testing.T) {
			got, err := HashFile(path, tt.algorithm)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHashFileSameContentSameHash(t *testing.T) {
	a := writeTempFile(t, []byte("same bytes"))
	b := writeTempFile(t, []byte("same bytes"))

	hashA, err := HashFile(a, "sha256")
	require.NoError(t, err)
	hashB, err := HashFile(b, "sha256")
	require.NoError(t, err)

	assert.Equal(t, hashA, hashB)
}

func TestHashFileUnsupportedAlgorithm(t *testing.T) {
	path := writeTempFile(t, []byte("x"))

	_, err := HashFile(path, "crc32")
	assert.Error(t, err)
}

func TestHashFileMissing(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "nope"), "sha256")
	assert.Error(t, err)
}
