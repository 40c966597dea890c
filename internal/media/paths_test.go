package media

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathFor(t *testing.T) {
	tests := []struct {
		name     string
		hash     string
		division int
		wantDir  string
		wantBase string
	}{
		{
			name:     "division three",
			hash:     "aabbccddee",
			division: 3,
			wantDir:  "aa/bb",
			wantBase: "ccddee",
		},
		{
			name:     "division one keeps whole hash",
			hash:     "aabbcc",
			division: 1,
			wantDir:  "",
			wantBase: "aabbcc",
		},
		{
			name:     "hash shorter than division",
			hash:     "aabb",
			division: 10,
			wantDir:  "aa",
			wantBase: "bb",
		},
		{
			name:     "sha256 digest",
			hash:     "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
			division: 3,
			wantDir:  "e3/b0",
			wantBase: "c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, base := PathFor(tt.hash, tt.division)
			assert.Equal(t, tt.wantDir, dir)
			assert.Equal(t, tt.wantBase, base)

			// dir segments plus base always reassemble the hash
			joined := strings.ReplaceAll(dir, "/", "") + base
			assert.Equal(t, tt.hash, joined)
		})
	}
}

func TestPathForDeterministic(t *testing.T) {
	dir1, base1 := PathFor("0123456789abcdef", 4)
	dir2, base2 := PathFor("0123456789abcdef", 4)

	assert.Equal(t, dir1, dir2)
	assert.Equal(t, base1, base2)
}

func TestFilenames(t *testing.T) {
	names := Filenames("ccddee", "jpg")

	assert.Equal(t, "ccddee.jpg", names[SizeFull])
	assert.Equal(t, "ccddee-mid.jpg", names[SizeMid])
	assert.Equal(t, "ccddee-thumb.jpg", names[SizeThumb])
}
