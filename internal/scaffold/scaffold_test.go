package scaffold

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/clone-service/internal/entity"
)

func TestFilesEmbedded(t *testing.T) {
	files := Files()
	require.Len(t, files, len(Paths))
	for _, f := range files {
		assert.NotEmpty(t, f.Content, f.Path)
	}
	assert.True(t, strings.Contains(files[0].Content, `"next"`))
}

func TestDirs(t *testing.T) {
	dirs := Dirs([]entity.GeneratedFile{
		{Path: "src/components/Navbar.tsx"},
		{Path: "src/app/page.tsx"},
	})
	assert.Equal(t, []string{"src/app", "src/app/[...slug]", "src/components", "src/lib"}, dirs)
}

func TestTreeGeneratedWins(t *testing.T) {
	tree := Tree([]entity.GeneratedFile{{Path: "src/app/globals.css", Content: "body{}"}})
	assert.Equal(t, "body{}", tree["src/app/globals.css"])
	assert.Contains(t, tree, "package.json")
}
