// Package scaffold holds the Next.js project skeleton generated files are
// dropped into before building.
package scaffold

import (
	"embed"
	"path"
	"sort"

	"github.com/user/clone-service/internal/entity"
)

//go:embed all:template
var templateFS embed.FS

// Paths lists the template files in upload order.
var Paths = []string{
	"package.json",
	"next.config.mjs",
	"tsconfig.json",
	"postcss.config.mjs",
	"src/lib/utils.ts",
	"src/app/layout.tsx",
	"src/app/globals.css",
	"src/app/[...slug]/page.tsx",
}

// Files returns the template files.
func Files() []entity.GeneratedFile {
	files := make([]entity.GeneratedFile, 0, len(Paths))
	for _, p := range Paths {
		data, err := templateFS.ReadFile("template/" + p)
		if err != nil {
			// Paths and the embedded tree are kept in sync by TestFilesEmbedded.
			panic("scaffold: missing template file " + p)
		}
		files = append(files, entity.GeneratedFile{Path: p, Content: string(data)})
	}
	return files
}

// Dirs returns the sorted set of directories needed for the template plus
// generated files.
func Dirs(generated []entity.GeneratedFile) []string {
	set := make(map[string]struct{})
	for _, p := range Paths {
		addDir(set, p)
	}
	for _, f := range generated {
		addDir(set, f.Path)
	}
	dirs := make([]string, 0, len(set))
	for d := range set {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

func addDir(set map[string]struct{}, p string) {
	if d := path.Dir(p); d != "." && d != "/" {
		set[d] = struct{}{}
	}
}

// Tree returns the full project as path -> content. Generated files win over
// template files with the same path.
func Tree(generated []entity.GeneratedFile) map[string]string {
	tree := make(map[string]string, len(Paths)+len(generated))
	for _, f := range Files() {
		tree[f.Path] = f.Content
	}
	for _, f := range generated {
		tree[f.Path] = f.Content
	}
	return tree
}
