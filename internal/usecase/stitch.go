package usecase

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/user/clone-service/internal/entity"
)

const (
	rootPagePath  = "src/app/page.tsx"
	componentsDir = "src/components/"
)

var defaultExportRe = regexp.MustCompile(`export\s+default\s+(?:async\s+)?(?:function\s+|class\s+)?([A-Za-z_$][\w$]*)`)

// AgentOutput is what one section agent produced.
type AgentOutput struct {
	Index int
	Files []entity.GeneratedFile
	Deps  []string
}

// Stitched is the merged output of all section agents.
type Stitched struct {
	Files    []entity.GeneratedFile
	Deps     []string
	Manifest []entity.ComponentRef
}

// Stitch merges agent outputs in agent order. A path already taken by an
// earlier agent is renamed to Name<n> (n is the agent's 1-based position,
// bumped until free); the file's default export identifier is renamed with
// it and same-agent imports of the old path are rewritten. Root pages
// emitted by agents are dropped.
func Stitch(outputs []AgentOutput) Stitched {
	var res Stitched
	taken := make(map[string]struct{})
	var deps []string

	for _, out := range outputs {
		files := make([]entity.GeneratedFile, 0, len(out.Files))
		for _, f := range out.Files {
			if f.Path != rootPagePath {
				files = append(files, f)
			}
		}

		renames := make(map[string]string)
		for i, f := range files {
			if _, dup := taken[f.Path]; !dup {
				continue
			}
			newPath := freePath(f.Path, out.Index+1, taken, files)
			renames[f.Path] = newPath
			files[i] = renameComponent(f, newPath)
		}
		for i := range files {
			for oldPath, newPath := range renames {
				files[i].Content = rewriteImport(files[i].Content, oldPath, newPath)
			}
		}

		for _, f := range files {
			taken[f.Path] = struct{}{}
			res.Files = append(res.Files, f)
		}
		for _, f := range files {
			if isRootComponent(f, files) {
				res.Manifest = append(res.Manifest, entity.ComponentRef{Name: exportName(f), Path: f.Path, Agent: out.Index})
			}
		}
		deps = append(deps, out.Deps...)
	}
	res.Deps = dedup(deps)
	return res
}

func freePath(p string, ordinal int, taken map[string]struct{}, siblings []entity.GeneratedFile) string {
	dir, ext := path.Dir(p), path.Ext(p)
	name := strings.TrimSuffix(path.Base(p), ext)
	for n := ordinal; ; n++ {
		candidate := path.Join(dir, fmt.Sprintf("%s%d%s", name, n, ext))
		if _, used := taken[candidate]; used {
			continue
		}
		if containsPath(siblings, candidate) {
			continue
		}
		return candidate
	}
}

// renameComponent moves f to newPath and renames its default export
// identifier at word boundaries.
func renameComponent(f entity.GeneratedFile, newPath string) entity.GeneratedFile {
	old := exportName(f)
	renamed := entity.GeneratedFile{Path: newPath}.ComponentName()
	f.Path = newPath
	if old == "" || old == renamed {
		return f
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(old) + `\b`)
	f.Content = re.ReplaceAllString(f.Content, renamed)
	return f
}

// exportName returns the default export identifier, or the file name when
// the export is anonymous.
func exportName(f entity.GeneratedFile) string {
	if m := defaultExportRe.FindStringSubmatch(f.Content); m != nil && m[1] != "function" && m[1] != "class" {
		return m[1]
	}
	return f.ComponentName()
}

func importPattern(p string) *regexp.Regexp {
	rel := strings.TrimSuffix(strings.TrimPrefix(p, componentsDir), path.Ext(p))
	return regexp.MustCompile(`(['"])(@/components/|\./|\.\./components/)` + regexp.QuoteMeta(rel) + `(\.tsx|\.jsx)?(['"])`)
}

func rewriteImport(content, oldPath, newPath string) string {
	if !strings.HasPrefix(oldPath, componentsDir) {
		return content
	}
	rel := strings.TrimSuffix(strings.TrimPrefix(newPath, componentsDir), path.Ext(newPath))
	return importPattern(oldPath).ReplaceAllString(content, "${1}${2}"+rel+"${3}${4}")
}

// isRootComponent reports whether f is a top-level section: a component file
// directly under src/components that no sibling imports.
func isRootComponent(f entity.GeneratedFile, siblings []entity.GeneratedFile) bool {
	if !strings.HasPrefix(f.Path, componentsDir) || strings.Contains(strings.TrimPrefix(f.Path, componentsDir), "/") {
		return false
	}
	if ext := path.Ext(f.Path); ext != ".tsx" && ext != ".jsx" {
		return false
	}
	re := importPattern(f.Path)
	for _, s := range siblings {
		if s.Path != f.Path && re.MatchString(s.Content) {
			return false
		}
	}
	return true
}

func containsPath(files []entity.GeneratedFile, p string) bool {
	for _, f := range files {
		if f.Path == p {
			return true
		}
	}
	return false
}

func dedup(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
