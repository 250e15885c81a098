// Package parser turns raw model output into project files.
//
// The model is asked to emit files separated by "// FILE: <path>" lines and
// to declare extra npm packages on a single "// DEPS: a, b" line. Output is
// frequently wrapped in markdown, preceded by chatter or followed by an
// explanation; Parse recovers what it can and never fails.
package parser

import (
	"log/slog"
	"path"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/user/clone-service/internal/entity"
)

const (
	FileMarker = "// FILE:"
	DepsMarker = "// DEPS:"
)

var (
	depsLineRe   = regexp.MustCompile(`(?m)^[ \t]*//[ \t]*DEPS:[ \t]*(.*)$`)
	fileMarkerRe = regexp.MustCompile(`(?m)^[ \t]*//[ \t]*FILE:[ \t]*(.*)$`)
	fenceLineRe  = regexp.MustCompile("(?m)^[ \t]*```[a-zA-Z0-9_-]*[ \t]*\r?\n?")
	safeDepRe    = regexp.MustCompile(`^[@a-zA-Z0-9._/-]+$`)
	terminalRe   = regexp.MustCompile(`^[}\])][}\])\s;,]*$`)
	statementRe  = regexp.MustCompile(`^[A-Za-z_$][\w$]*(\.[A-Za-z_$]|\(|\s*=[^=>])`)

	jsxTagRe        = regexp.MustCompile(`<([A-Z][a-zA-Z0-9]*)[\s/>]`)
	namedImportRe   = regexp.MustCompile(`import\s+(?:type\s+)?(?:\w+\s*,\s*)?\{([^}]*)\}\s*from\s*['"]([^'"]+)['"]`)
	defaultImportRe = regexp.MustCompile(`import\s+(\w+)\s*(?:,|from\b)`)
	nsImportRe      = regexp.MustCompile(`import\s+\*\s+as\s+(\w+)`)
	localDeclRe     = regexp.MustCompile(`(?:function|const|let|var|class)\s+([A-Z]\w*)`)
	useClientLineRe = regexp.MustCompile(`^\s*["']use client["'];?[ \t]*\r?\n?`)
)

var invisibleReplacer = strings.NewReplacer(
	"\u201c", `"`, "\u201d", `"`,
	"\u2018", "'", "\u2019", "'",
	"\u200b", "", "\u200c", "", "\u200d", "", "\u2060", "", "\ufeff", "",
	"\u00a0", " ",
)

// Parser splits and sanitizes model output according to Rules.
type Parser struct {
	rules      *Rules
	knownIcons map[string]struct{}
}

// New creates a parser. A nil rules value uses DefaultRules.
func New(rules *Rules) *Parser {
	if rules == nil {
		rules = DefaultRules()
	}
	icons := make(map[string]struct{}, len(rules.KnownIcons))
	for _, name := range rules.KnownIcons {
		icons[name] = struct{}{}
	}
	return &Parser{rules: rules, knownIcons: icons}
}

// Parse extracts files and dependencies from raw model output.
func (p *Parser) Parse(raw string) (res entity.ParseResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Parser recovered from panic", "panic", r)
			res = entity.ParseResult{}
		}
	}()

	text := p.stripPreamble(raw)

	var deps []string
	text = depsLineRe.ReplaceAllStringFunc(text, func(line string) string {
		m := depsLineRe.FindStringSubmatch(line)
		deps = append(deps, ParseDeps(m[1])...)
		return ""
	})
	res.Deps = uniq(deps)

	locs := fileMarkerRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		if !p.looksLikeCode(text) {
			return res
		}
		content := p.cleanFile(p.rules.DefaultPath, text)
		if content != "" {
			res.Files = []entity.GeneratedFile{{Path: p.rules.DefaultPath, Content: content}}
		}
		return res
	}

	index := make(map[string]int)
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		filePath, ok := SanitizePath(text[loc[2]:loc[3]])
		if !ok {
			continue
		}
		content := p.cleanFile(filePath, text[loc[1]:end])
		if content == "" {
			continue
		}
		if j, dup := index[filePath]; dup {
			res.Files[j].Content = content
			continue
		}
		index[filePath] = len(res.Files)
		res.Files = append(res.Files, entity.GeneratedFile{Path: filePath, Content: content})
	}
	return res
}

// Render is the inverse of Parse for well-formed files.
func Render(files []entity.GeneratedFile) string {
	var b strings.Builder
	for i, f := range files {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FileMarker + " " + f.Path + "\n")
		b.WriteString(strings.TrimRight(f.Content, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// ParseDeps splits a comma-separated dependency declaration and silently
// drops unsafe tokens.
func ParseDeps(decl string) []string {
	var out []string
	for _, tok := range strings.Split(decl, ",") {
		tok = strings.TrimSpace(tok)
		if IsSafeDependency(tok) {
			out = append(out, tok)
		}
	}
	return out
}

// IsSafeDependency reports whether name may be interpolated into a shell
// command. Names starting with "-" or "." are rejected so they cannot be read
// as flags or paths.
func IsSafeDependency(name string) bool {
	if name == "" || strings.HasPrefix(name, "-") || strings.HasPrefix(name, ".") {
		return false
	}
	return safeDepRe.MatchString(name)
}

// SanitizePath normalizes a marker path to a clean project-relative path.
func SanitizePath(raw string) (string, bool) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "", false
	}
	p := strings.Trim(fields[0], "`'\"*")
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "", false
	}
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}
	return p, true
}

func (p *Parser) stripPreamble(raw string) string {
	text := strings.TrimSpace(raw)
	if loc := firstMarker(text); loc >= 0 {
		return text[loc:]
	}
	text = strings.TrimSpace(fenceLineRe.ReplaceAllString(text, ""))
	for _, anchor := range p.rules.PreambleAnchors {
		if idx := strings.Index(text, anchor); idx >= 0 {
			return text[idx:]
		}
	}
	return text
}

func firstMarker(text string) int {
	first := -1
	for _, re := range []*regexp.Regexp{fileMarkerRe, depsLineRe} {
		if loc := re.FindStringIndex(text); loc != nil && (first < 0 || loc[0] < first) {
			first = loc[0]
		}
	}
	return first
}

func (p *Parser) cleanFile(filePath, content string) string {
	content = fenceLineRe.ReplaceAllString(content, "")
	content = invisibleReplacer.Replace(content)
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	if slices.Contains(p.rules.ScriptExts, path.Ext(filePath)) {
		content = p.stripTrailingProse(content)
	}

	if slices.Contains(p.rules.ClientDirectiveExts, path.Ext(filePath)) {
		if !useClientLineRe.MatchString(content) {
			content = "\"use client\";\n" + content
		}
		content = p.fixMissingIcons(content)
	}
	return content
}

// stripTrailingProse cuts text after the last structurally terminal line
// when the trailing block does not look like code.
func (p *Parser) stripTrailingProse(content string) string {
	lines := strings.Split(content, "\n")
	last := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if terminalRe.MatchString(strings.TrimSpace(lines[i])) {
			last = i
			break
		}
	}
	if last < 0 || last == len(lines)-1 {
		return content
	}
	for _, l := range lines[last+1:] {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if p.startsWithCode(l) {
			return content
		}
		break
	}
	return strings.TrimRight(strings.Join(lines[:last+1], "\n"), " \t\n")
}

func (p *Parser) startsWithCode(line string) bool {
	if statementRe.MatchString(line) {
		return true
	}
	for _, tok := range p.rules.CodeStartTokens {
		if strings.HasPrefix(line, tok) {
			return true
		}
	}
	return false
}

func (p *Parser) looksLikeCode(content string) bool {
	for _, l := range strings.Split(content, "\n") {
		if p.startsWithCode(strings.TrimSpace(l)) {
			return true
		}
	}
	return false
}

// fixMissingIcons adds imports for known icon components used as JSX tags
// but neither imported nor declared in the file.
func (p *Parser) fixMissingIcons(content string) string {
	present := make(map[string]struct{})
	for _, m := range namedImportRe.FindAllStringSubmatch(content, -1) {
		for _, spec := range strings.Split(m[1], ",") {
			for _, name := range strings.Fields(strings.ReplaceAll(spec, " as ", " ")) {
				present[name] = struct{}{}
			}
		}
	}
	for _, re := range []*regexp.Regexp{defaultImportRe, nsImportRe, localDeclRe} {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			present[m[1]] = struct{}{}
		}
	}

	var missing []string
	seen := make(map[string]struct{})
	for _, m := range jsxTagRe.FindAllStringSubmatch(content, -1) {
		tag := m[1]
		if _, ok := p.knownIcons[tag]; !ok {
			continue
		}
		if _, ok := present[tag]; ok {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		missing = append(missing, tag)
	}
	if len(missing) == 0 {
		return content
	}
	sort.Strings(missing)
	slog.Warn("Adding missing icon imports", "library", p.rules.IconLibrary, "icons", missing)

	for _, loc := range namedImportRe.FindAllStringSubmatchIndex(content, -1) {
		if content[loc[4]:loc[5]] != p.rules.IconLibrary {
			continue
		}
		existing := strings.TrimRight(strings.TrimSpace(content[loc[2]:loc[3]]), ",")
		names := " " + existing + ", " + strings.Join(missing, ", ") + " "
		return content[:loc[2]] + names + content[loc[3]:]
	}

	line := "import { " + strings.Join(missing, ", ") + " } from \"" + p.rules.IconLibrary + "\";\n"
	if loc := useClientLineRe.FindStringIndex(content); loc != nil {
		head := content[:loc[1]]
		if !strings.HasSuffix(head, "\n") {
			head += "\n"
		}
		return head + line + content[loc[1]:]
	}
	return line + content
}

func uniq(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
