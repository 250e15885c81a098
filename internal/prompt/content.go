package prompt

import (
	"fmt"
	"strings"

	"github.com/user/clone-service/internal/entity"
)

// Content interleaves a label and the image for each screenshot, followed
// by the prompt text. Labels number screenshots within the full page so
// partial sets stay unambiguous.
func Content(snap *entity.PageSnapshot, shots []entity.Screenshot, prompt string) []entity.ContentBlock {
	vh := viewport(snap)
	total, height := len(shots), 0
	if snap != nil {
		total, height = len(snap.Screenshots), snap.PageHeight
	}
	blocks := make([]entity.ContentBlock, 0, 2*len(shots)+1)
	for i, s := range shots {
		blocks = append(blocks,
			entity.TextBlock(Label(shotIndex(snap, s, i), total, s.Offset, vh, height)),
			entity.ImageBlock(s.Image),
		)
	}
	return append(blocks, entity.TextBlock(prompt))
}

// Label describes where a screenshot sits on the page. idx is zero-based.
func Label(idx, total, offset, viewportHeight, pageHeight int) string {
	pct := offset * 100 / max(pageHeight, 1)
	return fmt.Sprintf("Screenshot %d of %d (scrolled to %d%% - pixels %d-%d of %dpx)",
		idx+1, total, pct, offset, offset+viewportHeight, pageHeight)
}

func shotIndex(snap *entity.PageSnapshot, s entity.Screenshot, fallback int) int {
	if snap == nil {
		return fallback
	}
	for i, o := range snap.Screenshots {
		if o.Offset == s.Offset {
			return i
		}
	}
	return fallback
}

// Representative picks the first, middle and last screenshot.
func Representative(shots []entity.Screenshot) []entity.Screenshot {
	if len(shots) <= 3 {
		return shots
	}
	return []entity.Screenshot{shots[0], shots[len(shots)/2], shots[len(shots)-1]}
}

// Assembler renders the prompt for the call that writes src/app/page.tsx
// from the stitched component manifest.
func Assembler(manifest []entity.ComponentRef, style entity.ComputedStyle) string {
	var w strings.Builder
	w.WriteString("You are assembling a Next.js page from section components that were written in parallel by several agents.\n")
	w.WriteString("The screenshots above show the top, middle and bottom of the original page.\n\n")
	w.WriteString("## Components (in page order, grouped by the agent that wrote them)\n")
	for _, c := range manifest {
		fmt.Fprintf(&w, "  - %s from \"%s\" (agent %d)\n", c.Name, c.ImportPath(), c.Agent+1)
	}
	w.WriteString("\n## Rules\n")
	w.WriteString("- Output exactly ONE file: // FILE: src/app/page.tsx\n")
	w.WriteString("- \"use client\" at top, default export function Home.\n")
	w.WriteString("- Import EVERY component listed above with a default import and render each one exactly once, with NO props.\n")
	w.WriteString("- Keep the listed order unless the screenshots clearly show otherwise. Never drop a component.\n")
	w.WriteString("- Do NOT define new sections or copy component code; only compose.\n")
	if style.BodyBg != "" || style.BodyColor != "" {
		fmt.Fprintf(&w, "- Wrap everything in <div className=\"min-h-screen\" style={{ backgroundColor: '%s', color: '%s' }}>.\n",
			style.BodyBg, style.BodyColor)
	}
	w.WriteString("\nOutput ONLY the raw code with the // FILE: marker. No markdown fences, no explanation.\n")
	return w.String()
}

// FallbackPage is the root page used when the assembler call fails: it
// imports and renders every component in manifest order.
func FallbackPage(manifest []entity.ComponentRef) entity.GeneratedFile {
	var w strings.Builder
	w.WriteString("\"use client\";\n\n")
	for _, c := range manifest {
		fmt.Fprintf(&w, "import %s from \"%s\";\n", c.Name, c.ImportPath())
	}
	w.WriteString("\nexport default function Home() {\n  return (\n    <main className=\"min-h-screen\">\n")
	for _, c := range manifest {
		fmt.Fprintf(&w, "      <%s />\n", c.Name)
	}
	w.WriteString("    </main>\n  );\n}\n")
	return entity.GeneratedFile{Path: "src/app/page.tsx", Content: w.String()}
}

// FixPrompt asks for a whole-project fix of the given build error.
func FixPrompt(errText string) string {
	return "The code above failed to build with Next.js. Here is the build error output:\n\n" +
		"```\n" + errText + "\n```\n\n" +
		fixInstructions +
		"Output ALL files using // FILE: <path> markers. No markdown fences, no explanation - just the raw code."
}

// FixFilePrompt asks for a fix of a single file named in the build error.
func FixFilePrompt(path, errText string) string {
	return "The code above failed to build with Next.js. The error is in " + path + ". Here is the build error output:\n\n" +
		"```\n" + errText + "\n```\n\n" +
		fixInstructions +
		"Output ONLY the corrected " + path + " using a single // FILE: " + path + " marker. " +
		"Do not output any other file. No markdown fences, no explanation - just the raw code."
}
