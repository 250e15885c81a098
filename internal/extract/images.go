package extract

import (
	"net/url"
	"strings"

	"github.com/user/clone-service/internal/entity"
)

// DedupImages resolves image URLs against the page URL and keeps the first
// occurrence of each, up to max. data: URIs are dropped.
func DedupImages(pageURL string, raw []entity.ImageInfo, max int) []entity.ImageInfo {
	base, _ := url.Parse(pageURL)
	seen := make(map[string]struct{})
	var out []entity.ImageInfo
	for _, img := range raw {
		if len(out) >= max {
			break
		}
		u := strings.TrimSpace(img.URL)
		if u == "" || strings.HasPrefix(u, "data:") {
			continue
		}
		u = resolve(base, u)
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		img.URL = u
		out = append(out, img)
	}
	return out
}

// CapFonts deduplicates font links and caps @font-face rules.
func CapFonts(f entity.FontSources) entity.FontSources {
	seen := make(map[string]struct{})
	links := f.GoogleFontLinks[:0:0]
	for _, l := range f.GoogleFontLinks {
		if _, dup := seen[l]; dup || l == "" {
			continue
		}
		seen[l] = struct{}{}
		links = append(links, l)
	}
	f.GoogleFontLinks = links
	if len(f.FontFaceRules) > MaxFontFaceRules {
		f.FontFaceRules = f.FontFaceRules[:MaxFontFaceRules]
	}
	return f
}
