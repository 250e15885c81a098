package extract

import (
	"encoding/json"
	"strings"
)

// Call renders a JavaScript function source applied to JSON-encoded arguments.
func Call(fn string, args ...any) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			b = []byte("null")
		}
		parts = append(parts, string(b))
	}
	return "(" + strings.TrimSpace(fn) + ")(" + strings.Join(parts, ", ") + ")"
}

const ScrollHeightJS = `document.body ? document.body.scrollHeight : 0`

const ScrollBottomJS = `window.scrollTo(0, document.body.scrollHeight)`

// DismissOverlaysJS hides cookie banners, consent dialogs and fixed
// full-screen modals. It returns the number of elements hidden.
const DismissOverlaysJS = `() => {
    let hidden = 0;
    const acceptWords = ['accept', 'agree', 'allow all', 'got it', 'ok', 'i understand', 'close'];
    const banners = document.querySelectorAll(
        '[id*="cookie"], [class*="cookie"], [id*="consent"], [class*="consent"], ' +
        '[id*="gdpr"], [class*="gdpr"], [aria-modal="true"], [role="dialog"]'
    );
    for (const el of banners) {
        const btn = [...el.querySelectorAll('button, a[role="button"]')].find(b =>
            acceptWords.some(w => (b.textContent || '').trim().toLowerCase().startsWith(w)));
        if (btn) { try { btn.click(); } catch (e) {} }
        const cs = getComputedStyle(el);
        if (cs.position === 'fixed' || cs.position === 'sticky' || el.getAttribute('aria-modal') === 'true') {
            el.style.setProperty('display', 'none', 'important');
            hidden++;
        }
    }
    for (const el of document.querySelectorAll('body *')) {
        const cs = getComputedStyle(el);
        if (cs.position !== 'fixed') continue;
        const r = el.getBoundingClientRect();
        if (r.width >= window.innerWidth * 0.9 && r.height >= window.innerHeight * 0.9 && parseInt(cs.zIndex || '0') > 10) {
            el.style.setProperty('display', 'none', 'important');
            hidden++;
        }
    }
    document.documentElement.style.overflow = '';
    if (document.body) document.body.style.overflow = '';
    return hidden;
}`

// NavTriggersJS tags candidate dropdown triggers with data-clone-trigger and
// returns their geometry.
const NavTriggersJS = `(limit) => {
    const sel = 'nav a, nav button, header a, header button, ' +
        '[role="navigation"] a, [role="navigation"] button, ' +
        '[role="menuitem"], [aria-haspopup="true"], [aria-expanded]';
    const out = [];
    const els = [...document.querySelectorAll(sel)].slice(0, limit);
    els.forEach((el, i) => {
        el.setAttribute('data-clone-trigger', String(i));
        const r = el.getBoundingClientRect();
        const cs = getComputedStyle(el);
        const visible = r.width > 0 && r.height > 0 && cs.visibility !== 'hidden' && cs.display !== 'none';
        out.push({
            index: i, x: r.left, y: r.top, width: r.width, height: r.height, visible,
            hasPopup: el.hasAttribute('aria-haspopup') || el.hasAttribute('aria-expanded') || el.tagName === 'BUTTON',
        });
    });
    return out;
}`

// StylesJS samples colors and fonts from one element per page region.
const StylesJS = `() => {
    const result = {};
    const vars = {};
    for (const sheet of document.styleSheets) {
        try {
            for (const rule of sheet.cssRules) {
                if (rule.selectorText === ':root' || rule.selectorText === ':root, :host') {
                    for (let i = 0; i < rule.style.length; i++) {
                        const prop = rule.style[i];
                        if (prop.startsWith('--')) vars[prop] = rule.style.getPropertyValue(prop).trim();
                    }
                }
            }
        } catch (e) {}
    }
    result.cssVariables = vars;
    const fonts = new Set();
    for (const sel of ['body', 'h1', 'h2', 'h3', 'p', 'a', 'button', 'nav']) {
        const el = document.querySelector(sel);
        if (el) fonts.add(getComputedStyle(el).fontFamily);
    }
    result.fonts = [...fonts];
    const bs = getComputedStyle(document.body);
    result.bodyBg = bs.backgroundColor;
    result.bodyColor = bs.color;
    const header = document.querySelector('header, nav, [role="banner"]');
    if (header) {
        const hs = getComputedStyle(header);
        result.headerBg = hs.backgroundColor;
        result.headerColor = hs.color;
    }
    const footer = document.querySelector('footer, [role="contentinfo"]');
    if (footer) {
        const fs = getComputedStyle(footer);
        result.footerBg = fs.backgroundColor;
        result.footerColor = fs.color;
    }
    for (const btn of document.querySelectorAll('button, a.btn, [role="button"]')) {
        const s = getComputedStyle(btn);
        if (s.backgroundColor && s.backgroundColor !== 'rgba(0, 0, 0, 0)') {
            result.primaryBtnBg = s.backgroundColor;
            result.primaryBtnColor = s.color;
            break;
        }
    }
    return result;
}`

// OutlineJS lists text-bearing and image elements in document order.
const OutlineJS = `(max) => {
    const items = [];
    const els = document.querySelectorAll('h1, h2, h3, h4, h5, h6, p, a, button, label, img, li, span.hero, [role="heading"]');
    for (const el of els) {
        if (items.length >= max) break;
        const tag = el.tagName.toLowerCase();
        const text = (el.textContent || '').trim().substring(0, 200);
        if (!text && tag !== 'img') continue;
        const item = { tag };
        if (tag === 'img') { item.src = el.src || ''; item.alt = el.alt || ''; }
        else if (tag === 'a') { item.text = text; item.href = el.href || ''; }
        else item.text = text;
        items.push(item);
    }
    return items;
}`

// NavJS reads menus and any open dropdown panels. Caps are applied again on
// the Go side by DecodeNav.
const NavJS = `() => {
    const panelSel = 'ul, [role="menu"], div[class*="dropdown"], div[class*="popover"], ' +
        'div[class*="panel"], div[class*="mega"], div[class*="submenu"], div[class*="flyout"]';
    const txt = (el, n) => ((el && el.textContent) || '').trim().substring(0, n);
    const readItem = (a) => {
        const head = a.querySelector('h3, h4, h5, h6, strong, span[class*="title"], span[class*="name"], div[class*="title"]');
        const item = { title: txt(head || a, 100) };
        const desc = a.querySelector('p, span[class*="desc"], span[class*="subtitle"], div[class*="desc"]');
        if (desc) item.description = txt(desc, 150);
        const svg = a.querySelector('svg');
        if (svg) { item.svgMarkup = svg.outerHTML; item.svgViewBox = svg.getAttribute('viewBox') || ''; }
        const img = a.querySelector('img');
        if (img) item.iconSrc = img.src;
        return item;
    };
    const menus = [];
    for (const nav of document.querySelectorAll('nav, [role="navigation"], header')) {
        const menu = { items: [] };
        const seen = new Set();
        const tops = nav.querySelectorAll(':scope > ul > li, :scope > div > ul > li, :scope > div > div > a, :scope > div > div > button, li, [role="menuitem"]');
        for (const li of tops) {
            const link = li.querySelector(':scope > a, :scope > button') || li.closest('a') || li;
            const label = [...link.childNodes]
                .filter(n => n.nodeType === 3 || (n.nodeType === 1 && !n.querySelector(panelSel)))
                .map(n => (n.textContent || '').trim()).filter(Boolean).join(' ').substring(0, 100);
            if (!label || seen.has(label)) continue;
            seen.add(label);
            const entry = { label };
            let panel = li.querySelector(panelSel);
            const trigger = li.querySelector('[aria-controls], [aria-expanded]') || li;
            if (!panel && trigger.getAttribute('aria-controls')) panel = document.getElementById(trigger.getAttribute('aria-controls'));
            if (!panel && li.nextElementSibling && li.nextElementSibling.matches('div[class*="dropdown"], div[class*="popover"], div[class*="panel"], div[class*="mega"], [role="menu"]')) {
                panel = li.nextElementSibling;
            }
            if (panel) {
                const sections = panel.querySelectorAll(':scope > div > div, :scope > div > ul, [class*="group"], [class*="column"], [class*="section"]');
                if (sections.length >= 2) {
                    entry.layout = 'mega';
                    entry.groups = [];
                    for (const section of sections) {
                        const h = section.querySelector('h2, h3, h4, h5, h6, [class*="heading"], [class*="title"], span[class*="label"]');
                        entry.groups.push({
                            title: txt(h, 80),
                            items: [...section.querySelectorAll('a, button[role="menuitem"]')].map(readItem),
                        });
                    }
                } else {
                    entry.layout = 'list';
                    entry.items = [...panel.querySelectorAll('a, button[role="menuitem"], [role="menuitem"]')].map(readItem);
                }
                const ps = getComputedStyle(panel);
                entry.panel = {
                    backgroundColor: ps.backgroundColor, border: ps.border, borderRadius: ps.borderRadius,
                    boxShadow: ps.boxShadow !== 'none' ? ps.boxShadow : '', padding: ps.padding,
                    width: Math.round(panel.getBoundingClientRect().width),
                };
            }
            menu.items.push(entry);
        }
        if (menu.items.length > 0) menus.push(menu);
    }
    return menus;
}`

// InteractiveJS returns every slide-like child of carousel and tab containers
// without deduplication, plus the signals used to detect infinite scrolling.
const InteractiveJS = `(maxRawSlides) => {
    const txt = (el, n) => ((el && el.textContent) || '').trim().substring(0, n);
    const readSlide = (slide) => {
        const s = { key: txt(slide, 100) };
        const h = slide.querySelector('h1, h2, h3, h4, h5, h6');
        if (h) s.title = txt(h, 200);
        const p = slide.querySelector('p');
        if (p) s.description = txt(p, 300);
        const img = slide.querySelector('img');
        if (img) { s.image = img.src; s.alt = img.alt; }
        const a = slide.querySelector('a');
        if (a) s.linkText = txt(a, 100);
        if (!s.title && !s.description) s.text = txt(slide, 300);
        const svgs = [...slide.querySelectorAll('svg')];
        if (svgs.length) {
            s.svgCount = svgs.length;
            s.svgMarkups = svgs.slice(0, 3).map(v => v.outerHTML.substring(0, 2000));
            const vb = svgs.map(v => v.getAttribute('viewBox')).find(Boolean);
            if (vb) s.svgViewBox = vb;
        }
        s.icons = [...slide.querySelectorAll('img[src*="icon"], img[width][height], i[class*="icon"], span[class*="icon"]')]
            .slice(0, 3).map(i => i.tagName === 'IMG' ? i.src : String(i.className).substring(0, 100));
        const cs = getComputedStyle(slide);
        s.card = { backgroundColor: cs.backgroundColor, borderRadius: cs.borderRadius,
            boxShadow: cs.boxShadow !== 'none' ? cs.boxShadow : '', padding: cs.padding };
        return s;
    };
    const results = [];
    const sel = ['[class*="carousel"]', '[class*="slider"]', '[class*="swiper"]', '[class*="slide"]',
        '[data-carousel]', '[data-slider]', '[role="tabpanel"]', '[class*="testimonial"]',
        '[class*="card-stack"]', '[class*="rotating"]', '[class*="scroll"]', '[class*="horizontal"]',
        '[class*="marquee"]', '[class*="track"]', '[class*="strip"]', '[class*="ticker"]'].join(', ');
    const done = [];
    for (const c of document.querySelectorAll(sel)) {
        if (done.some(d => d === c || d.contains(c))) continue;
        let slides = [];
        for (const s of [':scope > div', ':scope > li', ':scope > article', '[class*="slide"]', '[role="tabpanel"]', '[class*="item"]', ':scope > a']) {
            const found = c.querySelectorAll(s);
            if (found.length > 1) { slides = [...found]; break; }
        }
        if (slides.length < 2) continue;
        done.push(c);
        const cs = getComputedStyle(c);
        const parent = c.parentElement ? getComputedStyle(c.parentElement) : {};
        const rect = c.getBoundingClientRect();
        const first = slides[0].getBoundingClientRect();
        const gap = parseFloat(cs.gap) || 0;
        const hasAnimation = !!cs.animation && !cs.animation.startsWith('none');
        const hasTransform = !!cs.transform && cs.transform !== 'none';
        results.push({
            kind: String(c.className).includes('tab') ? 'tabs' : 'carousel',
            totalDomSlides: slides.length,
            width: Math.round(rect.width), height: Math.round(rect.height), gap,
            cardWidth: Math.round(first.width), cardHeight: Math.round(first.height),
            display: cs.display, overflow: cs.overflow,
            hasAnimation, hasTransform,
            overflowHidden: cs.overflow === 'hidden' || cs.overflowX === 'hidden' || parent.overflow === 'hidden' || parent.overflowX === 'hidden',
            transform: hasTransform ? cs.transform : '',
            animation: hasAnimation ? cs.animation : '',
            transition: cs.transition && cs.transition !== 'all 0s ease 0s' ? cs.transition : '',
            overflowX: cs.overflowX,
            slides: slides.slice(0, maxRawSlides).map(readSlide),
        });
    }
    for (const list of document.querySelectorAll('[role="tablist"]')) {
        const tabs = [...list.querySelectorAll('[role="tab"]')];
        if (tabs.length < 2) continue;
        results.push({
            kind: 'tabs', totalDomSlides: tabs.length,
            slides: tabs.slice(0, maxRawSlides).map(tab => {
                const s = { title: txt(tab, 200), key: txt(tab, 100) };
                const id = tab.getAttribute('aria-controls');
                const panel = id ? document.getElementById(id) : null;
                if (panel) {
                    const ph = panel.querySelector('h1, h2, h3, h4, h5, h6');
                    if (ph) s.panelTitle = txt(ph, 200);
                    const pp = panel.querySelector('p');
                    if (pp) s.panelDescription = txt(pp, 300);
                    const pi = panel.querySelector('img');
                    if (pi) { s.image = pi.src; s.alt = pi.alt; }
                }
                return s;
            }),
        });
    }
    return results;
}`

// FontsJS collects hosted font stylesheets and @font-face rules.
const FontsJS = `() => {
    const links = [];
    const faces = [];
    const hosted = (u) => u.includes('fonts.googleapis.com') || u.includes('fonts.gstatic.com') || u.includes('use.typekit.net');
    document.querySelectorAll('link[href]').forEach(l => { if (hosted(l.href || '')) links.push(l.href); });
    document.querySelectorAll('style').forEach(st => {
        const re = /@import\s+url\(["']?([^"')]+)["']?\)/g;
        let m;
        while ((m = re.exec(st.textContent || '')) !== null) if (hosted(m[1])) links.push(m[1]);
    });
    for (const sheet of document.styleSheets) {
        try {
            for (const rule of sheet.cssRules) {
                if (rule instanceof CSSFontFaceRule) {
                    const family = rule.style.getPropertyValue('font-family').replace(/['"]/g, '').trim();
                    const src = rule.style.getPropertyValue('src');
                    if (family && src) faces.push({
                        family, src: src.substring(0, 500),
                        weight: rule.style.getPropertyValue('font-weight') || '400',
                        style: rule.style.getPropertyValue('font-style') || 'normal',
                    });
                }
                if (rule instanceof CSSImportRule && rule.href && hosted(rule.href)) links.push(rule.href);
            }
        } catch (e) {}
    }
    return { googleFontLinks: [...new Set(links)], fontFaceRules: faces };
}`

// ImagesJS lists images with their geometry and surrounding text. URLs may be
// duplicated; DedupImages resolves them.
const ImagesJS = `() => {
    const out = [];
    document.querySelectorAll('img[src]').forEach(img => {
        if (!img.src) return;
        const r = img.getBoundingClientRect();
        const parent = img.closest('section, article, div[class], header, footer, nav');
        const near = img.closest('a, div, figure');
        out.push({
            url: img.src, alt: img.alt || '',
            width: Math.round(r.width) || 0, height: Math.round(r.height) || 0,
            container: parent ? String(parent.className).split(' ').filter(c => c.length > 2).slice(0, 2).join('.') : '',
            context: near ? (near.textContent || '').trim().substring(0, 60) : '',
        });
    });
    document.querySelectorAll('img[srcset], source[srcset]').forEach(el => {
        el.srcset.split(',').forEach(s => {
            const u = s.trim().split(/\s+/)[0];
            if (u) out.push({ url: u });
        });
    });
    document.querySelectorAll('body *').forEach(el => {
        const m = getComputedStyle(el).backgroundImage.match(/url\(["']?([^"')]+)["']?\)/);
        if (m && m[1]) out.push({ url: m[1], context: 'background-image' });
    });
    document.querySelectorAll('link[rel*="icon"][href]').forEach(l => out.push({ url: l.href, context: 'favicon' }));
    return out;
}`
