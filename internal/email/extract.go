package email

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// emailPattern is the standard address shape. The TLD class requires two
// or more letters, so bare hosts and most file artifacts never match.
var emailPattern = regexp.MustCompile(`\b[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}\b`)

// obfuscatedPattern catches "name at domain dot com" spellings, with or
// without brackets around the separators. Bios obfuscate addresses this
// way to dodge exactly the kind of harvesting we are doing.
var obfuscatedPattern = regexp.MustCompile(`(?i)\b([a-z0-9._%+\-]{1,64})\s*[\[(]?\s*at\s*[\])]?\s+([a-z0-9\-]+(?:\s*[\[(]?\s*(?:dot|\.)\s*[\])]?\s*[a-z0-9\-]+)+)\b`)

var dotWord = regexp.MustCompile(`(?i)\s*[\[(]?\s*(?:dot|\.)\s*[\])]?\s*`)

// contextWindow is how much surrounding text is kept with each hit for
// category classification ("booking: x@y.com").
const contextWindow = 80

// Found is one raw extraction hit plus the text around it.
type Found struct {
	Email   string
	Context string
}

// Extract finds plain and obfuscated addresses in free text. HTML should
// go through ExtractContent instead so mailto links are not missed.
func Extract(text string) []Found {
	var found []Found
	seen := map[string]bool{}

	for _, loc := range emailPattern.FindAllStringIndex(text, -1) {
		addr := strings.ToLower(text[loc[0]:loc[1]])
		if seen[addr] {
			continue
		}
		seen[addr] = true
		found = append(found, Found{Email: addr, Context: window(text, loc[0], loc[1])})
	}

	for _, m := range obfuscatedPattern.FindAllStringSubmatchIndex(text, -1) {
		local := strings.ToLower(text[m[2]:m[3]])
		domain := dotWord.ReplaceAllString(text[m[4]:m[5]], ".")
		domain = strings.ToLower(strings.ReplaceAll(domain, " ", ""))
		addr := local + "@" + domain
		if !emailPattern.MatchString(addr) || seen[addr] {
			continue
		}
		seen[addr] = true
		found = append(found, Found{Email: addr, Context: window(text, m[0], m[1])})
	}

	return found
}

// ExtractContent handles whatever the waterfall returned: HTML is parsed
// for mailto links and visible text, everything else goes straight to the
// text extractor. AI responses and scraped markdown land in the text path.
func ExtractContent(content string) []Found {
	if !looksLikeHTML(content) {
		return Extract(content)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return Extract(content)
	}

	var found []Found
	seen := map[string]bool{}

	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexAny(addr, "?&"); i >= 0 {
			addr = addr[:i]
		}
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" || !emailPattern.MatchString(addr) || seen[addr] {
			return
		}
		seen[addr] = true
		// The anchor's own text plus its parent's text is the best
		// category hint we get from markup.
		ctx := sel.Text()
		if parent := sel.Parent(); parent.Length() > 0 {
			ctx = parent.Text()
		}
		found = append(found, Found{Email: addr, Context: squeeze(ctx)})
	})

	doc.Find("script, style, noscript").Remove()
	for _, f := range Extract(doc.Text()) {
		if seen[f.Email] {
			continue
		}
		seen[f.Email] = true
		found = append(found, f)
	}

	return found
}

func looksLikeHTML(content string) bool {
	head := content
	if len(head) > 2048 {
		head = head[:2048]
	}
	head = strings.ToLower(head)
	for _, marker := range []string{"<!doctype", "<html", "<head", "<body", "<div", "<a href", "<meta"} {
		if strings.Contains(head, marker) {
			return true
		}
	}
	return false
}

func window(text string, start, end int) string {
	lo := start - contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + contextWindow
	if hi > len(text) {
		hi = len(text)
	}
	return squeeze(text[lo:hi])
}

func squeeze(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
