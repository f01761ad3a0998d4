package fetch

import (
	"fmt"
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot or access block detected.
type BlockType string

const (
	BlockNone        BlockType = ""
	BlockCloudflare  BlockType = "cloudflare"
	BlockCaptcha     BlockType = "captcha"
	BlockJSShell     BlockType = "js_shell"
	BlockLoginWall   BlockType = "login_wall"
	BlockConsentWall BlockType = "consent_wall"
	BlockAgeGate     BlockType = "age_gate"
)

// BlockedError reports that a page refused to serve content to a plain
// HTTP client. Callers decide whether to escalate to a rendering scraper.
type BlockedError struct {
	Type BlockType
	URL  string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("fetch: blocked (%s): %s", e.Type, e.URL)
}

// DetectBlock checks an HTTP response for signs of anti-bot protection or
// a login/consent interstitial instead of real content.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	// Cloudflare: 403/503 with cf-* headers.
	if resp.StatusCode == 403 || resp.StatusCode == 503 {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-cache-status") != "" {
			return true, BlockCloudflare
		}
		if resp.Header.Get("server") == "cloudflare" {
			return true, BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))

	// Cloudflare challenge page markers.
	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge") {
		return true, BlockCloudflare
	}

	// Captcha markers.
	if strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "recaptcha") ||
		strings.Contains(lower, "hcaptcha") {
		return true, BlockCaptcha
	}

	// Login interstitials. Instagram and Facebook serve these to anonymous
	// clients instead of the profile page.
	if resp.StatusCode == 401 {
		return true, BlockLoginWall
	}
	if strings.Contains(lower, "log in to continue") ||
		strings.Contains(lower, "log in or sign up") ||
		strings.Contains(lower, "you must log in") ||
		strings.Contains(lower, "login • instagram") {
		return true, BlockLoginWall
	}

	// Cookie/consent interstitials (YouTube serves these in some regions).
	if strings.Contains(lower, "before you continue") && strings.Contains(lower, "cookies") {
		return true, BlockConsentWall
	}

	// Age gates.
	if strings.Contains(lower, "age-restricted") ||
		strings.Contains(lower, "confirm your age") {
		return true, BlockAgeGate
	}

	// JS-only shell: very small body with noscript or meta refresh.
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, "meta http-equiv=\"refresh\"") {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}
