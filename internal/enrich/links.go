package enrich

import (
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/cratehq/enrich-cli/internal/platform"
)

// urlRe pulls absolute URLs out of page text, HTML attributes and
// script-embedded JSON alike.
var urlRe = regexp.MustCompile(`https?://[A-Za-z0-9][A-Za-z0-9.\-]*[A-Za-z0-9](?:/[^\s"'<>\\)\]},]*)?`)

// ytChannelRootRe captures the channel root of any YouTube channel URL
// form, dropping tab suffixes like /videos or /about.
var ytChannelRootRe = regexp.MustCompile(`^/(channel/UC[\w\-]{10,}|@[\w.\-]{2,60}|c/[\w.\-]{2,60}|user/[\w.\-]{2,60})`)

// ytRedirectRe finds the percent-encoded destination inside YouTube's
// outbound /redirect?q= wrappers. Channel header links arrive this way.
var ytRedirectRe = regexp.MustCompile(`[?&]q=(https?%3A%2F%2F[^&\s"'<>\\]+)`)

// adoptLimit bounds how much of a page the link scan walks. Bio and About
// pages put the links that matter near the top.
const adoptLimit = 400

// junkHosts never lead to a business contact: streaming stores, ticketing,
// lyrics sites, share widgets and CDNs. Matched by suffix, so subdomains
// are covered.
var junkHosts = []string{
	"music.apple.com", "itunes.apple.com", "apple.co",
	"music.amazon.com", "amazon.com", "play.google.com", "google.com",
	"deezer.com", "tidal.com", "soundcloud.com", "audiomack.com",
	"music.youtube.com", "youtube-nocookie.com",
	"wikipedia.org", "genius.com", "shazam.com",
	"songkick.com", "bandsintown.com", "ticketmaster.com", "eventbrite.com",
	"bit.ly", "tinyurl.com", "goo.gl",
	"cdninstagram.com", "fbcdn.net", "twimg.com", "ytimg.com",
	"ggpht.com", "googleusercontent.com", "gstatic.com", "googleapis.com",
	"cloudfront.net", "akamaized.net", "gravatar.com",
	"schema.org", "w3.org", "ogp.me",
}

// adoptLinks scans fetched content for the artist's own pages on platforms
// we have no URL for yet and adopts the first match per platform, so later
// steps can use them. Existing entries are never overwritten.
func (p *Pipeline) adoptLinks(rs *runState, content string) {
	needYouTube := rs.urls[platform.YouTube] == ""
	needLinkBio := rs.urls[platform.Linktree] == ""
	needWebsite := rs.urls[platform.Website] == ""
	if !needYouTube && !needLinkBio && !needWebsite {
		return
	}

	content = unescapeJSON(content)

	// Unwrapped redirect targets first: the channel header's official
	// links come through the wrapper and are the strongest signal.
	scan := redirectTargets(content)
	scan = append(scan, urlRe.FindAllString(content, adoptLimit)...)

	for _, raw := range scan {
		cu := platform.CanonicalURL(raw)
		if cu == "" {
			continue
		}

		switch platform.Detect(cu) {
		case platform.YouTube:
			if !needYouTube {
				continue
			}
			root := channelRoot(cu)
			if root == "" {
				continue
			}
			rs.urls[platform.YouTube] = root
			rs.result.DiscoveredYouTubeURL = root
			needYouTube = false
			zap.L().Debug("enrich: adopted youtube channel", zap.String("url", root))

		case platform.Linktree:
			if !needLinkBio {
				continue
			}
			rs.urls[platform.Linktree] = cu
			rs.result.DiscoveredLinktreeURL = cu
			needLinkBio = false
			zap.L().Debug("enrich: adopted link-in-bio page", zap.String("url", cu))

		case platform.Website:
			if !needWebsite {
				continue
			}
			root := websiteRoot(cu)
			if root == "" {
				continue
			}
			rs.urls[platform.Website] = root
			rs.result.DiscoveredWebsite = root
			needWebsite = false
			zap.L().Debug("enrich: adopted website", zap.String("url", root))
		}

		if !needYouTube && !needLinkBio && !needWebsite {
			return
		}
	}
}

// redirectTargets decodes YouTube's outbound redirect wrappers so the
// real destinations get scanned.
func redirectTargets(content string) []string {
	var out []string
	for _, m := range ytRedirectRe.FindAllStringSubmatch(content, 40) {
		if dec, err := url.QueryUnescape(m[1]); err == nil {
			out = append(out, dec)
		}
	}
	return out
}

// channelRoot extracts the channel root from a YouTube URL, rejecting
// watch pages, shorts and the music subdomain.
func channelRoot(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host != "youtube.com" {
		return ""
	}
	m := ytChannelRootRe.FindStringSubmatch(u.Path)
	if m == nil {
		return ""
	}
	return "https://www.youtube.com/" + m[1]
}

// websiteRoot reduces a discovered URL to its site root. Outbound bio
// links often point at a merch or tour page; the homepage plus the
// contact-path probes cover more ground than the deep link.
func websiteRoot(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if !strings.Contains(host, ".") || isJunkHost(host) {
		return ""
	}
	return u.Scheme + "://" + strings.ToLower(u.Host)
}

func isJunkHost(host string) bool {
	for _, j := range junkHosts {
		if host == j || strings.HasSuffix(host, "."+j) {
			return true
		}
	}
	return false
}

// unescapeJSON undoes the slash escaping of script-embedded JSON so URL
// and address patterns match.
func unescapeJSON(s string) string {
	if !strings.Contains(s, `\/`) {
		return s
	}
	return strings.ReplaceAll(s, `\/`, "/")
}
