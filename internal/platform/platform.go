// Package platform normalizes an artist's loosely-typed social links into a
// closed set of platform keys. Raw untyped maps never propagate past this
// boundary: the collector is the only code that reads them.
package platform

import (
	"net/url"
	"sort"
	"strings"

	"github.com/cratehq/enrich-cli/internal/model"
)

// Platform identifies one known profile source for an artist.
type Platform string

const (
	YouTube   Platform = "youtube"
	Instagram Platform = "instagram"
	Facebook  Platform = "facebook"
	Twitter   Platform = "twitter"
	TikTok    Platform = "tiktok"
	Spotify   Platform = "spotify"
	Linktree  Platform = "linktree"
	Website   Platform = "website"
)

// keyAliases maps historical social_links spellings onto platforms. Keys
// are matched after normalizeKey, so "YouTube URL", "youtube_url" and "yt"
// all land on YouTube.
var keyAliases = map[string]Platform{
	"youtube":         YouTube,
	"youtube_channel": YouTube,
	"yt":              YouTube,
	"instagram":       Instagram,
	"ig":              Instagram,
	"insta":           Instagram,
	"facebook":        Facebook,
	"fb":              Facebook,
	"twitter":         Twitter,
	"x":               Twitter,
	"tiktok":          TikTok,
	"tik_tok":         TikTok,
	"spotify":         Spotify,
	"linktree":        Linktree,
	"link_tree":       Linktree,
	"linkinbio":       Linktree,
	"link_in_bio":     Linktree,
	"bio_link":        Linktree,
	"website":         Website,
	"site":            Website,
	"web":             Website,
	"homepage":        Website,
	"url":             Website,
}

// Collect gathers every known profile URL for the artist into a normalized
// platform→URL map. Pure and idempotent: no network I/O, empty values
// skipped, the artist's typed columns (Website, SpotifyURL) win over map
// entries for the same platform.
func Collect(a *model.Artist) map[Platform]string {
	urls := make(map[Platform]string)

	// Sorted iteration keeps alias collisions deterministic.
	keys := make([]string, 0, len(a.SocialLinks))
	for k := range a.SocialLinks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		p, ok := keyAliases[normalizeKey(k)]
		if !ok {
			continue
		}
		v := strings.TrimSpace(a.SocialLinks[k])
		if v == "" {
			continue
		}
		if _, seen := urls[p]; seen {
			continue
		}
		if u := Canonicalize(p, v); u != "" {
			urls[p] = u
		}
	}

	if w := strings.TrimSpace(a.Website); w != "" {
		urls[Website] = Canonicalize(Website, w)
	}
	if s := strings.TrimSpace(a.SpotifyURL); s != "" {
		urls[Spotify] = Canonicalize(Spotify, s)
	}

	return urls
}

func normalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	k = strings.ReplaceAll(k, " ", "_")
	k = strings.ReplaceAll(k, "-", "_")
	k = strings.TrimSuffix(k, "_url")
	k = strings.TrimSuffix(k, "_link")
	return k
}

// Canonicalize turns imported link values into fetchable URLs: bare
// @handles become profile URLs, missing schemes get https, tracking params
// and fragments are dropped. Returns "" for values that cannot be repaired.
func Canonicalize(p Platform, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if h, ok := strings.CutPrefix(raw, "@"); ok {
		return profileURL(p, h)
	}
	return CanonicalURL(raw)
}

// CanonicalURL normalizes a URL without the platform-aware handle repair:
// missing schemes get https, hosts are lowercased, tracking params and
// fragments are dropped. Pre-fetched pages are keyed by this form so the
// same URL spelled two ways still hits the cache.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for param := range q {
		lp := strings.ToLower(param)
		if strings.HasPrefix(lp, "utm_") || lp == "fbclid" || lp == "igshid" || lp == "si" {
			q.Del(param)
		}
	}
	u.RawQuery = q.Encode()

	return strings.TrimSuffix(u.String(), "/")
}

func profileURL(p Platform, handle string) string {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return ""
	}
	switch p {
	case YouTube:
		return "https://www.youtube.com/@" + handle
	case Instagram:
		return "https://www.instagram.com/" + handle
	case Twitter:
		return "https://twitter.com/" + handle
	case TikTok:
		return "https://www.tiktok.com/@" + handle
	default:
		return ""
	}
}
