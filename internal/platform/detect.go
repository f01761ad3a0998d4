package platform

import (
	"net/url"
	"strings"
)

// linkInBioHosts are the aggregator pages artists put in their bios. The
// music smart-link services (ffm.to, lnk.to …) behave the same way: one
// simple page of outbound links.
var linkInBioHosts = map[string]bool{
	"linktr.ee":       true,
	"linktree.com":    true,
	"beacons.ai":      true,
	"beacons.page":    true,
	"lnk.bio":         true,
	"linkin.bio":      true,
	"bio.link":        true,
	"solo.to":         true,
	"hoo.be":          true,
	"snipfeed.co":     true,
	"komi.io":         true,
	"allmylinks.com":  true,
	"carrd.co":        true,
	"ffm.to":          true,
	"fanlink.to":      true,
	"lnk.to":          true,
	"hypeddit.com":    true,
	"toneden.io":      true,
	"linkfire.com":    true,
	"smarturl.it":     true,
	"campsite.bio":    true,
	"withkoji.com":    true,
	"tap.bio":         true,
	"linktree.page":   true,
	"direct.me":       true,
	"msha.ke":         true,
	"flowpage.com":    true,
	"znap.link":       true,
	"biosite.com":     true,
	"link.me":         true,
	"pillar.io":       true,
	"lnkfi.re":        true,
	"push.fm":         true,
	"distrokid.com":   true,
}

// Detect classifies an arbitrary discovered URL by host. Unknown hosts are
// treated as the artist's own website.
func Detect(rawURL string) Platform {
	host := hostOf(rawURL)
	if host == "" {
		return Website
	}

	switch {
	case host == "youtu.be" || hasDomain(host, "youtube.com"):
		return YouTube
	case hasDomain(host, "instagram.com") || host == "instagr.am":
		return Instagram
	case hasDomain(host, "facebook.com") || host == "fb.com" || host == "fb.me" || host == "fb.watch":
		return Facebook
	case hasDomain(host, "twitter.com") || host == "x.com" || host == "t.co":
		return Twitter
	case hasDomain(host, "tiktok.com"):
		return TikTok
	case hasDomain(host, "spotify.com") || host == "spoti.fi":
		return Spotify
	case IsLinkInBioHost(host):
		return Linktree
	default:
		return Website
	}
}

// IsLinkInBio reports whether the URL points at a link-in-bio aggregator.
func IsLinkInBio(rawURL string) bool {
	return IsLinkInBioHost(hostOf(rawURL))
}

// IsLinkInBioHost is IsLinkInBio for an already-extracted host.
func IsLinkInBioHost(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	if linkInBioHosts[host] {
		return true
	}
	// Subdomain aggregators: nighttapes.lnk.to, artist.ffm.to.
	for agg := range linkInBioHosts {
		if strings.HasSuffix(host, "."+agg) {
			return true
		}
	}
	return false
}

// YouTubeAboutURL returns the channel's About page, where business inquiry
// emails live. Handles /channel/ID, /@handle, /c/name and /user/name forms.
func YouTubeAboutURL(channelURL string) string {
	u := strings.TrimSuffix(channelURL, "/")
	if u == "" {
		return ""
	}
	if strings.HasSuffix(u, "/about") {
		return u
	}
	return u + "/about"
}

// FacebookAboutURL returns the page's About tab.
func FacebookAboutURL(pageURL string) string {
	u := strings.TrimSuffix(pageURL, "/")
	if u == "" {
		return ""
	}
	if strings.HasSuffix(u, "/about") {
		return u
	}
	return u + "/about"
}

func hostOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

func hasDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
