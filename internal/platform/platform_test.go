package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cratehq/enrich-cli/internal/model"
)

func TestCollectNormalizesKeySpellings(t *testing.T) {
	t.Parallel()

	a := &model.Artist{
		Name: "Night Tapes",
		SocialLinks: map[string]string{
			"youtube_url":  "https://www.youtube.com/@nighttapes",
			"IG":           "https://www.instagram.com/nighttapes",
			"Facebook URL": "https://www.facebook.com/nighttapesband",
			"tik_tok":      "https://www.tiktok.com/@nighttapes",
			"link_in_bio":  "https://linktr.ee/nighttapes",
		},
	}

	urls := Collect(a)

	assert.Equal(t, "https://www.youtube.com/@nighttapes", urls[YouTube])
	assert.Equal(t, "https://www.instagram.com/nighttapes", urls[Instagram])
	assert.Equal(t, "https://www.facebook.com/nighttapesband", urls[Facebook])
	assert.Equal(t, "https://www.tiktok.com/@nighttapes", urls[TikTok])
	assert.Equal(t, "https://linktr.ee/nighttapes", urls[Linktree])
}

func TestCollectSkipsEmptyAndUnknown(t *testing.T) {
	t.Parallel()

	a := &model.Artist{
		SocialLinks: map[string]string{
			"youtube":    "   ",
			"soundcloud": "https://soundcloud.com/someone",
			"":           "https://example-site.com",
		},
	}

	urls := Collect(a)
	assert.Empty(t, urls)
}

func TestCollectTypedColumnsWin(t *testing.T) {
	t.Parallel()

	a := &model.Artist{
		Website:    "https://nighttapes.com",
		SpotifyURL: "https://open.spotify.com/artist/abc123",
		SocialLinks: map[string]string{
			"website": "https://stale-site.com",
			"spotify": "https://open.spotify.com/artist/old",
		},
	}

	urls := Collect(a)
	assert.Equal(t, "https://nighttapes.com", urls[Website])
	assert.Equal(t, "https://open.spotify.com/artist/abc123", urls[Spotify])
}

func TestCollectRepairsHandlesAndSchemes(t *testing.T) {
	t.Parallel()

	a := &model.Artist{
		SocialLinks: map[string]string{
			"instagram": "@nighttapes",
			"twitter":   "@nighttapes",
			"youtube":   "youtube.com/@nighttapes",
		},
	}

	urls := Collect(a)
	assert.Equal(t, "https://www.instagram.com/nighttapes", urls[Instagram])
	assert.Equal(t, "https://twitter.com/nighttapes", urls[Twitter])
	assert.Equal(t, "https://youtube.com/@nighttapes", urls[YouTube])
}

func TestCollectIsIdempotent(t *testing.T) {
	t.Parallel()

	a := &model.Artist{
		Website: "https://nighttapes.com/",
		SocialLinks: map[string]string{
			"youtube": "https://www.youtube.com/@nighttapes?si=tracker123",
		},
	}

	first := Collect(a)
	second := Collect(a)
	require.Equal(t, first, second)
	assert.Equal(t, "https://www.youtube.com/@nighttapes", first[YouTube])
}

func TestCanonicalizeStripsTracking(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"utm params", "https://nighttapes.com/?utm_source=ig&utm_medium=bio", "https://nighttapes.com"},
		{"fbclid", "https://nighttapes.com/tour?fbclid=xyz", "https://nighttapes.com/tour"},
		{"fragment", "https://nighttapes.com/#contact", "https://nighttapes.com"},
		{"kept params", "https://www.youtube.com/watch?v=abc", "https://www.youtube.com/watch?v=abc"},
		{"missing scheme", "linktr.ee/nighttapes", "https://linktr.ee/nighttapes"},
		{"uppercase host", "https://LINKTR.EE/nighttapes", "https://linktr.ee/nighttapes"},
		{"garbage", "ht tp://%%%", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Canonicalize(Website, tt.in))
		})
	}
}

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want Platform
	}{
		{"https://www.youtube.com/@nighttapes", YouTube},
		{"https://youtu.be/abc", YouTube},
		{"https://music.youtube.com/channel/UC123", YouTube},
		{"https://www.instagram.com/nighttapes", Instagram},
		{"https://facebook.com/nighttapesband", Facebook},
		{"https://fb.me/nighttapes", Facebook},
		{"https://x.com/nighttapes", Twitter},
		{"https://twitter.com/nighttapes", Twitter},
		{"https://www.tiktok.com/@nighttapes", TikTok},
		{"https://open.spotify.com/artist/abc", Spotify},
		{"https://linktr.ee/nighttapes", Linktree},
		{"https://beacons.ai/nighttapes", Linktree},
		{"https://nighttapes.lnk.to/album", Linktree},
		{"https://nighttapes.com", Website},
		{"not a url at all %%%", Website},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Detect(tt.url))
		})
	}
}

func TestIsLinkInBio(t *testing.T) {
	t.Parallel()

	assert.True(t, IsLinkInBio("https://linktr.ee/nighttapes"))
	assert.True(t, IsLinkInBio("https://www.linktr.ee/nighttapes"))
	assert.True(t, IsLinkInBio("https://artist.ffm.to/single"))
	assert.False(t, IsLinkInBio("https://nighttapes.com/links"))
	assert.False(t, IsLinkInBio(""))
}

func TestAboutURLs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://www.youtube.com/@nighttapes/about", YouTubeAboutURL("https://www.youtube.com/@nighttapes"))
	assert.Equal(t, "https://www.youtube.com/@nighttapes/about", YouTubeAboutURL("https://www.youtube.com/@nighttapes/"))
	assert.Equal(t, "https://www.youtube.com/@nighttapes/about", YouTubeAboutURL("https://www.youtube.com/@nighttapes/about"))
	assert.Equal(t, "", YouTubeAboutURL(""))

	assert.Equal(t, "https://www.facebook.com/band/about", FacebookAboutURL("https://www.facebook.com/band"))
	assert.Equal(t, "", FacebookAboutURL(""))
}
