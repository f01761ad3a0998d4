package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cratehq/enrich-cli/internal/email"
	"github.com/cratehq/enrich-cli/internal/model"
)

func TestFindContactLink(t *testing.T) {
	t.Parallel()

	base := "https://nighttapes.net"
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			"anchor text match",
			`<html><body><nav><a href="/get-in-touch">Contact</a></nav></body></html>`,
			"https://nighttapes.net/get-in-touch",
		},
		{
			"href keyword match",
			`<html><body><a href="/booking-info">More info</a></body></html>`,
			"https://nighttapes.net/booking-info",
		},
		{
			"relative href resolved",
			`<html><body><a href="contact/">Contact us</a></body></html>`,
			"https://nighttapes.net/contact",
		},
		{
			"external host skipped",
			`<html><body><a href="https://agency.example.org/contact">Contact</a></body></html>`,
			"",
		},
		{
			"mailto skipped",
			`<html><body><a href="mailto:contact@nighttapes.net">Contact</a></body></html>`,
			"",
		},
		{
			"same-page anchor skipped",
			`<html><body><a href="#contact">Contact</a></body></html>`,
			"",
		},
		{
			"no match",
			`<html><body><a href="/tour">Tour</a><a href="/merch">Merch</a></body></html>`,
			"",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, findContactLink(base, tc.content))
		})
	}
}

func TestStepWebsite_ProbesConventionalPaths(t *testing.T) {
	home := `<html><body><h1>Night Tapes</h1><p>welcome to the official site of the band</p></body></html>`
	contact := `<html><body><a href="mailto:bookings@nighttapes.net">Booking inquiries</a></body></html>`

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(home))
	})
	mux.HandleFunc("/contact-us", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(contact))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := New(testConfig(), email.DefaultPolicy(), nil, nil, nil, nil)
	res, err := p.Run(context.Background(), &model.Artist{ID: "w1", Name: "Night Tapes", Website: srv.URL})
	require.NoError(t, err)

	assert.Equal(t, "bookings@nighttapes.net", res.EmailFound)
	assert.Equal(t, email.SourceWebsiteContact, res.EmailSource)
	assert.InDelta(t, 0.90, res.EmailConfidence, 1e-9)

	site := res.Steps[3]
	assert.Equal(t, model.StepStatusSuccess, site.Status)
	assert.Equal(t, srv.URL, site.URLFetched, "the homepage fetch owns the slot")
	assert.Equal(t, len(home)+len(contact), site.ContentLength,
		"the failed /contact probe adds nothing")
}

func TestStepWebsite_PrefersLinkedContactPage(t *testing.T) {
	var probeHits atomic.Int32

	home := `<html><body><nav><a href="/get-in-touch">Contact</a></nav>` +
		`<p>welcome to the official site of the band</p></body></html>`
	touch := `<html><body><p>Management: mgr@nighttapesmgmt.com, send us your dates.</p></body></html>`

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(home))
	})
	mux.HandleFunc("/get-in-touch", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(touch))
	})
	mux.HandleFunc("/contact", func(w http.ResponseWriter, r *http.Request) {
		probeHits.Add(1)
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := New(testConfig(), email.DefaultPolicy(), nil, nil, nil, nil)
	res, err := p.Run(context.Background(), &model.Artist{ID: "w2", Name: "Night Tapes", Website: srv.URL})
	require.NoError(t, err)

	assert.Equal(t, "mgr@nighttapesmgmt.com", res.EmailFound)
	assert.Equal(t, model.CategoryManagement, res.AllEmails[0].Category)
	assert.Equal(t, int32(0), probeHits.Load(), "a linked contact page suppresses path guessing")
}

func TestStepWebsite_HomepageEmailSkipsContactHunt(t *testing.T) {
	var extraHits atomic.Int32

	home := `<html><body><p>Bookings worldwide: live@nighttapes.net</p>` +
		`<nav><a href="/contact">Contact</a></nav></body></html>`

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			extraHits.Add(1)
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(home))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := New(testConfig(), email.DefaultPolicy(), nil, nil, nil, nil)
	res, err := p.Run(context.Background(), &model.Artist{ID: "w3", Name: "Night Tapes", Website: srv.URL})
	require.NoError(t, err)

	assert.Equal(t, "live@nighttapes.net", res.EmailFound)
	assert.Equal(t, email.SourceWebsiteHome, res.EmailSource)
	assert.Equal(t, int32(0), extraHits.Load(), "no more fetches once the homepage delivers")
}
