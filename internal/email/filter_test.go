package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cratehq/enrich-cli/internal/model"
)

func newTestFilter(t *testing.T) *Filter {
	t.Helper()
	return NewFilter(DefaultPolicy())
}

func TestFilterRejectsPlaceholderDomain(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)

	res := f.Filter([]Found{{Email: "test@example.com"}}, SourceWebsiteHome)

	assert.Empty(t, res.Accepted)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "test@example.com", res.Rejected[0].Email)
	assert.Equal(t, ReasonPlaceholder, res.Rejected[0].Reason)
}

func TestFilterRejectsFileArtifacts(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)

	res := f.Filter([]Found{{Email: "logo@2x.png"}, {Email: "hero@banner.webp"}}, SourceWebsiteHome)

	assert.Empty(t, res.Accepted)
	require.Len(t, res.Rejected, 2)
	for _, r := range res.Rejected {
		assert.Equal(t, ReasonArtifact, r.Reason)
	}
}

func TestFilterRejectsMalformed(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)

	tests := []string{
		"a@b@c.com",
		"@nolocal.com",
		"nodomain@",
		"user@nodot",
		"user@host.x",
	}
	for _, addr := range tests {
		res := f.Filter([]Found{{Email: addr}}, SourceWebsiteHome)
		assert.Empty(t, res.Accepted, "expected %q rejected", addr)
		require.Len(t, res.Rejected, 1, addr)
		assert.Equal(t, ReasonMalformed, res.Rejected[0].Reason, addr)
	}
}

func TestFilterRoleAccountLosesToAlternative(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)

	res := f.Filter([]Found{
		{Email: "info@nighttapes.com"},
		{Email: "jane@nighttapes.com"},
	}, SourceWebsiteContact)

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "jane@nighttapes.com", res.Accepted[0].Email)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, "info@nighttapes.com", res.Rejected[0].Email)
	assert.Equal(t, ReasonRole, res.Rejected[0].Reason)
}

func TestFilterRoleAccountLastResort(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)

	res := f.Filter([]Found{{Email: "info@nighttapes.com"}}, SourceWebsiteContact)

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "info@nighttapes.com", res.Accepted[0].Email)
	// Penalized: 0.9 base for website_contact, halved.
	assert.InDelta(t, 0.45, res.Accepted[0].Confidence, 1e-9)
	assert.Empty(t, res.Rejected)
}

func TestFilterBookingLocalIsNotRole(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)

	res := f.Filter([]Found{
		{Email: "booking@nighttapes.com"},
		{Email: "contact@nighttapes.com"},
		{Email: "hello@nighttapes.com"},
	}, SourceWebsiteContact)

	assert.Len(t, res.Accepted, 3, "industry-meaningful locals are kept")
	assert.Empty(t, res.Rejected)
}

func TestFilterNormalizesCase(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)

	res := f.Filter([]Found{{Email: "Jane@CAA.com"}}, SourceYouTubeAbout)

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, "jane@caa.com", res.Accepted[0].Email)
}

func TestFilterAgencyDomainScoresHighest(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)

	res := f.Filter([]Found{{Email: "jane@caa.com"}}, SourceTwitterBio)

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, 0.98, res.Accepted[0].Confidence, "agency domain overrides the weak source score")
	assert.Equal(t, model.CategoryBooking, res.Accepted[0].Category)
}

func TestFilterCategories(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)

	tests := []struct {
		name  string
		found Found
		want  model.EmailCategory
	}{
		{"booking local", Found{Email: "booking@nighttapes.com"}, model.CategoryBooking},
		{"booking context", Found{Email: "jane@label.com", Context: "For booking inquiries contact"}, model.CategoryBooking},
		{"management local", Found{Email: "mgmt@label.com"}, model.CategoryManagement},
		{"management context", Found{Email: "kim@label.com", Context: "management: kim"}, model.CategoryManagement},
		{"business context", Found{Email: "hello@nighttapes.com", Context: "for business inquiries"}, model.CategoryBusinessInquiry},
		{"general", Found{Email: "hi@nighttapes.com"}, model.CategoryGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := f.Filter([]Found{tt.found}, SourceWebsiteContact)
			require.Len(t, res.Accepted, 1)
			assert.Equal(t, tt.want, res.Accepted[0].Category)
		})
	}
}

func TestFilterDeduplicatesWithinStep(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)

	res := f.Filter([]Found{
		{Email: "jane@caa.com"},
		{Email: "JANE@caa.com"},
	}, SourceYouTubeAbout)

	assert.Len(t, res.Accepted, 1)
}

func TestFilterIdempotent(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)

	first := f.Filter([]Found{
		{Email: "jane@caa.com", Context: "booking"},
		{Email: "info@nighttapes.com"},
		{Email: "test@example.com"},
	}, SourceYouTubeAbout)

	// Feed the accepted output straight back through.
	var again []Found
	for _, c := range first.Accepted {
		again = append(again, Found{Email: c.Email, Context: "booking"})
	}
	second := f.Filter(again, SourceYouTubeAbout)

	require.Equal(t, len(first.Accepted), len(second.Accepted))
	for i := range first.Accepted {
		assert.Equal(t, first.Accepted[i].Email, second.Accepted[i].Email)
		assert.Equal(t, first.Accepted[i].Confidence, second.Accepted[i].Confidence, "confidence must not drift across passes")
	}
}

func TestFilterEmptyInput(t *testing.T) {
	t.Parallel()
	f := newTestFilter(t)

	res := f.Filter(nil, SourceWebsiteHome)
	assert.Empty(t, res.Accepted)
	assert.Empty(t, res.Rejected)
}
