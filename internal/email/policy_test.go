package email

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyValid(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	require.NoError(t, p.Validate())
	assert.Equal(t, 0.95, p.BaseConfidence(SourceAIStructured))
	assert.Equal(t, 0.5, p.BaseConfidence("unknown_source"))
	assert.True(t, p.IsFreemail("gmail.com"))
	assert.False(t, p.IsFreemail("caa.com"))
}

func TestLoadPolicyEmptyPathReturnsDefaults(t *testing.T) {
	t.Parallel()

	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy().AgencyConfidence, p.AgencyConfidence)
}

func TestLoadPolicyOverlay(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	doc := `
source_confidence:
  youtube_about: 0.7
agency_confidence: 0.99
fake_domains:
  - example.com
  - bogus.test
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	p, err := LoadPolicy(path)
	require.NoError(t, err)

	// Overridden values.
	assert.Equal(t, 0.7, p.BaseConfidence(SourceYouTubeAbout))
	assert.Equal(t, 0.99, p.AgencyConfidence)
	assert.True(t, p.isFakeDomain("bogus.test"))

	// Untouched defaults survive the overlay.
	assert.Equal(t, 0.95, p.BaseConfidence(SourceAIStructured))
	assert.True(t, p.isRoleAccount("noreply"))
}

func TestLoadPolicyRejectsBadScores(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	doc := `
source_confidence:
  youtube_about: 1.5
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := LoadPolicy(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestLoadPolicyMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadPolicyMalformedYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0o644))

	_, err := LoadPolicy(path)
	require.Error(t, err)
}
