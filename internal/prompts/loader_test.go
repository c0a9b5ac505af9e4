package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderRendersTemplate(t *testing.T) {
	loader, err := NewLoader()
	require.NoError(t, err)

	out, err := loader.Load("worker_finding", map[string]any{
		"Specialty": "safety",
		"StudyID":   "STUDY-001",
		"Finding":   "3 serious adverse events reported",
	}, true)
	require.NoError(t, err)

	assert.Contains(t, out, "safety")
	assert.Contains(t, out, "STUDY-001")
	assert.Contains(t, out, "3 serious adverse events reported")
}

func TestLoaderStrictModeRejectsMissingKeys(t *testing.T) {
	loader, err := NewLoader()
	require.NoError(t, err)

	_, err = loader.Load("worker_finding", map[string]any{
		"Specialty": "safety",
	}, true)
	assert.Error(t, err)

	// Lenient mode renders missing keys as zero values.
	out, err := loader.Load("worker_finding", map[string]any{
		"Specialty": "safety",
	}, false)
	require.NoError(t, err)
	assert.Contains(t, out, "safety")
}

func TestLoaderUnknownTemplate(t *testing.T) {
	loader, err := NewLoader()
	require.NoError(t, err)

	_, err = loader.Load("does_not_exist", nil, false)
	assert.ErrorContains(t, err, "not found")
}

func TestLoaderNames(t *testing.T) {
	loader, err := NewLoader()
	require.NoError(t, err)
	assert.Contains(t, loader.Names(), "synthesis_narrative.tmpl")
}
