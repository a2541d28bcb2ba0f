package dcm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUIDGeneratorNamespaces(t *testing.T) {
	gen := NewUIDGenerator()

	study := gen.StudyUID()
	series := gen.SeriesUID()
	instance := gen.InstanceUID()

	assert.True(t, strings.HasPrefix(study, studyUIDRoot+"."))
	assert.True(t, strings.HasPrefix(series, seriesUIDRoot+"."))
	assert.True(t, strings.HasPrefix(instance, instanceUIDRoot+"."))

	for _, uid := range []string{study, series, instance} {
		assert.LessOrEqual(t, len(uid), maxUIDLen)
		for _, r := range uid {
			assert.Truef(t, r == '.' || (r >= '0' && r <= '9'),
				"UID %q contains invalid rune %q", uid, r)
		}
	}
}

func TestUIDGeneratorUnique(t *testing.T) {
	gen := NewUIDGenerator()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		uid := gen.InstanceUID()
		require.False(t, seen[uid], "duplicate UID %s", uid)
		seen[uid] = true
	}
}

func TestResolveMetaDefaults(t *testing.T) {
	gen := NewUIDGenerator()

	m := resolveMeta(nil, gen)
	assert.Equal(t, defaultPatientName, m.PatientName)
	assert.Equal(t, defaultPatientID, m.PatientID)
	assert.Equal(t, defaultSeriesDescrip, m.SeriesDescrip)
	assert.Equal(t, 1, m.InstanceNumber)
	assert.NotEmpty(t, m.StudyUID)
	assert.NotEmpty(t, m.SeriesUID)
	assert.NotEmpty(t, m.InstanceUID)

	// Two default resolutions draw distinct identifiers.
	m2 := resolveMeta(nil, gen)
	assert.NotEqual(t, m.SeriesUID, m2.SeriesUID)
}

func TestResolveMetaCopiesCallerInput(t *testing.T) {
	gen := NewUIDGenerator()
	in := &Meta{
		PatientName:    "Doe^Jane",
		PatientID:      "P123",
		StudyUID:       "1.2.3",
		SeriesUID:      "1.2.4",
		SeriesDescrip:  "test series",
		InstanceUID:    "1.2.5",
		InstanceNumber: 7,
	}

	m := resolveMeta(in, gen)
	require.Equal(t, *in, *m)

	// The copy must not alias the caller's record.
	m.InstanceNumber = 8
	assert.Equal(t, 7, in.InstanceNumber)
}

func TestMetaValidate(t *testing.T) {
	assert.Error(t, (&Meta{InstanceNumber: 0}).validate())
	assert.Error(t, (&Meta{InstanceNumber: -3}).validate())
	assert.NoError(t, (&Meta{InstanceNumber: 1}).validate())
}
