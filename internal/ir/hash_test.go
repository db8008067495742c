package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		Mode:            ModeMergeEntityPatch,
		Era:             Era{Name: "valid", Domain: DomainDate, ValidFrom: "valid_from", ValidUntil: "valid_until"},
		IdentityColumns: []string{"id"},
		NaturalKeys:     [][]string{{"ssn"}},
	}
}

func TestConfigFingerprintDeterminism(t *testing.T) {
	a, err := ConfigFingerprint(testConfig())
	require.NoError(t, err)
	b, err := ConfigFingerprint(testConfig())
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64, "SHA-256 hex is 64 characters")
}

func TestConfigFingerprintChangesWithConfig(t *testing.T) {
	base, err := ConfigFingerprint(testConfig())
	require.NoError(t, err)

	changed := testConfig()
	changed.Mode = ModeMergeEntityReplace
	other, err := ConfigFingerprint(changed)
	require.NoError(t, err)
	assert.NotEqual(t, base, other)

	changed = testConfig()
	changed.EphemeralColumns = []string{"note"}
	other, err = ConfigFingerprint(changed)
	require.NoError(t, err)
	assert.NotEqual(t, base, other)
}

func TestConfigFingerprintDefaultsDeleteMode(t *testing.T) {
	implicit, err := ConfigFingerprint(testConfig())
	require.NoError(t, err)

	explicit := testConfig()
	explicit.DeleteMode = DeleteNone
	got, err := ConfigFingerprint(explicit)
	require.NoError(t, err)
	assert.Equal(t, implicit, got)
}

func TestDataHashIgnoresNulls(t *testing.T) {
	assert.Equal(t, DataHash(Payload{"a": Int(1)}), DataHash(Payload{"a": Int(1), "b": Null{}}))
	assert.NotEqual(t, DataHash(Payload{"a": Int(1)}), DataHash(Payload{"a": Int(2)}))
}

func TestPlanHashStable(t *testing.T) {
	p := Period{From: 1, Until: 2}
	actions := []PlannedAction{{Kind: ActionInsert, New: &p, Data: Payload{"a": Int(1)}}}

	a, err := PlanHash(actions)
	require.NoError(t, err)
	b, err := PlanHash(actions)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	actions[0].Data = Payload{"a": Int(2)}
	c, err := PlanHash(actions)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
