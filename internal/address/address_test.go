package address

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDeriver(t *testing.T) Deriver {
	t.Helper()
	d, err := NewDeriver(DefaultProgramID)
	require.NoError(t, err)
	return d
}

func TestDeriveDeterministic(t *testing.T) {
	d := mustDeriver(t)
	owner := uuid.New()

	a1 := d.Derive("Notes", owner)
	a2 := d.Derive("Notes", owner)
	assert.Equal(t, a1, a2, "Derive must be deterministic")
	assert.Len(t, a1.String(), 64)
}

func TestDeriveDistinctPairs(t *testing.T) {
	d := mustDeriver(t)
	owners := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	titles := []string{"", "Notes", "notes", "Notes ", "a", "ab", "Diary 2026"}

	seen := make(map[Address]string)
	for _, o := range owners {
		for _, title := range titles {
			a := d.Derive(title, o)
			key := fmt.Sprintf("%s/%q", o, title)
			if prev, dup := seen[a]; dup {
				t.Fatalf("collision between %s and %s", prev, key)
			}
			seen[a] = key
		}
	}
	assert.Len(t, seen, len(owners)*len(titles))
}

func TestDeriveDependsOnProgramID(t *testing.T) {
	owner := uuid.New()
	d1 := mustDeriver(t)
	d2, err := NewDeriver("another-program")
	require.NoError(t, err)
	assert.NotEqual(t, d1.Derive("Notes", owner), d2.Derive("Notes", owner))
}

func TestNewDeriverRejectsEmpty(t *testing.T) {
	_, err := NewDeriver("")
	assert.Error(t, err)
}

func TestParseAddress(t *testing.T) {
	a := mustDeriver(t).Derive("Notes", uuid.New())

	got, err := ParseAddress(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, got)

	_, err = ParseAddress("zz")
	assert.Error(t, err)
	_, err = ParseAddress("abcd")
	assert.Error(t, err)
}

func TestAddressJSON(t *testing.T) {
	a := mustDeriver(t).Derive("Notes", uuid.New())
	b, err := json.Marshal(struct {
		Address Address `json:"address"`
	}{a})
	require.NoError(t, err)
	assert.JSONEq(t, `{"address":"`+a.String()+`"}`, string(b))
}
