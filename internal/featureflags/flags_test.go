package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_Switches(t *testing.T) {
	s := Parse("a=on,b=off,c=true,d=false,e=1,f=0")

	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, s.Enabled(name, 1), name)
	}
	for _, name := range []string{"b", "d", "f", "missing"} {
		assert.False(t, s.Enabled(name, 1), name)
	}
}

func TestParse_SkipsMalformed(t *testing.T) {
	s := Parse(" bad ,X = ON, y=20% ,z=maybe,w=20,=on")

	assert.Equal(t, map[string]bool{"x": true, "y": s.Enabled("y", 123)}, s.For(123))
	assert.True(t, s.Enabled("X", 0))
}

func TestEnabled_Rollout(t *testing.T) {
	s := Parse("always=100%,never=0%,canary=25%,over=250%")

	assert.True(t, s.Enabled("always", 1))
	assert.True(t, s.Enabled("always", 0))
	assert.True(t, s.Enabled("over", 1))
	assert.False(t, s.Enabled("never", 1))
	assert.False(t, s.Enabled("canary", 0))

	first := s.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, s.Enabled("canary", 42))
	}

	enabled := 0
	for uid := uint(1); uid <= 1000; uid++ {
		if s.Enabled("canary", uid) {
			enabled++
		}
	}
	assert.InDelta(t, 250, enabled, 100)
}

func TestNilSet(t *testing.T) {
	var s *Set
	assert.False(t, s.Enabled(RequireConfirmation, 1))
	assert.Empty(t, s.For(1))
}
