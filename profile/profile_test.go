package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfiler_Disabled(t *testing.T) {
	p := Profiler{}.Start()
	assert.IsType(t, ignore{}, p)

	assert.NotPanics(t, p.Stop)
}

func TestProfiler_UnknownMode(t *testing.T) {
	p := Profiler{Mode: "nonsense", Path: t.TempDir()}.Start()
	assert.IsType(t, ignore{}, p)
}
