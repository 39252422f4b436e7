package protocols

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathanxuu/distaff/internal/distaff/core"
)

func TestDefaultOptionsAreValid(t *testing.T) {
	options := DefaultProofOptions()
	assert.NoError(t, options.Validate())
	assert.Equal(t, 32, options.ExtensionFactor)
	assert.Equal(t, 54, options.NumQueries)
	assert.Equal(t, 20, options.GrindingFactor)
	assert.Equal(t, core.Blake2b256, options.HashFn)
}

func TestOptionValidation(t *testing.T) {
	base := DefaultProofOptions()

	assert.Error(t, base.WithExtensionFactor(4).Validate())
	assert.Error(t, base.WithExtensionFactor(48).Validate())
	assert.NoError(t, base.WithExtensionFactor(64).Validate())

	assert.Error(t, base.WithNumQueries(0).Validate())
	assert.Error(t, base.WithNumQueries(129).Validate())
	assert.NoError(t, base.WithNumQueries(128).Validate())

	assert.Error(t, base.WithGrindingFactor(-1).Validate())
	assert.Error(t, base.WithGrindingFactor(33).Validate())
	assert.NoError(t, base.WithGrindingFactor(0).Validate())

	assert.Error(t, base.WithHashFn(core.HashFn(0)).Validate())
	assert.NoError(t, base.WithHashFn(core.RescueP128).Validate())
}

func TestSecurityLevel(t *testing.T) {
	options := DefaultProofOptions()
	conjectured := options.SecurityLevel(true)
	proven := options.SecurityLevel(false)
	assert.Greater(t, conjectured, 0)
	assert.GreaterOrEqual(t, conjectured, proven)
	assert.LessOrEqual(t, conjectured, 128)

	// More queries cannot lower the estimate.
	weaker := options.WithNumQueries(10)
	assert.LessOrEqual(t, weaker.SecurityLevel(true), conjectured)
}
