package digest

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

// TestProperty_SumDeterminism validates that for any payload, computing the
// digest twice yields identical output of the fixed hex width.
func TestProperty_SumDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("digest is deterministic and fixed-width", prop.ForAll(
		func(payload string) bool {
			first := SumString(payload)
			second := SumString(payload)
			return first == second && len(first) == HexLen
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// TestProperty_SumDistinguishesMutation validates that appending a byte to a
// payload changes its digest, which is what mismatch detection relies on.
func TestProperty_SumDistinguishesMutation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("mutated payload digests differently", prop.ForAll(
		func(payload string) bool {
			return SumString(payload) != SumString(payload+"x")
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

func TestSum_HexEncoding(t *testing.T) {
	sum := Sum([]byte("hello"))
	assert.Len(t, sum, HexLen)
	for _, c := range sum {
		assert.Contains(t, "0123456789abcdef", string(c))
	}
}

func TestSum_EmptyPayload(t *testing.T) {
	first := Sum(nil)
	second := Sum([]byte{})
	assert.Equal(t, first, second)
	assert.Len(t, first, HexLen)
}

func TestSumString_MatchesSum(t *testing.T) {
	assert.Equal(t, Sum([]byte("payload")), SumString("payload"))
}
