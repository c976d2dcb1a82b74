package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStructuralMessageNamesLocation(t *testing.T) {
	err := Structural("alcoholic", "co2a0000364.rd.000", "", "no recordings found")
	assert.Equal(t, "no recordings found (cohort=alcoholic file=co2a0000364.rd.000)", err.Error())
	assert.Equal(t, CodeStructural, GetCode(err))
}

func TestWrapKeepsCode(t *testing.T) {
	base := Structural("control", "", "", "empty cohort")
	wrapped := Wrap(base, "load control")

	assert.Equal(t, CodeStructural, GetCode(wrapped))
	assert.True(t, Is(wrapped, CodeStructural))
	assert.Contains(t, wrapped.Error(), "load control: empty cohort")
}

func TestWrapPlainError(t *testing.T) {
	wrapped := Wrapf(fmt.Errorf("disk gone"), "open %s", "a.rd")
	assert.Equal(t, CodeInternalError, GetCode(wrapped))
	assert.Nil(t, Wrap(nil, "noop"))
	assert.Equal(t, CodeUnknown, GetCode(fmt.Errorf("plain")))
}
