package mq

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	transient := errors.New("connection refused")

	assert.Equal(t, OutcomeAck, Decide(nil))
	assert.Equal(t, OutcomeRequeue, Decide(transient))
	assert.Equal(t, OutcomeDeadLetter, Decide(Permanent("json_decode_error", transient)))
	assert.Equal(t, OutcomeDeadLetter, Decide(fmt.Errorf("handle: %w", Permanent("invalid_transition", transient))))
}

func TestPermanentUnwraps(t *testing.T) {
	cause := errors.New("bad payload")
	err := Permanent("json_decode_error", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsPermanent(err))
	assert.False(t, IsPermanent(cause))
	assert.Contains(t, err.Error(), "json_decode_error")
}
