package sender

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"typed not on network", NotOnNetwork("351912345678"), KindNotOnNetwork},
		{"typed invalid", InvalidNumber("12"), KindInvalidNumber},
		{"typed generic", Generic(errors.New("timeout")), KindGeneric},
		{"wrapped typed", eris.Wrap(NotOnNetwork(""), "bulk: send"), KindNotOnNetwork},
		{"fmt wrapped typed", fmt.Errorf("outer: %w", InvalidNumber("")), KindInvalidNumber},
		{"legacy not on whatsapp", errors.New("This phone number is not on WhatsApp"), KindNotOnNetwork},
		{"legacy invalid phone", errors.New("invalid phone number format"), KindInvalidNumber},
		{"legacy other", errors.New("Could not locate composer to start chat."), KindGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestSendError_Message(t *testing.T) {
	assert.Equal(t, "phone number is not on WhatsApp: 351912345678", NotOnNetwork("351912345678").Error())
	assert.Equal(t, "invalid phone number", InvalidNumber("").Error())
	assert.Equal(t, "send failed: boom", Generic(errors.New("boom")).Error())

	// Typed messages still satisfy the legacy substring classifier.
	assert.Equal(t, KindNotOnNetwork, Classify(errors.New(NotOnNetwork("x").Error())))
	assert.Equal(t, KindInvalidNumber, Classify(errors.New(InvalidNumber("x").Error())))
}

func TestSendError_Unwrap(t *testing.T) {
	base := errors.New("base")
	assert.ErrorIs(t, Generic(base), base)
}
