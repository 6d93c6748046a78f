package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSessionToken(t *testing.T) {
	theSecret := "Your thoughts become things!"
	sessionID := "4f9c2e1a"

	token, _ := GenerateSessionToken(sessionID, theSecret)

	id, _ := ValidateSessionToken(token, theSecret)
	assert.Equal(t, id, sessionID)

	_, err := ValidateSessionToken("a fake token", theSecret)
	assert.EqualError(t, err, "token contains an invalid number of segments")

	_, err = ValidateSessionToken(token, "a fake secret")
	assert.EqualError(t, err, "signature is invalid")
}
