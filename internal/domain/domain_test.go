package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsHexAddress(t *testing.T) {
	assert.True(t, IsHexAddress("0x52bc44d5378309ee2abf1539bf71de1b7d7be3b5"))
	assert.True(t, IsHexAddress("0x52BC44D5378309EE2ABF1539BF71DE1B7D7BE3B5"))
	assert.False(t, IsHexAddress("52bc44d5378309ee2abf1539bf71de1b7d7be3b5"))
	assert.False(t, IsHexAddress("0x52bc44d5378309ee2abf1539bf71de1b7d7be3b"))
	assert.False(t, IsHexAddress("0x52bc44d5378309ee2abf1539bf71de1b7d7be3bz"))
	assert.False(t, IsHexAddress("vitalik.eth"))
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "0x52bc44d5378309ee2abf1539bf71de1b7d7be3b5",
		NormalizeAddress(" 0x52BC44D5378309EE2ABF1539BF71DE1B7D7BE3B5 "))
	assert.Equal(t, "", NormalizeAddress("0x123"))
}

func TestCanonicalEvent_HasUSD(t *testing.T) {
	v := 12.5
	nan := math.NaN()
	inf := math.Inf(1)

	assert.True(t, CanonicalEvent{USDValue: &v}.HasUSD())
	assert.False(t, CanonicalEvent{}.HasUSD())
	assert.False(t, CanonicalEvent{USDValue: &nan}.HasUSD())
	assert.False(t, CanonicalEvent{USDValue: &inf}.HasUSD())
	assert.Equal(t, 0.0, CanonicalEvent{}.USD())
}

func TestUpstreamError(t *testing.T) {
	var err error = &UpstreamError{Status: 503, Body: "unavailable"}
	assert.Equal(t, "upstream status 503: unavailable", err.Error())

	wrapped := errors.Join(errors.New("fetch"), err)
	var upErr *UpstreamError
	assert.True(t, errors.As(wrapped, &upErr))
	assert.Equal(t, 503, upErr.Status)

	assert.Equal(t, "upstream request failed: dial tcp: refused",
		(&UpstreamError{Body: "dial tcp: refused"}).Error())
}
