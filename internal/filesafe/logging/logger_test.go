package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetAndGetRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	original := Get()
	Set(&defaultLogger{output: &buf})
	defer Set(original) // avoid leaking state into other tests

	Get().Warn("staging-dir-prepare", "/tmp/x", errors.New("permission denied"))
	assert.Contains(t, buf.String(), "WARN: staging-dir-prepare /tmp/x: permission denied")
}

func TestSetIgnoresNil(t *testing.T) {
	original := Get()
	Set(nil)
	assert.Equal(t, original, Get())
}
