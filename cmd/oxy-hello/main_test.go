package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardRunsTeardownBeforeReportingPanic(t *testing.T) {
	var released bool
	err := guard(func() error {
		defer func() { released = true }()
		panic("surface vanished")
	})
	assert.ErrorIs(t, err, errPanicked)
	assert.True(t, released, "deferred teardown runs before the panic is reported")
}

func TestGuardPassesResultThrough(t *testing.T) {
	assert.NoError(t, guard(func() error { return nil }))

	cause := errors.New("frame 3: lost")
	assert.ErrorIs(t, guard(func() error { return cause }), cause)
}
