package common

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunID(t *testing.T) {
	at := time.Unix(1700000000, 0)
	assert.Equal(t, "op_0_50_1700000000", NewRunID("op", 0, 50, at))
}

func TestNewLoginHandleID(t *testing.T) {
	id := NewLoginHandleID()
	require.True(t, strings.HasPrefix(id, "login_"))

	_, err := uuid.Parse(strings.TrimPrefix(id, "login_"))
	assert.NoError(t, err)
	assert.NotEqual(t, id, NewLoginHandleID())
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	var recovered interface{}
	done := SafeGo(nil, "test", func() {
		panic("boom")
	}, func(r interface{}) {
		recovered = r
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not finish")
	}
	assert.Equal(t, "boom", recovered)
}

func TestSafeGo_CountsSpawnedGoroutines(t *testing.T) {
	before := GetGoroutineCount()
	<-SafeGo(nil, "first", func() {}, nil)
	<-SafeGo(nil, "second", func() {}, nil)
	assert.GreaterOrEqual(t, GetGoroutineCount()-before, int64(2))
}
