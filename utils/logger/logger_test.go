package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type named struct{}

func (named) String() string { return "NAMED" }

type plain struct{}

func TestObjToString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		obj  any
		want string
	}{
		{name: "nil", obj: nil, want: "NIL"},
		{name: "stringer", obj: named{}, want: "NAMED"},
		{name: "string", obj: "raw", want: "raw"},
		{name: "struct", obj: plain{}, want: "plain"},
		{name: "pointer", obj: &plain{}, want: "plain"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, objToString(tt.obj))
		})
	}
}

func TestLogWithoutInitDoesNotBlock(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < logSize*3; i++ {
			Errorf(named{}, "message %d", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		require.FailNow(t, "logging blocked without Init")
	}
}
