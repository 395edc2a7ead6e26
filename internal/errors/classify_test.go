package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jzx17/gofallback/pkg/types"
)

type temporaryErr struct{ temporary bool }

func (e temporaryErr) Error() string   { return "temporary?" }
func (e temporaryErr) Temporary() bool { return e.temporary }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{name: "nil", err: nil, want: ClassNone},
		{name: "marked transient", err: types.Transient(errors.New("503"), 503), want: ClassTransient},
		{name: "marked permanent", err: types.Permanent(errors.New("400"), 400), want: ClassPermanent},
		{name: "wrapped permanent", err: fmt.Errorf("call: %w", types.Permanent(errors.New("401"), 401)), want: ClassPermanent},
		{name: "marking wins over cancellation", err: types.Permanent(context.Canceled, 0), want: ClassPermanent},
		{name: "context cancelled", err: context.Canceled, want: ClassCancelled},
		{name: "wrapped cancellation", err: fmt.Errorf("request: %w", context.Canceled), want: ClassCancelled},
		{name: "adapter deadline", err: context.DeadlineExceeded, want: ClassTransient},
		{name: "network timeout", err: &net.DNSError{Err: "timeout", IsTimeout: true}, want: ClassTransient},
		{name: "temporary", err: temporaryErr{temporary: true}, want: ClassTransient},
		{name: "not temporary", err: temporaryErr{temporary: false}, want: ClassPermanent},
		{name: "unclassified", err: errors.New("boom"), want: ClassTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
			assert.Equal(t, tt.want == ClassTransient, IsTransient(tt.err))
		})
	}
}

func TestClass_String(t *testing.T) {
	assert.Equal(t, "none", ClassNone.String())
	assert.Equal(t, "transient", ClassTransient.String())
	assert.Equal(t, "permanent", ClassPermanent.String())
	assert.Equal(t, "cancelled", ClassCancelled.String())
	assert.Equal(t, "unknown", Class(42).String())
}
