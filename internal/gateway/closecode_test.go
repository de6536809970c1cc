package gateway

import (
	"errors"
	"fmt"
	"testing"

	"github.com/chatgate/chatgate/internal/domain"
)

func TestReasonFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want CloseCode
	}{
		{name: "malformed payload", err: domain.ErrMalformedPayload, want: CloseMalformedPayload},
		{name: "duplicate identify", err: domain.ErrAlreadyIdentified, want: CloseDuplicateIdentify},
		{name: "token malformed", err: domain.ErrTokenMalformed, want: CloseTokenInvalid},
		{name: "token invalid", err: domain.ErrTokenInvalid, want: CloseTokenInvalid},
		{name: "user not found", err: domain.ErrUserNotFound, want: CloseTokenInvalid},
		{name: "not identified", err: domain.ErrNotIdentified, want: CloseNotIdentified},
		{name: "unsupported frame", err: domain.ErrUnsupportedFrame, want: CloseUnsupported},
		{name: "bus missing", err: domain.ErrBusMissing, want: CloseBusMissing},
		{name: "database missing", err: domain.ErrDatabaseMissing, want: CloseDatabaseMissing},
		{name: "registry missing", err: domain.ErrRegistryMissing, want: CloseRegistryMissing},
		{name: "bus hangup", err: domain.ErrBusHangup, want: CloseBusHangup},
		{name: "mux stopped", err: domain.ErrMuxStopped, want: CloseBusHangup},
		{name: "id overflow", err: domain.ErrIDOverflow, want: CloseIDOverflow},
		{name: "database failure", err: domain.NewStoreError("user", errors.New("timeout")), want: CloseDatabaseError},
		{name: "unknown error", err: errors.New("whatever"), want: CloseNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason := reasonFor(tt.err)
			if reason.Code != tt.want {
				t.Errorf("reasonFor(%v).Code = %d, want %d", tt.err, reason.Code, tt.want)
			}
			if reason.Text == "" {
				t.Errorf("reasonFor(%v) has empty text", tt.err)
			}
		})
	}
}

func TestReasonFor_WrappedError(t *testing.T) {
	err := fmt.Errorf("decode frame: %w", domain.ErrMalformedPayload)
	if got := reasonFor(err).Code; got != CloseMalformedPayload {
		t.Errorf("reasonFor(wrapped).Code = %d, want %d", got, CloseMalformedPayload)
	}
}

func TestCloseCode_Operational(t *testing.T) {
	operational := []CloseCode{
		CloseDatabaseError, CloseBusMissing, CloseDatabaseMissing,
		CloseRegistryMissing, CloseBusHangup, CloseIDOverflow,
	}
	for _, code := range operational {
		if !code.Operational() {
			t.Errorf("%d should be operational", code)
		}
	}

	client := []CloseCode{
		CloseNormal, CloseUnsupported, CloseMalformedPayload,
		CloseDuplicateIdentify, CloseTokenInvalid, CloseNotIdentified,
	}
	for _, code := range client {
		if code.Operational() {
			t.Errorf("%d should not be operational", code)
		}
	}
}
