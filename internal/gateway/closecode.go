package gateway

import (
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/chatgate/chatgate/internal/domain"
)

// CloseCode is the application close code sent in the final frame of a
// connection.
type CloseCode int

const (
	// CloseNormal is a graceful shutdown.
	CloseNormal CloseCode = websocket.CloseNormalClosure

	// CloseUnsupported is sent when a binary or otherwise unsupported
	// frame type is received.
	CloseUnsupported CloseCode = websocket.CloseUnsupportedData

	// CloseMalformedPayload is sent for an undecodable control event.
	CloseMalformedPayload CloseCode = 2001

	// CloseDuplicateIdentify is sent when a second Identify is received.
	CloseDuplicateIdentify CloseCode = 2002

	// CloseTokenInvalid is sent when token verification fails.
	CloseTokenInvalid CloseCode = 2003

	// CloseNotIdentified is sent when a non-Identify payload arrives
	// before the identify handshake.
	CloseNotIdentified CloseCode = 2004

	// CloseDatabaseError is sent when a store query fails.
	CloseDatabaseError CloseCode = 5000

	// CloseBusMissing is sent when no bus connection is configured.
	CloseBusMissing CloseCode = 5002

	// CloseDatabaseMissing is sent when no database pool is configured.
	CloseDatabaseMissing CloseCode = 5003

	// CloseRegistryMissing is sent when no connection registry is
	// configured.
	CloseRegistryMissing CloseCode = 5004

	// CloseBusHangup is sent when the bus connection has gone away.
	CloseBusHangup CloseCode = 5005

	// CloseIDOverflow is sent when a numeric id in a routing key does not
	// fit in 64 bits.
	CloseIDOverflow CloseCode = 5006
)

// Operational reports whether the close was caused by an infrastructure
// failure rather than by the client. Operational closures are logged as
// errors; client-caused ones as debug noise.
func (c CloseCode) Operational() bool {
	return c >= 5000
}

func (c CloseCode) String() string {
	switch c {
	case CloseNormal:
		return "normal"
	case CloseUnsupported:
		return "unsupported frame"
	case CloseMalformedPayload:
		return "malformed payload"
	case CloseDuplicateIdentify:
		return "duplicate identify"
	case CloseTokenInvalid:
		return "token verification failed"
	case CloseNotIdentified:
		return "not identified"
	case CloseDatabaseError:
		return "database error"
	case CloseBusMissing:
		return "bus connection missing"
	case CloseDatabaseMissing:
		return "database pool missing"
	case CloseRegistryMissing:
		return "connection registry missing"
	case CloseBusHangup:
		return "bus hung up"
	case CloseIDOverflow:
		return "id conversion overflow"
	default:
		return fmt.Sprintf("close code %d", int(c))
	}
}

// CloseReason is the code and text for the final close frame.
type CloseReason struct {
	Code CloseCode
	Text string
}

// reasonFor maps a domain error to the close reason it terminates the
// connection with.
func reasonFor(err error) CloseReason {
	var code CloseCode
	switch {
	case errors.Is(err, domain.ErrMalformedPayload):
		code = CloseMalformedPayload
	case errors.Is(err, domain.ErrAlreadyIdentified):
		code = CloseDuplicateIdentify
	case errors.Is(err, domain.ErrTokenMalformed),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrUserNotFound):
		code = CloseTokenInvalid
	case errors.Is(err, domain.ErrNotIdentified):
		code = CloseNotIdentified
	case errors.Is(err, domain.ErrUnsupportedFrame):
		code = CloseUnsupported
	case errors.Is(err, domain.ErrBusMissing):
		code = CloseBusMissing
	case errors.Is(err, domain.ErrDatabaseMissing):
		code = CloseDatabaseMissing
	case errors.Is(err, domain.ErrRegistryMissing):
		code = CloseRegistryMissing
	case errors.Is(err, domain.ErrBusHangup),
		errors.Is(err, domain.ErrMuxStopped):
		code = CloseBusHangup
	case errors.Is(err, domain.ErrIDOverflow):
		code = CloseIDOverflow
	case errors.Is(err, domain.ErrDatabase):
		code = CloseDatabaseError
	default:
		code = CloseNormal
	}
	return CloseReason{Code: code, Text: code.String()}
}
