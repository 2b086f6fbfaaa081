package srpc

import "errors"

// Sentinel errors returned by the public API. Use errors.Is to test for a
// specific kind; transport failures and a busy connection are wrapped with
// call-specific context via fmt.Errorf, the others are returned as is.
var (
	ErrTransportFailure  = errors.New("srpc: transport failure")
	ErrTimeout           = errors.New("srpc: timed out waiting for peer")
	ErrBufferTooSmall    = errors.New("srpc: caller buffer too small for message")
	ErrCallerOverrun     = errors.New("srpc: caller declared size smaller than used size")
	ErrUnknownService    = errors.New("srpc: unknown service")
	ErrProtocolViolation = errors.New("srpc: opcode accepted in wrong state")
	ErrDuplicateOffer    = errors.New("srpc: service already offered")
	ErrAllocationFailure = errors.New("srpc: allocation failure")
	ErrSuspended         = errors.New("srpc: engine is suspended")
	ErrShutdown          = errors.New("srpc: engine is shut down")
	ErrNotConnected      = errors.New("srpc: connection not found")
)
