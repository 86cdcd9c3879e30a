// Package errors provides the error classification used by sensor buffers and drivers.
//
// # Overview
//
// Three classes drive how a caller reacts to an error:
//
//   - Transient: shutdown in progress, context deadline or cancellation (may be retried)
//   - Invalid: bad input such as an inverted timestamp range or an unknown slot id (do not retry)
//   - Fatal: the operation cannot complete, such as a buffer overflow (report upward)
//
// No-data and end-of-stream conditions are not errors: buffer retrieval calls return
// them as status values that the consumer branches on every call.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Component", "Method", "action")
//	errors.WrapInvalid(err, "Component", "Method", "action")
//	errors.WrapFatal(err, "Component", "Method", "action")
//
// The generic Wrap() function adds context without attaching a class.
//
// # Checking Errors
//
// Sentinel errors stay reachable through the chain:
//
//	if err := buf.Push(ctx, reading); err != nil {
//	    if errors.Is(err, errors.ErrBufferOverflow) {
//	        // increase capacity or consume faster
//	    }
//	}
package errors
