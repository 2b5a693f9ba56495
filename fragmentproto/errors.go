package fragmentproto

import "errors"

var (
	// ErrTruncatedHeader is reported when a carrier packet ends mid-header.
	ErrTruncatedHeader = errors.New("fragmentproto: carrier ends with a truncated chunk header")
	// ErrChunkOverrunsCarrier is reported when a chunk's declared payload
	// extends past the end of its carrier packet (spec.md §6).
	ErrChunkOverrunsCarrier = errors.New("fragmentproto: chunk payload extends past carrier")
	// ErrFrameOverrunsMTU is reported when a chunk's offset+length would
	// write past the assembler's configured frame MTU.
	ErrFrameOverrunsMTU = errors.New("fragmentproto: chunk extends past frame MTU")
)
