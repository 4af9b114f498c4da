package chat

// Wire-protocol literals for the outbound stream. Clients match on these
// exact strings, so they must never change.
const (
	// EndOfStreamMarker terminates the token-incremental answer; the
	// citation array follows as the next frame.
	EndOfStreamMarker = "!<|EOF_STREAM|>!"

	// ErrorPrefix tags the single visible fragment sent on any fatal
	// turn failure. No citations frame follows an error.
	ErrorPrefix = "<!ERROR!>: "
)
