package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	// Session routing/state.
	ErrSessionBusy     = "E_SESSION_BUSY"
	ErrSessionNotFound = "E_SESSION_NOT_FOUND"
	ErrSessionOver     = "E_SESSION_OVER"

	// Progression.
	ErrNoOffer   = "E_NO_OFFER"
	ErrBadChoice = "E_BAD_CHOICE"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrSessionBusy:     {},
	ErrSessionNotFound: {},
	ErrSessionOver:     {},
	ErrNoOffer:         {},
	ErrBadChoice:       {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
