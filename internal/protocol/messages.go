package protocol

// HELLO (observer -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ObserverName    string `json:"observer_name,omitempty"`
}

// WELCOME (server -> observer)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	ObserverID      string         `json:"observer_id"`
	SessionID       string         `json:"session_id"`
	Params          SessionParams  `json:"params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type SessionParams struct {
	TickRateHz            int     `json:"tick_rate_hz"`
	CalmSeconds           float64 `json:"calm_seconds"`
	HazardSeconds         float64 `json:"hazard_seconds"`
	DifficultyFullSeconds float64 `json:"difficulty_full_seconds"`
	Seed                  uint64  `json:"seed"`
	LeftX                 float64 `json:"left_x"`
	RightX                float64 `json:"right_x"`
}

type CatalogDigests struct {
	Augments     DigestRef `json:"augments"`
	TuningDigest string    `json:"tuning_digest,omitempty"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// ERROR (server -> observer)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

// HTTP response for GET /v1/session.
type BootstrapResponse struct {
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	Tick            uint64         `json:"tick"`
	Params          SessionParams  `json:"params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}
