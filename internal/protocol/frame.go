package protocol

// FRAME (server -> observer): the full visible state after one tick.
type FrameMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	Tick            uint64 `json:"tick"`

	Time       float64 `json:"time"`
	Phase      string  `json:"phase"`
	PhaseIndex int     `json:"phase_index"`
	PhaseTime  float64 `json:"phase_time"`
	Ramp       float64 `json:"ramp"`
	Raining    bool    `json:"raining"`
	Heat       float64 `json:"heat"`
	Lights     Lights  `json:"lights"`

	Player  PlayerView    `json:"player"`
	Clouds  []CloudView   `json:"clouds"`
	Strikes []StrikeView  `json:"strikes"`
	Threats []ThreatView  `json:"threats"`
	Items   []ItemView    `json:"items"`
	Owned   []string      `json:"owned"`
	Offer   []AugmentView `json:"offer,omitempty"`
	Events  []EventView   `json:"events,omitempty"`

	Paused   bool `json:"paused"`
	Defeated bool `json:"defeated"`
}

type Lights struct {
	Sun    float64 `json:"sun"`
	Global float64 `json:"global"`
}

type PlayerView struct {
	HP        int        `json:"hp"`
	MaxHP     int        `json:"max_hp"`
	Level     int        `json:"level"`
	Exp       int        `json:"exp"`
	MaxExp    int        `json:"max_exp"`
	Pos       [2]float64 `json:"pos"`
	Shade     int        `json:"shade"`
	SpeedMul  float64    `json:"speed_mul"`
	JumpMul   float64    `json:"jump_mul"`
	MaxJumps  int        `json:"max_jumps"`
	SunRes    float64    `json:"sun_res"`
	ElecRes   float64    `json:"elec_res"`
	Companion bool       `json:"companion"`
}

type CloudView struct {
	Slot   int        `json:"slot"`
	Pos    [2]float64 `json:"pos"`
	Moving bool       `json:"moving"`
}

type StrikeView struct {
	ID      int        `json:"id"`
	Pos     [2]float64 `json:"pos"`
	Stage   string     `json:"stage"`
	Visible bool       `json:"visible"`
}

type ThreatView struct {
	ID  int        `json:"id"`
	Pos [2]float64 `json:"pos"`
	Dir int        `json:"dir"`
}

type ItemView struct {
	ID   int        `json:"id"`
	Kind string     `json:"kind"`
	Pos  [2]float64 `json:"pos"`
}

type AugmentView struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Tier   string  `json:"tier"`
	Weight float64 `json:"weight"`
}

type EventView struct {
	T      float64 `json:"t"`
	Kind   string  `json:"kind"`
	Entity int     `json:"entity,omitempty"`
	Value  float64 `json:"value,omitempty"`
	Detail string  `json:"detail,omitempty"`
}

// OFFER (server -> observer): a level-up choice is waiting.
type OfferMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	SessionID       string        `json:"session_id"`
	Tick            uint64        `json:"tick"`
	Level           int           `json:"level"`
	Choices         []AugmentView `json:"choices"`
}
