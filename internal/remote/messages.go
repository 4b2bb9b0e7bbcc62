// ABOUTME: Remote control message definitions
// ABOUTME: JSON messages exchanged on the /sdplay websocket endpoint
package remote

// Path is the websocket endpoint
const Path = "/sdplay"

// Message types
const (
	TypeHello  = "hello"
	TypeStatus = "status"
	TypeError  = "error"
	TypePlay   = "play"
	TypeStop   = "stop"
	TypeVolume = "volume"
	TypeMute   = "mute"
)

// Command is sent by remotes
type Command struct {
	Type   string `json:"type"`
	Track  int    `json:"track,omitempty"`
	Volume int    `json:"volume,omitempty"`
	Muted  bool   `json:"muted,omitempty"`
}

// TrackInfo describes one library entry
type TrackInfo struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Codec  string `json:"codec"`
}

// Hello is the first message a remote receives
type Hello struct {
	Type    string      `json:"type"`
	Name    string      `json:"name"`
	Product string      `json:"product"`
	Version string      `json:"version"`
	Tracks  []TrackInfo `json:"tracks"`
}

// Status is pushed on every state change
type Status struct {
	Type         string `json:"type"`
	State        string `json:"state"` // "idle" or "playing"
	Track        int    `json:"track,omitempty"`
	TrackName    string `json:"track_name,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	Backend      string `json:"backend"`
	SampleRate   int    `json:"sample_rate,omitempty"`
	Channels     int    `json:"channels,omitempty"`
	BitDepth     int    `json:"bit_depth,omitempty"`
	Volume       int    `json:"volume"`
	Muted        bool   `json:"muted"`
	Frames       uint64 `json:"frames"`
	DecodeErrors uint64 `json:"decode_errors"`
	Underruns    uint64 `json:"underruns"`
	ElapsedMs    int64  `json:"elapsed_ms"`
}

// Error reports a rejected command
type Error struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Error   string `json:"error"`
}

// envelope peeks at the type of an incoming message
type envelope struct {
	Type string `json:"type"`
}
