package types

// ------------------------
// Motor board configuration (published retained on config/motor)
// ------------------------

type MotorBoardConfig struct {
	Address        uint8                `json:"address"`          // 0 => 0x09
	PollIntervalMs uint32               `json:"poll_interval_ms"` // 0 => default
	StrictReads    bool                 `json:"strict_reads,omitempty"`
	Channels       []MotorChannelConfig `json:"channels,omitempty"`
}

// MotorChannelConfig holds per-channel calibration. Nil fields are left at
// the firmware's current value.
type MotorChannelConfig struct {
	Index          uint8     `json:"index"`
	ReductionRatio *uint8    `json:"reduction_ratio,omitempty"`
	PPR            *uint8    `json:"ppr,omitempty"`
	PositiveBLevel *uint8    `json:"positive_b_level,omitempty"`
	SpeedPID       *PIDGains `json:"speed_pid,omitempty"`
	PositionPID    *PIDGains `json:"position_pid,omitempty"`
}

type PIDGains struct {
	P float32 `json:"p"`
	I float32 `json:"i"`
	D float32 `json:"d"`
}

// ------------------------
// Info / value payloads (retained)
// ------------------------

// MotorBoardInfo is published at hal/cap/motor/board/info.
type MotorBoardInfo struct {
	Address  uint8 `json:"address"`
	Version  uint8 `json:"version"`
	Channels int   `json:"channels"`
}

// MotorValue is published at hal/cap/motor/<i>/value.
type MotorValue struct {
	PWM      int16   `json:"pwm"`
	SpeedRPM float32 `json:"speed_rpm"`
	Position int32   `json:"position_deg"`
	Reached  bool    `json:"target_reached"`
	TS       int64   `json:"ts_ms"`
}

// MotorCalibration is the reply to get_calibration.
type MotorCalibration struct {
	ReductionRatio uint8 `json:"reduction_ratio"`
	PPR            uint8 `json:"ppr"`
	PositiveBLevel uint8 `json:"positive_b_level"`
}

// ------------------------
// Controls (hal/cap/motor/<i>/control/<verb>)
// ------------------------

type MotorRunPWM struct {
	PWM int16 `json:"pwm"` // -255..255, sign is direction
}

type MotorRunSpeed struct {
	RPM int16 `json:"rpm"`
}

// MotorMove is used by both "move" (relative) and "move_to" (absolute).
type MotorMove struct {
	Position int32  `json:"position_deg"`
	RPM      uint16 `json:"rpm"` // must be > 0
}

type MotorSetPosition struct {
	Position int32 `json:"position_deg"`
}

type MotorSetU8 struct {
	Value uint8 `json:"value"`
}
