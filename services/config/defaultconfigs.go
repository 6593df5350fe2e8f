package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (placed in ctx with WithDevice)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgPico = `{
  "motor": {
    "address": 9,
    "poll_interval_ms": 500,
    "channels": [
      {"index": 0, "reduction_ratio": 90, "ppr": 12, "positive_b_level": 0},
      {"index": 1, "reduction_ratio": 90, "ppr": 12, "positive_b_level": 0},
      {"index": 2, "reduction_ratio": 90, "ppr": 12, "positive_b_level": 0},
      {"index": 3, "reduction_ratio": 90, "ppr": 12, "positive_b_level": 0}
    ]
  }
}`

const cfgRPi = `{
  "motor": {
    "address": 9,
    "poll_interval_ms": 250,
    "channels": [
      {"index": 0, "speed_pid": {"p": 0.8, "i": 0.4, "d": 0}}
    ]
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
	"rpi":  []byte(cfgRPi),
}
