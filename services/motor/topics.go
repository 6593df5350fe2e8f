package motor

import (
	"encodermotor-go/bus"
	"encodermotor-go/types"
)

const (
	prefixHAL = "hal"
	prefixCap = "cap"
	kind      = string(types.KindMotor)
)

// Topic helpers. Channel indexes are int tokens.
func TopicInfo() bus.Topic        { return bus.T(prefixHAL, prefixCap, kind, "board", "info") }
func TopicValue(i int) bus.Topic  { return bus.T(prefixHAL, prefixCap, kind, i, "value") }
func TopicStatus(i int) bus.Topic { return bus.T(prefixHAL, prefixCap, kind, i, "status") }
func TopicControl(i int, verb string) bus.Topic {
	return bus.T(prefixHAL, prefixCap, kind, i, "control", verb)
}

func controlPattern() bus.Topic {
	return bus.T(prefixHAL, prefixCap, kind, bus.Single, "control", bus.Single)
}

func configTopic() bus.Topic { return bus.T("config", kind) }
