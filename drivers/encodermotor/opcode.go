package encodermotor

import "strconv"

// Opcode is the first byte of every frame. The values are fixed by the board
// firmware and must never be renumbered.
type Opcode uint8

const (
	OpGetVersion                   Opcode = 0
	OpReset                        Opcode = 1
	OpStop                         Opcode = 2
	OpRunPwm                       Opcode = 3
	OpRunSpeed                     Opcode = 4
	OpMovePositionTo               Opcode = 5
	OpMovePosition                 Opcode = 6
	OpSetSpeedPid                  Opcode = 7
	OpSetPositionPid               Opcode = 8
	OpSetRatio                     Opcode = 9
	OpSetPpr                       Opcode = 10
	OpSetCurrentPosition           Opcode = 11
	OpGetCurrentSpeed              Opcode = 12
	OpGetCurrentPosition           Opcode = 13
	OpQueryIsTargetPositionReached Opcode = 14
	OpGetSpeedPid                  Opcode = 15
	OpGetPositionPid               Opcode = 16
	OpGetReductionRatio            Opcode = 17
	OpGetPpr                       Opcode = 18
	OpGetCurrentPwm                Opcode = 19
	OpSetPositiveBLevel            Opcode = 20
	OpGetPositiveBLevel            Opcode = 21

	numOpcodes = 22
)

// opInfo describes the wire shape of one opcode.
type opInfo struct {
	name     string
	indexed  bool // frame carries the channel index byte
	payload  int  // bytes after opcode (and index)
	response int  // bytes read back; 0 for write-only commands
}

var opTable = [numOpcodes]opInfo{
	OpGetVersion:                   {"GetVersion", false, 0, 1},
	OpReset:                        {"Reset", true, 0, 0},
	OpStop:                         {"Stop", true, 0, 0},
	OpRunPwm:                       {"RunPwm", true, 2, 0},
	OpRunSpeed:                     {"RunSpeed", true, 2, 0},
	OpMovePositionTo:               {"MovePositionTo", true, 6, 0},
	OpMovePosition:                 {"MovePosition", true, 6, 0},
	OpSetSpeedPid:                  {"SetSpeedPid", true, 6, 0},
	OpSetPositionPid:               {"SetPositionPid", true, 6, 0},
	OpSetRatio:                     {"SetRatio", true, 1, 0},
	OpSetPpr:                       {"SetPpr", true, 1, 0},
	OpSetCurrentPosition:           {"SetCurrentPosition", true, 4, 0},
	OpGetCurrentSpeed:              {"GetCurrentSpeed", true, 0, 4},
	OpGetCurrentPosition:           {"GetCurrentPosition", true, 0, 4},
	OpQueryIsTargetPositionReached: {"QueryIsTargetPositionReached", true, 0, 1},
	OpGetSpeedPid:                  {"GetSpeedPid", true, 0, 6},
	OpGetPositionPid:               {"GetPositionPid", true, 0, 6},
	OpGetReductionRatio:            {"GetReductionRatio", true, 0, 1},
	OpGetPpr:                       {"GetPpr", true, 0, 1},
	OpGetCurrentPwm:                {"GetCurrentPwm", true, 0, 2},
	OpSetPositiveBLevel:            {"SetPositiveBLevel", true, 1, 0},
	OpGetPositiveBLevel:            {"GetPositiveBLevel", true, 0, 1},
}

func (op Opcode) info() opInfo {
	if int(op) < numOpcodes {
		return opTable[op]
	}
	return opInfo{}
}

func (op Opcode) String() string {
	if n := op.info().name; n != "" {
		return n
	}
	return "Opcode(" + strconv.Itoa(int(op)) + ")"
}

// Valid reports whether op is part of the firmware command table.
func (op Opcode) Valid() bool { return int(op) < numOpcodes }

// IsQuery reports whether the opcode is followed by a read phase.
func (op Opcode) IsQuery() bool { return op.info().response > 0 }

// Indexed reports whether frames for op carry a channel index byte.
func (op Opcode) Indexed() bool { return op.info().indexed }

// PayloadLen is the number of payload bytes written after the header.
func (op Opcode) PayloadLen() int { return op.info().payload }

// ResponseLen is the number of bytes read back for a query, or 0.
func (op Opcode) ResponseLen() int { return op.info().response }

// FrameLen is the total written length: opcode, optional index and payload.
func (op Opcode) FrameLen() int {
	in := op.info()
	n := 1 + in.payload
	if in.indexed {
		n++
	}
	return n
}
