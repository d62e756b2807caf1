package messages

import "fmt"

// MalformedPacketError is returned by Parse when a datagram violates the
// fixed structure of its opcode.
type MalformedPacketError struct {
	Reason string
}

func (e *MalformedPacketError) Error() string {
	return fmt.Sprintf("malformed packet: %s", e.Reason)
}

// UnknownOpcodeError is returned by Parse when the first two bytes of a
// datagram are not a known opcode.
type UnknownOpcodeError struct {
	Opcode uint16
}

func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unknown opcode: %d", e.Opcode)
}
