package messages

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// ServerReceive reads one datagram from an unconnected socket. A timeout of
// zero blocks forever. Deadline errors are returned as-is so that callers can
// match them with os.IsTimeout.
func ServerReceive(conn net.PacketConn, timeout time.Duration) (net.Addr, []byte, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, nil, fmt.Errorf("creating the timeout deadline: %w", err)
	}

	buffer := make([]byte, MaxPacketSize+1)
	n, raddr, err := conn.ReadFrom(buffer)
	if err != nil {
		return nil, nil, err
	}
	return raddr, buffer[:n], nil
}

// ClientReceive reads one datagram from a connected (dialed) socket, bounded
// by the given timeout.
func ClientReceive(conn net.Conn, timeout time.Duration) ([]byte, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("creating the timeout deadline: %w", err)
	}

	buffer := make([]byte, MaxPacketSize+1)
	n, err := conn.Read(buffer)
	if err != nil {
		// return error as it is to match for timeout error type
		return nil, err
	}
	return buffer[:n], nil
}

// Parse decodes a raw datagram into one of the five packet types. The caller
// passes exactly the bytes received, never more.
func Parse(data []byte) (Packet, error) {
	if len(data) < 2 {
		return nil, &MalformedPacketError{Reason: "packet shorter than an opcode"}
	}
	if len(data) > MaxPacketSize {
		return nil, &MalformedPacketError{Reason: fmt.Sprintf("packet of %d bytes exceeds the maximum of %d", len(data), MaxPacketSize)}
	}

	switch op := binary.BigEndian.Uint16(data[:2]); op {
	case RRQ_t, WRQ_t:
		filename, rest, err := readCString(data[2:], "filename")
		if err != nil {
			return nil, err
		}
		mode, _, err := readCString(rest, "mode")
		if err != nil {
			return nil, err
		}
		if op == RRQ_t {
			return RRQ{Filename: filename, Mode: mode}, nil
		}
		return WRQ{Filename: filename, Mode: mode}, nil

	case DATA_t:
		// a DATA packet must carry at least a block number
		if len(data) < 4 {
			return nil, &MalformedPacketError{Reason: "DATA packet without a block number"}
		}
		if len(data)-4 > MaxPayloadSize {
			return nil, &MalformedPacketError{Reason: "DATA payload exceeds 512 bytes"}
		}
		payload := make([]uint8, len(data)-4)
		copy(payload, data[4:])
		return DATA{BlockNum: binary.BigEndian.Uint16(data[2:4]), Payload: payload}, nil

	case ACK_t:
		if len(data) < 4 {
			return nil, &MalformedPacketError{Reason: "ACK packet without a block number"}
		}
		// trailing bytes after the block number are ignored
		return ACK{BlockNum: binary.BigEndian.Uint16(data[2:4])}, nil

	case ERROR_t:
		if len(data) < 4 {
			return nil, &MalformedPacketError{Reason: "ERROR packet without an error code"}
		}
		message, _, err := readCString(data[4:], "error message")
		if err != nil {
			return nil, err
		}
		return ERROR{Code: binary.BigEndian.Uint16(data[2:4]), Message: message}, nil

	default:
		return nil, &UnknownOpcodeError{Opcode: op}
	}
}

// readCString splits off a non-empty NUL-terminated string.
func readCString(data []byte, field string) (string, []byte, error) {
	for i, b := range data {
		if b != 0 {
			continue
		}
		if i == 0 {
			return "", nil, &MalformedPacketError{Reason: fmt.Sprintf("empty %s", field)}
		}
		return string(data[:i]), data[i+1:], nil
	}
	return "", nil, &MalformedPacketError{Reason: fmt.Sprintf("%s missing its terminator", field)}
}
