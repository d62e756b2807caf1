package messages

import (
	"bytes"
	"encoding/binary"
	"math"
)

// opcodes (RFC 1350, section 5)
const (
	RRQ_t   uint16 = 1
	WRQ_t   uint16 = 2
	DATA_t  uint16 = 3
	ACK_t   uint16 = 4
	ERROR_t uint16 = 5
)

// error codes carried by ERROR packets
const (
	NotDefined        uint16 = 0
	FileNotFound      uint16 = 1
	AccessViolation   uint16 = 2
	DiskFull          uint16 = 3
	IllegalOperation  uint16 = 4
	UnknownTransferID uint16 = 5
	FileExists        uint16 = 6
	NoSuchUser        uint16 = 7
)

const (
	// MaxPayloadSize is the data carried by a full DATA packet. A shorter
	// payload marks the final packet of a transfer.
	MaxPayloadSize = 512
	// MaxPacketSize is opcode + block number + a full payload.
	MaxPacketSize = 4 + MaxPayloadSize
)

// ModeOctet is the only transfer mode this implementation supports.
const ModeOctet = "octet"

type Packet interface {
	Bytes() []byte
}

type RRQ struct {
	Filename string
	Mode     string
}

type WRQ struct {
	Filename string
	Mode     string
}

type DATA struct {
	BlockNum uint16
	Payload  []uint8
}

type ACK struct {
	BlockNum uint16
}

type ERROR struct {
	Code    uint16
	Message string
}

func GetRRQ(filename string, mode string) RRQ {
	return RRQ{Filename: filename, Mode: mode}
}

func GetWRQ(filename string, mode string) WRQ {
	return WRQ{Filename: filename, Mode: mode}
}

func GetDATA(blockNum uint16, payload []uint8) DATA {
	return DATA{BlockNum: blockNum, Payload: payload}
}

func GetACK(blockNum uint16) ACK {
	return ACK{BlockNum: blockNum}
}

func GetERROR(code uint16, message string) ERROR {
	return ERROR{Code: code, Message: message}
}

// IncrBlockNum returns the block number following n. Block numbers wrap
// to 0 after 65535, never skipping a value.
func IncrBlockNum(n uint16) uint16 {
	if n == math.MaxUint16 {
		return 0
	}
	return n + 1
}

func (m RRQ) Bytes() []byte {
	return requestBytes(RRQ_t, m.Filename, m.Mode)
}

func (m WRQ) Bytes() []byte {
	return requestBytes(WRQ_t, m.Filename, m.Mode)
}

func requestBytes(op uint16, filename string, mode string) []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, op)
	buf.WriteString(filename)
	buf.WriteByte(0)
	buf.WriteString(mode)
	buf.WriteByte(0)
	return buf.Bytes()
}

func (m DATA) Bytes() []byte {
	buf := make([]byte, 4+len(m.Payload))
	binary.BigEndian.PutUint16(buf[0:2], DATA_t)
	binary.BigEndian.PutUint16(buf[2:4], m.BlockNum)
	copy(buf[4:], m.Payload)
	return buf
}

func (m ACK) Bytes() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], ACK_t)
	binary.BigEndian.PutUint16(buf[2:4], m.BlockNum)
	return buf
}

func (m ERROR) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, ERROR_t)
	binary.Write(buf, binary.BigEndian, m.Code)
	buf.WriteString(m.Message)
	buf.WriteByte(0)
	return buf.Bytes()
}
