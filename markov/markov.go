package markov

import (
	"math/rand"
	"net"
	"time"
)

// MarkovConn drops outgoing packets according to a two-state Markov chain
// (Gilbert-Elliott model): P is the probability of dropping after a delivered
// packet, Q the probability of dropping again after a dropped one. With
// P = Q = 0 the connection is lossless.
type MarkovConn struct {
	UDPConn *net.UDPConn
	P       float64
	Q       float64

	lastDropped bool
}

func (mc *MarkovConn) drop() bool {
	if mc.lastDropped {
		mc.lastDropped = rand.Float64() < mc.Q
	} else {
		mc.lastDropped = rand.Float64() < mc.P
	}
	return mc.lastDropped
}

// Implement the interface for net.PacketConn
func (mc *MarkovConn) ReadFrom(p []byte) (n int, addr net.Addr, err error) {
	return mc.UDPConn.ReadFrom(p)
}

func (mc *MarkovConn) WriteTo(p []byte, addr net.Addr) (n int, err error) {
	if mc.drop() {
		return len(p), nil
	}
	return mc.UDPConn.WriteTo(p, addr)
}

// Implement the interface for net.Conn
func (mc *MarkovConn) Read(p []byte) (n int, err error) {
	return mc.UDPConn.Read(p)
}

func (mc *MarkovConn) Write(p []byte) (n int, err error) {
	if mc.drop() {
		return len(p), nil
	}
	return mc.UDPConn.Write(p)
}

func (mc *MarkovConn) RemoteAddr() net.Addr {
	return mc.UDPConn.RemoteAddr()
}

// Implement the interface for both net.Conn and net.PacketConn
func (mc *MarkovConn) Close() error {
	return mc.UDPConn.Close()
}

func (mc *MarkovConn) LocalAddr() net.Addr {
	return mc.UDPConn.LocalAddr()
}

func (mc *MarkovConn) SetDeadline(t time.Time) error {
	return mc.UDPConn.SetDeadline(t)
}

func (mc *MarkovConn) SetReadDeadline(t time.Time) error {
	return mc.UDPConn.SetReadDeadline(t)
}

func (mc *MarkovConn) SetWriteDeadline(t time.Time) error {
	return mc.UDPConn.SetWriteDeadline(t)
}
