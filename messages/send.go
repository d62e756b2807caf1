package messages

import (
	"fmt"
	"net"
)

// Send encodes p and writes it to addr over an unconnected socket.
func Send(conn net.PacketConn, addr net.Addr, p Packet) error {
	_, err := conn.WriteTo(p.Bytes(), addr)
	if err != nil {
		return fmt.Errorf("error sending packet: %w", err)
	}
	return nil
}

// SendConn encodes p and writes it over a connected (dialed) socket.
func SendConn(conn net.Conn, p Packet) error {
	_, err := conn.Write(p.Bytes())
	if err != nil {
		return fmt.Errorf("error sending packet: %w", err)
	}
	return nil
}
