package markov

import (
	"net"

	"github.com/MrSpock/tftp-server/messages"
)

func CreateServerSocket(ip net.IP, port int, p float64, q float64) (net.PacketConn, error) {
	conn, err := messages.CreateServerSocket(ip, port)
	if err != nil {
		return nil, err
	}
	markovConn := &MarkovConn{
		UDPConn:     conn,
		P:           p,
		Q:           q,
		lastDropped: false,
	}
	return markovConn, nil
}

// CreateSessionSocket wraps a fresh ephemeral-port socket with the loss model
// so that a transfer session can be exercised under packet loss.
func CreateSessionSocket(p float64, q float64) (net.PacketConn, error) {
	conn, err := messages.CreateSessionSocket()
	if err != nil {
		return nil, err
	}
	markovConn := &MarkovConn{
		UDPConn:     conn,
		P:           p,
		Q:           q,
		lastDropped: false,
	}
	return markovConn, nil
}

func CreateClientSocket(ip net.IP, port int, p float64, q float64) (net.Conn, error) {
	conn, err := messages.CreateClientSocket(ip, port)
	if err != nil {
		return nil, err
	}
	markovConn := &MarkovConn{
		UDPConn:     conn,
		P:           p,
		Q:           q,
		lastDropped: false,
	}
	return markovConn, nil
}
