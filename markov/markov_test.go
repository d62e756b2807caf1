package markov_test

import (
	"net"
	"testing"
	"time"

	"github.com/MrSpock/tftp-server/markov"
)

func TestCreateServerSocket(t *testing.T) {
	var conn net.PacketConn
	conn, err := markov.CreateServerSocket(net.ParseIP("127.0.0.100"), 16970, 0.5, 0.6)
	if err != nil {
		t.Fatalf("Could not create server socket: %v", err)
	}
	err = conn.Close()
	if err != nil {
		t.Fatalf("Could not close server socket: %v", err)
	}
}

func TestCreateClientSocket(t *testing.T) {
	var conn net.Conn
	conn, err := markov.CreateClientSocket(net.ParseIP("127.0.0.100"), 16970, 0.5, 0.6)
	if err != nil {
		t.Fatalf("Could not create client socket: %v", err)
	}
	err = conn.Close()
	if err != nil {
		t.Fatalf("Could not close client socket: %v", err)
	}
}

func TestCreateSessionSocket(t *testing.T) {
	conn, err := markov.CreateSessionSocket(0, 0)
	if err != nil {
		t.Fatalf("Could not create session socket: %v", err)
	}
	if conn.LocalAddr().(*net.UDPAddr).Port == 0 {
		t.Fatalf("Session socket should be bound to an ephemeral port")
	}
	err = conn.Close()
	if err != nil {
		t.Fatalf("Could not close session socket: %v", err)
	}
}

// With p=1 and q=1 every packet is dropped; with p=0 and q=0 everything goes
// through.
func TestDropBehaviour(t *testing.T) {
	receiver, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("Could not create receiver socket: %v", err)
	}
	defer receiver.Close()

	lossless, err := markov.CreateSessionSocket(0, 0)
	if err != nil {
		t.Fatalf("Could not create lossless socket: %v", err)
	}
	defer lossless.Close()

	lossy, err := markov.CreateSessionSocket(1, 1)
	if err != nil {
		t.Fatalf("Could not create lossy socket: %v", err)
	}
	defer lossy.Close()

	payload := []byte("ping")
	if _, err := lossy.WriteTo(payload, receiver.LocalAddr()); err != nil {
		t.Fatalf("Error while sending on lossy socket: %v", err)
	}
	if _, err := lossless.WriteTo(payload, receiver.LocalAddr()); err != nil {
		t.Fatalf("Error while sending on lossless socket: %v", err)
	}

	// only the lossless packet may arrive
	receiver.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 64)
	n, addr, err := receiver.ReadFrom(buf)
	if err != nil {
		t.Fatalf("Error while receiving: %v", err)
	}
	// the session sockets bind the wildcard address, compare ports
	if addr.(*net.UDPAddr).Port != lossless.LocalAddr().(*net.UDPAddr).Port {
		t.Fatalf("Received a packet that the loss model should have dropped (from %v)", addr)
	}
	if string(buf[:n]) != "ping" {
		t.Fatalf("Payload missmatch: %q", buf[:n])
	}

	// and nothing else
	receiver.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := receiver.ReadFrom(buf); err == nil {
		t.Fatalf("A second packet arrived although it should have been dropped")
	}
}
