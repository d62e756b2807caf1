// Package client implements the client side of a TFTP exchange: fetching a
// file with a read request and uploading one with a write request, using the
// same timeout and retransmission discipline as the server sessions.
package client

import (
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/MrSpock/tftp-server/markov"
	"github.com/MrSpock/tftp-server/messages"
)

type Config struct {
	// Per-packet receive timeout.
	Timeout time.Duration
	// How often a packet is sent again before the transfer is given up.
	Retransmissions int
	// Loss probabilities for the Markov chain model, zero for a lossless
	// socket.
	MarkovP float64
	MarkovQ float64
}

var DefaultConfig = Config{
	Timeout:         3 * time.Second,
	Retransmissions: 5,
}

// transfer is the client half of one exchange. The initial request goes to
// the server's well-known port; the reply arrives from a session's ephemeral
// port, which becomes the peer for the rest of the transfer. The socket is
// deliberately unconnected for that reason.
type transfer struct {
	conn   net.PacketConn
	server net.Addr
	peer   net.Addr
	config *Config
}

func newTransfer(host net.IP, port int, config *Config) (*transfer, error) {
	conn, err := markov.CreateSessionSocket(config.MarkovP, config.MarkovQ)
	if err != nil {
		return nil, fmt.Errorf("create client socket: %w", err)
	}
	return &transfer{
		conn:   conn,
		server: &net.UDPAddr{IP: host, Port: port},
		config: config,
	}, nil
}

// target is where the next packet goes: the session peer once known, the
// server's well-known port before that.
func (t *transfer) target() net.Addr {
	if t.peer != nil {
		return t.peer
	}
	return t.server
}

// receive waits for the next packet from the transfer's peer, retransmitting
// last on every timeout. The first reply of the exchange fixes the peer
// address; packets from anyone else are ignored.
func (t *transfer) receive(last messages.Packet) (messages.Packet, error) {
	retries := 0
	for {
		addr, data, err := messages.ServerReceive(t.conn, t.config.Timeout)
		if os.IsTimeout(err) {
			retries++
			if retries > t.config.Retransmissions {
				return nil, fmt.Errorf("no reply from server after %d retransmissions", t.config.Retransmissions)
			}
			if last != nil {
				if err := messages.Send(t.conn, t.target(), last); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("receive: %w", err)
		}
		if t.peer == nil {
			t.peer = addr
		} else if addr.String() != t.peer.String() {
			continue
		}

		pkt, err := messages.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse server packet: %w", err)
		}
		return pkt, nil
	}
}

// FetchFile requests remoteName from the server at host:port and writes the
// received bytes to localName. The local file is removed again when the
// transfer fails partway.
func FetchFile(host net.IP, port int, remoteName string, localName string, config *Config) error {
	t, err := newTransfer(host, port, config)
	if err != nil {
		return err
	}
	defer t.conn.Close()

	localFile, err := os.Create(localName)
	if err != nil {
		return fmt.Errorf("open file %s: %w", localName, err)
	}
	defer localFile.Close()

	if err := t.fetch(remoteName, localFile); err != nil {
		os.Remove(localName)
		return fmt.Errorf("fetch %q: %w", remoteName, err)
	}
	return nil
}

func (t *transfer) fetch(remoteName string, localFile io.Writer) error {
	rrq := messages.GetRRQ(remoteName, messages.ModeOctet)
	if err := messages.Send(t.conn, t.server, rrq); err != nil {
		return err
	}

	expected := uint16(1)
	// retransmitted on timeout; starts out as the request itself
	var last messages.Packet = rrq
	for {
		pkt, err := t.receive(last)
		if err != nil {
			return err
		}
		switch p := pkt.(type) {
		case messages.DATA:
			if lastAck, ok := last.(messages.ACK); ok && p.BlockNum == lastAck.BlockNum {
				// our previous ACK was lost, answer the repeat
				if err := messages.Send(t.conn, t.peer, lastAck); err != nil {
					return err
				}
				continue
			}
			if p.BlockNum != expected {
				return fmt.Errorf("expected block %d, got %d", expected, p.BlockNum)
			}
			if _, err := localFile.Write(p.Payload); err != nil {
				return fmt.Errorf("write local file: %w", err)
			}
			ack := messages.GetACK(expected)
			if err := messages.Send(t.conn, t.peer, ack); err != nil {
				return err
			}
			if len(p.Payload) < messages.MaxPayloadSize {
				return nil
			}
			expected = messages.IncrBlockNum(expected)
			last = ack
		case messages.ERROR:
			return fmt.Errorf("server aborted the transfer: %d %s", p.Code, p.Message)
		default:
			return fmt.Errorf("expected DATA, got %T", pkt)
		}
	}
}

// PutFile uploads localName to the server at host:port under remoteName.
func PutFile(host net.IP, port int, localName string, remoteName string, config *Config) error {
	t, err := newTransfer(host, port, config)
	if err != nil {
		return err
	}
	defer t.conn.Close()

	localFile, err := os.Open(localName)
	if err != nil {
		return fmt.Errorf("open file %s: %w", localName, err)
	}
	defer localFile.Close()

	if err := t.put(remoteName, localFile); err != nil {
		return fmt.Errorf("put %q: %w", remoteName, err)
	}
	return nil
}

func (t *transfer) put(remoteName string, localFile io.Reader) error {
	wrq := messages.GetWRQ(remoteName, messages.ModeOctet)
	if err := t.sendAwaitAck(wrq, 0); err != nil {
		return err
	}

	blockNum := uint16(1)
	buf := make([]byte, messages.MaxPayloadSize)
	for {
		n, err := io.ReadFull(localFile, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return fmt.Errorf("read local file: %w", err)
		}
		data := messages.GetDATA(blockNum, buf[:n])
		if err := t.sendAwaitAck(data, blockNum); err != nil {
			return err
		}
		if n < messages.MaxPayloadSize {
			return nil
		}
		blockNum = messages.IncrBlockNum(blockNum)
	}
}

// sendAwaitAck transmits one packet and waits for the ACK carrying blockNum,
// sending the same packet again on each timeout.
func (t *transfer) sendAwaitAck(p messages.Packet, blockNum uint16) error {
	if err := messages.Send(t.conn, t.target(), p); err != nil {
		return err
	}
	for {
		pkt, err := t.receive(p)
		if err != nil {
			return fmt.Errorf("awaiting ACK for block %d: %w", blockNum, err)
		}
		switch r := pkt.(type) {
		case messages.ACK:
			if r.BlockNum != blockNum {
				// stale ACK from an earlier exchange, keep waiting
				continue
			}
			return nil
		case messages.ERROR:
			return fmt.Errorf("server aborted the transfer: %d %s", r.Code, r.Message)
		default:
			return fmt.Errorf("expected ACK, got %T", pkt)
		}
	}
}
