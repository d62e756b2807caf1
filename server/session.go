package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/MrSpock/tftp-server/messages"
)

var (
	// ErrTimeout is returned when the peer stayed silent through the whole
	// retransmission budget.
	ErrTimeout = errors.New("transfer timed out")
	// ErrPeerAborted is returned when the peer sent an ERROR packet. No reply
	// is sent in that case.
	ErrPeerAborted = errors.New("peer aborted the transfer")
	// ErrUnexpectedPacket is returned on a protocol violation: wrong block
	// number or wrong packet type for the current state.
	ErrUnexpectedPacket = errors.New("unexpected packet")
)

// session drives one transfer end-to-end on its own socket. It is created by
// the dispatcher and never shared.
type session struct {
	conn       net.PacketConn
	peer       net.Addr
	timeout    time.Duration
	maxRetries int
}

// sendFile runs a read transfer: DATA blocks go out starting at block number
// 1, each awaiting the matching ACK. A DATA payload shorter than 512 bytes is
// the final one. The file handle and the socket are released unconditionally.
func (t *session) sendFile(file io.ReadCloser) error {
	defer t.conn.Close()
	defer file.Close()

	blockNum := uint16(1)
	buf := make([]byte, messages.MaxPayloadSize)
	for {
		n, err := io.ReadFull(file, buf)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			t.abort(messages.NotDefined, "file read failed")
			return fmt.Errorf("error while reading from the file: %w", err)
		}
		data := messages.GetDATA(blockNum, buf[:n])
		if err := t.sendAwaitAck(data); err != nil {
			return err
		}
		if n < messages.MaxPayloadSize {
			// final short block acknowledged, EOF reached
			return nil
		}
		blockNum = messages.IncrBlockNum(blockNum)
	}
}

// sendAwaitAck transmits one DATA packet and blocks until the matching ACK
// arrives, retransmitting the same packet on every timeout.
func (t *session) sendAwaitAck(data messages.DATA) error {
	if err := messages.Send(t.conn, t.peer, data); err != nil {
		return err
	}
	retries := 0
	pkt, err := t.receive(data, &retries)
	if err != nil {
		return err
	}
	switch p := pkt.(type) {
	case messages.ACK:
		if p.BlockNum != data.BlockNum {
			t.abort(messages.IllegalOperation, "unexpected block number")
			return fmt.Errorf("%w: ACK for block %d while awaiting %d", ErrUnexpectedPacket, p.BlockNum, data.BlockNum)
		}
		return nil
	case messages.ERROR:
		return fmt.Errorf("%w: %d %s", ErrPeerAborted, p.Code, p.Message)
	default:
		t.abort(messages.IllegalOperation, "expected ACK")
		return fmt.Errorf("%w: %T while awaiting ACK", ErrUnexpectedPacket, pkt)
	}
}

// receiveFile runs a write transfer. Accepting the request is acknowledged
// with ACK(0) before any data arrives; after that every in-order DATA block
// is written out and acknowledged, and the last sent ACK is retransmitted on
// timeout. A short DATA payload completes the transfer.
func (t *session) receiveFile(file io.WriteCloser) error {
	defer t.conn.Close()
	defer file.Close()

	last := messages.GetACK(0)
	if err := messages.Send(t.conn, t.peer, last); err != nil {
		return err
	}
	blockNum := uint16(1)
	retries := 0
	for {
		pkt, err := t.receive(last, &retries)
		if err != nil {
			return err
		}
		switch p := pkt.(type) {
		case messages.DATA:
			if p.BlockNum != blockNum {
				t.abort(messages.IllegalOperation, "unexpected block number")
				return fmt.Errorf("%w: DATA block %d while awaiting %d", ErrUnexpectedPacket, p.BlockNum, blockNum)
			}
			if _, err := file.Write(p.Payload); err != nil {
				t.abort(messages.DiskFull, "file write failed")
				return fmt.Errorf("error while writing to the file: %w", err)
			}
			last = messages.GetACK(blockNum)
			if err := messages.Send(t.conn, t.peer, last); err != nil {
				return err
			}
			if len(p.Payload) < messages.MaxPayloadSize {
				return nil
			}
			blockNum = messages.IncrBlockNum(blockNum)
			retries = 0
		case messages.ERROR:
			return fmt.Errorf("%w: %d %s", ErrPeerAborted, p.Code, p.Message)
		default:
			t.abort(messages.IllegalOperation, "expected DATA")
			return fmt.Errorf("%w: %T while awaiting DATA", ErrUnexpectedPacket, pkt)
		}
	}
}

// receive waits for the next decodable datagram from the session's peer.
// Timeouts retransmit last and burn one retry; datagrams from any other
// address are ignored without consuming a retry. A datagram that does not
// decode is answered with an ERROR packet and ends the session.
func (t *session) receive(last messages.Packet, retries *int) (messages.Packet, error) {
	for {
		addr, data, err := messages.ServerReceive(t.conn, t.timeout)
		if os.IsTimeout(err) {
			*retries++
			if *retries > t.maxRetries {
				return nil, fmt.Errorf("%w: no reply after %d retransmissions", ErrTimeout, t.maxRetries)
			}
			if err := messages.Send(t.conn, t.peer, last); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("error while receiving from UDP socket: %w", err)
		}
		if addr.String() != t.peer.String() {
			// cross-talk from a different client, not ours to answer
			continue
		}

		pkt, err := messages.Parse(data)
		if err != nil {
			var e *messages.UnknownOpcodeError
			if errors.As(err, &e) {
				t.abort(messages.IllegalOperation, "illegal TFTP operation")
			} else {
				t.abort(messages.NotDefined, "malformed packet")
			}
			return nil, fmt.Errorf("error while parsing peer packet: %w", err)
		}
		return pkt, nil
	}
}

// abort sends a final ERROR packet to the peer. Best effort, the session is
// terminating either way.
func (t *session) abort(code uint16, message string) {
	messages.Send(t.conn, t.peer, messages.GetERROR(code, message))
}
