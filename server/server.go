// Package server implements the TFTP server: a dispatcher listening on the
// well-known port that spawns one transfer session per accepted request, each
// session owning a dedicated ephemeral-port socket.
package server

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/MrSpock/tftp-server/markov"
	"github.com/MrSpock/tftp-server/messages"
	"github.com/MrSpock/tftp-server/storage"
)

const (
	DefaultTimeout         = 3 * time.Second
	DefaultRetransmissions = 5
)

type Server struct {
	Conn  net.PacketConn
	Store storage.Store

	// per-packet receive timeout and retransmission limit for sessions
	Timeout         time.Duration
	Retransmissions int

	// loss model parameters applied to session sockets
	MarkovP float64
	MarkovQ float64
}

// The values should be sanity checked before putting into this function:
// valid ip and port, markov p and q between 0 and 1, root_dir exists.
func Init(ip net.IP, port int, rootDir string, timeout time.Duration, retransmissions int, markovP float64, markovQ float64) (*Server, error) {
	if markovP > 1 || markovP < 0 || markovQ > 1 || markovQ < 0 {
		return nil, fmt.Errorf("p and/or q values for the markov chain are invalid")
	}
	store, err := storage.NewDir(rootDir)
	if err != nil {
		return nil, fmt.Errorf("error while opening the root directory: %w", err)
	}
	conn, err := markov.CreateServerSocket(ip, port, markovP, markovQ)
	if err != nil {
		return nil, fmt.Errorf("error while creating the socket: %w", err)
	}

	s := new(Server)
	s.Conn = conn
	s.Store = store
	s.Timeout = timeout
	s.Retransmissions = retransmissions
	s.MarkovP = markovP
	s.MarkovQ = markovQ
	return s, nil
}

// LocalAddr returns the address the dispatcher is bound to. Useful when the
// server was started on port 0.
func (s *Server) LocalAddr() net.Addr {
	return s.Conn.LocalAddr()
}

// Listen accepts initial requests until something is sent on the close
// channel. Sessions are fired off as independent goroutines; the only fatal
// condition is a failure of the listening socket itself.
func (s *Server) Listen(close chan bool) error {
	for cont(close) {
		// short timeout to be responsive to the close channel
		addr, data, err := messages.ServerReceive(s.Conn, 100*time.Millisecond)
		if os.IsTimeout(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("error while receiving from UDP socket: %w", err)
		}

		pkt, err := messages.Parse(data)
		if err != nil {
			var e1 *messages.MalformedPacketError
			var e2 *messages.UnknownOpcodeError
			switch {
			case errors.As(err, &e2):
				s.reply(addr, messages.GetERROR(messages.IllegalOperation, "illegal TFTP operation"))
			case errors.As(err, &e1):
				s.reply(addr, messages.GetERROR(messages.NotDefined, "malformed request"))
			default:
				log.Printf("error while parsing initial request from %v: %v", addr, err)
			}
			continue
		}

		switch msg := pkt.(type) {
		case messages.RRQ:
			s.handleRRQ(msg, addr)
		case messages.WRQ:
			s.handleWRQ(msg, addr)
		default:
			// DATA, ACK or ERROR cannot open a transfer
			s.reply(addr, messages.GetERROR(messages.IllegalOperation, "illegal TFTP operation"))
		}
	}
	return nil
}

func (s *Server) handleRRQ(msg messages.RRQ, addr net.Addr) {
	if msg.Mode != messages.ModeOctet {
		s.reply(addr, messages.GetERROR(messages.NotDefined, "only octet mode is supported"))
		return
	}
	file, err := s.Store.OpenRead(msg.Filename)
	if err != nil {
		s.reply(addr, openError(err))
		return
	}
	sess, err := s.newSession(addr)
	if err != nil {
		file.Close()
		log.Printf("error while creating session socket: %v", err)
		s.reply(addr, messages.GetERROR(messages.NotDefined, "could not open a transfer"))
		return
	}
	log.Printf("read transfer of %q to %v started", msg.Filename, addr)
	go func() {
		if err := sess.sendFile(file); err != nil {
			log.Printf("read transfer of %q to %v failed: %v", msg.Filename, addr, err)
			return
		}
		log.Printf("read transfer of %q to %v complete", msg.Filename, addr)
	}()
}

func (s *Server) handleWRQ(msg messages.WRQ, addr net.Addr) {
	if msg.Mode != messages.ModeOctet {
		s.reply(addr, messages.GetERROR(messages.NotDefined, "only octet mode is supported"))
		return
	}
	file, err := s.Store.CreateWrite(msg.Filename)
	if err != nil {
		s.reply(addr, openError(err))
		return
	}
	sess, err := s.newSession(addr)
	if err != nil {
		file.Close()
		log.Printf("error while creating session socket: %v", err)
		s.reply(addr, messages.GetERROR(messages.NotDefined, "could not open a transfer"))
		return
	}
	log.Printf("write transfer of %q from %v started", msg.Filename, addr)
	go func() {
		if err := sess.receiveFile(file); err != nil {
			log.Printf("write transfer of %q from %v failed: %v", msg.Filename, addr, err)
			return
		}
		log.Printf("write transfer of %q from %v complete", msg.Filename, addr)
	}()
}

func (s *Server) newSession(peer net.Addr) (*session, error) {
	conn, err := markov.CreateSessionSocket(s.MarkovP, s.MarkovQ)
	if err != nil {
		return nil, err
	}
	return &session{
		conn:       conn,
		peer:       peer,
		timeout:    s.Timeout,
		maxRetries: s.Retransmissions,
	}, nil
}

func (s *Server) reply(addr net.Addr, p messages.Packet) {
	if err := messages.Send(s.Conn, addr, p); err != nil {
		log.Printf("error while sending to %v: %v", addr, err)
	}
}

// openError converts a storage failure into the ERROR packet sent in place of
// a session.
func openError(err error) messages.ERROR {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return messages.GetERROR(messages.FileNotFound, "file not found")
	case errors.Is(err, storage.ErrPermissionDenied):
		return messages.GetERROR(messages.AccessViolation, "access violation")
	default:
		return messages.GetERROR(messages.NotDefined, "could not open file")
	}
}

func (s *Server) StopListening(cl chan bool) {
	cl <- false
}

// false if something is sent to the close channel, else otherwise
// whether to continue the loop in the Listen method
func cont(cl chan bool) bool {
	select {
	case <-cl:
		return false
	default:
		return true
	}
}
