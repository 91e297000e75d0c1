package server

import (
	"context"
	"net"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/undeconstructed/ludoist/comms"
)

func runTcpGateway(ctx context.Context, server *server, addr string) error {
	log := log.With().Str("gw", "tcp").Logger()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	log.Info().Msgf("comms listening on tcp:%v", ln.Addr())

	m := &tcpManager{
		server: server,
		log:    log,
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	err = m.Serve(ln)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

type tcpManager struct {
	server *server
	log    zerolog.Logger
}

func (m *tcpManager) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go m.manageTcpConnection(conn)
	}
}

func (m *tcpManager) manageTcpConnection(conn net.Conn) {
	log := m.log.With().Str("client", conn.RemoteAddr().String()).Logger()

	w := &tcpWire{
		conn: conn,
		dec:  comms.NewDecoder(conn),
		enc:  comms.NewEncoder(conn),
	}
	serveConn(m.server, w, log)
}

// tcpWire frames messages straight onto the socket.
type tcpWire struct {
	conn net.Conn
	dec  *comms.Decoder
	enc  *comms.Encoder
}

func (w *tcpWire) read() (comms.Message, error) {
	return w.dec.Decode()
}

func (w *tcpWire) send(msg comms.Message) error {
	return w.enc.Send(msg)
}

func (w *tcpWire) close() {
	w.conn.Close()
}
