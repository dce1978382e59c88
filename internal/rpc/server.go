package rpc

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/PixelboysTM/marvin-light-control/internal/apperrors"
	"github.com/PixelboysTM/marvin-light-control/internal/config"
	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
	"github.com/PixelboysTM/marvin-light-control/internal/coordination"
	"github.com/PixelboysTM/marvin-light-control/internal/dmx"
)

// ConnServer is implemented by each of the three service bootstraps. Serve owns the
// connection for its lifetime: it dispatches call frames with concurrency 1 until the peer
// disconnects or the transport closes.
type ConnServer interface {
	Serve(t *Transport, log logger.Logger)
}

// Listener accepts TCP connections, reads the 5-byte service identifier handshake, and hands
// the rest of the connection to the matching service bootstrap.
type Listener struct {
	port     int
	shutdown *coordination.Shutdown
	services map[dmx.ServiceIdentifier]ConnServer
	log      logger.Logger

	stopping atomic.Bool
}

// NewListener wires the three service façades behind their identifiers.
func NewListener(
	cfg *config.Config,
	shutdown *coordination.Shutdown,
	general *GeneralService,
	selection *ProjectSelectionService,
	project *ProjectService,
	log logger.Logger,
) *Listener {
	return &Listener{
		port:     cfg.Server.Port,
		shutdown: shutdown,
		services: map[dmx.ServiceIdentifier]ConnServer{
			dmx.ServiceGeneral:          general,
			dmx.ServiceProjectSelection: selection,
			dmx.ServiceProject:          project,
		},
		log: log.WithComponent("rpc"),
	}
}

// Run binds the listener and accepts connections until Phase-1, then awaits Phase-2 before
// returning.
func (l *Listener) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", config.ListenHost, l.port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrListenerBindFailed, err)
	}

	l.log.Info().Str("addr", addr).Msg("rpc listener bound")

	go func() {
		_ = l.shutdown.Wait(ctx, coordination.PhaseOne)
		l.stopping.Store(true)
		_ = ln.Close()
	}()

	var wg sync.WaitGroup

	for {
		conn, err := ln.Accept()
		if err != nil {
			if l.stopping.Load() {
				break
			}

			l.log.Warn().Err(err).Msg("accept failed")

			continue
		}

		wg.Add(1)

		go func() {
			defer wg.Done()
			l.handle(conn)
		}()
	}

	l.log.Info().Msg("rpc listener stopped accepting, awaiting phase2")
	_ = l.shutdown.Wait(ctx, coordination.PhaseTwo)
	wg.Wait()

	return nil
}

func (l *Listener) handle(conn net.Conn) {
	defer conn.Close()

	var tag [5]byte
	if _, err := io.ReadFull(conn, tag[:]); err != nil {
		l.log.Warn().Err(err).Msg("rpc handshake failed")

		return
	}

	id := dmx.ServiceIdentifier(tag)

	svc, ok := l.services[id]
	if !ok {
		l.log.Warn().Str("tag", id.String()).Msg("unknown service identifier")

		return
	}

	t := NewTransport(conn)
	go t.ReadLoop()

	svc.Serve(t, l.log)
}
