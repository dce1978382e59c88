package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/PixelboysTM/marvin-light-control/internal/apperrors"
	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
	"github.com/PixelboysTM/marvin-light-control/internal/coordination"
	"github.com/PixelboysTM/marvin-light-control/internal/service"
)

// ViewKind discriminates the two UI view modes is_valid_view checks against.
type ViewKind int

const (
	ViewProject ViewKind = iota
	ViewEdit
)

type isValidViewRequest struct {
	View ViewKind `json:"view"`
}

type boolResult struct {
	Value bool `json:"value"`
}

type streamRef struct {
	StreamID uint64 `json:"streamId"`
}

// callError is the payload carried by a !Ok frameReturn: typed error kinds (InvalidProject,
// SavingFailed, ...) are distinguished server-side via apperrors.Is against the wrapped error;
// the wire only needs the message, since nothing in this core consumes its own error
// responses.
type callError struct {
	Message string `json:"message"`
}

// GeneralService implements the general-purpose RPC surface: liveness, view validity, the
// Info/status watch subscriptions, and save.
type GeneralService struct {
	service  *service.Service
	shutdown *coordination.Shutdown
}

// NewGeneralService constructs the General service façade.
func NewGeneralService(svc *service.Service, shutdown *coordination.Shutdown) *GeneralService {
	return &GeneralService{service: svc, shutdown: shutdown}
}

// Serve dispatches call frames with concurrency 1 until the peer disconnects.
func (g *GeneralService) Serve(t *Transport, log logger.Logger) {
	log = log.WithComponent("general")

	for {
		f, ok := t.NextCall()
		if !ok {
			return
		}

		// The watch subscriptions reply with a stream id before their forwarders start,
		// so the peer never sees a push frame ahead of the reply that names the stream.
		if f.Method == "info" || f.Method == "status" {
			g.openPush(t, f)

			continue
		}

		resp, err := g.dispatch(f)
		if err != nil {
			log.Warn().Err(err).Str("method", f.Method).Msg("call failed")

			if replyErr := t.Reply(f.CallID, false, callError{Message: err.Error()}); replyErr != nil {
				return
			}

			continue
		}

		if err := t.Reply(f.CallID, true, resp); err != nil {
			return
		}
	}
}

func (g *GeneralService) dispatch(f frame) (any, error) {
	switch f.Method {
	case "alive":
		return struct{}{}, nil

	case "is_valid_view":
		var req isValidViewRequest
		if err := json.Unmarshal(f.Payload, &req); err != nil {
			return nil, err
		}

		valid := g.service.Valid()
		result := !valid
		if req.View == ViewEdit {
			result = valid
		}

		return boolResult{Value: result}, nil

	case "save":
		return g.save()

	default:
		return nil, apperrors.New("rpc: unknown method " + f.Method)
	}
}

// openPush allocates a push stream for an info/status subscription, replies with its id,
// and only then starts the forwarder.
func (g *GeneralService) openPush(t *Transport, f frame) {
	if f.Method == "status" {
		g.seedStatus()
	}

	id := t.NewPushStreamID()
	if err := t.Reply(f.CallID, true, streamRef{StreamID: id}); err != nil {
		return
	}

	if f.Method == "info" {
		go g.forwardInfo(t, id)
	} else {
		go g.forwardStatus(t, id)
	}
}

// forwardInfo pushes every published Info value to the caller's stream until Phase-1 or the
// peer disconnects, matching the Info watch channel's "late subscriber gets the current value
// immediately" semantics.
func (g *GeneralService) forwardInfo(t *Transport, id uint64) {
	sub := g.service.Info().Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = g.shutdown.Wait(ctx, coordination.PhaseOne)
		cancel()
	}()

	for {
		v, ok := sub.Recv(ctx)
		if !ok {
			return
		}

		if err := t.PushStream(id, v); err != nil {
			return
		}
	}
}

// seedStatus publishes a process resource line as the status channel's first value, so a
// subscriber connecting before anything else has reported sees uptime/RSS instead of an
// empty line. Later publications from loaders and save paths overwrite it as usual.
func (g *GeneralService) seedStatus() {
	if g.service.Status().Latest() != "" {
		return
	}

	g.service.Status().Publish(resourceLine())
}

// resourceLine renders the server process's uptime and resident set size.
func resourceLine() string {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return "serving"
	}

	line := "serving"
	if createdMs, err := proc.CreateTime(); err == nil {
		up := time.Since(time.UnixMilli(createdMs)).Round(time.Second)
		line = fmt.Sprintf("serving for %s", up)
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		line = fmt.Sprintf("%s, rss %d MiB", line, mem.RSS/(1<<20))
	}

	return line
}

func (g *GeneralService) forwardStatus(t *Transport, id uint64) {
	sub := g.service.Status().Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = g.shutdown.Wait(ctx, coordination.PhaseOne)
		cancel()
	}()

	for {
		v, ok := sub.Recv(ctx)
		if !ok {
			return
		}

		if err := t.PushStream(id, v); err != nil {
			return
		}
	}
}

// save returns false (not an error) when no valid project is loaded; any I/O/codec error
// during a save publishes Info::Warning and is also returned to the caller, since side
// effects stay visible even on error.
func (g *GeneralService) save() (any, error) {
	ok, err := g.service.Save()
	if err != nil {
		g.service.Info().Publish(service.WarningInfo("save failed", err.Error()))
		return nil, err
	}

	if ok {
		g.service.Info().Publish(service.SavedInfo())
		g.service.Status().Publish("project saved")
	}

	return boolResult{Value: ok}, nil
}
