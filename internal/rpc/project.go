package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/PixelboysTM/marvin-light-control/internal/apperrors"
	"github.com/PixelboysTM/marvin-light-control/internal/config"
	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
	"github.com/PixelboysTM/marvin-light-control/internal/coordination"
	"github.com/PixelboysTM/marvin-light-control/internal/dmx"
	"github.com/PixelboysTM/marvin-light-control/internal/service"
	"github.com/PixelboysTM/marvin-light-control/internal/universe"
)

type idsRequest struct {
	Ids []string `json:"ids"`
}

type missingResponse struct {
	Missing []string `json:"missing"`
}

type blueprintHeadsResponse struct {
	Blueprints []service.FixtureBlueprintHead `json:"blueprints"`
}

type blueprintsResponse struct {
	Blueprints []service.FixtureBlueprint `json:"blueprints"`
}

type universeListResponse struct {
	Universes []uint16 `json:"universes"`
}

type universeSubRequest struct {
	Universe uint16 `json:"universe"`
}

type universeSubResponse struct {
	StreamID uint64 `json:"streamId"`
}

type addressValueWire struct {
	Address uint16 `json:"address"`
	Value   byte   `json:"value"`
}

type settingsWire struct {
	SaveOnQuit bool   `json:"saveOnQuit"`
	AutosaveMs *int64 `json:"autosaveMs,omitempty"`
}

func settingsFromDomain(s service.Settings) settingsWire {
	w := settingsWire{SaveOnQuit: s.SaveOnQuit}
	if s.Autosave != nil {
		ms := s.Autosave.Milliseconds()
		w.AutosaveMs = &ms
	}

	return w
}

func (w settingsWire) toDomain() service.Settings {
	s := service.Settings{SaveOnQuit: w.SaveOnQuit}
	if w.AutosaveMs != nil {
		d := time.Duration(*w.AutosaveMs) * time.Millisecond
		s.Autosave = &d
	}

	return s
}

type metaResponse struct {
	Meta service.ProjectMetadata `json:"meta"`
}

// ProjectService implements every operation scoped to the currently open project: fixture
// blueprint import/listing, universe enumeration and subscription, and settings.
type ProjectService struct {
	service  *service.Service
	adapt    *coordination.Adapt
	runtime  *universe.Runtime
	shutdown *coordination.Shutdown
}

// NewProjectService constructs the Project service façade.
func NewProjectService(
	svc *service.Service,
	adapt *coordination.Adapt,
	runtime *universe.Runtime,
	shutdown *coordination.Shutdown,
) *ProjectService {
	return &ProjectService{service: svc, adapt: adapt, runtime: runtime, shutdown: shutdown}
}

// Serve dispatches call frames with concurrency 1 until the peer disconnects. universe_sub
// is the one method that hands off to a long-lived bridge goroutine instead of answering
// inline; every other method answers directly off the dispatch loop.
func (p *ProjectService) Serve(t *Transport, log logger.Logger) {
	log = log.WithComponent("project")

	for {
		f, ok := t.NextCall()
		if !ok {
			return
		}

		// Every method here is scoped to the open project; none may run against the
		// default stub, so validity is checked once before dispatch instead of per method.
		if !p.service.Valid() {
			log.Warn().Str("method", f.Method).Msg("call rejected, no valid project")

			if replyErr := t.Reply(f.CallID, false, callError{Message: apperrors.ErrInvalidProject.Error()}); replyErr != nil {
				return
			}

			continue
		}

		if f.Method == "universe_sub" {
			if err := p.universeSub(t, f); err != nil {
				log.Warn().Err(err).Msg("universe_sub failed")
				_ = t.Reply(f.CallID, false, callError{Message: err.Error()})
			}

			continue
		}

		resp, err := p.dispatch(f)
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

func (p *ProjectService) dispatch(f frame) (any, error) {
	switch f.Method {
	case "list_available_fixture_blueprints":
		heads, err := p.service.OFL().ListAvailable()
		if err != nil {
			return nil, err
		}

		return blueprintHeadsResponse{Blueprints: heads}, nil

	case "import_fixture_blueprints":
		var req idsRequest
		if err := json.Unmarshal(f.Payload, &req); err != nil {
			return nil, err
		}

		missing, err := p.service.ImportFixtureBlueprints(req.Ids)
		if err != nil {
			return nil, err
		}

		if len(missing) > 0 {
			p.service.Info().Publish(service.WarningInfo(
				"missing fixture blueprints",
				"some requested identifiers were not found in the library index",
			))
		}

		return missingResponse{Missing: missing}, nil

	case "list_blueprints":
		return blueprintsResponse{Blueprints: p.service.ListBlueprints()}, nil

	case "universe_list":
		return universeListResponse{Universes: p.service.UniverseList()}, nil

	case "get_settings":
		return settingsFromDomain(p.service.GetSettings()), nil

	case "update_settings":
		var req settingsWire
		if err := json.Unmarshal(f.Payload, &req); err != nil {
			return nil, err
		}

		p.service.UpdateSettings(req.toDomain())
		p.adapt.Notify(coordination.ScopeSettings)

		return struct{}{}, nil

	case "get_meta":
		return metaResponse{Meta: p.service.GetMeta()}, nil

	default:
		return nil, apperrors.New("rpc: unknown method " + f.Method)
	}
}

// universeSub opens a bidirectional stream for universe u: the caller writes single-slot
// updates in via frameStreamWrite, and receives every update touching u (Entire snapshots
// decomposed into per-address pushes) until it cancels or disconnects. The reply carrying
// the stream id is written before the bridge starts, so the peer never sees a push frame
// for a stream it hasn't been told about. The initial Entire snapshot triggered by the
// subscription waits buffered until the bridge drains it.
func (p *ProjectService) universeSub(t *Transport, f frame) error {
	var req universeSubRequest
	if err := json.Unmarshal(f.Payload, &req); err != nil {
		return err
	}

	streamID, inbox, cancel := t.OpenStream()
	sub := p.runtime.SubscribeUniverse(dmx.UniverseID(req.Universe))

	if err := t.Reply(f.CallID, true, universeSubResponse{StreamID: streamID}); err != nil {
		cancel()
		sub.Close()

		return nil
	}

	go p.bridgeUniverseSub(t, streamID, inbox, cancel, sub, dmx.UniverseID(req.Universe))

	return nil
}

func (p *ProjectService) bridgeUniverseSub(
	t *Transport,
	streamID uint64,
	inbox <-chan frame,
	cancel func(),
	sub *universe.UniverseUpdateSubscriber,
	universeID dmx.UniverseID,
) {
	defer cancel()
	defer sub.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go func() {
		_ = p.shutdown.Wait(ctx, coordination.PhaseOne)
		stop()
	}()

	go p.pumpUniverseWrites(ctx, inbox, universeID)

	for {
		update, ok := sub.Recv(ctx)
		if !ok {
			return
		}

		if err := p.emitUpdate(t, streamID, update); err != nil {
			return
		}
	}
}

// pumpUniverseWrites routes every inbound frameStreamWrite into the runtime's command
// queue, the write half of universe_sub's bidirectional contract. Writes already queued
// behind the first one are coalesced into a single Many command, so a client blasting a
// fader sweep costs one queue entry per drain instead of one per slot. Malformed frames
// and out-of-range addresses are dropped.
func (p *ProjectService) pumpUniverseWrites(ctx context.Context, inbox <-chan frame, universeID dmx.UniverseID) {
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-inbox:
			if !ok {
				return
			}

			chunks := appendWriteChunk(nil, f, universeID)

		drain:
			for {
				select {
				case more, ok := <-inbox:
					if !ok {
						break drain
					}
					chunks = appendWriteChunk(chunks, more, universeID)
				default:
					break drain
				}
			}

			switch len(chunks) {
			case 0:
			case 1:
				p.runtime.Cmd(dmx.UpdateDataCommand(dmx.SingleUpdate(chunks[0].Address, chunks[0].Value)))
			default:
				p.runtime.Cmd(dmx.UpdateDataCommand(dmx.ManyUpdate(chunks)))
			}
		}
	}
}

// appendWriteChunk decodes one inbound write frame into a validated update chunk for the
// bridged universe, dropping it if the payload is malformed or the address out of range.
func appendWriteChunk(chunks []dmx.UpdateChunk, f frame, universeID dmx.UniverseID) []dmx.UpdateChunk {
	var av addressValueWire
	if err := json.Unmarshal(f.Payload, &av); err != nil {
		return chunks
	}

	addr, err := dmx.NewFixtureAddress(universeID, dmx.Address(av.Address))
	if err != nil {
		return chunks
	}

	return append(chunks, dmx.UpdateChunk{Address: addr, Value: av.Value})
}

// emitUpdate pushes update onto streamID, decomposing an Entire snapshot into one
// addressValueWire push per slot so the wire never needs a 512-byte-array frame shape.
func (p *ProjectService) emitUpdate(t *Transport, streamID uint64, update dmx.UniverseUpdate) error {
	switch update.Kind {
	case dmx.UpdateSingle:
		return t.PushStream(streamID, addressValueWire{
			Address: uint16(update.Single.Address.Address),
			Value:   update.Single.Value,
		})

	case dmx.UpdateMany:
		for _, c := range update.Many {
			if err := t.PushStream(streamID, addressValueWire{Address: uint16(c.Address.Address), Value: c.Value}); err != nil {
				return err
			}
		}

		return nil

	case dmx.UpdateEntire:
		for addr := config.MinAddress; addr <= config.MaxAddress; addr++ {
			value, ok := update.Entire.Slot(dmx.Address(addr))
			if !ok {
				continue
			}

			if err := t.PushStream(streamID, addressValueWire{Address: uint16(addr), Value: value}); err != nil {
				return err
			}
		}

		return nil

	default:
		return nil
	}
}
