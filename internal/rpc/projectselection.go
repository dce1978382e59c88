package rpc

import (
	"encoding/json"

	"github.com/PixelboysTM/marvin-light-control/internal/apperrors"
	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
	"github.com/PixelboysTM/marvin-light-control/internal/coordination"
	"github.com/PixelboysTM/marvin-light-control/internal/service"
)

type createRequest struct {
	Name string `json:"name"`
	Kind int    `json:"kind"`
}

type createResponse struct {
	Ident string `json:"ident"`
}

type listResponse struct {
	Projects []service.ProjectMetadata `json:"projects"`
}

type openRequest struct {
	Ident string `json:"ident"`
}

type deleteRequest struct {
	Ident string `json:"ident"`
}

// ProjectSelectionService implements create/list/open/delete against the shared service
// object's project store. open is the only operation here that touches the adapt notifier:
// replacing the active project invalidates every downstream view.
type ProjectSelectionService struct {
	service *service.Service
	adapt   *coordination.Adapt
}

// NewProjectSelectionService constructs the ProjectSelection service façade.
func NewProjectSelectionService(svc *service.Service, adapt *coordination.Adapt) *ProjectSelectionService {
	return &ProjectSelectionService{service: svc, adapt: adapt}
}

// Serve dispatches call frames with concurrency 1 until the peer disconnects.
func (p *ProjectSelectionService) Serve(t *Transport, log logger.Logger) {
	log = log.WithComponent("project-selection")

	for {
		f, ok := t.NextCall()
		if !ok {
			return
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

func (p *ProjectSelectionService) dispatch(f frame) (any, error) {
	switch f.Method {
	case "create":
		var req createRequest
		if err := json.Unmarshal(f.Payload, &req); err != nil {
			return nil, err
		}

		ident, err := p.service.Create(req.Name, service.ProjectType(req.Kind))
		if err != nil {
			return nil, err
		}

		return createResponse{Ident: ident}, nil

	case "list":
		items, err := p.service.List()
		if err != nil {
			return nil, err
		}

		return listResponse{Projects: items}, nil

	case "open":
		var req openRequest
		if err := json.Unmarshal(f.Payload, &req); err != nil {
			return nil, err
		}

		ok, err := p.service.Open(req.Ident)
		if err != nil {
			return nil, err
		}

		if ok {
			p.adapt.Notify(coordination.ScopeAll)
		}

		return boolResult{Value: ok}, nil

	case "delete":
		var req deleteRequest
		if err := json.Unmarshal(f.Payload, &req); err != nil {
			return nil, err
		}

		if err := p.service.Delete(req.Ident); err != nil {
			return nil, err
		}

		return struct{}{}, nil

	default:
		return nil, apperrors.New("rpc: unknown method " + f.Method)
	}
}
