package rpc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PixelboysTM/marvin-light-control/internal/config"
	"github.com/PixelboysTM/marvin-light-control/internal/coordination"
	"github.com/PixelboysTM/marvin-light-control/internal/dmx"
	"github.com/PixelboysTM/marvin-light-control/internal/service"
	"github.com/PixelboysTM/marvin-light-control/internal/universe"
)

func newTestProjectService(t *testing.T) (*ProjectService, *service.Service, *universe.Runtime) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	svc := service.NewService(cfg, testLogger())
	sd := coordination.NewShutdown(testLogger())
	adapt := coordination.NewAdapt(testLogger())
	rt := universe.NewRuntime(sd, adapt, svc, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go rt.Run(ctx)

	// Project-scoped calls are rejected against the default stub, so every test here
	// starts from a real opened project.
	ident, err := svc.Create("Test Rig", service.ProjectJSON)
	require.NoError(t, err)
	opened, err := svc.Open(ident)
	require.NoError(t, err)
	require.True(t, opened)

	return NewProjectService(svc, adapt, rt, sd), svc, rt
}

func Test_ProjectService_RejectsCallsWithoutValidProject(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	svc := service.NewService(cfg, testLogger())
	sd := coordination.NewShutdown(testLogger())
	adapt := coordination.NewAdapt(testLogger())
	rt := universe.NewRuntime(sd, adapt, svc, testLogger())

	p := NewProjectService(svc, adapt, rt, sd)
	client, server := pipeTransports()
	defer client.Close()

	go p.Serve(server, testLogger())

	ok, payload := callAndReadReply(t, client, 1, "universe_list", struct{}{})
	require.False(t, ok)

	var ce callError
	require.NoError(t, json.Unmarshal(payload, &ce))
	assert.Contains(t, ce.Message, "no valid project")
}

func Test_ProjectService_UniverseList(t *testing.T) {
	p, svc, _ := newTestProjectService(t)
	client, server := pipeTransports()
	defer client.Close()

	svc.WithProject(func(proj *service.Project) { proj.Universes = 2 })

	go p.Serve(server, testLogger())

	ok, payload := callAndReadReply(t, client, 1, "universe_list", struct{}{})
	require.True(t, ok)

	var resp universeListResponse
	require.NoError(t, json.Unmarshal(payload, &resp))
	assert.Equal(t, []uint16{1, 2}, resp.Universes)
}

func Test_ProjectService_GetAndUpdateSettings(t *testing.T) {
	p, _, _ := newTestProjectService(t)
	client, server := pipeTransports()
	defer client.Close()

	go p.Serve(server, testLogger())

	ok, payload := callAndReadReply(t, client, 1, "get_settings", struct{}{})
	require.True(t, ok)

	var current settingsWire
	require.NoError(t, json.Unmarshal(payload, &current))
	assert.False(t, current.SaveOnQuit)

	ms := int64(5000)
	ok, payload = callAndReadReply(t, client, 2, "update_settings", settingsWire{SaveOnQuit: true, AutosaveMs: &ms})
	require.True(t, ok)
	_ = payload

	ok, payload = callAndReadReply(t, client, 3, "get_settings", struct{}{})
	require.True(t, ok)

	var updated settingsWire
	require.NoError(t, json.Unmarshal(payload, &updated))
	assert.True(t, updated.SaveOnQuit)
	require.NotNil(t, updated.AutosaveMs)
	assert.Equal(t, int64(5000), *updated.AutosaveMs)
}

func Test_ProjectService_UniverseSub_ReceivesInitialEntireThenSingleWrite(t *testing.T) {
	p, _, _ := newTestProjectService(t)
	client, server := pipeTransports()
	defer client.Close()

	go p.Serve(server, testLogger())

	ok, payload := callAndReadReply(t, client, 1, "universe_sub", universeSubRequest{Universe: 1})
	require.True(t, ok)

	var sub universeSubResponse
	require.NoError(t, json.Unmarshal(payload, &sub))

	seen := map[uint16]byte{}
	deadline := time.After(time.Second)

	for len(seen) < 512 {
		kind, _, streamID, _, pushPayload, err := client.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, frameStreamData, kind)
		assert.Equal(t, sub.StreamID, streamID)

		var av addressValueWire
		require.NoError(t, json.Unmarshal(pushPayload, &av))
		seen[av.Address] = av.Value

		select {
		case <-deadline:
			t.Fatalf("timed out decomposing entire snapshot, got %d of 512", len(seen))
		default:
		}
	}

	require.NoError(t, client.WriteStream(sub.StreamID, addressValueWire{Address: 10, Value: 99}))

	deadline = time.After(time.Second)
	for {
		kind, _, streamID, _, pushPayload, err := client.ReadFrame()
		require.NoError(t, err)

		if kind != frameStreamData || streamID != sub.StreamID {
			continue
		}

		var av addressValueWire
		require.NoError(t, json.Unmarshal(pushPayload, &av))

		if av.Address == 10 && av.Value == 99 {
			return
		}

		select {
		case <-deadline:
			t.Fatal("timed out waiting for single-slot echo after write")
		default:
		}
	}
}

func Test_AppendWriteChunk_ValidatesAddresses(t *testing.T) {
	payload, err := json.Marshal(addressValueWire{Address: 5, Value: 9})
	require.NoError(t, err)

	chunks := appendWriteChunk(nil, frame{Payload: payload}, 1)
	require.Len(t, chunks, 1)
	assert.Equal(t, dmx.FixtureAddress{Universe: 1, Address: 5}, chunks[0].Address)
	assert.Equal(t, byte(9), chunks[0].Value)

	outOfRange, err := json.Marshal(addressValueWire{Address: 600, Value: 9})
	require.NoError(t, err)
	chunks = appendWriteChunk(chunks, frame{Payload: outOfRange}, 1)
	assert.Len(t, chunks, 1, "out-of-range addresses are dropped")

	chunks = appendWriteChunk(chunks, frame{Payload: []byte("{")}, 1)
	assert.Len(t, chunks, 1, "malformed payloads are dropped")
}

func Test_ProjectService_UnknownMethod(t *testing.T) {
	p, _, _ := newTestProjectService(t)
	client, server := pipeTransports()
	defer client.Close()

	go p.Serve(server, testLogger())

	ok, _ := callAndReadReply(t, client, 1, "nonexistent", struct{}{})
	assert.False(t, ok)
}
