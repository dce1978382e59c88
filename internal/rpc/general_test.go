package rpc

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PixelboysTM/marvin-light-control/internal/config"
	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
	"github.com/PixelboysTM/marvin-light-control/internal/coordination"
	"github.com/PixelboysTM/marvin-light-control/internal/service"
)

func testLogger() logger.Logger {
	return logger.NewLoggerWithOutput(config.DefaultConfig(), io.Discard)
}

func newTestGeneralService(t *testing.T) (*GeneralService, *service.Service, *coordination.Shutdown) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	svc := service.NewService(cfg, testLogger())
	sd := coordination.NewShutdown(testLogger())

	return NewGeneralService(svc, sd), svc, sd
}

func callAndReadReply(t *testing.T, client *Transport, id uint64, method string, req any) (bool, json.RawMessage) {
	t.Helper()

	require.NoError(t, client.Call(id, method, req))

	kind, callID, _, ok, payload, err := client.ReadFrame()
	require.NoError(t, err)
	require.Equal(t, frameReturn, kind)
	require.Equal(t, id, callID)

	return ok, payload
}

func Test_GeneralService_Alive(t *testing.T) {
	g, _, _ := newTestGeneralService(t)
	client, server := pipeTransports()
	defer client.Close()

	go g.Serve(server, testLogger())

	ok, _ := callAndReadReply(t, client, 1, "alive", struct{}{})
	assert.True(t, ok)
}

func Test_GeneralService_IsValidView_DefaultProjectIsInvalid(t *testing.T) {
	g, _, _ := newTestGeneralService(t)
	client, server := pipeTransports()
	defer client.Close()

	go g.Serve(server, testLogger())

	ok, payload := callAndReadReply(t, client, 1, "is_valid_view", isValidViewRequest{View: ViewProject})
	require.True(t, ok)

	var result boolResult
	require.NoError(t, json.Unmarshal(payload, &result))
	assert.True(t, result.Value)

	ok, payload = callAndReadReply(t, client, 2, "is_valid_view", isValidViewRequest{View: ViewEdit})
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(payload, &result))
	assert.False(t, result.Value)
}

func Test_GeneralService_Info_PushesCurrentValueImmediately(t *testing.T) {
	g, _, _ := newTestGeneralService(t)
	client, server := pipeTransports()
	defer client.Close()

	go g.Serve(server, testLogger())

	ok, payload := callAndReadReply(t, client, 1, "info", struct{}{})
	require.True(t, ok)

	var ref streamRef
	require.NoError(t, json.Unmarshal(payload, &ref))

	kind, _, streamID, _, infoPayload, err := client.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, frameStreamData, kind)
	assert.Equal(t, ref.StreamID, streamID)

	var info service.Info
	require.NoError(t, json.Unmarshal(infoPayload, &info))
	assert.Equal(t, service.InfoIdle, info.Kind)
}

func Test_GeneralService_Status_SeedsResourceLine(t *testing.T) {
	g, _, _ := newTestGeneralService(t)
	client, server := pipeTransports()
	defer client.Close()

	go g.Serve(server, testLogger())

	ok, payload := callAndReadReply(t, client, 1, "status", struct{}{})
	require.True(t, ok)

	var ref streamRef
	require.NoError(t, json.Unmarshal(payload, &ref))

	kind, _, streamID, _, statusPayload, err := client.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, frameStreamData, kind)
	assert.Equal(t, ref.StreamID, streamID)

	var line string
	require.NoError(t, json.Unmarshal(statusPayload, &line))
	assert.Contains(t, line, "serving")
}

func Test_GeneralService_Save_WithoutValidProjectReturnsFalse(t *testing.T) {
	g, _, _ := newTestGeneralService(t)
	client, server := pipeTransports()
	defer client.Close()

	go g.Serve(server, testLogger())

	ok, payload := callAndReadReply(t, client, 1, "save", struct{}{})
	require.True(t, ok)

	var result boolResult
	require.NoError(t, json.Unmarshal(payload, &result))
	assert.False(t, result.Value)
}

func Test_GeneralService_Save_PublishesSavedInfo(t *testing.T) {
	g, svc, _ := newTestGeneralService(t)
	client, server := pipeTransports()
	defer client.Close()

	ident, err := svc.Create("Rig", service.ProjectJSON)
	require.NoError(t, err)
	_, err = svc.Open(ident)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sub := svc.Info().Subscribe()
	_, _ = sub.Recv(ctx) // drain the idle value

	go g.Serve(server, testLogger())

	ok, payload := callAndReadReply(t, client, 1, "save", struct{}{})
	require.True(t, ok)

	var result boolResult
	require.NoError(t, json.Unmarshal(payload, &result))
	assert.True(t, result.Value)

	info, got := sub.Recv(ctx)
	require.True(t, got)
	assert.Equal(t, service.InfoSaved, info.Kind)
}

func Test_GeneralService_UnknownMethod(t *testing.T) {
	g, _, _ := newTestGeneralService(t)
	client, server := pipeTransports()
	defer client.Close()

	go g.Serve(server, testLogger())

	ok, _ := callAndReadReply(t, client, 1, "nonexistent", struct{}{})
	assert.False(t, ok)
}
