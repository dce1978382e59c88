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
	"github.com/PixelboysTM/marvin-light-control/internal/service"
)

func newTestProjectSelectionService(t *testing.T) (*ProjectSelectionService, *service.Service, *coordination.Adapt) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	svc := service.NewService(cfg, testLogger())
	adapt := coordination.NewAdapt(testLogger())

	return NewProjectSelectionService(svc, adapt), svc, adapt
}

func Test_ProjectSelectionService_CreateThenListThenOpen(t *testing.T) {
	p, _, _ := newTestProjectSelectionService(t)
	client, server := pipeTransports()
	defer client.Close()

	go p.Serve(server, testLogger())

	ok, payload := callAndReadReply(t, client, 1, "create", createRequest{Name: "Touring Rig", Kind: int(service.ProjectJSON)})
	require.True(t, ok)

	var created createResponse
	require.NoError(t, json.Unmarshal(payload, &created))
	assert.NotEmpty(t, created.Ident)

	ok, payload = callAndReadReply(t, client, 2, "list", struct{}{})
	require.True(t, ok)

	var listed listResponse
	require.NoError(t, json.Unmarshal(payload, &listed))
	require.Len(t, listed.Projects, 1)
	assert.Equal(t, "Touring Rig", listed.Projects[0].Name)

	ok, payload = callAndReadReply(t, client, 3, "open", openRequest{Ident: created.Ident})
	require.True(t, ok)

	var opened boolResult
	require.NoError(t, json.Unmarshal(payload, &opened))
	assert.True(t, opened.Value)
}

func Test_ProjectSelectionService_Open_NotifiesAdapt(t *testing.T) {
	p, svc, adapt := newTestProjectSelectionService(t)
	client, server := pipeTransports()
	defer client.Close()

	ident, err := svc.Create("Rig", service.ProjectJSON)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	notified := make(chan error, 1)
	go func() {
		notified <- adapt.Wait(ctx, coordination.ScopeAll)
	}()

	time.Sleep(10 * time.Millisecond) // let the waiter register before open publishes

	go p.Serve(server, testLogger())

	ok, _ := callAndReadReply(t, client, 1, "open", openRequest{Ident: ident})
	assert.True(t, ok)

	require.NoError(t, <-notified)
}

func Test_ProjectSelectionService_Delete_RemovesFile(t *testing.T) {
	p, svc, _ := newTestProjectSelectionService(t)
	client, server := pipeTransports()
	defer client.Close()

	ident, err := svc.Create("Disposable", service.ProjectJSON)
	require.NoError(t, err)

	go p.Serve(server, testLogger())

	ok, _ := callAndReadReply(t, client, 1, "delete", deleteRequest{Ident: ident})
	require.True(t, ok)

	items, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func Test_ProjectSelectionService_UnknownMethod(t *testing.T) {
	p, _, _ := newTestProjectSelectionService(t)
	client, server := pipeTransports()
	defer client.Close()

	go p.Serve(server, testLogger())

	ok, _ := callAndReadReply(t, client, 1, "nonexistent", struct{}{})
	assert.False(t, ok)
}
