package worker

import (
	"bytes"
	"context"
	"encoding/binary"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/danmuck/dprint-plugin-csharpier/internal/config"
	"github.com/danmuck/dprint-plugin-csharpier/internal/protocol"
	"github.com/danmuck/dprint-plugin-csharpier/internal/testutil/testlog"
)

func schemaRequest() []byte {
	return binary.BigEndian.AppendUint32(nil, 0)
}

func newTestService(t *testing.T, mutate func(*config.WorkerConfig)) *Service {
	t.Helper()
	cfg := config.DefaultWorkerConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := NewService(ServiceConfig{Worker: cfg, Version: "0.3.1", Transformer: upperCase})
	require.NoError(t, err)
	return svc
}

func TestServiceHandshakeThenServe(t *testing.T) {
	testlog.Start(t)
	svc := newTestService(t, nil)
	require.NotEmpty(t, svc.ID())

	in := append(schemaRequest(), encodeAll(t,
		registerDefault(1),
		&protocol.FormatText{MessageID: 2, ConfigID: 1, FileText: []byte("class a {}")},
		&protocol.Shutdown{MessageID: 3},
	)...)
	var out bytes.Buffer
	require.NoError(t, svc.Run(context.Background(), bytes.NewReader(in), &out))

	raw := out.Bytes()
	require.GreaterOrEqual(t, len(raw), 8)
	require.Equal(t, uint32(0), binary.BigEndian.Uint32(raw[0:4]))
	require.Equal(t, protocol.SchemaVersion, binary.BigEndian.Uint32(raw[4:8]))

	replies := decodeAll(t, raw[8:])
	require.Len(t, replies, 2)
	_, ok := replies[0].(*protocol.Success)
	require.True(t, ok)
	result, ok := replies[1].(*protocol.FormatTextResponse)
	require.True(t, ok)
	require.Equal(t, uint32(2), result.OriginalMessageID)
	require.Equal(t, "CLASS A {}", string(result.Content))
}

func TestServiceRejectsBadSchemaRequest(t *testing.T) {
	svc := newTestService(t, nil)
	in := binary.BigEndian.AppendUint32(nil, 9)
	err := svc.Run(context.Background(), bytes.NewReader(in), &bytes.Buffer{})
	require.ErrorIs(t, err, protocol.ErrSchemaRequest)
}

func TestServiceStopsOnInputEOF(t *testing.T) {
	svc := newTestService(t, nil)
	in := append(schemaRequest(), encodeAll(t, &protocol.Active{MessageID: 1})...)
	var out bytes.Buffer
	require.NoError(t, svc.Run(context.Background(), bytes.NewReader(in), &out))
	require.Len(t, decodeAll(t, out.Bytes()[8:]), 1)
}

func TestServiceWithMetricsListener(t *testing.T) {
	svc := newTestService(t, func(cfg *config.WorkerConfig) {
		cfg.Metrics.ListenAddr = "127.0.0.1:0"
	})
	in := append(schemaRequest(), encodeAll(t, &protocol.Active{MessageID: 1}, &protocol.Shutdown{MessageID: 2})...)
	require.NoError(t, svc.Run(context.Background(), bytes.NewReader(in), &bytes.Buffer{}))

	families, err := svc.Metrics().Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, family := range families {
		if family.GetName() == "dprint_csharpier_protocol_messages_total" {
			found = true
		}
	}
	require.True(t, found)
}

func TestServiceInvalidVersion(t *testing.T) {
	_, err := NewService(ServiceConfig{Worker: config.DefaultWorkerConfig(), Version: "dev", Transformer: upperCase})
	require.Error(t, err)
}

func TestServiceRoutes(t *testing.T) {
	svc := newTestService(t, nil)
	svc.Metrics().RecordMessage(protocol.KindActive.String())
	h := svc.routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "dprint_csharpier_protocol_messages_total")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
