package jasmin

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routemesh/sms-routing/internal/routing_service/domain"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	// Pacing disabled so tests run instantly.
	return NewClient(Config{BaseURL: server.URL}, logger)
}

func TestCreateDestinationFilter(t *testing.T) {
	var received filterPayload
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/filters/", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	})

	err := client.CreateDestinationFilter(context.Background(), "af404air1", "919100|919200")
	require.NoError(t, err)
	assert.Equal(t, "DestinationAddrFilter", received.Type)
	assert.Equal(t, "af404air1", received.FID)
	assert.Equal(t, "919100|919200", received.Parameter)
}

func TestCreateFilterAlreadyExists(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`Filter "af404air1" already exists`))
	})

	err := client.CreateDestinationFilter(context.Background(), "af404air1", "91")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreateFilterServerError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	})

	err := client.CreateGroupFilter(context.Background(), "acme_filter", "acme_group")
	var gatewayErr *domain.UpstreamGatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, "group_filter", gatewayErr.Step)
	assert.Equal(t, "acme_filter", gatewayErr.FilterID)
	assert.Equal(t, http.StatusInternalServerError, gatewayErr.StatusCode)
}

func TestFilterExists(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/filters/present/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	exists, err := client.FilterExists(context.Background(), "present")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = client.FilterExists(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateStaticMTRoute(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "StaticMTRoute", r.FormValue("type"))
		assert.Equal(t, "97123", r.FormValue("order"))
		assert.Equal(t, "0.02", r.FormValue("rate"))
		assert.Equal(t, "conn1", r.FormValue("smppconnectors"))
		assert.Equal(t, "af404air1,acme_filter", r.FormValue("filters"))
		w.WriteHeader(http.StatusCreated)
	})

	err := client.CreateStaticMTRoute(context.Background(), MTRouteRequest{
		Order:       97123,
		Rate:        0.02,
		ConnectorID: "conn1",
		FilterIDs:   []string{"af404air1", "acme_filter"},
	})
	require.NoError(t, err)
}

func TestSendExtractsMessageID(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+919100000001", r.FormValue("to"))
		assert.Equal(t, "ACME", r.FormValue("from"))
		_, _ = w.Write([]byte(`Success "07033084-5cfd-4812-90a4-e4d24ffb6e3d"`))
	})

	id, err := client.Send(context.Background(), SendRequest{
		To:      "+919100000001",
		From:    "ACME",
		Content: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "07033084-5cfd-4812-90a4-e4d24ffb6e3d", id)
}

func TestSendWithoutParseableIDFails(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Error: unknown route"))
	})

	_, err := client.Send(context.Background(), SendRequest{To: "+919100000001", From: "ACME", Content: "hello"})
	var gatewayErr *domain.UpstreamGatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, "send", gatewayErr.Step)
}

func TestSendUnicodeUsesHexContent(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "8", r.FormValue("coding"))
		assert.Empty(t, r.FormValue("content"))
		assert.NotEmpty(t, r.FormValue("hex-content"))
		_, _ = w.Write([]byte(`Success "abc123"`))
	})

	_, err := client.Send(context.Background(), SendRequest{To: "+919100000001", From: "ACME", Content: "سلام", Unicode: true})
	require.NoError(t, err)
}

func TestUCS2Hex(t *testing.T) {
	assert.Equal(t, "00480069", ucs2Hex("Hi"))
	// Non-BMP runes encode as surrogate pairs.
	assert.Equal(t, "D83DDE00", ucs2Hex("\U0001F600"))
}

func TestToggleConnector400IsSuccess(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/api/smppsconns/conn1/start/", r.URL.Path)
		// The gateway answers 400 for a connector that is already started.
		w.WriteHeader(http.StatusBadRequest)
	})

	err := client.StartConnector(context.Background(), "conn1")
	assert.NoError(t, err)
}

func TestStopConnectorServerErrorFails(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.StopConnector(context.Background(), "conn1")
	var gatewayErr *domain.UpstreamGatewayError
	assert.ErrorAs(t, err, &gatewayErr)
}

func TestListConnectors(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/smppsconns/", r.URL.Path)
		_, _ = w.Write([]byte(`{"connectors":[{"cid":"conn1","status":"started"},{"cid":"conn2","status":"stopped"}]}`))
	})

	infos, err := client.ListConnectors(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "conn1", infos[0].CID)
	assert.Equal(t, "stopped", infos[1].Status)
}
