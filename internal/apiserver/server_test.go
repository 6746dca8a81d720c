package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentkube/mockcluster/internal/api"
	"github.com/agentkube/mockcluster/internal/mockapi"
)

func newTestServer(t *testing.T, seed *mockapi.SeedData) *Server {
	t.Helper()
	if seed == nil {
		seed = &mockapi.SeedData{}
	}
	client, err := mockapi.New(mockapi.Options{
		ConnectLatency: time.Millisecond,
		StatusInterval: time.Hour,
		Seed:           seed,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background()))
	t.Cleanup(client.Disconnect)
	return NewServer(client)
}

func doJSON(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(rec, req)
	return rec
}

const modelAPIPath = "/apis/agents.example.dev/v1alpha1/modelapis"

func TestModelAPILifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)

	m := &api.ModelAPI{
		TypeMeta:   api.TypeMeta{Kind: "ModelAPI", APIVersion: api.GroupVersion},
		ObjectMeta: api.ObjectMeta{Name: "m1", Namespace: "ns"},
		Spec:       api.ModelAPISpec{Model: "test/model", Mode: "Raw"},
	}

	rec := doJSON(t, s, http.MethodPost, modelAPIPath, m)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created api.ModelAPI
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.UID)
	assert.Equal(t, "1", created.ResourceVersion)

	// Duplicate create conflicts.
	rec = doJSON(t, s, http.MethodPost, modelAPIPath, m)
	assert.Equal(t, http.StatusConflict, rec.Code)
	var status api.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, api.ReasonAlreadyExists, status.Reason)

	rec = doJSON(t, s, http.MethodGet, modelAPIPath+"/m1?namespace=ns", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Update with the current version, then replay the stale object.
	created.Spec.Mode = "OpenAI"
	rec = doJSON(t, s, http.MethodPut, modelAPIPath+"/m1", &created)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = doJSON(t, s, http.MethodPut, modelAPIPath+"/m1", &created)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, api.ReasonConflict, status.Reason)

	rec = doJSON(t, s, http.MethodDelete, modelAPIPath+"/m1?namespace=ns", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, s, http.MethodGet, modelAPIPath+"/m1?namespace=ns", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEnvelope(t *testing.T) {
	s := newTestServer(t, nil)

	for _, name := range []string{"a", "b"} {
		m := &api.ModelAPI{ObjectMeta: api.ObjectMeta{Name: name}, Spec: api.ModelAPISpec{Model: "m"}}
		rec := doJSON(t, s, http.MethodPost, modelAPIPath, m)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, s, http.MethodGet, modelAPIPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list api.ModelAPIList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, "2", list.ListMeta.ResourceVersion)
	assert.Len(t, list.Items, 2)
}

func TestCreateRequiresName(t *testing.T) {
	s := newTestServer(t, nil)
	rec := doJSON(t, s, http.MethodPost, modelAPIPath, &api.ModelAPI{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadOnlyKindsHaveNoWriteRoutes(t *testing.T) {
	seed := &mockapi.SeedData{Pods: []*api.Pod{{
		ObjectMeta: api.ObjectMeta{Name: "p1", Namespace: "ns"},
		Spec:       api.PodSpec{Containers: []api.Container{{Name: "web", Image: "nginx"}}},
	}}}
	s := newTestServer(t, seed)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/pods", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list api.PodList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Items, 1)

	rec = doJSON(t, s, http.MethodPost, "/api/v1/pods", list.Items[0])
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	rec = doJSON(t, s, http.MethodDelete, "/api/v1/pods/p1", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDisconnectedReturns401(t *testing.T) {
	s := newTestServer(t, nil)
	s.API.Disconnect()

	rec := doJSON(t, s, http.MethodGet, modelAPIPath, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var status api.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, api.ReasonUnauthorized, status.Reason)

	// Reconnect over HTTP and retry.
	rec = doJSON(t, s, http.MethodPost, "/-/connect", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, s, http.MethodGet, modelAPIPath, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPodLogsEndpoint(t *testing.T) {
	seed := &mockapi.SeedData{Pods: []*api.Pod{{
		ObjectMeta: api.ObjectMeta{Name: "p1", Namespace: "ns"},
		Spec:       api.PodSpec{Containers: []api.Container{{Name: "web", Image: "nginx"}}},
	}}}
	s := newTestServer(t, seed)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/namespaces/ns/pods/p1/log?tailLines=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, strings.Split(rec.Body.String(), "\n"), 7)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/namespaces/ns/pods/missing/log", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/v1/namespaces/ns/pods/p1/log?tailLines=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateHonorsNamespaceQuery(t *testing.T) {
	s := newTestServer(t, nil)

	m := &api.ModelAPI{
		ObjectMeta: api.ObjectMeta{Name: "m1", Namespace: "ns"},
		Spec:       api.ModelAPISpec{Model: "test/model", Mode: "Raw"},
	}
	rec := doJSON(t, s, http.MethodPost, modelAPIPath, m)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created api.ModelAPI
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// A body without metadata.namespace must target the namespace from the
	// query, not fall through to the default namespace.
	created.Namespace = ""
	created.Spec.Mode = "OpenAI"
	rec = doJSON(t, s, http.MethodPut, modelAPIPath+"/m1?namespace=ns", &created)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated api.ModelAPI
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "ns", updated.Namespace)
	assert.Equal(t, "OpenAI", updated.Spec.Mode)
}

// noFlushWriter hides the recorder's Flush so the handler sees a connection
// that cannot stream.
type noFlushWriter struct{ http.ResponseWriter }

func TestWatchWithoutFlusherFailsCleanly(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, modelAPIPath+"?watch=true", nil)
	rec := httptest.NewRecorder()
	s.Router.ServeHTTP(noFlushWriter{rec}, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var status api.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, api.ReasonInternalError, status.Reason)
}

func TestWatchStreamsEvents(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Router)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+modelAPIPath+"?watch=true", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Trigger a mutation once the stream is up.
	go func() {
		time.Sleep(50 * time.Millisecond)
		_, _ = s.API.CreateModelAPI(context.Background(), &api.ModelAPI{
			ObjectMeta: api.ObjectMeta{Name: "streamed"},
			Spec:       api.ModelAPISpec{Model: "m"},
		})
	}()

	var event struct {
		Type   string       `json:"type"`
		Object api.ModelAPI `json:"object"`
	}
	decoder := json.NewDecoder(resp.Body)
	require.NoError(t, decoder.Decode(&event))
	assert.Equal(t, "ADDED", event.Type)
	assert.Equal(t, "streamed", event.Object.Name)
}

func TestErrorBodyIsStructured(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodGet, modelAPIPath+"/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var status api.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, http.StatusNotFound, status.Code)
	assert.Equal(t, api.ReasonNotFound, status.Reason)
	assert.Equal(t, fmt.Sprintf("ModelAPI %q not found", "nope"), status.Message)
}
