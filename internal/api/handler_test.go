package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modelport/modelport/internal/adapters/docker"
	"github.com/modelport/modelport/internal/adapters/etcd"
	"github.com/modelport/modelport/internal/application"
)

func newTestHandler() (*Handler, *application.EndpointService) {
	svc := application.NewEndpointService(
		etcd.NewMemoryEndpointStateStore(nil),
		docker.NewMockExecutor(),
		"modelport/serving-node:latest",
		9000,
	)
	return NewHandler(svc, etcd.NewMemoryIdempotencyKeyStore(time.Hour)), svc
}

func createBody(t *testing.T, name string) []byte {
	t.Helper()
	raw, err := json.Marshal(CreateEndpointRequest{
		EndpointName:    name,
		ArtifactURI:     "mem://models/models/" + name + ".tar.gz",
		EntryPoint:      "resnet152",
		InstanceType:    "ml.m4.xlarge",
		AcceleratorType: "ml.eia1.medium",
		InstanceCount:   1,
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return raw
}

func doRequest(h http.Handler, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoute(t *testing.T) {
	h, _ := newTestHandler()
	rec := doRequest(h, http.MethodGet, "/health/self", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreateGetDeleteEndpoint(t *testing.T) {
	h, svc := newTestHandler()

	rec := doRequest(h, http.MethodPost, "/api/1.0/int/endpoints", createBody(t, "resnet-ep"), nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var created EndpointView
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.State != "PENDING" {
		t.Fatalf("unexpected created view: %+v", created)
	}

	svc.AwaitLaunches()
	rec = doRequest(h, http.MethodGet, "/api/1.0/int/endpoints/resnet-ep", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var fetched EndpointView
	if err := json.Unmarshal(rec.Body.Bytes(), &fetched); err != nil {
		t.Fatalf("decode status response: %v", err)
	}
	if fetched.State != "IN_SERVICE" || fetched.Address == "" {
		t.Fatalf("unexpected status view: %+v", fetched)
	}

	rec = doRequest(h, http.MethodGet, "/api/1.0/int/endpoints", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list ListEndpointsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(list.Endpoints) != 1 {
		t.Fatalf("expected 1 endpoint, got %d", len(list.Endpoints))
	}

	rec = doRequest(h, http.MethodDelete, "/api/1.0/int/endpoints/resnet-ep", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(h, http.MethodGet, "/api/1.0/int/endpoints/resnet-ep", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after teardown, got %d", rec.Code)
	}
}

func TestCreateEndpointRejectsBadDescriptor(t *testing.T) {
	h, _ := newTestHandler()

	body := createBody(t, "resnet-ep")
	body = bytes.Replace(body, []byte("ml.m4.xlarge"), []byte("ml.z9.mega"), 1)
	rec := doRequest(h, http.MethodPost, "/api/1.0/int/endpoints", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateEndpointUnsupportedEnv(t *testing.T) {
	h, _ := newTestHandler()
	rec := doRequest(h, http.MethodPost, "/api/1.0/staging/endpoints", createBody(t, "resnet-ep"), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported env, got %d", rec.Code)
	}
}

func TestIdempotentCreateReplaysResponse(t *testing.T) {
	h, _ := newTestHandler()
	body := createBody(t, "resnet-ep")
	headers := map[string]string{"X-Idempotency-Key": "key-1"}

	first := doRequest(h, http.MethodPost, "/api/1.0/int/endpoints", body, headers)
	if first.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", first.Code, first.Body.String())
	}

	// Same key, same body: served from the stored response, not a second
	// deploy (which would 409 on the duplicate name).
	second := doRequest(h, http.MethodPost, "/api/1.0/int/endpoints", body, headers)
	if second.Code != http.StatusAccepted {
		t.Fatalf("expected replayed 202, got %d: %s", second.Code, second.Body.String())
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Fatalf("replayed body differs from original")
	}

	// Same key, different body: rejected.
	other := createBody(t, "other-ep")
	third := doRequest(h, http.MethodPost, "/api/1.0/int/endpoints", other, headers)
	if third.Code != http.StatusConflict {
		t.Fatalf("expected 409 for key reuse, got %d", third.Code)
	}
}

func TestDuplicateCreateWithoutKeyConflicts(t *testing.T) {
	h, _ := newTestHandler()
	body := createBody(t, "resnet-ep")

	if rec := doRequest(h, http.MethodPost, "/api/1.0/int/endpoints", body, nil); rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if rec := doRequest(h, http.MethodPost, "/api/1.0/int/endpoints", body, nil); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate name, got %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	h, _ := newTestHandler()
	rec := doRequest(h, http.MethodGet, "/api/1.0/int/models", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
