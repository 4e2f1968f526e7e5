package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poiesic/butler/ai"
	"github.com/poiesic/butler/assistant"
	"github.com/poiesic/butler/core"
	"github.com/poiesic/butler/dispatch"
	"github.com/poiesic/butler/intent"
	"github.com/poiesic/butler/recipes"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	classification core.Classification
	classifyErr    error
	match          core.RecipeMatch
	retrieveErr    error
	text           string
	generateErr    error
	reply          assistant.Reply
	askErr         error

	gotParts []ai.Part
	gotAsk   assistant.Request
}

func (f *fakeService) ClassifyAndExtract(context.Context, string) (core.Classification, error) {
	return f.classification, f.classifyErr
}

func (f *fakeService) RetrieveDocument(context.Context, string) (core.RecipeMatch, error) {
	return f.match, f.retrieveErr
}

func (f *fakeService) Generate(_ context.Context, parts ...ai.Part) (string, error) {
	f.gotParts = parts
	return f.text, f.generateErr
}

func (f *fakeService) Ask(_ context.Context, req assistant.Request) (assistant.Reply, error) {
	f.gotAsk = req
	return f.reply, f.askErr
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	h := New(&fakeService{}).Handler()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestClassify(t *testing.T) {
	city := "臺北市"
	svc := &fakeService{classification: core.Classification{
		Intent: core.IntentWeather,
		Score:  0.8,
		Slots:  map[string]*string{core.SlotLocation: &city},
	}}
	h := New(svc).Handler()

	rec := post(t, h, "/v1/classify", `{"text":"台北天氣"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"intent":"weather","score":0.8,"slots":{"location":"臺北市"}}`, rec.Body.String())

	svc.classification.Slots = map[string]*string{core.SlotLocation: nil}
	rec = post(t, h, "/v1/classify", `{"text":"天氣"}`)
	assert.JSONEq(t, `{"intent":"weather","score":0.8,"slots":{"location":null}}`, rec.Body.String())
}

func TestClassify_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{"malformed body", `{"text":`, nil, http.StatusBadRequest, CodeBadRequest},
		{"empty text", `{"text":"  "}`, nil, http.StatusBadRequest, CodeBadRequest},
		{"embedding outage", `{"text":"hi"}`, fmt.Errorf("%w: boom", intent.ErrClassificationUnavailable), http.StatusServiceUnavailable, CodeUnavailable},
		{"unknown failure", `{"text":"hi"}`, errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(&fakeService{classifyErr: tt.err}).Handler()
			rec := post(t, h, "/v1/classify", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeBody(t, rec)["code"])
		})
	}
}

func TestSearchRecipes(t *testing.T) {
	dish := &core.Recipe{Name: "番茄炒蛋", Ingredients: "番茄、雞蛋"}

	t.Run("hit", func(t *testing.T) {
		h := New(&fakeService{match: core.RecipeMatch{Recipe: dish, Score: 0.9}}).Handler()
		rec := post(t, h, "/v1/recipes/search", `{"query":"番茄炒蛋"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"recipe":{"name":"番茄炒蛋","ingredients":"番茄、雞蛋"},"score":0.9}`, rec.Body.String())
	})

	t.Run("no match reports best score", func(t *testing.T) {
		svc := &fakeService{match: core.RecipeMatch{Recipe: dish, Score: 0.4}, retrieveErr: recipes.ErrNoMatch}
		rec := post(t, New(svc).Handler(), "/v1/recipes/search", `{"query":"火星菜"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, CodeNoMatch, body["code"])
		assert.InDelta(t, 0.4, body["score"], 1e-6)
	})

	t.Run("unavailable", func(t *testing.T) {
		svc := &fakeService{retrieveErr: fmt.Errorf("%w: no corpus", recipes.ErrRetrievalUnavailable)}
		rec := post(t, New(svc).Handler(), "/v1/recipes/search", `{"query":"番茄炒蛋"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestGenerate(t *testing.T) {
	svc := &fakeService{text: "你好"}
	h := New(svc).Handler()

	body, err := json.Marshal(generateRequest{
		Prompt:      "describe",
		Attachments: []attachment{{MIMEType: "image/png", Data: []byte{1, 2, 3}}},
	})
	require.NoError(t, err)
	rec := post(t, h, "/v1/generate", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "你好", decodeBody(t, rec)["text"])

	require.Len(t, svc.gotParts, 2)
	assert.Equal(t, ai.TextPart("describe"), svc.gotParts[0])
	assert.Equal(t, ai.BinaryPart("image/png", []byte{1, 2, 3}), svc.gotParts[1])
}

func TestGenerate_Exhausted(t *testing.T) {
	exhausted := &dispatch.ExhaustedError{Attempts: []dispatch.Attempt{
		{Backend: "a", Category: dispatch.CategoryQuota, Err: errors.New("429")},
	}}
	h := New(&fakeService{generateErr: exhausted}).Handler()

	rec := post(t, h, "/v1/generate", `{"prompt":"hi"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, CodeExhausted, body["code"])
	assert.Contains(t, body["message"], "429")

	rec = post(t, New(&fakeService{generateErr: dispatch.ErrNoBackends}).Handler(), "/v1/generate", `{"prompt":"hi"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAsk(t *testing.T) {
	svc := &fakeService{reply: assistant.Reply{
		Intent: core.IntentSearchNearby,
		Score:  0.7,
		Slots:  map[string]*string{},
		Text:   "導遊介紹",
	}}
	h := New(svc).Handler()

	rec := post(t, h, "/v1/ask", `{"user_id":"u1","text":"附近有什麼好玩","latitude":25.03,"longitude":121.56}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "導遊介紹", body["text"])
	assert.Equal(t, false, body["degraded"])

	assert.Equal(t, "u1", svc.gotAsk.UserID)
	require.NotNil(t, svc.gotAsk.Near)
	assert.True(t, svc.gotAsk.Near.HasCoords)
	assert.InDelta(t, 121.56, svc.gotAsk.Near.Longitude, 1e-9)

	rec = post(t, h, "/v1/ask", `{"text":"附近","city":"花蓮縣"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, &assistant.Location{City: "花蓮縣"}, svc.gotAsk.Near)

	rec = post(t, h, "/v1/ask", `{"text":"附近","latitude":25.03}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_http_requests_total"}, []string{"method", "path", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_http_request_duration_seconds"}, []string{"method", "path", "status"})
	reg.MustRegister(requests, latency)

	h := New(&fakeService{classification: core.Classification{Intent: core.IntentChat}},
		WithGatherer(reg), WithMetrics(requests, latency)).Handler()

	post(t, h, "/v1/classify", `{"text":"hi"}`)
	post(t, h, "/v1/classify", `{}`)
	assert.Equal(t, float64(1), testutil.ToFloat64(requests.WithLabelValues("POST", "/v1/classify", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(requests.WithLabelValues("POST", "/v1/classify", "400")))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	raw, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(raw, []byte("test_http_requests_total")))
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(&fakeService{}).ListenAndServe(ctx, "127.0.0.1:0", 0, 0)
	}()
	cancel()
	assert.NoError(t, <-done)
}
