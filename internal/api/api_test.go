package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/digital-twin/internal/campaign"
	"github.com/Veraticus/digital-twin/internal/common"
	"github.com/Veraticus/digital-twin/internal/llm"
	"github.com/Veraticus/digital-twin/internal/model"
	"github.com/Veraticus/digital-twin/internal/simulation"
	"github.com/Veraticus/digital-twin/internal/testutil"
)

type fakeSimulator struct {
	err        error
	lastParams simulation.Params
	lastFilter campaign.Filter
	calls      int
}

func (f *fakeSimulator) Run(_ context.Context, p simulation.Params, filter campaign.Filter) (*simulation.Result, error) {
	f.calls++
	f.lastParams = p
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}

	records := make([]model.ScoredRecord, 3)
	for i := range records {
		records[i] = testutil.NewRecord(fmt.Sprintf("IND_%05d", i+1)).
			WithProbability(float64(i+1)/4, model.ResponseNeutral).
			Build()
	}
	result := testutil.NewResult(fmt.Sprintf("run-%d", f.calls), records...)
	result.Params = p
	result.Filter = filter
	return result, nil
}

type fakeParser struct {
	err    error
	result llm.ParseResult
	texts  []string
}

func (f *fakeParser) Parse(_ context.Context, text string) (llm.ParseResult, error) {
	f.texts = append(f.texts, text)
	return f.result, f.err
}

func newTestServer(sim Simulator, opts ...Option) http.Handler {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewServer(sim, opts...).Routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(&fakeSimulator{}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetrics(t *testing.T) {
	rec := do(t, newTestServer(&fakeSimulator{}), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSimulate_Filter(t *testing.T) {
	sim := &fakeSimulator{}
	h := newTestServer(sim)

	body := `{"params":{"individuals":10,"smes":0,"corporates":0},"filter":{"segment":["Individual"],"product_type":"Loan"},"limit":2}`
	rec := do(t, h, http.MethodPost, "/api/simulate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[simulateResponse](t, rec)
	assert.Equal(t, "run-1", resp.RunID)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, "IND_00003", resp.Records[0].ID)
	assert.Nil(t, resp.Parse)

	// Unset params keep their defaults, unset filter fields keep the empty filter's.
	assert.Equal(t, 10, sim.lastParams.Individuals)
	assert.Equal(t, simulation.DefaultSeed, int(sim.lastParams.Seed))
	assert.Equal(t, []string{"Individual"}, sim.lastFilter.Segment)
	assert.Equal(t, campaign.DefaultTerm, sim.lastFilter.Term)
	assert.Equal(t, []string{model.ChannelDigital}, sim.lastFilter.Channel)
}

func TestSimulate_NoCampaign(t *testing.T) {
	sim := &fakeSimulator{}
	rec := do(t, newTestServer(sim), http.MethodPost, "/api/simulate", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, campaign.Empty(), sim.lastFilter)
}

func TestSimulate_Description(t *testing.T) {
	parsed := campaign.Empty()
	parsed.ProductType = "Credit Card"
	parser := &fakeParser{result: llm.ParseResult{
		Filter: parsed,
		Issues: []campaign.Issue{{Field: "promotion", Value: "Moon Miles", Reason: "not an allowed value"}},
	}}
	sim := &fakeSimulator{}
	h := newTestServer(sim, WithParser(parser))

	rec := do(t, h, http.MethodPost, "/api/simulate", `{"description":"A credit card for young savers"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[simulateResponse](t, rec)
	require.NotNil(t, resp.Parse)
	assert.Len(t, resp.Parse.Issues, 1)
	assert.Equal(t, "Credit Card", sim.lastFilter.ProductType)
	assert.Equal(t, []string{"A credit card for young savers"}, parser.texts)
}

func TestSimulate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		sim    *fakeSimulator
		opts   []Option
		body   string
		status int
		errMsg string
	}{
		{
			name:   "malformed body",
			sim:    &fakeSimulator{},
			body:   `{"filter":`,
			status: http.StatusBadRequest,
			errMsg: "invalid request body",
		},
		{
			name:   "filter outside domain",
			sim:    &fakeSimulator{},
			body:   `{"filter":{"segment":["Martian"]}}`,
			status: http.StatusBadRequest,
			errMsg: "Martian",
		},
		{
			name:   "term out of range",
			sim:    &fakeSimulator{},
			body:   `{"filter":{"term":99}}`,
			status: http.StatusBadRequest,
			errMsg: "term",
		},
		{
			name:   "description without parser",
			sim:    &fakeSimulator{},
			body:   `{"description":"a loan"}`,
			status: http.StatusServiceUnavailable,
			errMsg: "not configured",
		},
		{
			name:   "parser failure",
			sim:    &fakeSimulator{},
			opts:   []Option{WithParser(&fakeParser{err: fmt.Errorf("%w: boom", common.ErrUpstreamParse)})},
			body:   `{"description":"a loan"}`,
			status: http.StatusBadGateway,
			errMsg: "boom",
		},
		{
			name:   "unknown model",
			sim:    &fakeSimulator{err: fmt.Errorf("%w: %q", common.ErrUnknownModel, "svm")},
			body:   `{"params":{"model":"svm"}}`,
			status: http.StatusBadRequest,
			errMsg: "svm",
		},
		{
			name:   "internal failure",
			sim:    &fakeSimulator{err: errors.New("disk on fire")},
			body:   `{}`,
			status: http.StatusInternalServerError,
			errMsg: "disk on fire",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(tt.sim, tt.opts...), http.MethodPost, "/api/simulate", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			body := decode[map[string]string](t, rec)
			assert.Contains(t, body["error"], tt.errMsg)
		})
	}
}

func TestParse(t *testing.T) {
	parser := &fakeParser{result: llm.ParseResult{Filter: campaign.Empty(), Fallback: true}}
	h := newTestServer(&fakeSimulator{}, WithParser(parser))

	rec := do(t, h, http.MethodPost, "/api/parse", `{"description":"something vague"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[llm.ParseResult](t, rec)
	assert.True(t, resp.Fallback)
	assert.Equal(t, campaign.Empty(), resp.Filter)
}

func TestCatalog(t *testing.T) {
	rec := do(t, newTestServer(&fakeSimulator{}), http.MethodGet, "/api/catalog", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[catalogResponse](t, rec)
	require.Len(t, resp.Fields, len(campaign.Fields()))
	assert.Equal(t, campaign.FieldSegment, resp.Fields[0].Name)
	assert.True(t, resp.Fields[0].List)
	assert.Contains(t, resp.Fields[0].Values, "SME")
	assert.NotEmpty(t, resp.Models)
	assert.Len(t, resp.Labels, 2)
	assert.Equal(t, model.Responses(), resp.Responses)

	for _, f := range resp.Fields {
		if f.Name == campaign.FieldTerm {
			assert.False(t, f.List)
			assert.Empty(t, f.Values)
		}
	}
}

func TestTwinLookup(t *testing.T) {
	h := newTestServer(&fakeSimulator{}, WithRetainedRuns(1))

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/simulate", `{}`).Code)

	rec := do(t, h, http.MethodGet, "/api/runs/run-1/twins/IND_00002", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "IND_00002", decode[model.ScoredRecord](t, rec).ID)

	rec = do(t, h, http.MethodGet, "/api/runs/run-1/twins/IND_99999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// A second run evicts the first.
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/simulate", `{}`).Code)
	rec = do(t, h, http.MethodGet, "/api/runs/run-1/twins/IND_00002", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, defaultLimit, clampLimit(0))
	assert.Equal(t, defaultLimit, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, maxLimit, clampLimit(maxLimit+1))
}

func TestRequestBodyLimit(t *testing.T) {
	big := bytes.Repeat([]byte("a"), maxBodyBytes+10)
	body := `{"description":"` + string(big) + `"}`

	rec := do(t, newTestServer(&fakeSimulator{}, WithParser(&fakeParser{})), http.MethodPost, "/api/parse", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
