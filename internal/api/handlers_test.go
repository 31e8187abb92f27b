package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/page-analyzer/internal/core"
	"github.com/baxromumarov/page-analyzer/internal/httpx"
	"github.com/baxromumarov/page-analyzer/internal/store"
	"github.com/baxromumarov/page-analyzer/internal/urlutil"
)

type fakeURLService struct {
	page      core.URLPage
	detail    core.URLDetail
	url       store.URL
	check     store.URLCheck
	err       error
	gotPage   int
	gotRaw    string
	gotID     int64
	callCount int
}

func (f *fakeURLService) ListURLs(_ context.Context, page int) (core.URLPage, error) {
	f.callCount++
	f.gotPage = page
	return f.page, f.err
}

func (f *fakeURLService) ShowURL(_ context.Context, id int64) (core.URLDetail, error) {
	f.callCount++
	f.gotID = id
	return f.detail, f.err
}

func (f *fakeURLService) RegisterURL(_ context.Context, raw string) (store.URL, error) {
	f.callCount++
	f.gotRaw = raw
	return f.url, f.err
}

func (f *fakeURLService) RunCheck(_ context.Context, id int64) (store.URLCheck, error) {
	f.callCount++
	f.gotID = id
	return f.check, f.err
}

func newTestServer(svc URLService) *Server {
	return NewServer(svc, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func serve(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeAction(t *testing.T, rec *httptest.ResponseRecorder) actionResponse {
	t.Helper()
	var resp actionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func jsonRegister(name string) *http.Request {
	body := fmt.Sprintf(`{"url":{"name":%q}}`, name)
	req := httptest.NewRequest(http.MethodPost, "/urls", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealth(t *testing.T) {
	rec := serve(t, newTestServer(&fakeURLService{}), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestWelcomeAndStats(t *testing.T) {
	s := newTestServer(&fakeURLService{})

	rec := serve(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "page-analyzer")

	rec = serve(t, s, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "checks_stored")
}

func TestListURLs(t *testing.T) {
	code := 200
	now := time.Now().UTC()
	svc := &fakeURLService{page: core.URLPage{
		Items: []store.URLSummary{
			{URL: store.URL{ID: 2, Name: "https://yandex.ru", CreatedAt: now}, LastStatusCode: &code, LastCheckedAt: &now},
			{URL: store.URL{ID: 1, Name: "https://google.com", CreatedAt: now}},
		},
		Page: 2, PerPage: 15, Total: 17, LastPage: 2,
	}}

	rec := serve(t, newTestServer(svc), httptest.NewRequest(http.MethodGet, "/urls?page=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, svc.gotPage)

	body := rec.Body.String()
	assert.Contains(t, body, "https://google.com")
	assert.Contains(t, body, "https://yandex.ru")

	var page core.URLPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 2)
	assert.Equal(t, 200, *page.Items[0].LastStatusCode)
	assert.Nil(t, page.Items[1].LastStatusCode)
	assert.Equal(t, 17, page.Total)
}

func TestListURLsBadPageDefaultsToFirst(t *testing.T) {
	svc := &fakeURLService{}
	s := newTestServer(svc)

	for _, q := range []string{"", "?page=abc", "?page=-3", "?page=0"} {
		rec := serve(t, s, httptest.NewRequest(http.MethodGet, "/urls"+q, nil))
		assert.Equal(t, http.StatusOK, rec.Code, q)
		assert.Equal(t, 1, svc.gotPage, q)
	}
}

func TestShowURL(t *testing.T) {
	h1 := "Test h1"
	svc := &fakeURLService{detail: core.URLDetail{
		URL: store.URL{ID: 1, Name: "https://google.com"},
		Checks: []store.URLCheck{
			{ID: 2, URLID: 1, StatusCode: 500},
			{ID: 1, URLID: 1, StatusCode: 200, H1: &h1},
		},
	}}

	rec := serve(t, newTestServer(svc), httptest.NewRequest(http.MethodGet, "/urls/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), svc.gotID)
	assert.Contains(t, rec.Body.String(), "https://google.com")

	var detail core.URLDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.Len(t, detail.Checks, 2)
	assert.Equal(t, int64(2), detail.Checks[0].ID)
}

func TestShowURLNotFound(t *testing.T) {
	svc := &fakeURLService{err: fmt.Errorf("%w: 9", core.ErrURLNotFound)}

	rec := serve(t, newTestServer(svc), httptest.NewRequest(http.MethodGet, "/urls/9", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/urls", decodeAction(t, rec).Redirect)
}

func TestShowURLInvalidID(t *testing.T) {
	svc := &fakeURLService{}
	for _, id := range []string{"abc", "0", "-1"} {
		rec := serve(t, newTestServer(svc), httptest.NewRequest(http.MethodGet, "/urls/"+id, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
	}
	assert.Zero(t, svc.callCount)
}

func TestRegisterURLJSON(t *testing.T) {
	svc := &fakeURLService{url: store.URL{ID: 3, Name: "https://hexlet.io"}}

	rec := serve(t, newTestServer(svc), jsonRegister("https://hexlet.io/courses"))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "https://hexlet.io/courses", svc.gotRaw)

	resp := decodeAction(t, rec)
	assert.Equal(t, levelSuccess, resp.Notice.Level)
	assert.Equal(t, "Url 'https://hexlet.io' added successfully!", resp.Notice.Message)
	assert.Equal(t, "/urls", resp.Redirect)
	require.NotNil(t, resp.URL)
	assert.Equal(t, int64(3), resp.URL.ID)
}

func TestRegisterURLForm(t *testing.T) {
	svc := &fakeURLService{url: store.URL{ID: 1, Name: "https://hexlet.io"}}

	form := url.Values{"url[name]": {"https://hexlet.io"}}
	req := httptest.NewRequest(http.MethodPost, "/urls", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := serve(t, newTestServer(svc), req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "https://hexlet.io", svc.gotRaw)
}

func TestRegisterURLFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"empty", &urlutil.ValidationError{Kind: urlutil.ErrEmptyURL}, http.StatusUnprocessableEntity, "URL must not be empty"},
		{"malformed", urlutil.Malformed("gfdfgdfd", nil), http.StatusUnprocessableEntity, "Invalid URL"},
		{"duplicate", &core.DuplicateError{Name: "https://google.com"}, http.StatusConflict, "Site already exists!"},
		{"store down", errors.New("connection refused"), http.StatusInternalServerError, "Internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, newTestServer(&fakeURLService{err: tt.err}), jsonRegister("whatever"))
			assert.Equal(t, tt.status, rec.Code)

			resp := decodeAction(t, rec)
			assert.Equal(t, levelDanger, resp.Notice.Level)
			assert.Equal(t, tt.message, resp.Notice.Message)
			assert.Equal(t, "/", resp.Redirect)
			assert.Nil(t, resp.URL)
		})
	}
}

func TestRegisterURLBadJSON(t *testing.T) {
	svc := &fakeURLService{}
	req := httptest.NewRequest(http.MethodPost, "/urls", strings.NewReader(`{"url":`))
	req.Header.Set("Content-Type", "application/json")

	rec := serve(t, newTestServer(svc), req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, svc.callCount)
}

func TestRunCheck(t *testing.T) {
	h1, desc, kw := "Test h1", "Test description", "keyword1, keyword2"
	svc := &fakeURLService{check: store.URLCheck{ID: 1, URLID: 1, StatusCode: 200, H1: &h1, Description: &desc, Keywords: &kw}}

	rec := serve(t, newTestServer(svc), httptest.NewRequest(http.MethodPost, "/urls/1/checks", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(1), svc.gotID)

	resp := decodeAction(t, rec)
	assert.Equal(t, levelSuccess, resp.Notice.Level)
	assert.Equal(t, "The Site has been verified successfully!", resp.Notice.Message)
	assert.Equal(t, "/urls/1", resp.Redirect)
	require.NotNil(t, resp.Check)
	assert.Equal(t, 200, resp.Check.StatusCode)
	assert.Equal(t, "keyword1, keyword2", *resp.Check.Keywords)
}

func TestRunCheckFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		message  string
		redirect string
	}{
		{
			"unavailable",
			&core.CheckError{URL: "https://google.com", Err: &httpx.FetchError{URL: "https://google.com"}},
			http.StatusBadGateway, "The site not available", "/urls/1",
		},
		{"not found", fmt.Errorf("%w: 1", core.ErrURLNotFound), http.StatusNotFound, "Url not found", "/urls"},
		{"store down", errors.New("connection refused"), http.StatusInternalServerError, "Internal error", "/urls/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, newTestServer(&fakeURLService{err: tt.err}), httptest.NewRequest(http.MethodPost, "/urls/1/checks", nil))
			assert.Equal(t, tt.status, rec.Code)

			resp := decodeAction(t, rec)
			assert.Equal(t, levelDanger, resp.Notice.Level)
			assert.Equal(t, tt.message, resp.Notice.Message)
			assert.Equal(t, tt.redirect, resp.Redirect)
			assert.Nil(t, resp.Check)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	s := NewServer(&fakeURLService{}, []string{"https://ui.example"}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := httptest.NewRequest(http.MethodOptions, "/urls", nil)
	req.Header.Set("Origin", "https://ui.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := serve(t, s, req)
	assert.Equal(t, "https://ui.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
