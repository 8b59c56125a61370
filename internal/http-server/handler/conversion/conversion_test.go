package conversion

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pdf-rocket/internal/domain"
	"pdf-rocket/internal/http-server/handler/conversion/dto"
	"pdf-rocket/internal/scratch"
	"pdf-rocket/internal/session"
	conversion_uc "pdf-rocket/internal/usecase/conversion"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
)

const cookieName = "test_session"

type stubConverter struct{}

func (stubConverter) Convert(ctx context.Context, src, dst string, quality domain.QualityMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if strings.Contains(string(data), "broken") {
		return errors.New("cannot open document")
	}
	return os.WriteFile(dst, []byte("docx("+string(quality)+")"), 0o644)
}

type fileField struct {
	name    string
	content string
}

func newTestServer(t *testing.T, maxFileSize int64) http.Handler {
	t.Helper()
	return newTestServerWithConfig(t, maxFileSize, Config{CookieName: cookieName, MaxBatchSize: 1 << 20, SessionTTL: time.Hour})
}

func newTestServerWithConfig(t *testing.T, maxFileSize int64, cfg Config) http.Handler {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "temp")
	uc := conversion_uc.NewConversionUsecase(stubConverter{}, scratch.New(dir, &zlog.Logger), &zlog.Logger, maxFileSize)
	sessions := session.NewManager(time.Hour, 5, &zlog.Logger)
	h := NewConversionHandler(uc, sessions, cfg, &zlog.Logger)

	r := chi.NewRouter()
	r.Post("/api/conversions", h.ConvertFiles)
	r.Get("/api/qualities", h.ListQualities)
	r.Get("/api/history", h.ListHistory)
	r.Get("/api/history/archive", h.DownloadArchive)
	r.Get("/api/history/{index}/download", h.DownloadHistoryEntry)
	r.Post("/api/email", h.SendEmail)
	return r
}

func multipartRequest(t *testing.T, quality string, files ...fileField) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if quality != "" {
		require.NoError(t, mw.WriteField("quality", quality))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/conversions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestConvertFiles(t *testing.T) {
	srv := newTestServer(t, 0)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, multipartRequest(t, "Basic",
		fileField{name: "report.pdf", content: "%PDF-1.4 report"},
		fileField{name: "broken.pdf", content: "broken"},
	))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "basic", resp.Quality)
	assert.Equal(t, 1, resp.Converted)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Files, 2)

	ok := resp.Files[0]
	assert.Equal(t, "report.docx", ok.ConvertedName)
	assert.Equal(t, "converted", ok.Status)
	wantURI := "data:" + domain.DocxContentType + ";base64," + base64.StdEncoding.EncodeToString([]byte("docx(basic)"))
	assert.Equal(t, wantURI, ok.DataURI)

	bad := resp.Files[1]
	assert.Equal(t, "failed", bad.Status)
	assert.Contains(t, bad.Error, "cannot open document")
	assert.Empty(t, bad.DataURI)
}

func TestConvertFilesDefaultsToFormatted(t *testing.T) {
	srv := newTestServer(t, 0)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, multipartRequest(t, "", fileField{name: "a.pdf", content: "%PDF"}))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "formatted", resp.Quality)
}

func TestConvertFilesValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     func(t *testing.T) *http.Request
		wantMsg string
	}{
		{
			name: "unknown quality",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "ultra", fileField{name: "a.pdf", content: "%PDF"})
			},
			wantMsg: "Unknown conversion quality",
		},
		{
			name: "no files",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "basic")
			},
			wantMsg: ErrNoFiles.Error(),
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/conversions", strings.NewReader("{}"))
			},
			wantMsg: "Invalid request format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, 0)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, tt.req(t))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantMsg, resp.Message)
		})
	}
}

func TestConvertFilesSkipsOversize(t *testing.T) {
	srv := newTestServer(t, 8)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, multipartRequest(t, "basic", fileField{name: "big.pdf", content: strings.Repeat("x", 32)}))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Skipped)
	assert.Equal(t, "skipped", resp.Files[0].Status)
	assert.Contains(t, resp.Files[0].Error, "exceeds the 8 B limit")

	hist := httptest.NewRecorder()
	histReq := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	histReq.AddCookie(sessionCookie(t, rec))
	srv.ServeHTTP(hist, histReq)

	var history dto.HistoryResponse
	require.NoError(t, json.Unmarshal(hist.Body.Bytes(), &history))
	assert.Empty(t, history.Entries)
}

func TestConvertFilesOversizeDoesNotBlockBatch(t *testing.T) {
	srv := newTestServerWithConfig(t, 8, Config{CookieName: cookieName, MaxBatchSize: 16})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, multipartRequest(t, "basic",
		fileField{name: "huge.pdf", content: strings.Repeat("x", 4096)},
		fileField{name: "small.pdf", content: "%PDF"},
	))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Skipped)
	assert.Equal(t, 1, resp.Converted)
	require.Len(t, resp.Files, 2)
	assert.Equal(t, "skipped", resp.Files[0].Status)
	assert.Equal(t, int64(4096), resp.Files[0].Size)
	assert.Equal(t, "converted", resp.Files[1].Status)
	assert.Equal(t, "small.docx", resp.Files[1].ConvertedName)
}

func TestConvertFilesBatchTooLarge(t *testing.T) {
	srv := newTestServerWithConfig(t, 8, Config{CookieName: cookieName, MaxBatchSize: 10})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, multipartRequest(t, "basic",
		fileField{name: "a.pdf", content: "%PDF-a"},
		fileField{name: "b.pdf", content: "%PDF-b"},
	))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSessionCookieIsRefreshed(t *testing.T) {
	srv := newTestServer(t, 0)

	first := httptest.NewRecorder()
	srv.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	cookie := sessionCookie(t, first)
	assert.Equal(t, int(time.Hour.Seconds()), cookie.MaxAge)

	second := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.AddCookie(cookie)
	srv.ServeHTTP(second, req)

	refreshed := sessionCookie(t, second)
	assert.Equal(t, cookie.Value, refreshed.Value)
	assert.Equal(t, int(time.Hour.Seconds()), refreshed.MaxAge)
}

func TestHistoryIsScopedToSession(t *testing.T) {
	srv := newTestServer(t, 0)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, multipartRequest(t, "formatted", fileField{name: "report.pdf", content: "%PDF"}))
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(t, rec)

	own := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	req.AddCookie(cookie)
	srv.ServeHTTP(own, req)

	var history dto.HistoryResponse
	require.NoError(t, json.Unmarshal(own.Body.Bytes(), &history))
	require.Len(t, history.Entries, 1)
	assert.Equal(t, "report.pdf", history.Entries[0].OriginalName)
	assert.Equal(t, "report.docx", history.Entries[0].ConvertedName)
	assert.Equal(t, "/api/history/0/download", history.Entries[0].DownloadURL)
	assert.True(t, strings.HasPrefix(history.Entries[0].Timestamp, time.Now().Format("2006-01-02")))

	other := httptest.NewRecorder()
	srv.ServeHTTP(other, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	var empty dto.HistoryResponse
	require.NoError(t, json.Unmarshal(other.Body.Bytes(), &empty))
	assert.Empty(t, empty.Entries)
}

func TestDownloadHistoryEntry(t *testing.T) {
	srv := newTestServer(t, 0)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, multipartRequest(t, "formatted", fileField{name: "report.pdf", content: "%PDF"}))
	cookie := sessionCookie(t, rec)

	dl := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history/0/download", nil)
	req.AddCookie(cookie)
	srv.ServeHTTP(dl, req)

	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, domain.DocxContentType, dl.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report.docx"`, dl.Header().Get("Content-Disposition"))
	assert.Equal(t, "docx(formatted)", dl.Body.String())

	for path, want := range map[string]int{
		"/api/history/5/download":   http.StatusNotFound,
		"/api/history/abc/download": http.StatusBadRequest,
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.AddCookie(cookie)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, path)
	}
}

func TestDownloadArchive(t *testing.T) {
	srv := newTestServer(t, 0)

	empty := httptest.NewRecorder()
	srv.ServeHTTP(empty, httptest.NewRequest(http.MethodGet, "/api/history/archive", nil))
	assert.Equal(t, http.StatusNotFound, empty.Code)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, multipartRequest(t, "basic",
		fileField{name: "one.pdf", content: "%PDF"},
		fileField{name: "two.pdf", content: "%PDF"},
	))
	cookie := sessionCookie(t, rec)

	dl := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history/archive", nil)
	req.AddCookie(cookie)
	srv.ServeHTTP(dl, req)

	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "application/zip", dl.Header().Get("Content-Type"))

	zr, err := zip.NewReader(bytes.NewReader(dl.Body.Bytes()), int64(dl.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "two.docx", zr.File[0].Name)
	assert.Equal(t, "one.docx", zr.File[1].Name)
}

func TestSendEmail(t *testing.T) {
	srv := newTestServer(t, 0)

	tests := []struct {
		body       string
		wantStatus int
	}{
		{body: `{"email":"user@example.com"}`, wantStatus: http.StatusOK},
		{body: `{"email":"userexample"}`, wantStatus: http.StatusBadRequest},
		{body: `{"email":""}`, wantStatus: http.StatusBadRequest},
		{body: `not json`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/email", strings.NewReader(tt.body)))
			require.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus == http.StatusOK {
				var resp dto.EmailResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, "Files would be sent to user@example.com in production.", resp.Message)
				assert.NotEmpty(t, resp.Note)
			}
		})
	}
}

func TestListQualities(t *testing.T) {
	srv := newTestServer(t, 0)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/qualities", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var options []dto.QualityOption
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &options))
	require.Len(t, options, 2)
	assert.Equal(t, "basic", options[0].Value)
	assert.False(t, options[0].Default)
	assert.Equal(t, "formatted", options[1].Value)
	assert.True(t, options[1].Default)
}
