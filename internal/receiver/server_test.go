package receiver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nebula-ui/nebula-upload/internal/diskspace"
	"github.com/nebula-ui/nebula-upload/internal/metrics"
	"github.com/nebula-ui/nebula-upload/internal/models"
	"github.com/nebula-ui/nebula-upload/internal/transfer"
	"github.com/nebula-ui/nebula-upload/internal/upload"
)

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *LocalStore) {
	t.Helper()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ts := httptest.NewServer(New(store, opts).Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func decodeAPIError(t *testing.T, resp *http.Response) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	return apiErr
}

func TestUploaderEndToEnd(t *testing.T) {
	reg := prometheus.NewRegistry()
	ts, store := newTestServer(t, Options{Metrics: metrics.MustNew(reg), Gatherer: reg})

	var successes []any
	u, err := upload.New(upload.Config{
		Action: ts.URL + "/upload",
		Data:   map[string]string{"folder": "inbox"},
		OnSuccess: func(response any, f *models.File) {
			successes = append(successes, response)
		},
	})
	require.NoError(t, err)

	u.HandlePickResult(context.Background(), []*models.File{
		models.NewMemoryFile("report.csv", bytes.Repeat([]byte("a,b\n"), 7500)),
	})
	u.Wait()

	records := u.Records()
	require.Len(t, records, 1)
	require.Equal(t, transfer.StatusSuccess, records[0].Status, "error: %v", records[0].Err)

	body, ok := records[0].Response.(map[string]any)
	require.True(t, ok, "response should decode as a JSON object, got %T", records[0].Response)
	assert.Equal(t, "report.csv", body["name"])
	assert.Equal(t, float64(30000), body["size"])
	assert.Equal(t, map[string]any{"folder": "inbox"}, body["fields"])
	require.Len(t, successes, 1)

	id, _ := body["id"].(string)
	info, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), info.Size)

	t.Run("list", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/files")
		require.NoError(t, err)
		defer resp.Body.Close()

		var files []FileInfo
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&files))
		require.Len(t, files, 1)
		assert.Equal(t, id, files[0].ID)
	})

	t.Run("get", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/files/" + id)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		assert.Contains(t, buf.String(), "nebula_upload_receiver_bytes_stored_total 30000")
	})

	t.Run("content", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/files/" + id + "/content")
		require.NoError(t, err)
		defer resp.Body.Close()

		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, bytes.Repeat([]byte("a,b\n"), 7500), buf.Bytes())
		assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="report.csv"`)
	})

	t.Run("delete", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/files/"+id, nil)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, err = http.Get(ts.URL + "/files/" + id)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeAPIError(t, resp).Code)
	})
}

func TestBodyLimitFailsUpload(t *testing.T) {
	ts, _ := newTestServer(t, Options{MaxBytes: 1024})

	u, err := upload.New(upload.Config{Action: ts.URL + "/upload"})
	require.NoError(t, err)

	u.HandlePickResult(context.Background(), []*models.File{
		models.NewMemoryFile("big.bin", make([]byte, 4096)),
	})
	u.Wait()

	records := u.Records()
	require.Len(t, records, 1)
	assert.Equal(t, transfer.StatusError, records[0].Status)

	var uploadErr *upload.Error
	require.True(t, errors.As(records[0].Err, &uploadErr))
	assert.Equal(t, http.StatusRequestEntityTooLarge, uploadErr.StatusCode)
	assert.Contains(t, uploadErr.Body, "TOO_LARGE")
}

func TestUploadWrongField(t *testing.T) {
	ts, _ := newTestServer(t, Options{FieldName: "attachment"})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "a.txt")
	require.NoError(t, err)
	_, _ = part.Write([]byte("hello"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	apiErr := decodeAPIError(t, resp)
	assert.Equal(t, "BAD_REQUEST", apiErr.Code)
	assert.True(t, strings.Contains(apiErr.Message, "attachment"))
}

func postFile(t *testing.T, url, field, filename, content string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, _ = part.Write([]byte(content))
	require.NoError(t, mw.Close())

	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func TestUploadInvalidFilename(t *testing.T) {
	ts, store := newTestServer(t, Options{})

	resp := postFile(t, ts.URL+"/upload", "file", "..", "sneaky")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "BAD_REQUEST", decodeAPIError(t, resp).Code)
	assert.Empty(t, store.List(10))
}

func TestUploadOutOfSpace(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	srv := New(store, Options{})

	var checkedDir string
	var checkedBytes int64
	srv.checkSpace = func(dir string, required int64) error {
		checkedDir, checkedBytes = dir, required
		return &diskspace.InsufficientSpaceError{Path: dir, RequiredBytes: required, AvailableBytes: 0}
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := postFile(t, ts.URL+"/upload", "file", "a.txt", "hello")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInsufficientStorage, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STORAGE", decodeAPIError(t, resp).Code)
	assert.Equal(t, store.Dir(), checkedDir)
	assert.Greater(t, checkedBytes, int64(5))
	assert.Empty(t, store.List(10))
}

func TestHealthAndUnknownRoute(t *testing.T) {
	ts, _ := newTestServer(t, Options{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "HTTP_ERROR", decodeAPIError(t, resp).Code)
}

func TestLocalStore(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	a, err := store.Save("a.txt", "text/plain", nil, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), a.Size)
	assert.NotNil(t, a.Fields)

	r, err := store.Open(a.ID)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	r.Close()
	assert.Equal(t, "hello", buf.String())

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete("missing"), ErrNotFound)

	require.NoError(t, store.Delete(a.ID))
	assert.Empty(t, store.List(10))
}
