package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/heirloom-app/heirloom-go/internal/llm"
	"github.com/heirloom-app/heirloom-go/internal/models"
	"github.com/heirloom-app/heirloom-go/internal/retrieval"
)

type stubAPIStore struct {
	jobs      map[string]*models.Job
	assets    []models.MediaAssetInput
	units     []models.MemoryUnit
	gotJobIDs []string
}

func (s *stubAPIStore) CreateMediaAsset(ctx context.Context, in models.MediaAssetInput) (*models.MediaAsset, error) {
	s.assets = append(s.assets, in)
	return &models.MediaAsset{
		ID:        surrealmodels.NewRecordID("media_asset", "a1"),
		ProfileID: in.ProfileID,
		FileName:  in.FileName,
		MimeType:  in.MimeType,
		Bytes:     in.Bytes,
	}, nil
}

func (s *stubAPIStore) CreateJob(ctx context.Context, assetID surrealmodels.RecordID) (*models.Job, error) {
	return &models.Job{
		ID:           surrealmodels.NewRecordID("job", "j1"),
		JobType:      models.JobTypeExtract,
		Status:       models.JobStatusQueued,
		MediaAssetID: assetID,
	}, nil
}

func (s *stubAPIStore) GetJob(ctx context.Context, id string) (*models.Job, error) {
	s.gotJobIDs = append(s.gotJobIDs, id)
	return s.jobs[id], nil
}

func (s *stubAPIStore) RequeueJob(ctx context.Context, id surrealmodels.RecordID) (*models.Job, error) {
	job, ok := s.jobs[fmt.Sprintf("%v", id.ID)]
	if !ok || job.Status != models.JobStatusFailed {
		return nil, nil
	}
	cp := *job
	cp.Status = models.JobStatusQueued
	return &cp, nil
}

func (s *stubAPIStore) MemoryUnitsByProfile(ctx context.Context, profileID string, limit int) ([]models.MemoryUnit, error) {
	return s.units, nil
}

type stubAPIObjects struct {
	sizes map[string]int64
}

func (o *stubAPIObjects) Head(ctx context.Context, key string) (int64, error) {
	size, ok := o.sizes[key]
	if !ok {
		return 0, fmt.Errorf("no such key: %s", key)
	}
	return size, nil
}

func (o *stubAPIObjects) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	return "https://uploads.example.com/" + key, nil
}

type stubRetriever struct {
	pack *retrieval.ContextPack
	urls []string
}

func (r *stubRetriever) Retrieve(ctx context.Context, profileID, question string) (*retrieval.ContextPack, error) {
	return r.pack, nil
}

func (r *stubRetriever) ResolveSourceURLs(pack *retrieval.ContextPack, citedIDs []string) []string {
	return r.urls
}

type stubAnswerer struct {
	answer llm.Answer
	calls  int
}

func (a *stubAnswerer) Answer(ctx context.Context, pack *retrieval.ContextPack) (llm.Answer, error) {
	a.calls++
	return a.answer, nil
}

func newTestServer(store *stubAPIStore, objects *stubAPIObjects, retriever *stubRetriever, answerer *stubAnswerer) *Server {
	if store == nil {
		store = &stubAPIStore{jobs: map[string]*models.Job{}}
	}
	if objects == nil {
		objects = &stubAPIObjects{sizes: map[string]int64{}}
	}
	if retriever == nil {
		retriever = &stubRetriever{pack: &retrieval.ContextPack{}}
	}
	if answerer == nil {
		answerer = &stubAnswerer{}
	}
	return New(store, objects, retriever, answerer, Options{
		Logger: slog.New(slog.DiscardHandler),
	})
}

func doJSON(t *testing.T, s *Server, method, target string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestHealth(t *testing.T) {
	s := newTestServer(nil, nil, nil, nil)
	resp, _ := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAskBlankQuestion(t *testing.T) {
	s := newTestServer(nil, nil, nil, nil)
	resp, _ := doJSON(t, s, http.MethodPost, "/api/v1/profiles/p1/ask", askRequest{Question: "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAskEmptyRetrievalShortCircuits(t *testing.T) {
	answerer := &stubAnswerer{}
	s := newTestServer(nil, nil, &stubRetriever{pack: &retrieval.ContextPack{}}, answerer)

	resp, raw := doJSON(t, s, http.MethodPost, "/api/v1/profiles/p1/ask", askRequest{Question: "Who?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got askResponse
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "I don't know.", got.AnswerText)
	assert.Equal(t, []string{}, got.SourceURLs)
	assert.Zero(t, answerer.calls, "answer generator must not run on empty retrieval")
}

func TestAskAnswersWithSources(t *testing.T) {
	retriever := &stubRetriever{
		pack: &retrieval.ContextPack{
			Question: "Where was the wedding?",
			Memories: []models.RetrievedMemory{{MemoryUnitID: "memory_unit:1", AssetKey: "wedding.jpg"}},
		},
		urls: []string{"https://media.example.com/wedding.jpg"},
	}
	answerer := &stubAnswerer{answer: llm.Answer{
		AnswerText:      "In Vienna.",
		UsedCitationIDs: []string{"memory_unit:1"},
	}}
	s := newTestServer(nil, nil, retriever, answerer)

	resp, raw := doJSON(t, s, http.MethodPost, "/api/v1/profiles/p1/ask", askRequest{Question: "Where was the wedding?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got askResponse
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "In Vienna.", got.AnswerText)
	assert.Equal(t, []string{"https://media.example.com/wedding.jpg"}, got.SourceURLs)
	assert.Equal(t, 1, answerer.calls)
}

func TestUploadInit(t *testing.T) {
	s := newTestServer(nil, nil, nil, nil)

	resp, raw := doJSON(t, s, http.MethodPost, "/api/v1/uploads/init", uploadInitRequest{
		ProfileID: "p1",
		FileName:  "diary.txt",
		MimeType:  "text/plain",
		Bytes:     42,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got uploadInitResponse
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Contains(t, got.ObjectKey, "p1/")
	assert.Contains(t, got.ObjectKey, ".txt")
	assert.Equal(t, "https://uploads.example.com/"+got.ObjectKey, got.UploadURL)
	assert.Equal(t, int64(500*1024*1024), got.MaxBytes)
}

func TestUploadInitRejectsUnsupportedMime(t *testing.T) {
	s := newTestServer(nil, nil, nil, nil)
	resp, _ := doJSON(t, s, http.MethodPost, "/api/v1/uploads/init", uploadInitRequest{
		ProfileID: "p1",
		FileName:  "doc.pdf",
		MimeType:  "application/pdf",
		Bytes:     42,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadInitRejectsMissingFields(t *testing.T) {
	s := newTestServer(nil, nil, nil, nil)
	resp, _ := doJSON(t, s, http.MethodPost, "/api/v1/uploads/init", uploadInitRequest{
		FileName: "diary.txt",
		MimeType: "text/plain",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadConfirm(t *testing.T) {
	store := &stubAPIStore{jobs: map[string]*models.Job{}}
	objects := &stubAPIObjects{sizes: map[string]int64{"p1/abc.txt": 99}}
	s := newTestServer(store, objects, nil, nil)

	resp, raw := doJSON(t, s, http.MethodPost, "/api/v1/uploads/confirm", uploadConfirmRequest{
		ProfileID: "p1",
		ObjectKey: "p1/abc.txt",
		FileName:  "diary.txt",
		MimeType:  "text/plain",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got uploadConfirmResponse
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "media_asset:a1", got.MediaAssetID)
	assert.Equal(t, "job:j1", got.JobID)
	assert.Equal(t, int64(99), got.Bytes, "size must come from the stored object")
	require.Len(t, store.assets, 1)
	assert.Equal(t, "p1/abc.txt", store.assets[0].FileName)
}

func TestUploadConfirmMissingObject(t *testing.T) {
	s := newTestServer(nil, nil, nil, nil)
	resp, _ := doJSON(t, s, http.MethodPost, "/api/v1/uploads/confirm", uploadConfirmRequest{
		ProfileID: "p1",
		ObjectKey: "p1/missing.txt",
		FileName:  "diary.txt",
		MimeType:  "text/plain",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConfirmedJobIDRoundTripsThroughLookup(t *testing.T) {
	store := &stubAPIStore{jobs: map[string]*models.Job{
		"j1": {
			ID:           surrealmodels.NewRecordID("job", "j1"),
			JobType:      models.JobTypeExtract,
			Status:       models.JobStatusQueued,
			MediaAssetID: surrealmodels.NewRecordID("media_asset", "a1"),
		},
	}}
	objects := &stubAPIObjects{sizes: map[string]int64{"p1/abc.txt": 99}}
	s := newTestServer(store, objects, nil, nil)

	resp, raw := doJSON(t, s, http.MethodPost, "/api/v1/uploads/confirm", uploadConfirmRequest{
		ProfileID: "p1",
		ObjectKey: "p1/abc.txt",
		FileName:  "diary.txt",
		MimeType:  "text/plain",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var confirm uploadConfirmResponse
	require.NoError(t, json.Unmarshal(raw, &confirm))
	require.Equal(t, "job:j1", confirm.JobID)

	// The id handed out by confirm must work verbatim as a lookup path.
	resp, raw = doJSON(t, s, http.MethodGet, "/api/v1/jobs/"+confirm.JobID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got jobResponse
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "job:j1", got.ID)
	require.NotEmpty(t, store.gotJobIDs)
	assert.Equal(t, "j1", store.gotJobIDs[len(store.gotJobIDs)-1], "store must see the bare record id")
}

func TestRequeueJobAcceptsFullIDForm(t *testing.T) {
	detail := "Missing media asset"
	store := &stubAPIStore{jobs: map[string]*models.Job{
		"j1": {
			ID:           surrealmodels.NewRecordID("job", "j1"),
			JobType:      models.JobTypeExtract,
			Status:       models.JobStatusFailed,
			MediaAssetID: surrealmodels.NewRecordID("media_asset", "a1"),
			ErrorDetail:  &detail,
		},
	}}
	s := newTestServer(store, nil, nil, nil)

	resp, raw := doJSON(t, s, http.MethodPost, "/api/v1/jobs/job:j1/requeue", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got jobResponse
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, string(models.JobStatusQueued), got.Status)
}

func TestGetJobNotFound(t *testing.T) {
	s := newTestServer(nil, nil, nil, nil)
	resp, _ := doJSON(t, s, http.MethodGet, "/api/v1/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequeueJob(t *testing.T) {
	detail := "Missing media asset"
	store := &stubAPIStore{jobs: map[string]*models.Job{
		"j1": {
			ID:           surrealmodels.NewRecordID("job", "j1"),
			JobType:      models.JobTypeExtract,
			Status:       models.JobStatusFailed,
			MediaAssetID: surrealmodels.NewRecordID("media_asset", "a1"),
			ErrorDetail:  &detail,
		},
		"j2": {
			ID:           surrealmodels.NewRecordID("job", "j2"),
			JobType:      models.JobTypeExtract,
			Status:       models.JobStatusDone,
			MediaAssetID: surrealmodels.NewRecordID("media_asset", "a1"),
		},
	}}
	s := newTestServer(store, nil, nil, nil)

	resp, raw := doJSON(t, s, http.MethodPost, "/api/v1/jobs/j1/requeue", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got jobResponse
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, string(models.JobStatusQueued), got.Status)

	resp, _ = doJSON(t, s, http.MethodPost, "/api/v1/jobs/j2/requeue", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestListMemories(t *testing.T) {
	store := &stubAPIStore{jobs: map[string]*models.Job{}, units: []models.MemoryUnit{{
		ID:           surrealmodels.NewRecordID("memory_unit", "u1"),
		ProfileID:    "p1",
		MediaAssetID: surrealmodels.NewRecordID("media_asset", "a1"),
		Title:        "Text Chunk 1",
		Summary:      "Dear family.",
		EventType:    "Other",
	}}}
	s := newTestServer(store, nil, nil, nil)

	resp, raw := doJSON(t, s, http.MethodGet, "/api/v1/profiles/p1/memories", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Memories []memoryResponse `json:"memories"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got.Memories, 1)
	assert.Equal(t, "memory_unit:u1", got.Memories[0].ID)
}
