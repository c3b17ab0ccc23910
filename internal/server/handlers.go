package server

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/heirloom-app/heirloom-go/internal/extract"
	"github.com/heirloom-app/heirloom-go/internal/llm"
	"github.com/heirloom-app/heirloom-go/internal/models"
)

type uploadInitRequest struct {
	ProfileID string `json:"profile_id" validate:"required"`
	FileName  string `json:"file_name" validate:"required"`
	MimeType  string `json:"mime_type" validate:"required"`
	Bytes     int64  `json:"bytes" validate:"gte=0"`
}

type uploadInitResponse struct {
	UploadURL string `json:"upload_url"`
	ObjectKey string `json:"object_key"`
	ExpiresIn int64  `json:"expires_in"`
	MaxBytes  int64  `json:"max_bytes"`
}

type uploadConfirmRequest struct {
	ProfileID       string   `json:"profile_id" validate:"required"`
	ObjectKey       string   `json:"object_key" validate:"required"`
	FileName        string   `json:"file_name" validate:"required"`
	MimeType        string   `json:"mime_type" validate:"required"`
	Bytes           *int64   `json:"bytes,omitempty" validate:"omitempty,gte=0"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty" validate:"omitempty,gte=0"`
}

type uploadConfirmResponse struct {
	MediaAssetID string `json:"media_asset_id"`
	JobID        string `json:"job_id"`
	Bytes        int64  `json:"bytes"`
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	AnswerText string   `json:"answer_text"`
	SourceURLs []string `json:"source_urls"`
}

type jobResponse struct {
	ID           string     `json:"id"`
	JobType      string     `json:"job_type"`
	Status       string     `json:"status"`
	MediaAssetID string     `json:"media_asset_id"`
	Attempt      int        `json:"attempt"`
	ErrorDetail  *string    `json:"error_detail,omitempty"`
	Created      time.Time  `json:"created"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

type memoryResponse struct {
	ID           string    `json:"id"`
	ProfileID    string    `json:"profile_id"`
	MediaAssetID string    `json:"media_asset_id"`
	StartTimeMs  *int64    `json:"start_time_ms,omitempty"`
	EndTimeMs    *int64    `json:"end_time_ms,omitempty"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	Description  *string   `json:"description,omitempty"`
	EventType    string    `json:"event_type"`
	Places       []string  `json:"places"`
	Dates        []string  `json:"dates"`
	Keywords     []string  `json:"keywords"`
	Created      time.Time `json:"created"`
}

func errJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleUploadInit(c *fiber.Ctx) error {
	var req uploadInitRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}
	if !extract.IsSupported(req.MimeType) {
		return errJSON(c, fiber.StatusBadRequest, fmt.Sprintf("Unsupported mime type: %s", req.MimeType))
	}
	if req.Bytes > s.maxObjectBytes {
		return errJSON(c, fiber.StatusBadRequest, "File exceeds 500 MB limit")
	}

	objectKey := fmt.Sprintf("%s/%s%s", req.ProfileID, uuid.NewString(), path.Ext(req.FileName))
	uploadURL, err := s.objects.PresignPut(c.Context(), objectKey, req.MimeType, s.uploadExpiry)
	if err != nil {
		s.logger.Error("presign upload failed", "error", err)
		return errJSON(c, fiber.StatusInternalServerError, "Failed to create upload URL")
	}

	return c.JSON(uploadInitResponse{
		UploadURL: uploadURL,
		ObjectKey: objectKey,
		ExpiresIn: int64(s.uploadExpiry.Seconds()),
		MaxBytes:  s.maxObjectBytes,
	})
}

func (s *Server) handleUploadConfirm(c *fiber.Ctx) error {
	var req uploadConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err.Error())
	}

	// Trust the stored object, not the client, for the byte count.
	size, err := s.objects.Head(c.Context(), req.ObjectKey)
	if err != nil {
		return errJSON(c, fiber.StatusBadRequest, "Uploaded object not found")
	}

	asset, err := s.store.CreateMediaAsset(c.Context(), models.MediaAssetInput{
		ProfileID:       req.ProfileID,
		FileName:        req.ObjectKey,
		MimeType:        req.MimeType,
		Bytes:           size,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		s.logger.Error("create media asset failed", "error", err)
		return errJSON(c, fiber.StatusInternalServerError, "Failed to record media asset")
	}

	job, err := s.store.CreateJob(c.Context(), asset.ID)
	if err != nil {
		s.logger.Error("create job failed", "error", err)
		return errJSON(c, fiber.StatusInternalServerError, "Failed to enqueue extraction job")
	}

	return c.Status(fiber.StatusCreated).JSON(uploadConfirmResponse{
		MediaAssetID: models.RecordIDFull(asset.ID),
		JobID:        models.RecordIDFull(job.ID),
		Bytes:        size,
	})
}

func (s *Server) handleGetJob(c *fiber.Ctx) error {
	job, err := s.store.GetJob(c.Context(), models.BareRecordID("job", c.Params("id")))
	if err != nil {
		s.logger.Error("get job failed", "error", err)
		return errJSON(c, fiber.StatusInternalServerError, "Failed to load job")
	}
	if job == nil {
		return errJSON(c, fiber.StatusNotFound, "Job not found")
	}
	return c.JSON(toJobResponse(job))
}

func (s *Server) handleRequeueJob(c *fiber.Ctx) error {
	id := models.BareRecordID("job", c.Params("id"))
	job, err := s.store.GetJob(c.Context(), id)
	if err != nil {
		s.logger.Error("get job failed", "error", err)
		return errJSON(c, fiber.StatusInternalServerError, "Failed to load job")
	}
	if job == nil {
		return errJSON(c, fiber.StatusNotFound, "Job not found")
	}
	if job.Status != models.JobStatusFailed {
		return errJSON(c, fiber.StatusConflict, "Only failed jobs can be requeued")
	}

	requeued, err := s.store.RequeueJob(c.Context(), surrealmodels.NewRecordID("job", id))
	if err != nil {
		s.logger.Error("requeue job failed", "error", err)
		return errJSON(c, fiber.StatusInternalServerError, "Failed to requeue job")
	}
	if requeued == nil {
		// The job left the failed state between the read and the update.
		return errJSON(c, fiber.StatusConflict, "Only failed jobs can be requeued")
	}
	return c.JSON(toJobResponse(requeued))
}

func (s *Server) handleAsk(c *fiber.Ctx) error {
	var req askRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Question) == "" {
		return errJSON(c, fiber.StatusBadRequest, "Question is required.")
	}
	profileID := c.Params("profileID")

	pack, err := s.retriever.Retrieve(c.Context(), profileID, req.Question)
	if err != nil {
		s.logger.Error("retrieval failed", "profile", profileID, "error", err)
		return errJSON(c, fiber.StatusInternalServerError, "Retrieval failed")
	}
	// Nothing retrieved means nothing to ground an answer on; the generator
	// is never invoked.
	if pack.Empty() {
		return c.JSON(askResponse{AnswerText: llm.DontKnow, SourceURLs: []string{}})
	}

	answer, err := s.answerer.Answer(c.Context(), pack)
	if err != nil {
		s.logger.Error("answer generation failed", "profile", profileID, "error", err)
		return errJSON(c, fiber.StatusInternalServerError, "Answer generation failed")
	}

	return c.JSON(askResponse{
		AnswerText: answer.AnswerText,
		SourceURLs: s.retriever.ResolveSourceURLs(pack, answer.UsedCitationIDs),
	})
}

func (s *Server) handleListMemories(c *fiber.Ctx) error {
	profileID := c.Params("profileID")
	units, err := s.store.MemoryUnitsByProfile(c.Context(), profileID, s.memoryPageSize)
	if err != nil {
		s.logger.Error("list memories failed", "profile", profileID, "error", err)
		return errJSON(c, fiber.StatusInternalServerError, "Failed to list memories")
	}

	out := make([]memoryResponse, 0, len(units))
	for _, u := range units {
		out = append(out, memoryResponse{
			ID:           models.RecordIDFull(u.ID),
			ProfileID:    u.ProfileID,
			MediaAssetID: models.RecordIDFull(u.MediaAssetID),
			StartTimeMs:  u.StartTimeMs,
			EndTimeMs:    u.EndTimeMs,
			Title:        u.Title,
			Summary:      u.Summary,
			Description:  u.Description,
			EventType:    u.EventType,
			Places:       u.Places,
			Dates:        u.Dates,
			Keywords:     u.Keywords,
			Created:      u.Created,
		})
	}
	return c.JSON(fiber.Map{"memories": out})
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	return c.JSON(s.metrics.Snapshot())
}

func toJobResponse(job *models.Job) jobResponse {
	return jobResponse{
		ID:           models.RecordIDFull(job.ID),
		JobType:      job.JobType,
		Status:       string(job.Status),
		MediaAssetID: models.RecordIDFull(job.MediaAssetID),
		Attempt:      job.Attempt,
		ErrorDetail:  job.ErrorDetail,
		Created:      job.Created,
		StartedAt:    job.StartedAt,
		CompletedAt:  job.CompletedAt,
	}
}
