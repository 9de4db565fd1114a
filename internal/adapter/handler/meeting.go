package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-rag/errors"
	"github.com/johnquangdev/meeting-rag/internal/adapter/dto/meeting"
	"github.com/johnquangdev/meeting-rag/internal/adapter/presenter"
	"github.com/johnquangdev/meeting-rag/internal/domain/entities"
	"github.com/johnquangdev/meeting-rag/internal/domain/repositories"
	"github.com/johnquangdev/meeting-rag/internal/usecase/qa"
)

// Processor runs and removes meetings
type Processor interface {
	Ingest(ctx context.Context, audioPath, meetingID string) (*entities.MeetingResult, string, error)
	Delete(ctx context.Context, meetingID string) error
}

// Querier reads meetings and answers questions about them
type Querier interface {
	Ask(ctx context.Context, params qa.AskParams) (*qa.AskResult, error)
	Get(ctx context.Context, meetingID string) (*entities.MeetingResult, error)
	List(ctx context.Context) ([]string, error)
}

// Meeting handles meeting-related HTTP requests
type Meeting struct {
	processor      Processor
	querier        Querier
	catalog        repositories.MeetingRepository
	uploadDir      string
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewMeetingHandler creates a new meeting handler. catalog may be nil.
func NewMeetingHandler(processor Processor, querier Querier, catalog repositories.MeetingRepository, uploadDir string, maxUploadBytes int64, logger *zap.Logger) *Meeting {
	return &Meeting{
		processor:      processor,
		querier:        querier,
		catalog:        catalog,
		uploadDir:      uploadDir,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// allowedAudioExts lists the upload extensions the diarizer can decode.
var allowedAudioExts = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".flac": true,
}

// Upload handles POST /meetings (multipart "file", optional "meeting_id")
func (h *Meeting) Upload(c echo.Context) error {
	var req meeting.UploadRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload(err))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrValidationFailed(err))
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument("multipart field \"file\" is required"))
	}
	if ext := strings.ToLower(filepath.Ext(fileHeader.Filename)); !allowedAudioExts[ext] {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(
			fmt.Sprintf("unsupported audio format %q: expected .wav, .mp3, .m4a or .flac", ext)))
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(
			fmt.Sprintf("file exceeds the %d byte upload limit", h.maxUploadBytes)))
	}

	audioPath, err := h.saveUpload(fileHeader.Filename, func() (io.ReadCloser, error) {
		return fileHeader.Open()
	})
	if err != nil {
		return HandleError(h.logger, c, errors.ErrStorageFailed("save upload", err))
	}
	defer os.Remove(audioPath)

	if h.logger != nil {
		h.logger.Info("📥 Audio uploaded",
			zap.String("filename", fileHeader.Filename),
			zap.Int64("size", fileHeader.Size),
		)
	}

	return h.ingest(c, audioPath, req.MeetingID)
}

func (h *Meeting) saveUpload(filename string, open func() (io.ReadCloser, error)) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}
	src, err := open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(filename))
	dst, err := os.Create(filepath.Join(h.uploadDir, uuid.NewString()+ext))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), nil
}

// Process handles POST /meetings/process for audio already on disk
func (h *Meeting) Process(c echo.Context) error {
	var req meeting.ProcessRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload(err))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrValidationFailed(err))
	}
	return h.ingest(c, req.AudioPath, req.MeetingID)
}

func (h *Meeting) ingest(c echo.Context, audioPath, meetingID string) error {
	result, location, err := h.processor.Ingest(c.Request().Context(), audioPath, meetingID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleCreated(h.logger, c, presenter.ToMeetingResponse(result, location))
}

// List handles GET /meetings
func (h *Meeting) List(c echo.Context) error {
	ids, err := h.querier.List(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, &meeting.MeetingListResponse{
		Meetings: ids,
		Count:    len(ids),
	})
}

// Get handles GET /meetings/:id
func (h *Meeting) Get(c echo.Context) error {
	result, err := h.querier.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToMeetingResponse(result, ""))
}

// Transcript handles GET /meetings/:id/transcript
func (h *Meeting) Transcript(c echo.Context) error {
	result, err := h.querier.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToTranscriptResponse(result.Transcript))
}

// Ask handles POST /meetings/:id/ask
func (h *Meeting) Ask(c echo.Context) error {
	var req meeting.AskRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload(err))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrValidationFailed(err))
	}

	result, err := h.querier.Ask(c.Request().Context(), qa.AskParams{
		MeetingID: c.Param("id"),
		Question:  req.Question,
		TopK:      req.TopK,
	})
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, presenter.ToAskResponse(result))
}

// Delete handles DELETE /meetings/:id
func (h *Meeting) Delete(c echo.Context) error {
	if err := h.processor.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return HandleError(h.logger, c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Catalog handles GET /catalog
func (h *Meeting) Catalog(c echo.Context) error {
	if h.catalog == nil {
		return HandleError(h.logger, c, errors.AppError{
			HTTPCode: http.StatusNotImplemented,
			Code:     errors.ErrorCode_INTERNAL,
			Message:  "Meeting catalog is disabled; set DB_ENABLED=true",
		})
	}

	q := meeting.CatalogQuery{Page: 1, PageSize: 20}
	if err := c.Bind(&q); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload(err))
	}
	if err := c.Validate(&q); err != nil {
		return HandleError(h.logger, c, errors.ErrValidationFailed(err))
	}

	records, total, err := h.catalog.List(c.Request().Context(), q.PageSize, (q.Page-1)*q.PageSize)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrDBQueryFailed("list meetings", err))
	}
	return HandleSuccess(h.logger, c, presenter.ToCatalogListResponse(records, total, q.Page, q.PageSize))
}
