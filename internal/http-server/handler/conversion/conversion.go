package conversion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pdf-rocket/internal/domain"
	"pdf-rocket/internal/http-server/handler/conversion/dto"
	"pdf-rocket/internal/session"
	conversion_uc "pdf-rocket/internal/usecase/conversion"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/zlog"
)

const (
	archiveFilename = "converted-documents.zip"
	emailNote       = "Note: Actual email functionality requires SMTP server setup."
)

type Config struct {
	CookieName   string
	MaxBatchSize int64
	SessionTTL   time.Duration
}

type ConversionHandler struct {
	usecase  conversionUsecase
	sessions sessionStore
	validate *validator.Validate
	logger   *zlog.Zerolog
	cfg      Config
}

func NewConversionHandler(usecase conversionUsecase, sessions sessionStore, cfg Config, logger *zlog.Zerolog) *ConversionHandler {
	if cfg.CookieName == "" {
		cfg.CookieName = "pdfrocket_session"
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 10 * usecase.MaxFileSize()
	}
	return &ConversionHandler{
		usecase:  usecase,
		sessions: sessions,
		validate: validator.New(),
		logger:   logger,
		cfg:      cfg,
	}
}

func (h *ConversionHandler) ConvertFiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := h.session(w, r)

	rawQuality, uploads, err := readUploads(r, h.usecase.MaxFileSize(), h.cfg.MaxBatchSize)
	if err != nil {
		if errors.Is(err, ErrBatchTooLarge) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "Upload batch is too large", nil)
			return
		}
		h.logger.Warn().Err(err).Msg("Failed to read multipart form")
		h.respondError(w, http.StatusBadRequest, "Invalid request format", nil)
		return
	}

	req := dto.ConvertRequest{
		Quality: strings.ToLower(strings.TrimSpace(rawQuality)),
		Files:   len(uploads),
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, validationMessage(err), nil)
		return
	}

	quality, err := domain.ParseQualityMode(req.Quality)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Unknown conversion quality", nil)
		return
	}

	report, err := h.usecase.ConvertBatch(ctx, uploads, quality, sess.History)
	if err != nil {
		h.handleConvertError(w, err)
		return
	}

	response := dto.BatchResponse{
		Quality:   string(report.Quality),
		Converted: report.Converted,
		Skipped:   report.Skipped,
		Failed:    report.Failed,
		Files:     make([]dto.FileResult, 0, len(report.Outcomes)),
	}
	for _, o := range report.Outcomes {
		res := dto.FileResult{
			Name:          o.Name,
			ConvertedName: o.ConvertedName,
			Status:        string(o.Status),
			Error:         o.Error,
			Size:          o.Size,
		}
		if o.Status == domain.OutcomeConverted {
			res.DataURI = "data:" + domain.DocxContentType + ";base64," + o.EncodedPayload
		}
		response.Files = append(response.Files, res)
	}

	h.logger.Info().
		Str("session_id", sess.ID).
		Int("converted", report.Converted).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("Conversion batch finished")

	h.respondJSON(w, http.StatusOK, response)
}

func (h *ConversionHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	entries := sess.History.Recent()
	response := dto.HistoryResponse{
		Entries: make([]dto.HistoryItem, 0, len(entries)),
	}
	for i, e := range entries {
		response.Entries = append(response.Entries, dto.HistoryItem{
			Index:         i,
			OriginalName:  e.OriginalName,
			ConvertedName: e.ConvertedName,
			Timestamp:     e.FormattedTimestamp(),
			DownloadURL:   fmt.Sprintf("/api/history/%d/download", i),
		})
	}
	if len(entries) > 0 {
		response.ArchiveURL = "/api/history/archive"
	}

	h.respondJSON(w, http.StatusOK, response)
}

func (h *ConversionHandler) DownloadHistoryEntry(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "History index must be a number", ErrInvalidIndex)
		return
	}

	name, data, err := h.usecase.Download(sess.History, index)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrHistoryIndex):
			h.respondError(w, http.StatusNotFound, "History entry not found", nil)
		default:
			h.logger.Error().Err(err).Int("index", index).Msg("Failed to decode history entry")
			h.respondError(w, http.StatusInternalServerError, "Failed to load document", err)
		}
		return
	}

	h.serveAttachment(w, name, domain.DocxContentType, data)
}

func (h *ConversionHandler) DownloadArchive(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)

	var buf bytes.Buffer
	if err := h.usecase.WriteArchive(&buf, sess.History); err != nil {
		switch {
		case errors.Is(err, conversion_uc.ErrEmptyHistory):
			h.respondError(w, http.StatusNotFound, "No converted documents yet", nil)
		default:
			h.logger.Error().Err(err).Str("session_id", sess.ID).Msg("Failed to build archive")
			h.respondError(w, http.StatusInternalServerError, "Failed to build archive", err)
		}
		return
	}

	h.serveAttachment(w, archiveFilename, "application/zip", buf.Bytes())
}

func (h *ConversionHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request format", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Please enter a valid email address", nil)
		return
	}

	message, err := h.usecase.SendEmail(req.Email)
	if err != nil {
		if errors.Is(err, conversion_uc.ErrInvalidEmail) {
			h.respondError(w, http.StatusBadRequest, "Please enter a valid email address", nil)
			return
		}
		h.logger.Error().Err(err).Msg("Failed to send email")
		h.respondError(w, http.StatusInternalServerError, "Failed to send email", err)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.EmailResponse{
		Message: message,
		Note:    emailNote,
	})
}

func (h *ConversionHandler) ListQualities(w http.ResponseWriter, r *http.Request) {
	options := make([]dto.QualityOption, 0, 2)
	for _, q := range []domain.QualityMode{domain.QualityBasic, domain.QualityFormatted} {
		options = append(options, dto.QualityOption{
			Value:       string(q),
			Description: q.Description(),
			Default:     q == domain.QualityFormatted,
		})
	}
	h.respondJSON(w, http.StatusOK, options)
}

func (h *ConversionHandler) session(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if c, err := r.Cookie(h.cfg.CookieName); err == nil {
		id = c.Value
	}

	sess, _ := h.sessions.Get(id)

	// Re-issued on every access so the cookie lifetime slides with the server-side TTL.
	cookie := &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if h.cfg.SessionTTL > 0 {
		cookie.MaxAge = int(h.cfg.SessionTTL.Seconds())
	}
	http.SetCookie(w, cookie)
	return sess
}

func (h *ConversionHandler) handleConvertError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conversion_uc.ErrEmptyBatch):
		h.respondError(w, http.StatusBadRequest, "At least one PDF file is required", nil)
	case errors.Is(err, domain.ErrUnknownQuality):
		h.respondError(w, http.StatusBadRequest, "Unknown conversion quality", nil)
	default:
		h.logger.Error().Err(err).Msg("Conversion batch failed")
		h.respondError(w, http.StatusInternalServerError, "Failed to convert files", err)
	}
}

func (h *ConversionHandler) serveAttachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		h.logger.Error().Err(err).Str("filename", filename).Msg("Failed to stream attachment")
	}
}

func (h *ConversionHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *ConversionHandler) respondError(w http.ResponseWriter, status int, message string, err error) {
	response := dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	}

	if err != nil {
		response.Details = err.Error()
	}

	h.respondJSON(w, status, response)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	switch verrs[0].Field() {
	case "Files":
		return ErrNoFiles.Error()
	case "Quality":
		return "Unknown conversion quality"
	default:
		return "Invalid request"
	}
}
