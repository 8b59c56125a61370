package conversion

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"pdf-rocket/internal/domain"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/wb-go/wbf/zlog"
)

type ConversionUsecase struct {
	converter   converter
	scratch     scratchDir
	fileRepo    fileRepository
	publisher   eventPublisher
	logger      *zlog.Zerolog
	maxFileSize int64

	// One batch at a time: the end-of-pass purge empties the whole scratch dir.
	mu sync.Mutex
}

// NewConversionUsecase wires the batch flow. Archiving and events stay off until
// WithArchive and WithEvents are called.
func NewConversionUsecase(conv converter, scratch scratchDir, logger *zlog.Zerolog, maxFileSize int64) *ConversionUsecase {
	if maxFileSize <= 0 {
		maxFileSize = domain.DefaultMaxUploadSize
	}
	return &ConversionUsecase{
		converter:   conv,
		scratch:     scratch,
		logger:      logger,
		maxFileSize: maxFileSize,
	}
}

// WithArchive enables copying converted documents to object storage.
func (u *ConversionUsecase) WithArchive(repo fileRepository) *ConversionUsecase {
	u.fileRepo = repo
	return u
}

// WithEvents enables publishing one event per processed file.
func (u *ConversionUsecase) WithEvents(publisher eventPublisher) *ConversionUsecase {
	u.publisher = publisher
	return u
}

func (u *ConversionUsecase) MaxFileSize() int64 {
	return u.maxFileSize
}

// ConvertBatch converts uploads one after another. A file that is too large or fails to
// convert is reported in the batch report and does not stop the remaining files.
// Successful conversions are appended to history when it is non-nil.
func (u *ConversionUsecase) ConvertBatch(ctx context.Context, uploads []domain.Upload, quality domain.QualityMode, history *domain.History) (*domain.BatchReport, error) {
	if !quality.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownQuality, quality)
	}
	if len(uploads) == 0 {
		return nil, ErrEmptyBatch
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if err := u.scratch.Ensure(); err != nil {
		return nil, err
	}
	defer u.scratch.Purge()

	start := time.Now()
	report := &domain.BatchReport{Quality: quality}
	for _, upload := range uploads {
		outcome := u.convertOne(ctx, upload, quality, history)
		report.Add(outcome)
	}

	u.logger.Info().
		Str("quality", string(quality)).
		Int("files", len(uploads)).
		Int("converted", report.Converted).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Dur("duration", time.Since(start)).
		Msg("Batch processed")

	return report, nil
}

func (u *ConversionUsecase) convertOne(ctx context.Context, upload domain.Upload, quality domain.QualityMode, history *domain.History) domain.FileOutcome {
	outcome := domain.FileOutcome{
		Name: upload.Name,
		Size: upload.Size,
	}

	if upload.Size > u.maxFileSize {
		return u.skip(ctx, outcome, quality)
	}

	req := u.scratch.NewRequest(quality)

	written, err := u.writeSource(req.SourcePath, upload.Content)
	if err != nil {
		u.logger.Error().Err(err).Str("filename", upload.Name).Msg("Failed to save upload")
		outcome.Status = domain.OutcomeFailed
		outcome.Error = fmt.Sprintf("Error saving %s: %v", upload.Name, err)
		u.publish(ctx, req.ID, outcome, quality, 0, "")
		return outcome
	}
	outcome.Size = written
	if written > u.maxFileSize {
		return u.skip(ctx, outcome, quality)
	}

	u.logger.Info().
		Str("request_id", req.ID).
		Str("filename", upload.Name).
		Str("quality", string(quality)).
		Msg("Converting file")

	if err := u.converter.Convert(ctx, req.SourcePath, req.DestinationPath, quality); err != nil {
		u.logger.Warn().Err(err).Str("request_id", req.ID).Str("filename", upload.Name).Msg("Conversion failed")
		outcome.Status = domain.OutcomeFailed
		outcome.Error = fmt.Sprintf("Error converting %s: %v", upload.Name, err)
		u.publish(ctx, req.ID, outcome, quality, 0, "")
		return outcome
	}

	data, err := os.ReadFile(req.DestinationPath)
	if err != nil {
		u.logger.Error().Err(err).Str("request_id", req.ID).Msg("Failed to read converted file")
		outcome.Status = domain.OutcomeFailed
		outcome.Error = fmt.Sprintf("Error reading converted %s: %v", upload.Name, err)
		u.publish(ctx, req.ID, outcome, quality, 0, "")
		return outcome
	}

	outcome.Status = domain.OutcomeConverted
	outcome.ConvertedName = domain.ConvertedName(upload.Name)
	outcome.EncodedPayload = base64.StdEncoding.EncodeToString(data)

	if history != nil {
		history.Add(domain.HistoryEntry{
			OriginalName:   outcome.Name,
			ConvertedName:  outcome.ConvertedName,
			Timestamp:      time.Now(),
			EncodedPayload: outcome.EncodedPayload,
		})
	}

	archivePath := u.archive(ctx, req.ID, outcome.ConvertedName, data)
	u.publish(ctx, req.ID, outcome, quality, int64(len(data)), archivePath)

	return outcome
}

func (u *ConversionUsecase) skip(ctx context.Context, outcome domain.FileOutcome, quality domain.QualityMode) domain.FileOutcome {
	u.logger.Warn().
		Str("filename", outcome.Name).
		Int64("size", outcome.Size).
		Int64("limit", u.maxFileSize).
		Msg("File exceeds size limit")

	outcome.Status = domain.OutcomeSkipped
	outcome.Error = fmt.Sprintf("%s exceeds the %s limit and will be skipped.", outcome.Name, humanize.IBytes(uint64(u.maxFileSize)))
	u.publish(ctx, "", outcome, quality, 0, "")
	return outcome
}

// writeSource copies at most one byte past the limit so oversize bodies are detected
// without reading them fully.
func (u *ConversionUsecase) writeSource(path string, content io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := io.Copy(f, io.LimitReader(content, u.maxFileSize+1))
	if err != nil {
		return n, err
	}
	return n, f.Close()
}

func (u *ConversionUsecase) archive(ctx context.Context, requestID, name string, data []byte) string {
	if u.fileRepo == nil {
		return ""
	}

	path := domain.PathPrefixConverted + requestID + "/" + name
	if err := u.fileRepo.SaveConverted(ctx, path, bytes.NewReader(data), int64(len(data)), domain.DocxContentType); err != nil {
		u.logger.Error().Err(err).Str("request_id", requestID).Str("path", path).Msg("Failed to archive converted file")
		return ""
	}
	return path
}

func (u *ConversionUsecase) publish(ctx context.Context, requestID string, outcome domain.FileOutcome, quality domain.QualityMode, outputSize int64, archivePath string) {
	if u.publisher == nil {
		return
	}
	if requestID == "" {
		requestID = newEventID()
	}

	event := &domain.ConversionEvent{
		ID:            requestID,
		OriginalName:  outcome.Name,
		ConvertedName: outcome.ConvertedName,
		Quality:       quality,
		Status:        outcome.Status,
		Error:         outcome.Error,
		SourceSize:    outcome.Size,
		OutputSize:    outputSize,
		ArchivePath:   archivePath,
		CreatedAt:     time.Now(),
	}
	if err := u.publisher.Publish(ctx, event); err != nil {
		u.logger.Error().Err(err).Str("request_id", requestID).Msg("Failed to publish conversion event")
	}
}

func newEventID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// SendEmail only validates the address. Delivery is not implemented.
func (u *ConversionUsecase) SendEmail(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" || !strings.Contains(address, "@") || !strings.Contains(address, ".") {
		return "", ErrInvalidEmail
	}

	u.logger.Info().Str("email", address).Msg("Email delivery requested (not implemented)")
	return fmt.Sprintf("Files would be sent to %s in production.", address), nil
}

// Download decodes the history entry at index (newest first).
func (u *ConversionUsecase) Download(history *domain.History, index int) (string, []byte, error) {
	entry, err := history.At(index)
	if err != nil {
		return "", nil, err
	}

	data, err := base64.StdEncoding.DecodeString(entry.EncodedPayload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	return entry.ConvertedName, data, nil
}

// WriteArchive zips every history entry into w, newest first.
func (u *ConversionUsecase) WriteArchive(w io.Writer, history *domain.History) error {
	entries := history.Recent()
	if len(entries) == 0 {
		return ErrEmptyHistory
	}

	zw := zip.NewWriter(w)
	used := make(map[string]bool, len(entries))
	for _, entry := range entries {
		data, err := base64.StdEncoding.DecodeString(entry.EncodedPayload)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptPayload, err)
		}

		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     uniqueName(used, entry.ConvertedName),
			Method:   zip.Deflate,
			Modified: entry.Timestamp,
		})
		if err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", entry.ConvertedName, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("failed to write %s to archive: %w", entry.ConvertedName, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

// uniqueName returns name, or "<base> (N).docx" with the smallest N not yet used.
func uniqueName(used map[string]bool, name string) string {
	candidate := name
	base := strings.TrimSuffix(name, domain.DocxExtension)
	for n := 2; used[candidate]; n++ {
		candidate = fmt.Sprintf("%s (%d)%s", base, n, domain.DocxExtension)
	}
	used[candidate] = true
	return candidate
}
