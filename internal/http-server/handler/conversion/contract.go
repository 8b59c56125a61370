package conversion

import (
	"context"
	"io"

	"pdf-rocket/internal/domain"
	"pdf-rocket/internal/session"
)

type conversionUsecase interface {
	ConvertBatch(ctx context.Context, uploads []domain.Upload, quality domain.QualityMode, history *domain.History) (*domain.BatchReport, error)
	SendEmail(address string) (string, error)
	Download(history *domain.History, index int) (string, []byte, error)
	WriteArchive(w io.Writer, history *domain.History) error
	MaxFileSize() int64
}

type sessionStore interface {
	Get(id string) (*session.Session, bool)
}
