package conversion

import (
	"context"
	"io"

	"pdf-rocket/internal/domain"
)

type converter interface {
	Convert(ctx context.Context, sourcePath, destinationPath string, quality domain.QualityMode) error
}

type scratchDir interface {
	Ensure() error
	Purge() int
	NewRequest(quality domain.QualityMode) domain.ConversionRequest
}

type fileRepository interface {
	SaveConverted(ctx context.Context, path string, data io.ReadSeeker, size int64, contentType string) error
}

type eventPublisher interface {
	Publish(ctx context.Context, event *domain.ConversionEvent) error
}
