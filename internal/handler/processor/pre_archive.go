package processor

import (
	"context"
	"log/slog"
	"time"

	"github.com/isometry/sms-relay-app/internal/helpers"
	"github.com/isometry/sms-relay-app/internal/metrics"
	"github.com/isometry/sms-relay-app/internal/relay"
)

// Archiver stores raw payloads.
type Archiver interface {
	PutS3Object(ctx context.Context, bucket, prefix string, body []byte) (string, error)
}

type archivePreProcessor struct {
	logger   *slog.Logger
	archiver Archiver
	bucket   string
	prefix   string
}

// NewArchivePreProcessor returns the stage that stores authenticated inbound payloads in S3.
// It is a no-op without a bucket. Failures are logged and never stop the pipeline.
func NewArchivePreProcessor(archiver Archiver, bucket, prefix string, opts ...Option) Processor {
	_inst := &archivePreProcessor{archiver: archiver, bucket: bucket, prefix: prefix, logger: helpers.NewNoopLogger()}
	applyOpts(_inst, opts...)
	return _inst
}

func (p *archivePreProcessor) SetLogger(logger *slog.Logger) {
	p.logger = logger.WithGroup("pre-processor:archive")
}

func (p *archivePreProcessor) Process(ctx context.Context, bus *relay.Bus) error {
	if p.archiver == nil || p.bucket == "" {
		p.logger.Debug("archive is disabled")
		return nil
	}

	start := time.Now()
	key, err := p.archiver.PutS3Object(ctx, p.bucket, p.prefix, bus.Request.Body)
	metrics.RecordUpstreamCall(metrics.UpstreamS3, err, time.Since(start))
	if err != nil {
		p.logger.Warn("failed to archive payload", slog.Any("error", err))
		return nil
	}
	bus.ArchiveKey = key
	return nil
}
