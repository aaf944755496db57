// Package certificates generates clearance certificate artifacts for
// completed cases. Rendering fans out across the case's completed sub-forms
// with bounded concurrency; each artifact succeeds or fails independently and
// failures are reported as records, never silently dropped.
package certificates

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/avissapr/nodues/internal/metrics"
	"github.com/avissapr/nodues/internal/models"
	"github.com/avissapr/nodues/internal/security"
)

var (
	// ErrNoValidForms means the case carried no decodable sub-form payloads,
	// so there was nothing to render.
	ErrNoValidForms = errors.New("no valid form responses to generate certificates from")

	// ErrAllFailed means valid payloads existed but every render failed.
	ErrAllFailed = errors.New("all certificate generations failed")
)

// Config bounds the pipeline.
type Config struct {
	OutputDir       string
	MaxConcurrent   int           // parallel renders; <=0 means 4
	RenderTimeout   time.Duration // per artifact; <=0 means 30s
	MaxArtifactSize int64         // bytes; <=0 means 20MB
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	if c.RenderTimeout <= 0 {
		c.RenderTimeout = 30 * time.Second
	}
	if c.MaxArtifactSize <= 0 {
		c.MaxArtifactSize = 20 << 20
	}
	return c
}

// Pipeline renders and persists certificate artifacts.
type Pipeline struct {
	renderer Renderer
	cfg      Config
	logger   *security.Logger
	metrics  *metrics.Metrics

	now func() time.Time
}

// NewPipeline wires a pipeline. logger and m may be nil.
func NewPipeline(renderer Renderer, cfg Config, logger *security.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		renderer: renderer,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// Generate renders one artifact per decodable sub-form response and writes
// each to the output directory.
//
// Artifacts are rendered concurrently up to the configured limit, each under
// its own timeout and size ceiling, so one slow or oversized render cannot
// stall or sink its siblings. Per-artifact failures come back as failed
// descriptors; the returned error is non-nil only when no response was
// decodable (ErrNoValidForms) or every render failed (ErrAllFailed).
func (p *Pipeline) Generate(ctx context.Context, caseID string, responses map[string]json.RawMessage) ([]models.Certificate, []models.Certificate, error) {
	start := p.now()
	defer func() { p.metrics.PipelineDuration(time.Since(start)) }()

	var docs []Document
	var failed []models.Certificate

	// Iterate the closed key set for a deterministic scheduling order.
	for _, key := range models.SubFormKeys() {
		raw, ok := responses[key]
		if !ok {
			continue
		}
		fields, err := models.DecodeObject(raw)
		if err != nil {
			failed = append(failed, p.failedCertificate(caseID, key, fmt.Errorf("malformed payload: %w", err)))
			continue
		}
		docs = append(docs, Document{CaseID: caseID, FormType: key, Fields: fields})
	}

	if len(docs) == 0 {
		return nil, failed, ErrNoValidForms
	}

	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return nil, failed, fmt.Errorf("create certificate directory: %w", err)
	}

	var (
		mu        sync.Mutex
		succeeded []models.Certificate
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxConcurrent)

	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			cert, err := p.generateOne(gctx, doc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if p.logger != nil {
					p.logger.Error(fmt.Sprintf("certificate %s/%s failed", doc.CaseID, doc.FormType), err)
				}
				failed = append(failed, p.failedCertificate(doc.CaseID, doc.FormType, err))
				return nil
			}
			succeeded = append(succeeded, *cert)
			return nil
		})
	}
	g.Wait()

	if len(succeeded) == 0 {
		return nil, failed, ErrAllFailed
	}
	return succeeded, failed, nil
}

// generateOne renders a single document under its own timeout and persists
// the artifact.
func (p *Pipeline) generateOne(ctx context.Context, doc Document) (*models.Certificate, error) {
	rctx, cancel := context.WithTimeout(ctx, p.cfg.RenderTimeout)
	defer cancel()

	type renderResult struct {
		data []byte
		err  error
	}
	ch := make(chan renderResult, 1)
	go func() {
		data, err := p.renderer.Render(rctx, doc)
		ch <- renderResult{data, err}
	}()

	var data []byte
	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("render: %w", res.err)
		}
		data = res.data
	case <-rctx.Done():
		return nil, fmt.Errorf("render timed out after %s", p.cfg.RenderTimeout)
	}

	if int64(len(data)) > p.cfg.MaxArtifactSize {
		return nil, fmt.Errorf("artifact size %d exceeds limit %d", len(data), p.cfg.MaxArtifactSize)
	}

	now := p.now()
	sum := sha256.Sum256(data)
	fingerprint := hex.EncodeToString(sum[:])[:8]
	filename := fmt.Sprintf("%s_%s_%d_%s.pdf", doc.FormType, doc.CaseID, now.UnixMilli(), fingerprint)
	path := filepath.Join(p.cfg.OutputDir, filename)

	// O_EXCL guarantees a fresh artifact can never clobber an existing one;
	// the timestamp plus content fingerprint in the name makes collisions a
	// hard error worth surfacing.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create artifact: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close artifact: %w", err)
	}

	return &models.Certificate{
		ID:          fmt.Sprintf("%s-%s-%d-%s", doc.CaseID, doc.FormType, now.UnixMilli(), fingerprint),
		CaseID:      doc.CaseID,
		FormType:    doc.FormType,
		Filename:    filename,
		Filepath:    path,
		GeneratedAt: now,
		FileSize:    int64(len(data)),
		Status:      models.CertificateSuccess,
	}, nil
}

func (p *Pipeline) failedCertificate(caseID, formType string, err error) models.Certificate {
	now := p.now()
	return models.Certificate{
		ID:          fmt.Sprintf("%s-%s-%d-failed", caseID, formType, now.UnixMilli()),
		CaseID:      caseID,
		FormType:    formType,
		GeneratedAt: now,
		Status:      models.CertificateFailed,
		Error:       err.Error(),
	}
}
