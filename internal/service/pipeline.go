package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"

	"snaplens/internal/analysis"
	"snaplens/internal/domain"
	"snaplens/internal/imaging"
	"snaplens/internal/photostore"
	"snaplens/internal/settings"
)

var (
	// ErrNoSnapshot rejects analyze/save calls before any photo was captured.
	ErrNoSnapshot = errors.New("no captured photo available")

	// ErrNoEndpoint rejects a custom analysis with neither an explicit nor a
	// stored endpoint.
	ErrNoEndpoint = errors.New("no custom endpoint configured")
)

// captureSource is the subset of camera.Source the pipeline requires.
type captureSource interface {
	Capture() error
	Snapshots() <-chan domain.Snapshot
	Ready() bool
}

// analysisClient is the subset of analysis.Client the pipeline requires.
type analysisClient interface {
	Configure(cfg analysis.Config)
	Analyze(ctx context.Context, img image.Image, description string) (uint64, error)
	AnalyzeCustom(ctx context.Context, img image.Image, description, endpoint string) (uint64, error)
	Events() <-chan analysis.Event
}

// recordRepository is the subset of store.RecordStore the pipeline requires.
type recordRepository interface {
	Create(ctx context.Context, storageKey, mimeType, description, responseText string) (*domain.PhotoRecord, error)
	GetByID(ctx context.Context, id int64) (*domain.PhotoRecord, error)
	List(ctx context.Context) ([]*domain.PhotoRecord, error)
	Clear(ctx context.Context) ([]string, error)
}

// settingsRepository is the subset of settings.Store the pipeline requires.
type settingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
}

// pendingShot is the photo waiting between capture and save, together with
// whatever the analysis round attached to it.
type pendingShot struct {
	snap     domain.Snapshot
	desc     string
	response string
}

// PipelineService owns the capture-and-analyze flow: it triggers the capture
// source, feeds the resulting snapshot through the analysis client, and turns
// explicit saves into durable gallery records.
type PipelineService struct {
	source   captureSource
	client   analysisClient
	records  recordRepository
	photoStg photostore.PhotoStore
	settings settingsRepository
	baseCfg  analysis.Config
	logger   *slog.Logger

	mu      sync.Mutex
	current *pendingShot

	captureMu sync.Mutex
}

func NewPipelineService(
	source captureSource,
	client analysisClient,
	records recordRepository,
	photoStg photostore.PhotoStore,
	settingsStore settingsRepository,
	baseCfg analysis.Config,
	logger *slog.Logger,
) *PipelineService {
	return &PipelineService{
		source:   source,
		client:   client,
		records:  records,
		photoStg: photoStg,
		settings: settingsStore,
		baseCfg:  baseCfg,
		logger:   logger,
	}
}

// ApplySettings overlays persisted settings onto the base configuration and
// pushes the result into the analysis client.
func (s *PipelineService) ApplySettings(ctx context.Context) error {
	cfg := s.baseCfg

	stored, err := s.settings.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if v := stored[settings.KeyAPIKey]; v != "" {
		cfg.Credential = v
	}
	if v := stored[settings.KeyEndpoint]; v != "" {
		cfg.Endpoint = v
	}
	if v := stored[settings.KeyModel]; v != "" {
		cfg.Model = v
	}

	s.client.Configure(cfg)
	return nil
}

// UpdateSetting persists one setting and reconfigures the client.
func (s *PipelineService) UpdateSetting(ctx context.Context, key, value string) error {
	if err := s.settings.Set(ctx, key, value); err != nil {
		return err
	}
	return s.ApplySettings(ctx)
}

// Settings returns the persisted settings map.
func (s *PipelineService) Settings(ctx context.Context) (map[string]string, error) {
	return s.settings.All(ctx)
}

// Capture triggers the capture source and waits for the snapshot event. The
// snapshot becomes the current photo, replacing any earlier unsaved one.
// Captures are serialized: the source emits one snapshot per request, so a
// second trigger must wait until the first snapshot has landed.
func (s *PipelineService) Capture(ctx context.Context) (*domain.Snapshot, error) {
	s.captureMu.Lock()
	defer s.captureMu.Unlock()

	if err := s.source.Capture(); err != nil {
		return nil, err
	}

	select {
	case snap := <-s.source.Snapshots():
		s.mu.Lock()
		s.current = &pendingShot{snap: snap}
		s.mu.Unlock()
		s.logger.Info("photo captured", "width", snap.Width, "height", snap.Height)
		return &snap, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Analyze sends the current photo with description to the configured provider
// and waits for the terminal event.
func (s *PipelineService) Analyze(ctx context.Context, description string) (string, error) {
	shot := s.currentShot()
	if shot == nil {
		return "", ErrNoSnapshot
	}

	s.logger.Info("analysis started", "description_chars", len(description))
	seq, err := s.client.Analyze(ctx, shot.snap.Image, description)
	if err != nil {
		return "", err
	}

	text, err := s.awaitOutcome(ctx, seq)
	if err != nil {
		return "", err
	}
	s.attachResult(description, text)
	return text, nil
}

// AnalyzeCustom is Analyze against a caller-supplied endpoint speaking the
// minimal schema. An empty endpoint falls back to the persisted one.
func (s *PipelineService) AnalyzeCustom(ctx context.Context, description, endpoint string) (string, error) {
	shot := s.currentShot()
	if shot == nil {
		return "", ErrNoSnapshot
	}

	if endpoint == "" {
		stored, err := s.settings.Get(ctx, settings.KeyCustomEndpoint)
		if err != nil {
			return "", err
		}
		endpoint = stored
	}
	if endpoint == "" {
		return "", ErrNoEndpoint
	}

	s.logger.Info("custom analysis started", "endpoint", endpoint)
	seq, err := s.client.AnalyzeCustom(ctx, shot.snap.Image, description, endpoint)
	if err != nil {
		return "", err
	}

	text, err := s.awaitOutcome(ctx, seq)
	if err != nil {
		return "", err
	}
	s.attachResult(description, text)
	return text, nil
}

// awaitOutcome drains client events until this call's terminal response or
// error, identified by seq. Events from earlier calls are discarded: an
// analysis abandoned on timeout still deposits its outcome on the shared
// channel, and that stale outcome must not pass as this call's result.
// Loading notifications are passed over; they exist for presentation layers
// observing the channel directly.
func (s *PipelineService) awaitOutcome(ctx context.Context, seq uint64) (string, error) {
	for {
		select {
		case ev := <-s.client.Events():
			if ev.Seq != seq {
				continue
			}
			switch ev.Type {
			case analysis.EventResponse:
				return ev.Text, nil
			case analysis.EventError:
				return "", ev.Err
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// SaveRecord persists the current photo and its analysis outcome as a gallery
// record. Saving is explicit; captures that are never saved leave no trace.
func (s *PipelineService) SaveRecord(ctx context.Context) (*domain.PhotoRecord, error) {
	shot := s.currentShot()
	if shot == nil {
		return nil, ErrNoSnapshot
	}

	data, err := imaging.EncodeJPEG(shot.snap.Image)
	if err != nil {
		return nil, err
	}

	key, err := s.photoStg.Save(ctx, "shot", "image/jpeg", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to save photo: %w", err)
	}

	record, err := s.records.Create(ctx, key, "image/jpeg", shot.desc, shot.response)
	if err != nil {
		if derr := s.photoStg.Delete(ctx, key); derr != nil {
			s.logger.Error("failed to remove orphaned photo", "storage_key", key, "error", derr)
		}
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	s.logger.Info("record saved", "record_id", record.ID, "storage_key", key)
	return record, nil
}

// ListRecords returns the gallery, newest first.
func (s *PipelineService) ListRecords(ctx context.Context) ([]*domain.PhotoRecord, error) {
	return s.records.List(ctx)
}

// RecordPhoto streams the stored image behind a record.
func (s *PipelineService) RecordPhoto(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if record == nil {
		return nil, "", fmt.Errorf("record not found")
	}
	return s.photoStg.Get(ctx, record.StorageKey)
}

// ClearGallery removes every record and its backing file.
func (s *PipelineService) ClearGallery(ctx context.Context) error {
	keys, err := s.records.Clear(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.photoStg.Delete(ctx, key); err != nil {
			s.logger.Error("failed to delete photo file", "storage_key", key, "error", err)
		}
	}
	s.logger.Info("gallery cleared", "records", len(keys))
	return nil
}

func (s *PipelineService) currentShot() *pendingShot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *PipelineService) attachResult(description, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.desc = description
		s.current.response = text
	}
}
