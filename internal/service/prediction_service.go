package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MechDevelopment/mrbeam-backend/internal/domain"
	"github.com/MechDevelopment/mrbeam-backend/internal/repository"
	"github.com/MechDevelopment/mrbeam-backend/pkg/utils"
)

// Predictor turns image bytes into detections.
type Predictor interface {
	Predict(ctx context.Context, image []byte) ([]domain.Detection, error)
}

type ArchiveScheduler interface {
	Submit(task ArchiveTask) error
}

type BlobReader interface {
	DownloadFile(ctx context.Context, key string) (io.ReadCloser, error)
}

// Upload is one image received by /predict.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
	// Save requests archival of the original image.
	Save bool
}

type PredictionService interface {
	Predict(ctx context.Context, upload Upload) (*domain.Prediction, error)
	Correct(ctx context.Context, rawID string, detections []domain.Detection) error
	Get(ctx context.Context, rawID string) (*domain.PredictionRecord, error)
	Image(ctx context.Context, rawID string) (io.ReadCloser, string, error)
}

type predictionService struct {
	predictor Predictor
	repo      repository.PredictionRepository
	archive   ArchiveScheduler
	blobs     BlobReader
	log       *zap.Logger
}

func NewPredictionService(predictor Predictor, repo repository.PredictionRepository, archive ArchiveScheduler, blobs BlobReader, log *zap.Logger) PredictionService {
	return &predictionService{
		predictor: predictor,
		repo:      repo,
		archive:   archive,
		blobs:     blobs,
		log:       log.Named("predictions"),
	}
}

// Predict runs the ingestion pipeline. The response does not wait for the
// archive upload: a record may exist whose image never reaches the bucket.
// Identical uploads always create new records but share the image key.
func (s *predictionService) Predict(ctx context.Context, upload Upload) (*domain.Prediction, error) {
	if len(upload.Data) == 0 {
		return nil, domain.NewValidationError("file is empty")
	}
	if !utils.IsImageContentType(upload.ContentType) {
		return nil, domain.NewValidationError("content type %q is not an image", upload.ContentType)
	}

	detections, err := s.predictor.Predict(ctx, upload.Data)
	if err != nil {
		s.log.Error("Inference failed",
			zap.String("filename", upload.Filename),
			zap.Int("size", len(upload.Data)),
			zap.Error(err))
		return nil, err
	}

	for i, det := range detections {
		if err := det.Validate(); err != nil {
			s.log.Warn("Inference returned an invalid box",
				zap.Int("index", i),
				zap.Error(err))
		}
	}

	var imageRef *string
	if upload.Save {
		ref := utils.ImageRef(upload.Data, upload.Filename, upload.ContentType)
		imageRef = &ref
	}

	id, err := s.repo.Insert(ctx, detections, imageRef)
	if err != nil {
		s.log.Error("Failed to store prediction", zap.Error(err))
		return nil, err
	}

	if imageRef != nil {
		s.scheduleArchive(id, *imageRef, upload)
	}

	s.log.Info("Prediction created",
		zap.String("id", id.String()),
		zap.Int("detections", len(detections)),
		zap.Bool("archived", imageRef != nil))

	return &domain.Prediction{Data: detections, UUID: id.String()}, nil
}

func (s *predictionService) scheduleArchive(id uuid.UUID, key string, upload Upload) {
	err := s.archive.Submit(ArchiveTask{
		PredictionID: id,
		Key:          key,
		ContentType:  upload.ContentType,
		Data:         upload.Data,
	})
	if err != nil {
		s.log.Error("Archive not scheduled, image will not be stored",
			zap.String("id", id.String()),
			zap.String("key", key),
			zap.Error(err))
	}
}

// Correct stores a human correction. Malformed ids are reported as not found.
func (s *predictionService) Correct(ctx context.Context, rawID string, detections []domain.Detection) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return domain.ErrNotFound
	}

	if _, err := s.repo.FetchByID(ctx, id); err != nil {
		return err
	}

	for i, det := range detections {
		if err := det.Validate(); err != nil {
			return domain.NewValidationError("detection %d: %v", i, err)
		}
	}
	if detections == nil {
		detections = []domain.Detection{}
	}

	if err := s.repo.ApplyCorrection(ctx, id, detections); err != nil {
		return err
	}

	s.log.Info("Prediction corrected",
		zap.String("id", id.String()),
		zap.Int("detections", len(detections)))

	return nil
}

func (s *predictionService) Get(ctx context.Context, rawID string) (*domain.PredictionRecord, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return s.repo.FetchByID(ctx, id)
}

// Image streams the archived original of a prediction along with its media type.
func (s *predictionService) Image(ctx context.Context, rawID string) (io.ReadCloser, string, error) {
	record, err := s.Get(ctx, rawID)
	if err != nil {
		return nil, "", err
	}
	if record.ImageRef == nil {
		return nil, "", domain.ErrNotFound
	}

	body, err := s.blobs.DownloadFile(ctx, *record.ImageRef)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, "", domain.ErrNotFound
		}
		return nil, "", &domain.ArchiveError{Op: "get", Key: *record.ImageRef, Err: fmt.Errorf("download: %w", err)}
	}

	contentType := mime.TypeByExtension(filepath.Ext(*record.ImageRef))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return body, contentType, nil
}
