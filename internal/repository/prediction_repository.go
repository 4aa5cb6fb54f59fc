package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MechDevelopment/mrbeam-backend/internal/domain"
)

// PredictionRepository owns persistence of prediction records. Every method is
// a single statement, so the database provides the atomicity.
type PredictionRepository interface {
	Insert(ctx context.Context, detections []domain.Detection, imageRef *string) (uuid.UUID, error)
	FetchByID(ctx context.Context, id uuid.UUID) (*domain.PredictionRecord, error)
	ApplyCorrection(ctx context.Context, id uuid.UUID, corrected []domain.Detection) error
}

type predictionRepository struct {
	db      *DB
	timeout time.Duration
	log     *zap.Logger
	now     func() time.Time
}

func NewPredictionRepository(db *DB, timeout time.Duration, log *zap.Logger) PredictionRepository {
	return &predictionRepository{
		db:      db,
		timeout: timeout,
		log:     log.Named("predictions"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (r *predictionRepository) Insert(ctx context.Context, detections []domain.Detection, imageRef *string) (uuid.UUID, error) {
	prediction, err := encodeDetections(detections)
	if err != nil {
		return uuid.Nil, &domain.StorageError{Op: "insert", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	id := uuid.New()
	now := r.now()

	if _, err := r.db.conn.ExecContext(ctx, r.db.rebind(insertPredictionQuery),
		id.String(), prediction, imageRef, now, now); err != nil {
		return uuid.Nil, &domain.StorageError{Op: "insert", Err: err}
	}

	r.log.Debug("Prediction stored",
		zap.String("id", id.String()),
		zap.Int("detections", len(detections)))

	return id, nil
}

func (r *predictionRepository) FetchByID(ctx context.Context, id uuid.UUID) (*domain.PredictionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var (
		record     domain.PredictionRecord
		rawID      string
		prediction []byte
		image      sql.NullString
		correction []byte
	)

	err := r.db.conn.QueryRowContext(ctx, r.db.rebind(selectPredictionQuery), id.String()).
		Scan(&rawID, &prediction, &image, &correction, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.StorageError{Op: "fetch", Err: err}
	}

	if record.ID, err = uuid.Parse(rawID); err != nil {
		return nil, &domain.StorageError{Op: "fetch", Err: fmt.Errorf("parse id: %w", err)}
	}
	if err := json.Unmarshal(prediction, &record.Detections); err != nil {
		return nil, &domain.StorageError{Op: "fetch", Err: fmt.Errorf("decode prediction: %w", err)}
	}
	if correction != nil {
		if err := json.Unmarshal(correction, &record.Correction); err != nil {
			return nil, &domain.StorageError{Op: "fetch", Err: fmt.Errorf("decode correction: %w", err)}
		}
		if record.Correction == nil {
			record.Correction = []domain.Detection{}
		}
	}
	if image.Valid {
		record.ImageRef = &image.String
	}

	return &record, nil
}

// ApplyCorrection replaces any previous correction of the record.
func (r *predictionRepository) ApplyCorrection(ctx context.Context, id uuid.UUID, corrected []domain.Detection) error {
	correction, err := encodeDetections(corrected)
	if err != nil {
		return &domain.StorageError{Op: "correct", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.db.conn.ExecContext(ctx, r.db.rebind(updateCorrectionQuery),
		correction, r.now(), id.String())
	if err != nil {
		return &domain.StorageError{Op: "correct", Err: err}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &domain.StorageError{Op: "correct", Err: err}
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func encodeDetections(detections []domain.Detection) (string, error) {
	if detections == nil {
		detections = []domain.Detection{}
	}
	data, err := json.Marshal(detections)
	if err != nil {
		return "", fmt.Errorf("encode detections: %w", err)
	}
	return string(data), nil
}
