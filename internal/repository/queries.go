package repository

const (
	postgresSchema = `CREATE TABLE IF NOT EXISTS predictions (
		id UUID PRIMARY KEY,
		prediction JSONB NOT NULL,
		image TEXT,
		correction JSONB,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);`

	sqliteSchema = `CREATE TABLE IF NOT EXISTS predictions (
		id TEXT PRIMARY KEY,
		prediction TEXT NOT NULL,
		image TEXT,
		correction TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);`
)

const (
	insertPredictionQuery = `INSERT INTO predictions (id, prediction, image, correction, created_at, updated_at)
		VALUES (?, ?, ?, NULL, ?, ?)`
	selectPredictionQuery = `SELECT id, prediction, image, correction, created_at, updated_at
		FROM predictions WHERE id = ?`
	updateCorrectionQuery = `UPDATE predictions SET correction = ?, updated_at = ? WHERE id = ?`
)
