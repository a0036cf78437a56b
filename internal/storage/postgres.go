package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/KadenMcCarty-Personal/Social-Media-Agent-N/internal/models"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

// uniqueViolation is the Postgres error code for unique constraint failures.
const uniqueViolation = "23505"

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStore(config DatabaseConfig, logger *zap.Logger) (*PostgresStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	store := &PostgresStore{db: db, logger: logger}

	// Initialize database schema
	if err := store.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return store, nil
}

func (s *PostgresStore) initializeSchema() error {
	// Read migrations file
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	// Execute migrations
	_, err = s.db.Exec(string(migrationSQL))
	if err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

func (s *PostgresStore) HasProcessed(ctx context.Context, platform models.Platform, nativeID string) (bool, error) {
	query := `SELECT 1 FROM processed_mentions WHERE platform = $1 AND native_id = $2`

	var one int
	err := s.db.QueryRowContext(ctx, query, platform, nativeID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking processed mention: %v", err)
	}
	return true, nil
}

func (s *PostgresStore) RecordProcessed(ctx context.Context, record *models.ProcessedRecord) error {
	stored := *record
	if stored.ProcessedAt.IsZero() {
		stored.ProcessedAt = time.Now()
	}

	query := `
		INSERT INTO processed_mentions
		(platform, native_id, content, author, intent, sentiment, confidence,
		 response_text, provenance, similarity_score, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.ExecContext(ctx, query,
		stored.Platform,
		stored.NativeID,
		stored.Content,
		stored.Author,
		stored.Intent,
		stored.Sentiment,
		stored.Confidence,
		nullString(stored.ResponseText),
		stored.Provenance,
		stored.SimilarityScore,
		stored.ProcessedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return ErrDuplicateMention
		}
		return fmt.Errorf("error recording processed mention: %v", err)
	}
	return nil
}

func (s *PostgresStore) ListCannedResponses(ctx context.Context) ([]models.CannedResponse, error) {
	query := `
		SELECT id, keyword, category, intent, response_template, embedding, created_at
		FROM canned_responses
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying canned responses: %v", err)
	}
	defer rows.Close()

	var templates []models.CannedResponse
	for rows.Next() {
		var t models.CannedResponse
		var blob []byte
		err := rows.Scan(&t.ID, &t.Keyword, &t.Category, &t.Intent, &t.Text, &blob, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("error scanning canned response: %v", err)
		}
		t.Embedding, err = decodeEmbedding(blob)
		if err != nil {
			s.logger.Warn("Skipping template with malformed embedding",
				zap.Int64("template_id", t.ID),
				zap.Error(err))
			t.Embedding = nil
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating canned responses: %v", err)
	}
	return templates, nil
}

func (s *PostgresStore) MatchTemplates(ctx context.Context, embedding []float32, topK int) ([]models.TemplateMatch, error) {
	templates, err := s.ListCannedResponses(ctx)
	if err != nil {
		return nil, err
	}
	return rankTemplates(templates, embedding, topK), nil
}

func (s *PostgresStore) Stats(ctx context.Context) (models.Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE provenance = 'canned'),
			COUNT(*) FILTER (WHERE provenance = 'generated'),
			COUNT(*) FILTER (WHERE provenance = 'suppressed'),
			COALESCE(AVG(confidence), 0),
			COALESCE(AVG(similarity_score), 0)
		FROM processed_mentions`

	var stats models.Stats
	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalProcessed,
		&stats.CannedUsed,
		&stats.Generated,
		&stats.Suppressed,
		&stats.AvgConfidence,
		&stats.AvgSimilarity,
	)
	if err != nil {
		return models.Stats{}, fmt.Errorf("error querying stats: %v", err)
	}
	return stats, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Embeddings are stored as an opaque fixed-length vector blob: little-endian
// IEEE 754 float32 values, written by the external curation step.
func decodeEmbedding(blob []byte) ([]float32, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector, nil
}
