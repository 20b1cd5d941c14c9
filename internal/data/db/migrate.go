package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/infographic-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	return AutoMigrateAll(s.db)
}

// EnsureVectorIndex pins the embedding column to dim and builds an HNSW
// cosine index on it. pgvector only indexes fixed-dimension columns.
func (s *PostgresService) EnsureVectorIndex(dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", dim)
	}
	stmts := []string{
		fmt.Sprintf(`ALTER TABLE style ALTER COLUMN embedding TYPE vector(%d)`, dim),
		`CREATE INDEX IF NOT EXISTS idx_style_embedding_hnsw ON style USING hnsw (embedding vector_cosine_ops)`,
	}
	for _, stmt := range stmts {
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure vector index: %w", err)
		}
	}
	return nil
}
