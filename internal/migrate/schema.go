package migrate

import (
	"database/sql"

	"map-puzzle/internal/logger"
)

// 背景：首次运行自动创建边界镜像表，供离线导入与游戏服务读取
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；仅创建最小必需结构
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _region_boundaries (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			position INT NOT NULL,
			feature JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_region_boundaries_position ON _region_boundaries(position)`,
		`CREATE TABLE IF NOT EXISTS _region_ingest_runs (
			id SERIAL PRIMARY KEY,
			source TEXT NOT NULL,
			sha256 TEXT NOT NULL,
			regions INT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
