// 包 store: PostgreSQL 边界镜像的读写
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"map-puzzle/internal/geo"
	"map-puzzle/internal/logger"

	"github.com/lib/pq"
)

// ErrEmpty：镜像表中没有任何区域
var ErrEmpty = errors.New("boundary mirror is empty")

// Store: 数据库访问入口
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// 文档注释：在单个事务内按文档顺序写入全部区域，并删除新数据集中不存在的旧区域
// 约束：任一行失败则整体回滚；position 记录文档顺序，读取时按其排序。
func (s *Store) UpsertRegions(ctx context.Context, regions []geo.Region) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO _region_boundaries(id, name, position, feature, updated_at)
		VALUES($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, position=EXCLUDED.position, feature=EXCLUDED.feature, updated_at=now()`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	ids := make([]string, 0, len(regions))
	for i, r := range regions {
		doc, err := geo.EncodeFeature(r)
		if err != nil {
			return 0, fmt.Errorf("encode %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Name, i, string(doc)); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", r.ID, err)
		}
		ids = append(ids, r.ID)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM _region_boundaries WHERE NOT (id = ANY($1))`, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		logger.L().Info("boundary_mirror_pruned", "rows", n)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(ids), nil
}

// RecordIngest：记录一次导入（来源、文档摘要、区域数）
func (s *Store) RecordIngest(ctx context.Context, source, sha string, regions int) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO _region_ingest_runs(source, sha256, regions) VALUES($1, $2, $3)`, source, sha, regions)
	return err
}

// LoadFeatureCollection：按 position 顺序读出全部要素，拼装为 FeatureCollection 文档
func (s *Store) LoadFeatureCollection(ctx context.Context) ([]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT feature FROM _region_boundaries ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var feats []json.RawMessage
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		feats = append(feats, json.RawMessage(b))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(feats) == 0 {
		return nil, ErrEmpty
	}
	return BuildCollection(feats)
}

// BuildCollection：把单个要素文档包装为 FeatureCollection
func BuildCollection(features []json.RawMessage) ([]byte, error) {
	if features == nil {
		features = []json.RawMessage{}
	}
	return json.Marshal(struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}{Type: "FeatureCollection", Features: features})
}
