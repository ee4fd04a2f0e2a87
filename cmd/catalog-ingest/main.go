// 数据导入工具：拉取边界 FeatureCollection，校验后写入 PostgreSQL，可选上传原始文档到对象存储
package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"os"
	"time"

	"map-puzzle/internal/catalog"
	"map-puzzle/internal/config"
	"map-puzzle/internal/geo"
	"map-puzzle/internal/logger"
	"map-puzzle/internal/migrate"
	"map-puzzle/internal/store"
	"map-puzzle/internal/utils"

	"github.com/minio/minio-go/v7"
)

func main() {
	cfg, err := config.Load()
	l := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		l.Error("config_load_error", "err", err)
		os.Exit(1)
	}
	from := flag.String("from", "http", "source to read: http or file")
	upload := flag.Bool("upload", false, "also put the raw document into object storage")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	bc := cfg.Boundary
	bc.Source = *from
	src, err := catalog.NewSource(bc, cfg.Object, catalog.Deps{})
	if err != nil {
		l.Error("source_error", "err", err)
		os.Exit(1)
	}
	doc, err := src.Fetch(ctx)
	if err != nil {
		l.Error("fetch_error", "source", src.Name(), "err", err)
		os.Exit(1)
	}
	fc, err := geo.DecodeFeatureCollection(doc)
	if err != nil {
		l.Error("decode_error", "err", err)
		os.Exit(1)
	}
	sum := sha256.Sum256(doc)
	sha := hex.EncodeToString(sum[:])
	l.Info("fetch_ok", "source", src.Name(), "bytes", len(doc), "regions", len(fc.Regions), "sha256", sha)

	cfg.Postgres.Enabled = true
	db, err := utils.OpenPostgresFromConfig(cfg.Postgres)
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := migrate.EnsureSchema(db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	st := store.AttachDB(db)
	n, err := st.UpsertRegions(ctx, fc.Regions)
	if err != nil {
		l.Error("upsert_error", "err", err)
		os.Exit(1)
	}
	if err := st.RecordIngest(ctx, src.Name(), sha, n); err != nil {
		l.Error("record_ingest_error", "err", err)
	}
	l.Info("upsert_ok", "regions", n)

	if !*upload {
		return
	}
	oc, err := utils.OpenMinio(cfg.Object)
	if err != nil {
		l.Error("minio_open_error", "err", err)
		os.Exit(1)
	}
	ok, err := oc.BucketExists(ctx, cfg.Object.Bucket)
	if err == nil && !ok {
		err = oc.MakeBucket(ctx, cfg.Object.Bucket, minio.MakeBucketOptions{})
	}
	if err != nil {
		l.Error("bucket_error", "bucket", cfg.Object.Bucket, "err", err)
		os.Exit(1)
	}
	info, err := oc.PutObject(ctx, cfg.Object.Bucket, cfg.Object.Key, bytes.NewReader(doc), int64(len(doc)),
		minio.PutObjectOptions{ContentType: "application/geo+json", UserMetadata: map[string]string{"sha256": sha}})
	if err != nil {
		l.Error("upload_error", "err", err)
		os.Exit(1)
	}
	l.Info("upload_ok", "bucket", info.Bucket, "key", info.Key, "size", info.Size)
}
