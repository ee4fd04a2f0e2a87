package utils

import (
	"errors"

	"map-puzzle/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// OpenMinio：按配置构造对象存储客户端
// 约束：Endpoint 为空视为未配置，返回错误
func OpenMinio(c config.ObjectConfig) (*minio.Client, error) {
	if c.Endpoint == "" {
		return nil, errors.New("object storage endpoint not configured")
	}
	return minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.Secure,
	})
}
