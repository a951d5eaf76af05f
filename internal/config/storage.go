package config

// StorageConfig selects where selfie captures are written
type StorageConfig struct {
	Type      string // local or minio
	LocalPath string

	MinioEndpoint string
	MinioAccessID string
	MinioSecret   string
	MinioBucket   string
	MinioUseSSL   bool
}
