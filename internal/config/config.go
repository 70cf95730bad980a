package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Importer ImporterConfig
	Convert  ConvertConfig
	Storage  ObjectStorageConfig
	Metrics  MetricsConfig
	Unidoc   UnidocConfig
}

type ServerConfig struct {
	Port     string `validate:"required,numeric"`
	Env      string
	LogLevel string `validate:"omitempty,oneof=debug info warn error"`
}

type UploadConfig struct {
	MaxSize int64 `validate:"gt=0"`
	TempDir string
}

// ImporterConfig 控制Markdown导入时的图片处理
type ImporterConfig struct {
	ImageWidth float64 `validate:"gt=0"`
	// FetchTimeout 为0时不限制远程图片的下载时间
	FetchTimeout time.Duration `validate:"gte=0"`
	MaxImageSize int64         `validate:"gte=0"`
}

type ConvertConfig struct {
	PDFEnabled      bool
	LibreOfficePath string        `validate:"required"`
	Timeout         time.Duration `validate:"gte=0"`
}

type ObjectStorageConfig struct {
	Provider  string `validate:"oneof=local minio s3"`
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// Enabled 是否配置了对象存储
func (c ObjectStorageConfig) Enabled() bool {
	return (c.Provider == "minio" || c.Provider == "s3") && c.Endpoint != ""
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type UnidocConfig struct {
	LicenseKey string
}

var AppConfig *Config

// LoadConfig 加载配置：默认值 < DOCTOOLS_* 环境变量 < 兼容的裸环境变量
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 设置默认值
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")

	v.SetDefault("upload.max_size", 16<<20) // 16MB
	v.SetDefault("upload.temp_dir", os.TempDir())

	v.SetDefault("importer.image_width", 6.0)
	v.SetDefault("importer.fetch_timeout", "0s")
	v.SetDefault("importer.max_image_size", 20<<20)

	v.SetDefault("convert.pdf_enabled", true)
	v.SetDefault("convert.libreoffice_path", "libreoffice")
	v.SetDefault("convert.timeout", "120s")

	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.use_ssl", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("unidoc.license_key", "")

	// 读取环境变量
	v.SetEnvPrefix("DOCTOOLS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 从环境变量读取
	if port := os.Getenv("PORT"); port != "" {
		v.Set("server.port", port)
	}
	if env := os.Getenv("ENV"); env != "" {
		v.Set("server.env", env)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		v.Set("server.log_level", level)
	}
	// MinIO配置从环境变量读取
	if minioEndpoint := os.Getenv("MINIO_ENDPOINT"); minioEndpoint != "" {
		v.Set("storage.endpoint", minioEndpoint)
		v.Set("storage.provider", "minio")
	}
	if minioAccessKey := os.Getenv("MINIO_ACCESS_KEY"); minioAccessKey != "" {
		v.Set("storage.access_key", minioAccessKey)
	}
	if minioSecretKey := os.Getenv("MINIO_SECRET_KEY"); minioSecretKey != "" {
		v.Set("storage.secret_key", minioSecretKey)
	}
	if lo := os.Getenv("LIBREOFFICE_PATH"); lo != "" {
		v.Set("convert.libreoffice_path", lo)
	}
	if key := os.Getenv("UNIDOC_LICENSE_API_KEY"); key != "" {
		v.Set("unidoc.license_key", key)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     v.GetString("server.port"),
			Env:      v.GetString("server.env"),
			LogLevel: strings.ToLower(v.GetString("server.log_level")),
		},
		Upload: UploadConfig{
			MaxSize: v.GetInt64("upload.max_size"),
			TempDir: v.GetString("upload.temp_dir"),
		},
		Importer: ImporterConfig{
			ImageWidth:   v.GetFloat64("importer.image_width"),
			FetchTimeout: v.GetDuration("importer.fetch_timeout"),
			MaxImageSize: v.GetInt64("importer.max_image_size"),
		},
		Convert: ConvertConfig{
			PDFEnabled:      v.GetBool("convert.pdf_enabled"),
			LibreOfficePath: v.GetString("convert.libreoffice_path"),
			Timeout:         v.GetDuration("convert.timeout"),
		},
		Storage: ObjectStorageConfig{
			Provider:  v.GetString("storage.provider"),
			Endpoint:  v.GetString("storage.endpoint"),
			AccessKey: v.GetString("storage.access_key"),
			SecretKey: v.GetString("storage.secret_key"),
			UseSSL:    v.GetBool("storage.use_ssl"),
			Region:    v.GetString("storage.region"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Path:    v.GetString("metrics.path"),
		},
		Unidoc: UnidocConfig{
			LicenseKey: v.GetString("unidoc.license_key"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return cfg, nil
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
