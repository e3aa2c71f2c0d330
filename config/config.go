package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration parameters read from environment
// variables. A .env file in the working directory is honored.
type Config struct {
	DBPath string `envconfig:"LEDGER_DB_PATH" default:"citations.db"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY" required:"true"`

	DumpCron    string `envconfig:"DUMP_CRON" default:"0 0 * * *"`
	DumpOutfile string `envconfig:"DUMP_OUTFILE" default:"bibliography.txt"`
	DumpFormat  string `envconfig:"DUMP_FORMAT" default:"bibtex"`
	DumpLevel   int    `envconfig:"DUMP_LEVEL" default:"3"`

	BackupEnabled  bool   `envconfig:"BACKUP_ENABLED" default:"false"`
	BackupS3Key    string `envconfig:"BACKUP_S3_KEY"`
	BackupS3Secret string `envconfig:"BACKUP_S3_SECRET"`
	BackupS3URL    string `envconfig:"BACKUP_S3_URL"`
	BackupS3Region string `envconfig:"BACKUP_S3_REGION"`
	BackupS3Bucket string `envconfig:"BACKUP_S3_BUCKET"`
	KeepBackups    int    `envconfig:"KEEP_BACKUPS" default:"4"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
