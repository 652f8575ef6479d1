package config

import (
	"os"
	"path/filepath"
	"time"
)

// Dataset is a dataset family together with its reference at the
// provider.
type Dataset struct {
	// Name is the family name, for example "covid19".
	Name string

	// Ref is the reference at the provider, for example
	// "josephassaker/covid19-global-dataset".
	Ref string
}

var defaultDatasets = []Dataset{
	{Name: "mpox", Ref: "utkarshx27/mpox-monkeypox-data"},
	{Name: "covid19", Ref: "josephassaker/covid19-global-dataset"},
	{Name: "corona", Ref: "imdevskp/corona-virus-report"},
}

// Config is a struct that holds configuration parameters for the package.
type Config struct {
	// CacheDir is a directory for downloaded archives and key-value stores.
	CacheDir string

	// DownloadDir keeps downloaded and extracted datasets.
	DownloadDir string

	// KVDir keeps the key-value store with download metadata.
	KVDir string

	// DumpDir receives CSV files with the content of the database.
	DumpDir string

	// Source is the kind of the dataset source: "kaggle", "s3" or "local".
	Source string

	// LocalDir contains extracted datasets as <LocalDir>/<ref> for the
	// "local" source.
	LocalDir string

	// KaggleURL is the base URL of Kaggle.
	KaggleURL string

	// KaggleUser is an optional Kaggle user name.
	KaggleUser string

	// KaggleKey is an optional Kaggle API key.
	KaggleKey string

	// S3Endpoint is a host:port of an S3-compatible storage.
	S3Endpoint string

	// S3Bucket keeps dataset archives as <ref>.zip.
	S3Bucket string

	// S3AccessKey is an access key for the S3 storage.
	S3AccessKey string

	// S3SecretKey is a secret key for the S3 storage.
	S3SecretKey string

	// S3SSL enables TLS for the S3 storage.
	S3SSL bool

	// HTTPTimeout limits one download.
	HTTPTimeout time.Duration

	// DbDriver is "mysql", "postgres" or "sqlite".
	DbDriver string

	// DbHost is a host name of the database.
	DbHost string

	// DbPort is a port of the database, 0 means the driver default.
	DbPort int

	// DbUser is a user name for the database.
	DbUser string

	// DbPass is a password for the database.
	DbPass string

	// DbName is a database name.
	DbName string

	// SqlitePath is a path to SQLite file, ":memory:" keeps it in memory.
	SqlitePath string

	// Datasets are dataset families in the order of processing.
	Datasets []Dataset

	// BatchSize is a number of records to be saved in one transaction.
	BatchSize int

	// MaxAttempts is the number of tries of a storage or network operation.
	MaxAttempts int

	// BaseDelay is the wait after the first failed try.
	BaseDelay time.Duration

	// Multiplier grows the wait after each failed try.
	Multiplier float64

	// FamilyAttempts is the number of tries to acquire a dataset family.
	FamilyAttempts int

	// FileAttempts is the number of tries to load one file.
	FileAttempts int

	// Reset removes daily stats a family loaded before, prior to loading it
	// again.
	Reset bool

	// MetricsFile is a path to write prometheus metrics to after a run,
	// empty means no metrics file.
	MetricsFile string
}

// Option type allows to change settings for Config.
type Option func(*Config)

// OptCacheDir sets a directory for downloads and key-value stores.
func OptCacheDir(d string) Option {
	return func(cfg *Config) {
		cfg.CacheDir = d
		cfg.DownloadDir = filepath.Join(d, "datasets")
		cfg.KVDir = filepath.Join(d, "kv")
	}
}

// OptDumpDir sets a directory for CSV dump of the database.
func OptDumpDir(d string) Option {
	return func(cfg *Config) {
		cfg.DumpDir = d
	}
}

// OptSource sets the kind of dataset source.
func OptSource(s string) Option {
	return func(cfg *Config) {
		cfg.Source = s
	}
}

// OptLocalDir sets a directory with extracted datasets.
func OptLocalDir(d string) Option {
	return func(cfg *Config) {
		cfg.LocalDir = d
	}
}

// OptKaggleURL sets the base URL of Kaggle.
func OptKaggleURL(u string) Option {
	return func(cfg *Config) {
		cfg.KaggleURL = u
	}
}

// OptKaggleUser sets Kaggle user name.
func OptKaggleUser(u string) Option {
	return func(cfg *Config) {
		cfg.KaggleUser = u
	}
}

// OptKaggleKey sets Kaggle API key.
func OptKaggleKey(k string) Option {
	return func(cfg *Config) {
		cfg.KaggleKey = k
	}
}

// OptS3 sets S3 endpoint, bucket and credentials.
func OptS3(endpoint, bucket, access, secret string, ssl bool) Option {
	return func(cfg *Config) {
		cfg.S3Endpoint = endpoint
		cfg.S3Bucket = bucket
		cfg.S3AccessKey = access
		cfg.S3SecretKey = secret
		cfg.S3SSL = ssl
	}
}

// OptHTTPTimeout sets a time limit for one download.
func OptHTTPTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		cfg.HTTPTimeout = d
	}
}

// OptDbDriver sets the database driver.
func OptDbDriver(d string) Option {
	return func(cfg *Config) {
		cfg.DbDriver = d
	}
}

// OptDbHost sets host name for the database
func OptDbHost(h string) Option {
	return func(cfg *Config) {
		cfg.DbHost = h
	}
}

// OptDbPort sets port for the database
func OptDbPort(p int) Option {
	return func(cfg *Config) {
		cfg.DbPort = p
	}
}

// OptDbUser sets user for the database
func OptDbUser(u string) Option {
	return func(cfg *Config) {
		cfg.DbUser = u
	}
}

// OptDbPass sets password for the database
func OptDbPass(p string) Option {
	return func(cfg *Config) {
		cfg.DbPass = p
	}
}

// OptDbName sets database name
func OptDbName(n string) Option {
	return func(cfg *Config) {
		cfg.DbName = n
	}
}

// OptSqlitePath sets a path to SQLite database file.
func OptSqlitePath(p string) Option {
	return func(cfg *Config) {
		cfg.SqlitePath = p
	}
}

// OptDatasets sets dataset families to process.
func OptDatasets(ds []Dataset) Option {
	return func(cfg *Config) {
		cfg.Datasets = ds
	}
}

// OptBatchSize sets the number of records per transaction.
func OptBatchSize(n int) Option {
	return func(cfg *Config) {
		cfg.BatchSize = n
	}
}

// OptRetry sets retry attempts, the first delay and delay multiplier.
func OptRetry(attempts int, delay time.Duration, mult float64) Option {
	return func(cfg *Config) {
		cfg.MaxAttempts = attempts
		cfg.BaseDelay = delay
		cfg.Multiplier = mult
	}
}

// OptFamilyAttempts sets the number of tries to acquire a dataset.
func OptFamilyAttempts(n int) Option {
	return func(cfg *Config) {
		cfg.FamilyAttempts = n
	}
}

// OptFileAttempts sets the number of tries to load a file.
func OptFileAttempts(n int) Option {
	return func(cfg *Config) {
		cfg.FileAttempts = n
	}
}

// OptReset sets the reset of previously loaded daily stats.
func OptReset(b bool) Option {
	return func(cfg *Config) {
		cfg.Reset = b
	}
}

// OptMetricsFile sets a path for prometheus metrics.
func OptMetricsFile(f string) Option {
	return func(cfg *Config) {
		cfg.MetricsFile = f
	}
}

// DatasetRef returns the reference of a dataset family.
func (cfg Config) DatasetRef(name string) (string, bool) {
	for _, v := range cfg.Datasets {
		if v.Name == name {
			return v.Ref, true
		}
	}
	return "", false
}

// New creates a Config with defaults changed by options.
func New(opts ...Option) Config {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	cacheDir = filepath.Join(cacheDir, "epidump")

	res := Config{
		CacheDir:       cacheDir,
		DownloadDir:    filepath.Join(cacheDir, "datasets"),
		KVDir:          filepath.Join(cacheDir, "kv"),
		DumpDir:        filepath.Join(cacheDir, "dump"),
		Source:         "kaggle",
		KaggleURL:      "https://www.kaggle.com",
		HTTPTimeout:    10 * time.Minute,
		DbDriver:       "mysql",
		DbHost:         "0.0.0.0",
		DbUser:         "user",
		DbPass:         "password",
		DbName:         "pandemics_db",
		SqlitePath:     filepath.Join(cacheDir, "epidump.sqlite"),
		Datasets:       defaultDatasets,
		BatchSize:      100,
		MaxAttempts:    5,
		BaseDelay:      time.Second,
		Multiplier:     2,
		FamilyAttempts: 3,
		FileAttempts:   3,
	}

	for _, opt := range opts {
		opt(&res)
	}

	return res
}
