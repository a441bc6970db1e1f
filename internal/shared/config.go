package shared

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	StorageDriver string // mysql | memory
	MySQLDSN      string

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	LockBackend string // local | redis
	LockTTL     time.Duration

	RateLimitPerMinute int
	RequestTimeout     time.Duration

	CupidBase       string
	CupidKey        string
	ImportWorkers   int
	ImportOwnerID   int64
	ImportMaxPhotos int
	ImportHotelIDs  []int64
}

// Load reads the environment, after applying a .env file from the working
// directory when one exists. Real environment variables win over the file.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg(".env could not be parsed; ignoring it")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer; using default")
		}
		return def
	}
	c := Config{
		AppEnv:             env("APP_ENV", "prod"),
		LogLevel:           env("LOG_LEVEL", "info"),
		HTTPAddr:           env("HTTP_ADDR", ":8080"),
		MetricsAddr:        env("METRICS_ADDR", ":9100"),
		StorageDriver:      strings.ToLower(env("STORAGE_DRIVER", "mysql")),
		MySQLDSN:           env("MYSQL_DSN", "root:root@tcp(localhost:3306)/hotel_media?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:          env("REDIS_ADDR", "localhost:6379"),
		RedisPass:          env("REDIS_PASSWORD", ""),
		RedisDB:            atoi("REDIS_DB", 0),
		CacheTTL:           time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		LockBackend:        strings.ToLower(env("LOCK_BACKEND", "local")),
		LockTTL:            time.Duration(atoi("LOCK_TTL_SECONDS", 10)) * time.Second,
		RateLimitPerMinute: atoi("RATE_LIMIT_PER_MINUTE", 120),
		RequestTimeout:     time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		CupidBase:          env("CUPID_BASE_URL", "https://content-api.cupid.travel/v3.0"),
		CupidKey:           env("CUPID_API_KEY", ""),
		ImportWorkers:      atoi("IMPORT_WORKERS", 8),
		ImportOwnerID:      int64(atoi("IMPORT_OWNER_ID", 1)),
		ImportMaxPhotos:    atoi("IMPORT_MAX_PHOTOS", 10),
	}
	ids, err := ParseIDs(os.Getenv("IMPORT_HOTEL_IDS"))
	if err != nil {
		log.Warn().Err(err).Msg("IMPORT_HOTEL_IDS has invalid entries")
	}
	c.ImportHotelIDs = ids
	return c
}

// ParseIDs splits a comma or whitespace separated list of positive ids. Valid
// entries are returned even when others fail to parse.
func ParseIDs(s string) ([]int64, error) {
	var out []int64
	var bad []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' || r == '\t' }) {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil || id <= 0 {
			bad = append(bad, f)
			continue
		}
		out = append(out, id)
	}
	if len(bad) > 0 {
		return out, errors.New("invalid ids: " + strings.Join(bad, ","))
	}
	return out, nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
