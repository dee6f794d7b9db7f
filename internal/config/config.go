package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Remote service
	APIURL      string
	HTTPTimeout time.Duration

	// Attempts per request during report export. Interactive commands
	// never retry.
	ExportMaxAttempts int

	// Session storage
	StoreBackend string
	StorePath    string

	// SFTP (report upload)
	SFTPHost                  string
	SFTPPort                  int
	SFTPUser                  string
	SFTPPass                  string
	SFTPDir                   string
	SFTPKnownHosts            string
	SFTPInsecureIgnoreHostKey bool

	// Fake service
	MockAPIAddr string
}

// Load reads the optional .env files and then the process environment.
// Variables already present in the environment win over .env entries.
func Load(files ...string) Config {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			log.Printf("WARN: config: %s: %v", f, err)
		}
	}

	backend := getenv("TUTORLY_STORE", "file")
	return Config{
		APIURL:            getenv("TUTORLY_API_URL", "http://127.0.0.1:8000"),
		HTTPTimeout:       time.Duration(getenvInt("TUTORLY_HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		ExportMaxAttempts: getenvInt("TUTORLY_EXPORT_MAX_ATTEMPTS", 3),

		StoreBackend: backend,
		StorePath:    getenv("TUTORLY_STORE_PATH", defaultStorePath(backend)),

		SFTPHost:                  os.Getenv("SFTP_HOST"),
		SFTPPort:                  getenvInt("SFTP_PORT", 22),
		SFTPUser:                  os.Getenv("SFTP_USER"),
		SFTPPass:                  os.Getenv("SFTP_PASS"),
		SFTPDir:                   getenv("SFTP_DIR", "/inbound"),
		SFTPKnownHosts:            os.Getenv("SFTP_KNOWN_HOSTS"),
		SFTPInsecureIgnoreHostKey: getenvBool("SFTP_INSECURE_IGNORE_HOSTKEY", true),

		MockAPIAddr: getenv("MOCKAPI_ADDR", ":8000"),
	}
}

func defaultStorePath(backend string) string {
	name := "session.json"
	if backend == "sqlite" {
		name = "session.db"
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".tutorly", name)
	}
	return filepath.Join(home, ".tutorly", name)
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
