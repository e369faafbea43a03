package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// chtmp moves the test into an empty directory so Load sees no config file
// unless the test writes one.
func chtmp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
	return dir
}

func writeConfig(t *testing.T, dir, env, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config", env+".yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ENV_NAME", "PORT", "CACHE_BACKEND", "MEMCACHED_ADDRS",
		"ALLOWED_ORIGINS", "SMTP_USERNAME", "SMTP_PASSWORD", "CONTACT_TO",
	} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	chtmp(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "3001" {
		t.Errorf("ServerPort = %q, want 3001", cfg.ServerPort)
	}
	if cfg.GeocodeAPIURL != "https://geocoding-api.open-meteo.com/v1/search" {
		t.Errorf("GeocodeAPIURL = %q", cfg.GeocodeAPIURL)
	}
	if cfg.WeatherAPIURL != "https://api.open-meteo.com/v1/forecast" {
		t.Errorf("WeatherAPIURL = %q", cfg.WeatherAPIURL)
	}
	if cfg.UpstreamTimeout != 0 {
		t.Errorf("UpstreamTimeout = %v, want 0 (unbounded)", cfg.UpstreamTimeout)
	}
	if cfg.CacheBackend != "in_memory" {
		t.Errorf("CacheBackend = %q", cfg.CacheBackend)
	}
	if cfg.GeocodeCacheTTL != 24*time.Hour {
		t.Errorf("GeocodeCacheTTL = %v, want 24h", cfg.GeocodeCacheTTL)
	}
	if cfg.WeatherCacheTTL != 5*time.Minute {
		t.Errorf("WeatherCacheTTL = %v, want 5m", cfg.WeatherCacheTTL)
	}
	if cfg.RateLimitRPS != 0 {
		t.Errorf("RateLimitRPS = %d, want 0 (disabled)", cfg.RateLimitRPS)
	}
	if cfg.QueryMaxLength != 256 {
		t.Errorf("QueryMaxLength = %d, want 256", cfg.QueryMaxLength)
	}
	if cfg.SMTPHost != "smtp.gmail.com" || cfg.SMTPPort != 587 {
		t.Errorf("SMTP = %s:%d", cfg.SMTPHost, cfg.SMTPPort)
	}
	if cfg.FromName != "Totally Travels Website" {
		t.Errorf("FromName = %q", cfg.FromName)
	}
}

func TestLoad_FromFile(t *testing.T) {
	clearEnv(t)
	dir := chtmp(t)
	writeConfig(t, dir, "dev", `
server:
  port: "8080"
upstream:
  timeout: 10s
cache:
  backend: memcached
  geocode_ttl: 1h
  weather_ttl: 30s
  memcached:
    addrs: cache1:11211,cache2:11211
reliability:
  rate_limit_rps: 20
http:
  query_max_length: 100
  allowed_origins:
    - https://staging.totallytravels.com
smtp:
  host: smtp.example.com
  port: 2525
  contact_to: bookings@example.com
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q", cfg.ServerPort)
	}
	if cfg.UpstreamTimeout != 10*time.Second {
		t.Errorf("UpstreamTimeout = %v", cfg.UpstreamTimeout)
	}
	if cfg.CacheBackend != "memcached" {
		t.Errorf("CacheBackend = %q", cfg.CacheBackend)
	}
	if cfg.GeocodeCacheTTL != time.Hour || cfg.WeatherCacheTTL != 30*time.Second {
		t.Errorf("TTLs = %v / %v", cfg.GeocodeCacheTTL, cfg.WeatherCacheTTL)
	}
	if cfg.MemcachedAddrs != "cache1:11211,cache2:11211" {
		t.Errorf("MemcachedAddrs = %q", cfg.MemcachedAddrs)
	}
	if cfg.RateLimitRPS != 20 {
		t.Errorf("RateLimitRPS = %d", cfg.RateLimitRPS)
	}
	// Burst defaults to RPS when unset.
	if cfg.RateLimitBurst != 20 {
		t.Errorf("RateLimitBurst = %d, want 20", cfg.RateLimitBurst)
	}
	if cfg.QueryMaxLength != 100 {
		t.Errorf("QueryMaxLength = %d", cfg.QueryMaxLength)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://staging.totallytravels.com" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.SMTPHost != "smtp.example.com" || cfg.SMTPPort != 2525 {
		t.Errorf("SMTP = %s:%d", cfg.SMTPHost, cfg.SMTPPort)
	}
	if cfg.ContactTo != "bookings@example.com" {
		t.Errorf("ContactTo = %q", cfg.ContactTo)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := chtmp(t)
	writeConfig(t, dir, "dev", `
server:
  port: "8080"
cache:
  backend: in_memory
`)

	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_BACKEND", "memcached")
	t.Setenv("MEMCACHED_ADDRS", "envcache:11211")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("SMTP_USERNAME", "env-user@example.com")
	t.Setenv("SMTP_PASSWORD", "env-pass")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want env override", cfg.ServerPort)
	}
	if cfg.CacheBackend != "memcached" {
		t.Errorf("CacheBackend = %q, want env override", cfg.CacheBackend)
	}
	if cfg.MemcachedAddrs != "envcache:11211" {
		t.Errorf("MemcachedAddrs = %q", cfg.MemcachedAddrs)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.SMTPUsername != "env-user@example.com" || cfg.SMTPPassword != "env-pass" {
		t.Errorf("SMTP credentials not taken from env")
	}
	// ContactTo falls back to the authenticated account.
	if cfg.ContactTo != "env-user@example.com" {
		t.Errorf("ContactTo = %q, want SMTP username fallback", cfg.ContactTo)
	}
}

func TestLoad_EnvNameSelectsFile(t *testing.T) {
	clearEnv(t)
	dir := chtmp(t)
	writeConfig(t, dir, "prod", `
server:
  port: "80"
`)
	t.Setenv("ENV_NAME", "prod")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "80" {
		t.Errorf("ServerPort = %q, want value from prod.yaml", cfg.ServerPort)
	}
}

func TestLoad_SecretsFile(t *testing.T) {
	clearEnv(t)
	dir := chtmp(t)
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config", "secrets.yaml"),
		[]byte("smtp_password: file-secret\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SMTPPassword != "file-secret" {
		t.Errorf("SMTPPassword = %q, want secrets file value", cfg.SMTPPassword)
	}
}

func TestLoad_InvalidBackend(t *testing.T) {
	clearEnv(t)
	dir := chtmp(t)
	writeConfig(t, dir, "dev", `
cache:
  backend: redis
`)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() error = nil, want backend validation failure")
	}
	if !strings.Contains(err.Error(), "cache.backend") {
		t.Errorf("error = %v", err)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)
	dir := chtmp(t)
	writeConfig(t, dir, "dev", "server: [not a map")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want parse failure")
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		def  time.Duration
		want time.Duration
	}{
		{"5m", time.Hour, 5 * time.Minute},
		{"", time.Hour, time.Hour},
		{"garbage", time.Hour, time.Hour},
		{"-1s", time.Hour, time.Hour},
		{"0s", time.Hour, time.Hour},
	}
	for _, tt := range tests {
		if got := parseDuration(tt.in, tt.def); got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDurationOrZero(t *testing.T) {
	if got := parseDurationOrZero("0s", time.Hour); got != 0 {
		t.Errorf("parseDurationOrZero(0s) = %v, want 0 to pass through", got)
	}
	if got := parseDurationOrZero("", time.Minute); got != time.Minute {
		t.Errorf("parseDurationOrZero(\"\") = %v, want default", got)
	}
}
