package configuration

import (
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Built-in defaults, applied whenever no tier supplies a usable value.
const (
	DefaultUrl               = "http://localhost:9091"
	DefaultJob               = "gatling"
	DefaultInstance          = "default"
	DefaultDeleteOnStop      = true
	DefaultPushPeriodSeconds = 5
)

func DefaultHistogramBucketsMs() []int {
	return []int{50, 100, 200, 500, 1000}
}

var bucketSeparator = regexp.MustCompile(`[,;\s]+`)

// Resolve merges the configuration tiers into an immutable Settings value.
// Precedence per key: explicit override > environment variable > file value >
// built-in default. Resolve never fails: an unreadable file or a malformed
// value degrades to the documented default for that key.
func Resolve(fileSource ConfigSource, overrides map[string]string, env func(string) string) Settings {
	file := map[string]string{}
	if fileSource != nil {
		loaded, err := fileSource.Load()
		if err != nil {
			log.Warnf("Using default configuration: %s", err)
		} else {
			file = loaded
		}
	}
	if overrides == nil {
		overrides = map[string]string{}
	}
	if env == nil {
		env = func(string) string { return "" }
	}

	lookup := func(key string, altKey string, envName string, defaultValue string) string {
		if v := strings.TrimSpace(overrides[key]); v != "" {
			return v
		}
		if v := strings.TrimSpace(env(envName)); v != "" {
			return v
		}
		if v := strings.TrimSpace(file[key]); v != "" {
			return v
		}
		if altKey != "" {
			if v := strings.TrimSpace(file[altKey]); v != "" {
				return v
			}
		}
		return defaultValue
	}

	return Settings{
		Url:          lookup(KeyUrl, KeyUrlAlt, EnvUrl, DefaultUrl),
		Job:          lookup(KeyJob, KeyJobAlt, EnvJob, DefaultJob),
		Instance:     lookup(KeyInstance, "", EnvInstance, DefaultInstance),
		User:         lookup(KeyUser, "", EnvUser, ""),
		Password:     lookup(KeyPassword, "", EnvPassword, ""),
		DeleteOnStop: parseBool(lookup(KeyDeleteOnStop, "", EnvDeleteOnStop, ""), DefaultDeleteOnStop),
		PushPeriodSeconds: parsePositiveInt(
			lookup(KeyPushPeriodSeconds, "", EnvPushPeriodSeconds, ""), DefaultPushPeriodSeconds),
		HistogramBucketsMs: parseBuckets(lookup(KeyHistogramBucketsMs, "", EnvHistogramBucketsMs, "")),
	}
}

// parseBool accepts the flexible spellings true/1/yes/y/on and
// false/0/no/n/off, falls back to strconv for anything else, and returns the
// default when that fails too.
func parseBool(raw string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	}
	if v, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
		return v
	}
	return defaultValue
}

func parsePositiveInt(raw string, defaultValue int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

// parseBuckets accepts a comma, semicolon or whitespace separated list of
// bucket boundaries in milliseconds, optionally wrapped in brackets. Values
// are passed through in the order given, without sorting or deduplication.
func parseBuckets(raw string) []int {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		trimmed = strings.TrimSpace(trimmed[1 : len(trimmed)-1])
	}
	if trimmed == "" {
		return DefaultHistogramBucketsMs()
	}
	buckets := []int{}
	for _, part := range bucketSeparator.Split(trimmed, -1) {
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return DefaultHistogramBucketsMs()
		}
		buckets = append(buckets, v)
	}
	if len(buckets) == 0 {
		return DefaultHistogramBucketsMs()
	}
	return buckets
}
