package configuration

// Canonical configuration keys. The file source flattens nested YAML into
// this dotted key space, so a YAML file and a properties file using these
// keys are interchangeable.
const (
	KeyUrl                = "prom.pushgateway.url"
	KeyJob                = "prom.job"
	KeyInstance           = "prom.instance"
	KeyUser               = "prom.pushgateway.user"
	KeyPassword           = "prom.pushgateway.password"
	KeyDeleteOnStop       = "prom.delete.on.stop"
	KeyPushPeriodSeconds  = "prom.push.period.seconds"
	KeyHistogramBucketsMs = "prom.histogram.buckets.ms"

	// Alternate key spellings accepted for compatibility with existing
	// config files.
	KeyUrlAlt = "pushgateway.url"
	KeyJobAlt = "pushgateway.job"
)

// Environment variable names for the environment tier.
const (
	EnvUrl                = "PROM_PUSHGATEWAY_URL"
	EnvJob                = "PROM_JOB"
	EnvInstance           = "PROM_INSTANCE"
	EnvUser               = "PROM_PUSHGATEWAY_USER"
	EnvPassword           = "PROM_PUSHGATEWAY_PASSWORD"
	EnvDeleteOnStop       = "PROM_DELETE_ON_STOP"
	EnvPushPeriodSeconds  = "PROM_PUSH_PERIOD_SECONDS"
	EnvHistogramBucketsMs = "PROM_HISTOGRAM_BUCKETS_MS"
	EnvConfigFile         = "PROM_CONFIG_FILE"
)
