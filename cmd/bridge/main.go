package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gatling-contrib/prombridge/internal/bridge"
	"github.com/gatling-contrib/prombridge/internal/bridge/configuration"
	"github.com/gatling-contrib/prombridge/internal/common"
)

const CustomConfigLocation string = "config"

// Override flags map onto the canonical configuration keys; only flags the
// user actually set become overrides.
var overrideFlags = map[string]string{
	"pushgatewayUrl":     configuration.KeyUrl,
	"job":                configuration.KeyJob,
	"instance":           configuration.KeyInstance,
	"pushPeriodSeconds":  configuration.KeyPushPeriodSeconds,
	"deleteOnStop":       configuration.KeyDeleteOnStop,
	"histogramBucketsMs": configuration.KeyHistogramBucketsMs,
}

func init() {
	pflag.String(CustomConfigLocation, "", "Fully qualified path to bridge configuration file (YAML or properties)")
	pflag.String("pushgatewayUrl", "", "Pushgateway base url")
	pflag.String("job", "", "Job label for pushed metrics")
	pflag.String("instance", "", "Instance label for pushed metrics")
	pflag.String("pushPeriodSeconds", "", "Seconds between pushes")
	pflag.String("deleteOnStop", "", "Delete pushed metrics when the run stops")
	pflag.String("histogramBucketsMs", "", "Response time histogram bucket boundaries in milliseconds")
	pflag.Parse()
}

func main() {
	common.ConfigureLogging()
	common.BindCommandlineArguments()

	configPath := viper.GetString(CustomConfigLocation)
	if configPath == "" {
		configPath = os.Getenv(configuration.EnvConfigFile)
	}

	controller := bridge.New()
	controller.Init(configuration.FileSource{Path: configPath}, flagOverrides(), os.Getenv)

	stopSignal := make(chan os.Signal, 1)
	signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)

	eventsDone := make(chan struct{})
	go func() {
		defer close(eventsDone)
		readEvents(os.Stdin, controller)
	}()

	select {
	case <-stopSignal:
	case <-eventsDone:
	}
	controller.Stop(nil)
}

func flagOverrides() map[string]string {
	overrides := map[string]string{}
	for flagName, key := range overrideFlags {
		if pflag.CommandLine.Changed(flagName) {
			overrides[key] = viper.GetString(flagName)
		}
	}
	return overrides
}
