package configuration

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// ConfigSource supplies the file tier of the configuration as a flat
// key/value mapping.
type ConfigSource interface {
	Load() (map[string]string, error)
}

// FileSource reads a YAML or properties configuration file through viper.
// Nested YAML maps are flattened to dotted keys, so
//
//	prom:
//	  pushgateway:
//	    url: http://pushgateway:9091
//
// and the properties line "prom.pushgateway.url=http://pushgateway:9091"
// load identically. An empty path loads as an empty mapping.
type FileSource struct {
	Path string
}

func (s FileSource) Load() (map[string]string, error) {
	flat := map[string]string{}
	if s.Path == "" {
		return flat, nil
	}
	v := viper.New()
	v.SetConfigFile(s.Path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", s.Path)
	}
	for _, key := range v.AllKeys() {
		flat[key] = flatten(v.Get(key))
	}
	return flat, nil
}

// flatten renders scalar values as-is and list values (YAML bucket arrays)
// as a comma separated string, matching the textual bucket list format.
func flatten(value interface{}) string {
	switch value.(type) {
	case []interface{}, []string:
		if items, err := cast.ToStringSliceE(value); err == nil {
			return strings.Join(items, ",")
		}
	}
	return cast.ToString(value)
}

// MapSource serves a fixed mapping, used for programmatic configuration and
// in tests.
type MapSource map[string]string

func (s MapSource) Load() (map[string]string, error) {
	return s, nil
}
