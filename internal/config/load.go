package config

import (
	"fmt"
	"slices"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LoadFile reads deploy defaults from path. A missing path yields empty Options.
func LoadFile(path string) (*Options, error) {
	if path == "" {
		return &Options{}, nil
	}

	parser, err := getConfigParser(path)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := checkUnknownKeys(k.Keys()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var opts Options
	decoderConfig := &mapstructure.DecoderConfig{
		TagName:          "koanf",
		Result:           &opts,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			durationDecodeHook(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}
	unmarshalConf := koanf.UnmarshalConf{
		Tag:           "koanf",
		DecoderConfig: decoderConfig,
	}
	if err := k.UnmarshalWithConf("", &opts, unmarshalConf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &opts, nil
}

var knownKeys = []string{
	"tag", "app", "compose_file", "env_file", "deploy_dir",
	"web_service", "worker_service", "tag_key",
	"skip_migrate", "skip_backup", "dry_run", "force",
	"rollback_to", "rollback_worker",
	"health.path", "health.host", "health.port", "health.retries", "health.interval", "health.timeout",
	"settle_delay", "backup_retention", "db_service_patterns",
	"migrate_command", "collectstatic_command", "metrics_file",
}

func checkUnknownKeys(keys []string) error {
	for _, key := range keys {
		if !slices.Contains(knownKeys, key) {
			return fmt.Errorf("unknown field '%s'", key)
		}
	}
	return nil
}
