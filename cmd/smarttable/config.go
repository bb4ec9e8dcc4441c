package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	smarttable "github.com/poku-e/smarttable"
)

const envPrefix = "SMARTTABLE"

// loadConfig layers defaults, the optional config file and SMARTTABLE_*
// variables (SMARTTABLE_KEYS_SEARCH for keys.search) into a validated
// controller config.
func loadConfig(v *viper.Viper, path string) (smarttable.Config, error) {
	def := smarttable.DefaultConfig()
	for key, value := range map[string]any{
		"keys.sort":            def.Keys.Sort,
		"keys.page":            def.Keys.Page,
		"keys.page_size":       def.Keys.PageSize,
		"keys.search":          def.Keys.Search,
		"first_page":           def.FirstPage,
		"page_sizes":           def.PageSizes,
		"initial_page_size":    def.InitialPageSize,
		"search_selector":      def.SearchSelector,
		"filters_selector":     def.FiltersSelector,
		"region_selector":      def.RegionSelector,
		"remote_link_selector": def.RemoteLinkSelector,
		"update_event":         def.UpdateEvent,
		"ready_events":         def.ReadyEvents,
	} {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return smarttable.Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg smarttable.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return smarttable.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return smarttable.Config{}, err
	}
	return cfg, nil
}
