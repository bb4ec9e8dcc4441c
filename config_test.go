package smarttable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "st_search", cfg.Keys.Search)
	assert.Equal(t, []int{10, 50, 200}, cfg.PageSizes)
	assert.Equal(t, 25, cfg.InitialPageSize)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Keys.Page = ""
	cfg.SearchSelector = "input[["
	cfg.ReadyEvents = nil

	err := cfg.Validate()
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "keys.page is required")
		assert.Contains(t, err.Error(), "search_selector")
		assert.Contains(t, err.Error(), "ready_events")
	}
}

func TestConfigEmptyMarkersDisableWatchers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SearchSelector = ""
	cfg.RemoteLinkSelector = ""
	assert.NoError(t, cfg.Validate())
}
