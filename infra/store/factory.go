package store

import (
	"github.com/kilianp07/busalloc/core/factory"
	corestore "github.com/kilianp07/busalloc/core/store"
)

// init registers built-in event stores.
func init() {
	_ = corestore.RegisterEventStore("jsonl", func(conf map[string]any) (corestore.EventStore, error) {
		var c struct {
			Dir string `json:"dir"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Dir == "" {
			c.Dir = "runs"
		}
		return NewJSONLStore(c.Dir)
	})

	_ = corestore.RegisterEventStore("sqlite", func(conf map[string]any) (corestore.EventStore, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			c.Path = "busalloc.db"
		}
		return NewSQLiteStore(c.Path)
	})
}
