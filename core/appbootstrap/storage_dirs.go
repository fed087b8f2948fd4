package appbootstrap

import (
	"os"
	"path/filepath"
	"strings"

	"props-bible/config"
	"props-bible/core/utils"
)

func ensureStorageDirs(cfg *config.AppConfig, logger *utils.Logger) error {
	if cfg == nil {
		return nil
	}
	type item struct {
		name string
		path string
	}
	items := []item{}
	if cfg.Storage.Backend == "" || cfg.Storage.Backend == "fs" {
		items = append(items, item{name: "objects", path: cfg.Storage.Dir})
	}
	if p := strings.TrimSpace(cfg.DBPath); p != "" {
		items = append(items, item{name: "db", path: filepath.Dir(p)})
	}
	for _, it := range items {
		p := strings.TrimSpace(it.path)
		if p == "" || p == "." {
			continue
		}
		if err := os.MkdirAll(p, 0o700); err != nil {
			if logger != nil {
				logger.Errorf("storage dir init failed name=%s path=%s: %v", it.name, p, err)
			}
			return err
		}
	}
	return nil
}
