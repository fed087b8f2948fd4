package labels

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"props-bible/config"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/skip2/go-qrcode"
)

var ErrEmptyContent = errors.New("label content is empty")

// Generator renders QR label PNGs and keeps recent ones in memory.
type Generator struct {
	size   int
	cache  *lru.LRU[string, []byte]
	hits   atomic.Uint64
	misses atomic.Uint64
}

type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int    `json:"size"`
}

func NewGenerator(cfg config.LabelsConfig) *Generator {
	size := cfg.QRSize
	if size <= 0 {
		size = 256
	}
	entries := cfg.CacheSize
	if entries <= 0 {
		entries = 512
	}
	return &Generator{
		size:  size,
		cache: lru.NewLRU[string, []byte](entries, nil, cfg.CacheTTL),
	}
}

// PNG returns the QR code for content; size <= 0 uses the configured size.
func (g *Generator) PNG(content string, size int) ([]byte, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if size <= 0 {
		size = g.size
	}
	if size > 1024 {
		size = 1024
	}
	key := fmt.Sprintf("%d|%s", size, content)
	if png, ok := g.cache.Get(key); ok {
		g.hits.Add(1)
		return png, nil
	}
	g.misses.Add(1)
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, err
	}
	g.cache.Add(key, png)
	return png, nil
}

// Invalidate drops every cached label whose content starts with prefix.
func (g *Generator) Invalidate(prefix string) {
	for _, k := range g.cache.Keys() {
		if _, content, ok := strings.Cut(k, "|"); ok && strings.HasPrefix(content, prefix) {
			g.cache.Remove(k)
		}
	}
}

func (g *Generator) Stats() Stats {
	return Stats{Hits: g.hits.Load(), Misses: g.misses.Load(), Size: g.cache.Len()}
}

// PropURL is what a prop label encodes: a deep link into the show's prop page.
func PropURL(publicURL string, showID, propID int64) string {
	return fmt.Sprintf("%s/shows/%d/props/%d", strings.TrimRight(publicURL, "/"), showID, propID)
}
