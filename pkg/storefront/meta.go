package storefront

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
)

// HeadAnnotations collects meta tags the bridge asks the storefront to place
// in its document head. Each name is written at most once.
type HeadAnnotations struct {
	mu    sync.RWMutex
	order []string
	tags  map[string]string
}

// NewHeadAnnotations returns an empty annotation set.
func NewHeadAnnotations() *HeadAnnotations {
	return &HeadAnnotations{tags: make(map[string]string)}
}

// WriteMeta records a meta tag. Writing a name that already exists is an
// error; the first value is kept.
func (h *HeadAnnotations) WriteMeta(name, content string) error {
	if name == "" {
		return errors.New("meta tag name is empty")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.tags[name]; ok {
		return fmt.Errorf("meta tag %q already written", name)
	}
	h.tags[name] = content
	h.order = append(h.order, name)
	return nil
}

// Content returns the content of the named tag.
func (h *HeadAnnotations) Content(name string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.tags[name]
	return c, ok
}

// HTML renders the tags in write order, one per line, escaped.
func (h *HeadAnnotations) HTML() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var sb strings.Builder
	for _, name := range h.order {
		fmt.Fprintf(&sb, "<meta name=\"%s\" content=\"%s\"></meta>\n",
			html.EscapeString(name), html.EscapeString(h.tags[name]))
	}
	return sb.String()
}
