// Package mailing renders and delivers the report notification emails.
package mailing

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/osteele/liquid"
)

// ErrTemplateNotFound is returned when a template name does not resolve to a
// file in the store's directory.
var ErrTemplateNotFound = errors.New("template not found")

// TemplateStore loads Liquid templates from a directory and caches them by
// name. Templates are parsed once per process.
type TemplateStore struct {
	dir    string
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

// NewTemplateStore creates a store rooted at dir with the custom filters
// registered.
func NewTemplateStore(dir string) *TemplateStore {
	s := &TemplateStore{dir: dir, engine: liquid.NewEngine()}
	s.registerCustomFilters()
	return s
}

func (s *TemplateStore) registerCustomFilters() {
	// {{ nd | default: "inconnu" }}
	s.engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		strVal := fmt.Sprintf("%v", value)
		if strVal == "" || strVal == "<nil>" {
			return defaultVal
		}
		return value
	})

	// {{ count | number_with_delimiter }}
	s.engine.RegisterFilter("number_with_delimiter", func(value interface{}) string {
		var n int64
		switch v := value.(type) {
		case int:
			n = int64(v)
		case int64:
			n = v
		case float64:
			n = int64(v)
		case string:
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return v
			}
			n = parsed
		default:
			return fmt.Sprintf("%v", value)
		}
		return delimit(n)
	})

	// {{ report_type | downcase | upcase_first }}
	s.engine.RegisterFilter("upcase_first", func(str string) string {
		r, size := utf8.DecodeRuneInString(str)
		if size == 0 {
			return str
		}
		return string(unicode.ToUpper(r)) + str[size:]
	})
}

// delimit formats n with a space every three digits.
func delimit(n int64) string {
	str := strconv.FormatInt(n, 10)
	neg := n < 0
	if neg {
		str = str[1:]
	}

	var result strings.Builder
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteRune(' ')
		}
		result.WriteRune(c)
	}
	if neg {
		return "-" + result.String()
	}
	return result.String()
}

// Render executes the named template with ctx.
func (s *TemplateStore) Render(name string, ctx map[string]any) (string, error) {
	tpl, err := s.load(name)
	if err != nil {
		return "", err
	}
	out, renderErr := tpl.RenderString(ctx)
	if renderErr != nil {
		return "", fmt.Errorf("render %s: %w", name, renderErr)
	}
	return out, nil
}

func (s *TemplateStore) load(name string) (*liquid.Template, error) {
	if cached, ok := s.cache.Load(name); ok {
		return cached.(*liquid.Template), nil
	}
	if name == "" || !filepath.IsLocal(name) {
		return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}

	src, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", name, err)
	}

	tpl, parseErr := s.engine.ParseTemplate(src)
	if parseErr != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, parseErr)
	}
	actual, _ := s.cache.LoadOrStore(name, tpl)
	return actual.(*liquid.Template), nil
}
