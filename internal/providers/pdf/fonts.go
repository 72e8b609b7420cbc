package pdf

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ErrResource is returned when a rendering resource such as a font cannot
// be loaded. No bytes are produced in that case.
var ErrResource = errors.New("pdf_resource_unavailable")

// CoreFamily is the built-in family used when no UTF-8 font is configured.
const CoreFamily = "Helvetica"

const customFamily = "InvoiceSans"

// FontSet is the resolved font for one render.
type FontSet struct {
	Family  string
	Regular []byte
	Bold    []byte
}

// UTF8 reports whether the set embeds a TrueType font.
func (f FontSet) UTF8() bool {
	return len(f.Regular) > 0
}

// FontLoader reads font files once and keeps their bytes.
type FontLoader struct {
	mu    sync.Mutex
	cache map[string][]byte
}

func NewFontLoader() *FontLoader {
	return &FontLoader{cache: map[string][]byte{}}
}

// Load resolves the configured fonts. Both paths empty selects the core
// family; one path without the other is a configuration error.
func (l *FontLoader) Load(regularPath, boldPath string) (FontSet, error) {
	regularPath = strings.TrimSpace(regularPath)
	boldPath = strings.TrimSpace(boldPath)
	if regularPath == "" && boldPath == "" {
		return FontSet{Family: CoreFamily}, nil
	}
	if regularPath == "" || boldPath == "" {
		return FontSet{}, fmt.Errorf("%w: regular and bold fonts must be configured together", ErrResource)
	}

	regular, err := l.read(regularPath)
	if err != nil {
		return FontSet{}, err
	}
	bold, err := l.read(boldPath)
	if err != nil {
		return FontSet{}, err
	}
	return FontSet{Family: customFamily, Regular: regular, Bold: bold}, nil
}

func (l *FontLoader) read(path string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.cache[path]; ok {
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: font %s: %s", ErrResource, path, err.Error())
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: font %s is empty", ErrResource, path)
	}
	l.cache[path] = b
	return b, nil
}
