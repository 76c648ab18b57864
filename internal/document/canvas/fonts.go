package canvas

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/docrender/internal/document/domain"
	"github.com/spf13/afero"
)

// FontSet holds the TrueType data embedded in every document. It is loaded
// once and shared read-only between concurrent builds.
type FontSet struct {
	Regular []byte
	Bold    []byte
}

// Empty reports whether no TrueType fonts are loaded. Empty sets fall back to
// the PDF core Helvetica family, which only covers cp1252.
func (f FontSet) Empty() bool {
	return len(f.Regular) == 0 || len(f.Bold) == 0
}

// LoadFonts reads the regular and bold font files. Both are required.
func LoadFonts(fs afero.Fs, regularPath, boldPath string) (FontSet, error) {
	regular, err := readFont(fs, regularPath)
	if err != nil {
		return FontSet{}, err
	}
	bold, err := readFont(fs, boldPath)
	if err != nil {
		return FontSet{}, err
	}
	return FontSet{Regular: regular, Bold: bold}, nil
}

func readFont(fs afero.Fs, path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, domain.NewError(domain.CodeFontMissing, "font path is not configured", nil)
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, domain.NewError(domain.CodeFontMissing, fmt.Sprintf("read font %s", path), err)
	}
	if len(data) == 0 {
		return nil, domain.NewError(domain.CodeFontMissing, fmt.Sprintf("font %s is empty", path), nil)
	}
	return data, nil
}
