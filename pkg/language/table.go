package language

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/yutopp/compilet/pkg/domain"
)

// Table maps file extensions to languages. Extensions are unique.
type Table struct {
	entries []domain.ExtensionEntry
	byExt   map[string]domain.LanguageName
}

func NewTable(entries []domain.ExtensionEntry) (*Table, error) {
	t := &Table{
		entries: make([]domain.ExtensionEntry, 0, len(entries)),
		byExt:   make(map[string]domain.LanguageName, len(entries)),
	}
	for _, e := range entries {
		if e.Language == "" || e.Extension == "" {
			return nil, errors.Errorf("invalid extension entry: %+v", e)
		}
		if prev, ok := t.byExt[e.Extension]; ok {
			return nil, errors.Wrapf(
				domain.ErrDuplicateExtension,
				"'%s' is mapped to both '%s' and '%s'", e.Extension, prev, e.Language,
			)
		}
		t.byExt[e.Extension] = e.Language
		t.entries = append(t.entries, e)
	}

	return t, nil
}

func DefaultTable() *Table {
	t, err := NewTable(domain.DefaultExtensions())
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Entries() []domain.ExtensionEntry {
	return append([]domain.ExtensionEntry(nil), t.entries...)
}

func (t *Table) Extensions() []string {
	exts := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		exts = append(exts, e.Extension)
	}
	return exts
}

func (t *Table) IsSupported(srcPath string) bool {
	_, ok := t.byExt[extension(srcPath)]
	return ok
}

// CheckSupported is the validation callers run before compiling.
func (t *Table) CheckSupported(srcPath string) error {
	if t.IsSupported(srcPath) {
		return nil
	}
	return errors.Wrapf(
		domain.ErrUnrecognizedExtension,
		"unsupported file extension. Only these types are valid: %s", strings.Join(t.Extensions(), ","),
	)
}

// Resolve builds the profile for srcPath. Extra arguments come from prefs.
func (t *Table) Resolve(srcPath string, prefs *domain.Preferences) (*domain.LanguageProfile, error) {
	ext := extension(srcPath)
	name, ok := t.byExt[ext]
	if !ok {
		return nil, errors.Wrapf(domain.ErrUnrecognizedExtension, "'%s' (%s)", ext, srcPath)
	}

	switch name {
	case domain.LanguageCpp:
		return &domain.LanguageProfile{
			Name:        name,
			Compiler:    "g++",
			Args:        prefs.ArgsFor(name),
			SkipCompile: false,
		}, nil
	case domain.LanguageC:
		return &domain.LanguageProfile{
			Name:        name,
			Compiler:    "gcc",
			Args:        prefs.ArgsFor(name),
			SkipCompile: false,
		}, nil
	case domain.LanguagePython:
		return &domain.LanguageProfile{
			Name:        name,
			Compiler:    "python",
			Args:        prefs.ArgsFor(name),
			SkipCompile: true,
		}, nil
	case domain.LanguageRust:
		return &domain.LanguageProfile{
			Name:        name,
			Compiler:    "rustc",
			Args:        prefs.ArgsFor(name),
			SkipCompile: false,
		}, nil
	}

	return nil, errors.WithAssertionFailure(
		errors.Wrapf(domain.ErrInternalInconsistency, "no profile for language '%s'", name),
	)
}

func extension(srcPath string) string {
	return strings.TrimPrefix(filepath.Ext(srcPath), ".")
}
