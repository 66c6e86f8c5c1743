package config

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/yutopp/compilet/pkg/domain"
	"github.com/yutopp/compilet/pkg/language"
)

// SettingsFromFile stores settings as a JSON document. Every read goes to the
// file, so edits are picked up by the next compile.
type SettingsFromFile struct {
	Path string
}

func NewSettingsFromFile(path string) *SettingsFromFile {
	return &SettingsFromFile{
		Path: path,
	}
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".compilet.json"
	}
	return filepath.Join(home, ".compilet.json")
}

// Load returns the defaults when the file does not exist.
func (p *SettingsFromFile) Load() (*domain.Settings, error) {
	r, err := os.Open(p.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.DefaultSettings(), nil
		}
		return nil, errors.Wrapf(err, "failed to open file: %s", p.Path)
	}
	defer r.Close()

	settings := domain.DefaultSettings()
	settings.Extensions = nil
	if err := json.NewDecoder(r).Decode(settings); err != nil {
		return nil, errors.Wrapf(err, "failed to decode file: %s", p.Path)
	}
	if len(settings.Extensions) == 0 {
		settings.Extensions = domain.DefaultExtensions()
	}

	return settings, nil
}

func (p *SettingsFromFile) Save(settings *domain.Settings) error {
	w, err := os.Create(p.Path)
	if err != nil {
		return errors.Wrapf(err, "failed to create file: %s", p.Path)
	}
	defer w.Close()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(settings); err != nil {
		return errors.Wrapf(err, "failed to encode file: %s", p.Path)
	}

	return nil
}

func (p *SettingsFromFile) Preferences() (*domain.Preferences, error) {
	settings, err := p.Load()
	if err != nil {
		return nil, err
	}
	return &settings.Preferences, nil
}

// LoadTable builds the extension table, failing on duplicated extensions.
func (p *SettingsFromFile) LoadTable() (*language.Table, error) {
	settings, err := p.Load()
	if err != nil {
		return nil, err
	}

	table, err := language.NewTable(settings.Extensions)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid extensions in %s", p.Path)
	}
	return table, nil
}
