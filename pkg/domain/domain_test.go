package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreferences_ArgsFor(t *testing.T) {
	p := &Preferences{
		Args: map[LanguageName][]string{
			LanguageCpp: {"-O2"},
		},
	}

	args := p.ArgsFor(LanguageCpp)
	assert.Equal(t, []string{"-O2"}, args)

	args[0] = "-O3"
	assert.Equal(t, "-O2", p.Args[LanguageCpp][0])

	assert.Equal(t, []string{}, p.ArgsFor(LanguageRust))

	var nilPrefs *Preferences
	assert.Equal(t, []string{}, nilPrefs.ArgsFor(LanguageC))
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, "", s.Preferences.SaveLocation)
	assert.Len(t, s.Extensions, 4)
	assert.Equal(t, "gcc:latest", s.Sandbox.Images[LanguageCpp])
}
