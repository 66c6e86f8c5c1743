package domain

type LanguageName string

const (
	LanguageCpp    LanguageName = "cpp"
	LanguageC      LanguageName = "c"
	LanguagePython LanguageName = "python"
	LanguageRust   LanguageName = "rust"
)

// LanguageProfile describes how to build one source file.
type LanguageProfile struct {
	Name     LanguageName `json:"name"`
	Compiler string       `json:"compiler"`
	Args     []string     `json:"args"`

	// Interpreted languages have no build step.
	SkipCompile bool `json:"skip_compile"`
}

type CompileOutcome struct {
	Success bool `json:"success"`
	Skipped bool `json:"skipped"`

	// Raw stderr of the compiler, in arrival order.
	Diagnostics string `json:"diagnostics"`

	ExitCode   int    `json:"exit_code"`
	OutputPath string `json:"output_path"`
}

type ExtensionEntry struct {
	Language  LanguageName `json:"language"`
	Extension string       `json:"extension"` // without the leading dot
}

type Preferences struct {
	// Directory for compiled binaries. Empty means next to the source file.
	SaveLocation string `json:"save_location"`

	Args map[LanguageName][]string `json:"args,omitempty"`
}

// ArgsFor returns a copy of the extra compiler arguments for the language.
func (p *Preferences) ArgsFor(name LanguageName) []string {
	if p == nil {
		return []string{}
	}
	return append([]string{}, p.Args[name]...)
}

type SandboxSettings struct {
	Images map[LanguageName]string `json:"images,omitempty"`

	CPUTime int64 `json:"cpu_time,omitempty"` // sec
	Memory  int64 `json:"memory,omitempty"`   // bytes
}

type Settings struct {
	Preferences Preferences      `json:"preferences"`
	Extensions  []ExtensionEntry `json:"extensions"`
	Sandbox     SandboxSettings  `json:"sandbox"`
}

func DefaultExtensions() []ExtensionEntry {
	return []ExtensionEntry{
		{Language: LanguageCpp, Extension: "cpp"},
		{Language: LanguageC, Extension: "c"},
		{Language: LanguagePython, Extension: "py"},
		{Language: LanguageRust, Extension: "rs"},
	}
}

func DefaultSettings() *Settings {
	return &Settings{
		Preferences: Preferences{
			Args: map[LanguageName][]string{},
		},
		Extensions: DefaultExtensions(),
		Sandbox: SandboxSettings{
			Images: map[LanguageName]string{
				LanguageCpp:  "gcc:latest",
				LanguageC:    "gcc:latest",
				LanguageRust: "rust:latest",
			},
			CPUTime: 10,
			Memory:  512 * 1024 * 1024,
		},
	}
}
