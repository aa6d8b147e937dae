package message

import (
	"os"
	"slices"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Library holds named message templates loaded from YAML:
//
//	templates:
//	  intro: "Hi {name}, is {businessName} taking bookings?"
type Library struct {
	Templates map[string]string `yaml:"templates"`
}

// LoadLibrary reads a template library file.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "message: read templates %s", path)
	}

	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, eris.Wrapf(err, "message: parse templates %s", path)
	}
	if len(lib.Templates) == 0 {
		return nil, eris.Errorf("message: no templates in %s", path)
	}
	return &lib, nil
}

// Get returns the template registered under name.
func (l *Library) Get(name string) (string, error) {
	body, ok := l.Templates[name]
	if !ok {
		return "", eris.Errorf("message: unknown template %q (have %v)", name, l.Names())
	}
	return body, nil
}

// Names returns the template names in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.Templates))
	for n := range l.Templates {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
