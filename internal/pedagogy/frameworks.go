package pedagogy

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/rutealo/internal/bloom"
)

//go:embed frameworks.yaml
var defaultFrameworks []byte

// BloomProcess describes the cognitive process behind one level.
type BloomProcess struct {
	Level        bloom.Level `yaml:"nivel"`
	Description  string      `yaml:"descripcion"`
	Subprocesses []string    `yaml:"subprocesos"`
	Knowledge    string      `yaml:"conocimiento"`
}

// ZDPPrinciple is a learning principle with the level it suits best.
type ZDPPrinciple struct {
	Principle string      `yaml:"principio"`
	Level     bloom.Level `yaml:"nivel"`
}

// FlowDimension is a motivational dimension with its suggested level.
type FlowDimension struct {
	Dimension  string      `yaml:"dimension"`
	Level      bloom.Level `yaml:"nivel"`
	Definition string      `yaml:"definicion"`
}

// Frameworks is the pedagogical reference data used to enrich prompts.
type Frameworks struct {
	Bloom []BloomProcess  `yaml:"bloom"`
	ZDP   []ZDPPrinciple  `yaml:"zdp"`
	Flow  []FlowDimension `yaml:"flow"`
}

// LoadFrameworks reads frameworks from path, or the embedded defaults when
// path is empty.
func LoadFrameworks(path string) (*Frameworks, error) {
	data := defaultFrameworks
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read frameworks file: %w", err)
		}
		data = b
	}

	var f Frameworks
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse frameworks: %w", err)
	}
	return &f, nil
}

// MustDefaultFrameworks returns the embedded frameworks.
func MustDefaultFrameworks() *Frameworks {
	f, err := LoadFrameworks("")
	if err != nil {
		panic(err)
	}
	return f
}

// Context renders the framework guidance for level: the Bloom process, up
// to three ZDP principles and up to two Flow dimensions. A nil receiver or
// a level with no entries yields "".
func (f *Frameworks) Context(level bloom.Level) string {
	if f == nil {
		return ""
	}
	var b strings.Builder

	for _, p := range f.Bloom {
		if p.Level != level {
			continue
		}
		fmt.Fprintf(&b, "TAXONOMÍA DE BLOOM - %s:\n", level)
		if p.Description != "" {
			fmt.Fprintf(&b, "  - Descripción: %s\n", p.Description)
		}
		if len(p.Subprocesses) > 0 {
			fmt.Fprintf(&b, "  - Subprocesos: %s\n", strings.Join(p.Subprocesses, ", "))
		}
		if p.Knowledge != "" {
			fmt.Fprintf(&b, "  - Tipo de conocimiento: %s\n", p.Knowledge)
		}
		break
	}

	n := 0
	for _, p := range f.ZDP {
		if p.Level != level || n == 3 {
			continue
		}
		if n == 0 {
			b.WriteString("\nZONA DE DESARROLLO PRÓXIMO - Principios aplicables:\n")
		}
		n++
		fmt.Fprintf(&b, "  %d. %s\n", n, p.Principle)
	}

	n = 0
	for _, d := range f.Flow {
		if d.Level != level || n == 2 {
			continue
		}
		if n == 0 {
			b.WriteString("\nTEORÍA DEL FLOW - Dimensiones motivacionales:\n")
		}
		n++
		fmt.Fprintf(&b, "  - %s", d.Dimension)
		if d.Definition != "" {
			fmt.Fprintf(&b, ": %s", d.Definition)
		}
		b.WriteString("\n")
	}

	return b.String()
}
