package bloom

// Level is one cognitive level of Bloom's taxonomy. The string value is the
// Spanish label used in stored documents and LLM prompts.
type Level string

const (
	Recordar   Level = "Recordar"
	Comprender Level = "Comprender"
	Aplicar    Level = "Aplicar"
	Analizar   Level = "Analizar"
	Evaluar    Level = "Evaluar"
	Crear      Level = "Crear"
)

// Other is the category assigned to units that could not be classified.
// It is not part of the hierarchy.
const Other = "Otro"

// canonical is the fixed order of the taxonomy, lowest first.
var canonical = []Level{Recordar, Comprender, Aplicar, Analizar, Evaluar, Crear}

// String returns the label.
func (l Level) String() string { return string(l) }
