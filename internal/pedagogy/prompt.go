package pedagogy

import (
	"fmt"
	"strings"

	"github.com/abhisek/rutealo/internal/bloom"
	"github.com/abhisek/rutealo/internal/learnpath"
)

const blockSystemPrompt = `Eres un experto en diseño instruccional con especialización en la Taxonomía de Bloom y en evaluación formativa. Generas material de estudio basado exclusivamente en el contenido del estudiante. Respondes SOLO con el objeto JSON solicitado, sin markdown ni texto adicional.`

var flashcardInstructions = map[learnpath.Strategy]string{
	learnpath.StrategyScaffold: `ESTRATEGIA SCAFFOLDING (Zona de Desarrollo Próximo):
- Las flashcards incluyen PISTAS PROGRESIVAS en el reverso.
- Estructura del reverso: Definición, luego Ejemplo, luego Aplicación.
- Usa lenguaje que invite a la reflexión: "Considera...", "Observa que...".
- Conecta con conocimientos previos y fomenta el pensamiento metacognitivo.`,
	learnpath.StrategyReinforce: `ESTRATEGIA REFUERZO (Brecha detectada):
- Las flashcards enfatizan la REPETICIÓN ESPACIADA de conceptos.
- Estructura del reverso: Definición precisa, luego múltiples ejemplos y contraejemplos.
- Usa lenguaje claro y directo, con mnemotécnicos o reglas simples.
- Provee casos de uso prácticos.`,
	learnpath.StrategyStandard: `ESTRATEGIA ESTÁNDAR:
- Balance entre teoría y práctica.
- Estructura del reverso: Definición y un ejemplo representativo.
- Lenguaje neutro y académico, sin ambigüedad.`,
}

var quizInstructions = map[learnpath.Strategy]string{
	learnpath.StrategyScaffold: `- El feedback incluye PISTAS GRADUALES sin revelar la respuesta completa.
- Para incorrectas: "Estás cerca, pero considera...", con una pregunta de seguimiento.
- Refuerza el proceso de razonamiento, no solo el resultado.`,
	learnpath.StrategyReinforce: `- El feedback es EXPLÍCITO Y DETALLADO.
- Para incorrectas: explica exactamente por qué es incorrecta y el concepto correcto completo.
- Incluye referencias al material y ejemplos adicionales.`,
	learnpath.StrategyStandard: `- Feedback balanceado: explicación más pista.
- Para correctas: refuerzo breve. Para incorrectas: dirección hacia el concepto correcto.`,
}

func buildBlockUserMessage(level bloom.Level, strategy learnpath.Strategy, frameworkContext, source string, flashcards, quizItems int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "NIVEL COGNITIVO: %s\n", level)
	fmt.Fprintf(&b, "ESTRATEGIA: %s\n\n", strings.ToUpper(string(strategy)))

	if frameworkContext != "" {
		b.WriteString(frameworkContext)
		b.WriteString("\n")
	}

	b.WriteString(flashcardInstructions[strategy])
	b.WriteString("\n\nFEEDBACK DE LAS PREGUNTAS:\n")
	b.WriteString(quizInstructions[strategy])

	b.WriteString("\n\nCONTENIDO DEL ESTUDIANTE:\n")
	b.WriteString(source)

	fmt.Fprintf(&b, `

TAREAS:
1. Genera exactamente %d flashcards para el nivel %s. El frente activa procesos cognitivos de %s. El reverso contiene TEORÍA EXPLÍCITA del material, no respuestas cortas.
2. Genera exactamente %d preguntas de opción múltiple para el nivel %s, con 4 opciones con el prefijo "a) ", "b) ", "c) ", "d) " y distractores plausibles.
3. "respuesta_correcta" es la letra de la opción correcta.
4. "feedback" tiene una entrada por letra: refuerzo positivo con explicación para la correcta, y una pista hacia el concepto correcto para cada incorrecta.`,
		flashcards, level, level, quizItems, level)

	return b.String()
}

const examSystemPrompt = `Actúas como un psicopedagogo experto. Diseñas exámenes de diagnóstico inicial para identificar la Zona de Desarrollo Próximo de un estudiante. Respondes SOLO con el objeto JSON solicitado.`

func buildExamUserMessage(h *bloom.Hierarchy, source string, n int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Genera un EXAMEN DE DIAGNÓSTICO INICIAL de %d preguntas de dificultad incremental, desde '%s' hasta '%s'.\n", n, h.Lowest(), h.All()[min(n, h.Len())-1])
	b.WriteString("Cada pregunta indica en \"nivel_bloom_evaluado\" uno de estos niveles: ")
	for i, l := range h.All() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(l))
	}
	b.WriteString(".\n")
	b.WriteString("Las opciones llevan el prefijo \"A) \", \"B) \", \"C) \"... y \"respuesta_correcta\" es solo la letra.\n")
	fmt.Fprintf(&b, "Numera las preguntas con \"id\" de 1 a %d.\n", n)

	b.WriteString("\nCONTENIDO BASE:\n")
	b.WriteString(source)

	return b.String()
}

const classifySystemPrompt = `Eres un motor de clasificación estricto. Asignas una categoría de la Taxonomía de Bloom a un fragmento de contenido educativo. Si el contenido es irrelevante, no educativo, o no coincide con ninguna regla, la categoría DEBE ser "Otro". No inventes categorías.`

func buildClassifyUserMessage(f *Frameworks, text string) string {
	var b strings.Builder

	b.WriteString("REGLAS:\n")
	if f != nil {
		for _, p := range f.Bloom {
			fmt.Fprintf(&b, "NIVEL: %s | Desc: %s\n", p.Level, p.Description)
		}
	}

	b.WriteString("\n--- CONTENIDO ---\n")
	b.WriteString(text)
	b.WriteString("\n\nDevuelve la categoría, una justificación breve y de 2 a 5 palabras clave.")

	return b.String()
}
