package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lumina-estetica/citabot/internal/observability/metrics"
	"github.com/lumina-estetica/citabot/pkg/logging"
)

// Classification is the model's reading of a message the deterministic
// extractors could not handle.
type Classification struct {
	// IsInterruption marks an off-flow question (price, location, hours)
	// asked mid-booking; Response carries a short answer when it is set.
	IsInterruption bool `json:"is_interruption"`
	// IsCancellation marks an intent to abandon the booking.
	IsCancellation bool `json:"is_cancellation"`
	// Response is a short Spanish answer for interruptions.
	Response string `json:"response"`
	// RepairedValue is the expected field recovered from messy phrasing
	// ("el diecinueve" -> "19/11"), empty when nothing was recovered.
	RepairedValue string `json:"repaired_value"`
}

// Classifier resolves ambiguous turns. expectedType names the field the
// conversation is currently collecting ("treatment", "date", "time", "name",
// "confirmation").
type Classifier interface {
	Classify(ctx context.Context, text, expectedType string) (Classification, error)
}

const classifierSystemPrompt = `Eres el clasificador de un asistente de agendamiento para una clinica de medicina estetica.
El usuario esta en medio de agendar una cita y envio un mensaje que no se pudo interpretar como el dato esperado.
Responde SOLO con JSON, sin texto adicional.`

const classifierPromptTemplate = `Dato esperado en este paso: %s
Mensaje del usuario: %s

Clasifica el mensaje:
- is_interruption: true si es una pregunta fuera del flujo (precio, ubicacion, horario, duracion de un tratamiento).
- is_cancellation: true si el usuario quiere abandonar o cancelar el agendamiento.
- response: si is_interruption es true, una respuesta breve en espanol (maximo 2 frases) que termine invitando a continuar con la cita.
- repaired_value: si el mensaje SI contiene el dato esperado pero mal escrito o en otra forma, el valor normalizado (fecha como DD/MM, hora como HH:MM); si no, cadena vacia.

Responde con: {"is_interruption": <bool>, "is_cancellation": <bool>, "response": "<texto>", "repaired_value": "<valor>"}`

const classifierTimeout = 6 * time.Second

// FallbackClassifier asks the LLM to classify a turn. Errors degrade to the
// zero Classification so the caller re-prompts instead of failing the turn.
type FallbackClassifier struct {
	client  LLMClient
	metrics *metrics.ConversationMetrics
	logger  *logging.Logger
}

// NewFallbackClassifier creates an LLM-backed classifier. m may be nil.
func NewFallbackClassifier(client LLMClient, m *metrics.ConversationMetrics, logger *logging.Logger) *FallbackClassifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackClassifier{client: client, metrics: m, logger: logger}
}

// Classify sends the message to the model and parses its JSON verdict.
func (c *FallbackClassifier) Classify(ctx context.Context, text, expectedType string) (Classification, error) {
	text = strings.TrimSpace(text)
	if text == "" || c.client == nil {
		return Classification{}, nil
	}
	c.metrics.ObserveClassifierFallback(expectedType)

	ctx, cancel := context.WithTimeout(ctx, classifierTimeout)
	defer cancel()

	resp, err := c.client.Complete(ctx, LLMRequest{
		System:    classifierSystemPrompt,
		Messages:  []ChatMessage{{Role: ChatRoleUser, Content: fmt.Sprintf(classifierPromptTemplate, expectedType, text)}},
		MaxTokens: 200,
	})
	if err != nil {
		c.logger.Warn("fallback classifier unavailable", "error", err)
		return Classification{}, err
	}

	// The model sometimes wraps the JSON in prose; take the outermost braces.
	content := strings.TrimSpace(resp.Text)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}

	var result Classification
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		c.logger.Warn("fallback classifier returned unparseable output", "output", resp.Text)
		return Classification{}, nil
	}
	return result, nil
}
