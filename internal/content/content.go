// Package content holds the assistant's localized phrase sets.
package content

import (
	"math/rand"
	"strings"
)

// Set is the phrase bundle for one language.
type Set struct {
	Lang        string // two-letter selector ("EN", "ES", ...)
	Voice       string // BCP-47 voice locale for synthesis and recognition
	Salutations []string
	Greetings   []string
	Acks        []string
	Errors      []string
}

const BaseLang = "EN"

var sets = map[string]Set{
	"EN": {
		Lang:        "EN",
		Voice:       "en-US",
		Salutations: []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"},
		Greetings: []string{
			"Hello! I'm nextbot. How can I help you today?",
			"Hey there! nextbot here, ready to assist.",
			"Greetings! I'm nextbot. What can I do for you?",
			"nextbot online. How may I be of service?",
			"Hi! This is nextbot. How can I assist you today?",
		},
		Acks:   []string{"Got it!", "Done!", "Sure thing!", "Alright!"},
		Errors: []string{"I'm sorry, I didn't understand that.", "Could you rephrase that?"},
	},
	"ES": {
		Lang:        "ES",
		Voice:       "es-ES",
		Salutations: []string{"hola", "buenos dias", "buenas tardes", "buenas noches"},
		Greetings: []string{
			"¡Hola! Soy nextbot. ¿Cómo puedo ayudarte hoy?",
			"¡Hola! Aquí nextbot, listo para ayudar.",
			"¡Saludos! Soy nextbot. ¿Qué puedo hacer por ti?",
			"nextbot en línea. ¿Cómo puedo servirle?",
			"¡Hola! Soy nextbot. ¿En qué puedo ayudarte?",
		},
		Acks:   []string{"¡Entendido!", "¡Hecho!", "¡Claro!", "¡Muy bien!"},
		Errors: []string{"Lo siento, no entendí eso.", "¿Podrías reformularlo?"},
	},
	"FR": {
		Lang:        "FR",
		Voice:       "fr-FR",
		Salutations: []string{"bonjour", "salut", "bonsoir"},
		Greetings: []string{
			"Bonjour! Je suis nextbot. Comment puis-je vous aider?",
			"Salut! nextbot à votre service.",
			"Salutations! Je suis nextbot. Que puis-je faire pour vous?",
		},
		Acks:   []string{"Compris!", "C'est fait!", "Bien sûr!", "D'accord!"},
		Errors: []string{"Je suis désolé, je n'ai pas compris.", "Pourriez-vous reformuler?"},
	},
	"DE": {
		Lang:        "DE",
		Voice:       "de-DE",
		Salutations: []string{"hallo", "guten morgen", "guten tag", "guten abend"},
		Greetings: []string{
			"Hallo! Ich bin nextbot. Wie kann ich helfen?",
			"Hallo! nextbot hier, bereit zu helfen.",
			"Grüße! Ich bin nextbot. Was kann ich für Sie tun?",
		},
		Acks:   []string{"Verstanden!", "Erledigt!", "Aber sicher!", "In Ordnung!"},
		Errors: []string{"Es tut mir leid, das habe ich nicht verstanden.", "Könnten Sie das umformulieren?"},
	},
}

// For returns the phrase set for a language selector, falling back to the
// base language when the selector is unconfigured.
func For(lang string) Set {
	key := strings.ToUpper(strings.TrimSpace(lang))
	if len(key) > 2 {
		key = key[:2]
	}
	if s, ok := sets[key]; ok {
		return s
	}
	return sets[BaseLang]
}

// Languages lists the configured language selectors.
func Languages() []string {
	out := make([]string, 0, len(sets))
	for k := range sets {
		out = append(out, k)
	}
	return out
}

// Pick returns a random phrase from list, or "" when the list is empty.
func Pick(rng *rand.Rand, list []string) string {
	if len(list) == 0 {
		return ""
	}
	if rng == nil {
		return list[0]
	}
	return list[rng.Intn(len(list))]
}
