// Package intent tags a customer message with a coarse intent using
// ordered keyword rules.
package intent

import (
	"strings"
	"unicode"

	statex "github.com/gmoreiraDEV/basix-engine/agent/state"
)

// Rule maps a keyword set to an intent. Keywords match whole words or whole
// word sequences of the normalized text.
type Rule struct {
	Intent   statex.Intent
	Keywords []string
}

// DefaultRules is evaluated in order; the first matching rule wins.
var DefaultRules = []Rule{
	{
		Intent: statex.IntentSchedule,
		Keywords: []string{
			"agendar", "marcar", "quero marcar", "marcar horário", "marcar horario",
			"agendar horário", "agendar horario", "cortar", "fazer",
		},
	},
	{
		Intent: statex.IntentReschedule,
		Keywords: []string{
			"remarcar", "reagendar", "mudar horário", "mudar horario",
			"trocar horário", "trocar horario",
		},
	},
	{
		Intent:   statex.IntentCancel,
		Keywords: []string{"cancelar", "desmarcar"},
	},
	{
		Intent: statex.IntentInfo,
		Keywords: []string{
			"que horas", "funciona", "horário", "horario", "horário de atendimento",
			"horario de atendimento", "abre", "fecha", "preço", "preco", "valor",
			"serviço", "servico", "serviços", "servicos",
		},
	},
	{
		Intent: statex.IntentSmalltalk,
		Keywords: []string{
			"oi", "olá", "ola", "bom dia", "boa tarde", "boa noite", "tudo bem",
		},
	},
	{
		Intent: statex.IntentFarewell,
		Keywords: []string{
			"adeus", "tchau", "tchau tchau", "ate logo", "até logo", "ate mais",
			"até mais", "ate breve", "até breve", "obrigado", "obrigada",
			"pode encerrar", "pode finalizar", "só isso", "so isso", "valeu",
			"tudo certo", "perfeito",
		},
	},
}

// FinishTokens closes the session when found anywhere in the latest user
// message. This scan is independent of the farewell rule above and the two
// may disagree.
var FinishTokens = []string{
	"tchau", "adeus", "até logo", "ate logo", "até mais", "ate mais",
	"até breve", "ate breve", "pode encerrar", "pode finalizar",
	"encerrar atendimento", "só isso", "so isso",
}

type Classifier struct {
	rules  []Rule
	finish []string
}

func New(rules []Rule, finish []string) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	if finish == nil {
		finish = FinishTokens
	}
	c := &Classifier{
		rules:  make([]Rule, 0, len(rules)),
		finish: make([]string, 0, len(finish)),
	}
	for _, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if n := Normalize(kw); n != "" {
				kws = append(kws, n)
			}
		}
		c.rules = append(c.rules, Rule{Intent: r.Intent, Keywords: kws})
	}
	for _, tok := range finish {
		if n := Normalize(tok); n != "" {
			c.finish = append(c.finish, n)
		}
	}
	return c
}

// Default is a classifier over DefaultRules and FinishTokens.
var Default = New(nil, nil)

func Classify(text string) statex.Intent {
	return Default.Classify(text)
}

func (c *Classifier) Classify(text string) statex.Intent {
	padded := " " + wordsOf(text) + " "
	if strings.TrimSpace(padded) == "" {
		return statex.IntentUnknown
	}
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(padded, " "+wordsOf(kw)+" ") {
				return r.Intent
			}
		}
	}
	return statex.IntentUnknown
}

// ShouldFinish reports whether text carries a session-closing token.
func (c *Classifier) ShouldFinish(text string) bool {
	norm := Normalize(text)
	if norm == "" {
		return false
	}
	for _, tok := range c.finish {
		if strings.Contains(norm, tok) {
			return true
		}
	}
	return false
}

// Normalize lowercases text, trims it and collapses whitespace runs.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// wordsOf keeps letters and digits and joins the resulting words with a
// single space, so punctuation never glues a keyword to its neighbour.
func wordsOf(text string) string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}
