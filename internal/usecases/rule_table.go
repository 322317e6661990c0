package usecases

import (
	"regexp"

	"atendebot/internal/entities"
)

// Rule binds one intent to one pattern. Rules are matched in slice
// order; the first hit wins for single-intent classification.
type Rule struct {
	Intent  entities.Intent
	Pattern *regexp.Regexp
}

// MenuShortcut is a fixed high-confidence result for exact numeric-menu
// replies. Digit 5 is the user-facing "none of these" escape: nil
// intent, zero confidence, and no fallback consultation.
type MenuShortcut struct {
	Intent     *entities.Intent
	Confidence float64
}

// RuleTable is the process-wide classification registry: an ordered
// rule list plus the menu shortcuts. Built once at startup, immutable
// afterwards, safe for unsynchronized concurrent reads.
type RuleTable struct {
	shortcuts map[string]MenuShortcut
	rules     []Rule
}

func intentPtr(i entities.Intent) *entities.Intent { return &i }

// NewRuleTable compiles the default Portuguese rule set. Token rules
// are fenced with (^|\W) / (\W|$) instead of \b so accented words
// match at string edges.
func NewRuleTable() *RuleTable {
	return &RuleTable{
		shortcuts: map[string]MenuShortcut{
			"1": {Intent: intentPtr(entities.IntentAvailability), Confidence: 0.95},
			"2": {Intent: intentPtr(entities.IntentMyAppointments), Confidence: 0.95},
			"3": {Intent: intentPtr(entities.IntentServices), Confidence: 0.95},
			"4": {Intent: intentPtr(entities.IntentPricing), Confidence: 0.95},
			"5": {Intent: nil, Confidence: 0},
		},
		rules: []Rule{
			{entities.IntentGreeting, regexp.MustCompile(`(^|\W)(oi|ol[aá]|bom dia|boa tarde|boa noite|e a[ií])(\W|$)`)},
			{entities.IntentCancel, regexp.MustCompile(`(^|\W)(cancelar|desmarcar|cancela)(\W|$)`)},
			{entities.IntentReschedule, regexp.MustCompile(`(^|\W)(remarcar|reagendar|(mudar|trocar) (o |meu )?hor[aá]rio)(\W|$)`)},
			{entities.IntentConfirm, regexp.MustCompile(`(^|\W)(confirmar|confirmo|confirmado|confirma)(\W|$)`)},
			{entities.IntentModifyAppointment, regexp.MustCompile(`(^|\W)(alterar|modificar) (o |meu )?(agendamento|atendimento)(\W|$)`)},
			{entities.IntentMyAppointments, regexp.MustCompile(`(^|\W)(meus? (agendamentos?|hor[aá]rios?)|minha agenda)(\W|$)`)},
			{entities.IntentAvailability, regexp.MustCompile(`(^|\W)(agendar|marcar|disponibilidade|tem vaga|hor[aá]rios? (livres?|dispon[ií]veis?))(\W|$)`)},
			{entities.IntentServices, regexp.MustCompile(`(^|\W)(servi[cç]os?|procedimentos?|oferecem|fazem)(\W|$)`)},
			{entities.IntentPricing, regexp.MustCompile(`(^|\W)(pre[cç]os?|valor(es)?|quanto custa|tabela de pre[cç]os?)(\W|$)`)},
			{entities.IntentPayments, regexp.MustCompile(`(^|\W)(pagamentos?|pix|cart[aã]o|parcelar|parcelamento)(\W|$)`)},
			{entities.IntentAddress, regexp.MustCompile(`(^|\W)(endere[cç]o|localiza[cç][aã]o|onde fica|como chegar)(\W|$)`)},
			{entities.IntentBusinessHours, regexp.MustCompile(`(^|\W)(hor[aá]rio de (funcionamento|atendimento)|que horas (abre|fecha)|abrem|fecham)(\W|$)`)},
			{entities.IntentPolicies, regexp.MustCompile(`(^|\W)(pol[ií]ticas?|regras|cancelamento)(\W|$)`)},
			{entities.IntentHandoff, regexp.MustCompile(`(^|\W)(atendente|humano|falar com (algu[eé]m|uma pessoa))(\W|$)`)},
			{entities.IntentWrongNumber, regexp.MustCompile(`(^|\W)(n[uú]mero errado|foi (um )?engano|mensagem errada)(\W|$)`)},
			{entities.IntentTestMessage, regexp.MustCompile(`^(teste|test|ping)$`)},
		},
	}
}

// Shortcut looks up an exact numeric-menu reply.
func (t *RuleTable) Shortcut(normalized string) (MenuShortcut, bool) {
	sc, ok := t.shortcuts[normalized]
	return sc, ok
}

// Match returns the first matching rule's intent.
func (t *RuleTable) Match(normalized string) (entities.Intent, bool) {
	for _, rule := range t.rules {
		if rule.Pattern.MatchString(normalized) {
			return rule.Intent, true
		}
	}
	return "", false
}

// MatchAll returns every matching intent in rule order, each at most
// once. Returns an empty slice when nothing matches; it never invents
// a default.
func (t *RuleTable) MatchAll(normalized string) []entities.Intent {
	matched := []entities.Intent{}
	seen := map[entities.Intent]bool{}
	for _, rule := range t.rules {
		if seen[rule.Intent] {
			continue
		}
		if rule.Pattern.MatchString(normalized) {
			matched = append(matched, rule.Intent)
			seen[rule.Intent] = true
		}
	}
	return matched
}
