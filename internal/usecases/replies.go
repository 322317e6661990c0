package usecases

import (
	"context"

	"atendebot/internal/entities"
	"atendebot/internal/interfaces"
	"atendebot/internal/repository"
)

// Config keys a tenant can set to override the built-in reply texts.
// Per-intent replies use the "reply_" + intent key.
const (
	ConfigKeyWelcome  = "welcome_message"
	ConfigKeyReminder = "reminder_message"
	ConfigKeyClosing  = "closing_message"
	ConfigKeyFailure  = "failure_message"
	ConfigKeyDefault  = "default_message"
)

var defaultReplies = map[entities.Intent]string{
	entities.IntentGreeting:          "👋 *Olá! Bem-vindo(a)!*\n\nComo posso ajudar?\n\n1. 📅 Agendar horário\n2. 📋 Meus agendamentos\n3. 💅 Nossos serviços\n4. 💰 Preços\n5. ❌ Nenhuma dessas opções\n\n_Responda com o número da opção_",
	entities.IntentServices:          "💅 *Nossos serviços:*\n\nEnvie o nome do serviço para saber mais, ou digite *1* para agendar.",
	entities.IntentPricing:           "💰 *Tabela de preços:*\n\nMe diga qual serviço você quer e eu envio o valor.",
	entities.IntentAvailability:      "📅 Vamos agendar! Qual dia e horário ficam melhores para você?",
	entities.IntentMyAppointments:    "📋 Um momento, vou buscar seus agendamentos.",
	entities.IntentAddress:           "📍 *Nosso endereço:*\n\nConsulte a localização configurada pelo estabelecimento.",
	entities.IntentPayments:          "💳 Aceitamos Pix, cartão e dinheiro.",
	entities.IntentBusinessHours:     "🕐 *Horário de funcionamento:*\n\nSegunda a sábado, consulte os horários do estabelecimento.",
	entities.IntentCancel:            "✅ Cancelamento realizado. Esperamos te ver em breve!",
	entities.IntentReschedule:        "🔄 Sem problemas! Qual novo dia e horário você prefere?",
	entities.IntentConfirm:           "✅ Agendamento confirmado. Até lá!",
	entities.IntentModifyAppointment: "✏️ Claro! O que você gostaria de alterar no seu agendamento?",
	entities.IntentPolicies:          "📄 *Políticas do estabelecimento:*\n\nCancelamentos com menos de 24h de antecedência podem ter cobrança.",
	entities.IntentHandoff:           "🙋 Certo! Vou chamar um atendente para continuar com você.",
	entities.IntentWrongNumber:       "Sem problemas! Se precisar de algo, é só chamar. 😊",
	entities.IntentTestMessage:       "✅ Estamos online! Como posso ajudar?",
}

const (
	defaultFallbackReply = "🤔 Não entendi sua mensagem.\n\n1. 📅 Agendar horário\n2. 📋 Meus agendamentos\n3. 💅 Nossos serviços\n4. 💰 Preços\n\n_Responda com o número da opção_"
	defaultReminderReply = "⏰ Você ainda está aí? Ficou alguma dúvida? Estou por aqui se precisar."
	defaultClosingReply  = "Vou encerrar nosso atendimento por enquanto. Quando quiser, é só mandar uma mensagem! 👋"
	defaultFailureReply  = "😕 Não consegui concluir sua solicitação agora. Pode tentar novamente em instantes?"
)

// ReplyCatalog resolves the response text for a turn: tenant config
// override first, built-in Portuguese default otherwise. A nil config
// store (demo mode) always uses the defaults.
type ReplyCatalog struct {
	configs interfaces.ConfigStore
}

func NewReplyCatalog(configs interfaces.ConfigStore) *ReplyCatalog {
	return &ReplyCatalog{configs: configs}
}

func (rc *ReplyCatalog) lookup(ctx context.Context, tenantID, key, fallback string) string {
	if rc.configs == nil {
		return fallback
	}
	value, err := rc.configs.GetConfig(ctx, repository.TenantSchema(tenantID), key)
	if err != nil || value == "" {
		return fallback
	}
	return value
}

// For returns the reply for a classified turn.
func (rc *ReplyCatalog) For(ctx context.Context, tenantID string, intent *entities.Intent, result entities.ActionResult) string {
	if !result.Success {
		return rc.Failure(ctx, tenantID)
	}
	if intent == nil {
		return rc.lookup(ctx, tenantID, ConfigKeyDefault, defaultFallbackReply)
	}
	fallback, ok := defaultReplies[*intent]
	if !ok {
		fallback = defaultFallbackReply
	}
	if *intent == entities.IntentGreeting {
		return rc.lookup(ctx, tenantID, ConfigKeyWelcome, fallback)
	}
	return rc.lookup(ctx, tenantID, "reply_"+string(*intent), fallback)
}

// Reminder is the watchdog's first-timeout ping.
func (rc *ReplyCatalog) Reminder(ctx context.Context, tenantID string) string {
	return rc.lookup(ctx, tenantID, ConfigKeyReminder, defaultReminderReply)
}

// Closing is the watchdog's final wind-down message.
func (rc *ReplyCatalog) Closing(ctx context.Context, tenantID string) string {
	return rc.lookup(ctx, tenantID, ConfigKeyClosing, defaultClosingReply)
}

// Failure is the user-visible text for a failed domain action.
func (rc *ReplyCatalog) Failure(ctx context.Context, tenantID string) string {
	return rc.lookup(ctx, tenantID, ConfigKeyFailure, defaultFailureReply)
}
