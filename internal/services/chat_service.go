package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"financas/internal/chat"
	"financas/internal/core"
	"financas/internal/metrics"
)

// ChatService executes chat commands against the ledger and phrases the reply.
type ChatService struct {
	ledger  *LedgerService
	metrics *metrics.Metrics
}

func NewChatService(ledger *LedgerService, m *metrics.Metrics) *ChatService {
	return &ChatService{ledger: ledger, metrics: m}
}

// Reply interprets msg and returns the answer shown to the user. Logical
// failures such as an unmatched delete are part of the reply; only storage
// errors and an empty message are returned as errors.
func (s *ChatService) Reply(ctx context.Context, msg string) (string, error) {
	if strings.TrimSpace(msg) == "" {
		return "", &core.ValidationError{Field: "msg", Err: core.ErrEmptyMessage}
	}

	cmd := chat.Parse(msg)
	s.metrics.ChatCommand(commandName(cmd))
	slog.InfoContext(ctx, "Chat command parsed", "command", commandName(cmd))

	switch c := cmd.(type) {
	case chat.CreateEntry:
		return s.create(ctx, c)
	case chat.DeleteEntry:
		return s.delete(ctx, c)
	case chat.Query:
		return s.query(ctx)
	case chat.Hint:
		if c.Kind == core.KindExpense {
			return `💡 Para adicionar um gasto, informe o valor. Ex.: "gastei 50 no mercado categoria alimentação".`, nil
		}
		return `💡 Para adicionar uma entrada, informe o valor. Ex.: "recebi 3000 de salário".`, nil
	default:
		return `🤖 Comando não reconhecido. Tente: "delete [item]", "gastei 50 no mercado" ou "como andam minhas contas?"`, nil
	}
}

func (s *ChatService) create(ctx context.Context, c chat.CreateEntry) (string, error) {
	e, err := s.ledger.AddEntry(ctx, core.Entry{
		Kind:        c.Kind,
		Description: c.Description,
		Amount:      c.Amount,
		Category:    c.Category,
	})
	if err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			return "❌ " + err.Error(), nil
		}
		return "", err
	}
	if e.Kind == core.KindExpense {
		return fmt.Sprintf("✅ Gasto registrado: %s - %s (%s)", e.Description, e.Amount, e.Category), nil
	}
	return fmt.Sprintf("✅ Entrada registrada: %s - %s", e.Description, e.Amount), nil
}

func (s *ChatService) delete(ctx context.Context, c chat.DeleteEntry) (string, error) {
	if strings.TrimSpace(c.Term) == "" {
		return `❌ Diga o que remover. Ex.: "deletar mercado".`, nil
	}
	n, err := s.ledger.DeleteMatching(ctx, c.Term)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return fmt.Sprintf("❌ Não encontrei nenhum item com %q", c.Term), nil
	}
	if n == 1 {
		return fmt.Sprintf("✅ 1 item contendo %q foi removido!", c.Term), nil
	}
	return fmt.Sprintf("✅ %d itens contendo %q foram removidos!", n, c.Term), nil
}

func (s *ChatService) query(ctx context.Context) (string, error) {
	r, err := s.ledger.Report(ctx, core.Period{})
	if err != nil {
		return "", err
	}
	sum := r.Summary
	spent := sum.TotalExpense.Add(sum.TotalFixed).Add(sum.TotalDebt)

	var b strings.Builder
	switch {
	case sum.Balance.Cents > 0:
		b.WriteString("💰 Situação positiva!")
	case sum.Balance.Cents == 0:
		b.WriteString("⚖️ Situação equilibrada")
	default:
		b.WriteString("⚠️ Atenção! Saldo negativo")
	}
	fmt.Fprintf(&b, "\n\n📥 Entradas: %s\n📤 Saídas: %s\n💵 Saldo: %s", sum.TotalIncome, spent, sum.Balance)
	for _, tip := range r.Tips {
		b.WriteString("\n")
		b.WriteString(tip)
	}
	return b.String(), nil
}

func commandName(cmd chat.Command) string {
	switch cmd.(type) {
	case chat.CreateEntry:
		return "create"
	case chat.DeleteEntry:
		return "delete"
	case chat.Query:
		return "query"
	case chat.Hint:
		return "hint"
	default:
		return "help"
	}
}
