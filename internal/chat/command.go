// Package chat interprets free-text messages as ledger commands.
//
// Parsing never touches storage; it only classifies the message. The
// services layer executes the resulting Command.
package chat

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"financas/internal/core"
)

// Command is one of CreateEntry, DeleteEntry, Query, Hint or Help.
type Command interface {
	command()
}

// CreateEntry registers an income or expense.
type CreateEntry struct {
	Kind        core.EntryKind
	Description string
	Amount      core.Money
	Category    string
}

// DeleteEntry removes every record whose description contains Term.
type DeleteEntry struct {
	Term string
}

// Query asks for a summary of the ledger with advice.
type Query struct{}

// Hint answers a create request that is missing its amount.
type Hint struct {
	Kind core.EntryKind
}

// Help is returned for anything that is not understood.
type Help struct{}

func (CreateEntry) command() {}
func (DeleteEntry) command() {}
func (Query) command()       {}
func (Hint) command()        {}
func (Help) command()        {}

var (
	deleteWords  = []string{"deletar", "delete", "remover", "remove", "apagar", "apaga", "excluir", "exclui"}
	expenseWords = []string{"gastei", "gasto", "comprei", "paguei"}
	incomeWords  = []string{"entrada", "salario", "receita", "ganhei", "recebi"}
	queryPhrases = []string{
		"como andam", "como estou", "estou bem", "analisar", "analise", "dicas", "dica",
		"sugestoes", "relatorio", "resumo", "saldo",
	}
	recordNouns = []string{"o", "a", "gasto", "entrada", "divida", "lancamento", "registro"}
	fillers     = []string{"de", "do", "da", "com", "no", "na", "em", "um", "uma", "o", "a", "os", "as", "por", "pra", "para", "reais", "real", "r$"}
)

type token struct {
	raw    string
	folded string
}

// Parse classifies msg. Matching ignores case and accents.
func Parse(msg string) Command {
	toks := tokenize(msg)
	if len(toks) == 0 {
		return Help{}
	}

	if i := indexOf(toks, deleteWords); i >= 0 {
		return DeleteEntry{Term: joinRaw(trimFillers(trimLeading(toks[i+1:], recordNouns)))}
	}

	kind, kw := core.EntryKind(""), -1
	if i := indexOf(toks, expenseWords); i >= 0 {
		kind, kw = core.KindExpense, i
	} else if i := indexOf(toks, incomeWords); i >= 0 {
		kind, kw = core.KindIncome, i
	}

	if kw >= 0 {
		if cmd, ok := parseCreate(toks, kw, kind); ok {
			return cmd
		}
	}

	folded := core.Fold(msg)
	for _, p := range queryPhrases {
		if strings.Contains(folded, p) {
			return Query{}
		}
	}

	if kw >= 0 {
		return Hint{Kind: kind}
	}
	return Help{}
}

func parseCreate(toks []token, kw int, kind core.EntryKind) (Command, bool) {
	amountAt := -1
	var amount core.Money
	for i, t := range toks {
		if i == kw {
			continue
		}
		if m, ok := parseAmountToken(t.raw); ok {
			amount, amountAt = m, i
			break
		}
	}
	if amountAt < 0 {
		return nil, false
	}

	category := ""
	rest := make([]token, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		if i == kw || i == amountAt {
			continue
		}
		if toks[i].folded == "categoria" && i+1 < len(toks) {
			category = toks[i+1].raw
			i++
			continue
		}
		rest = append(rest, toks[i])
	}

	desc := joinRaw(trimFillers(rest))
	if desc == "" {
		desc = "Entrada via chat"
		if kind == core.KindExpense {
			desc = "Gasto via chat"
		}
	}
	cmd := CreateEntry{Kind: kind, Description: desc, Amount: amount}
	if kind == core.KindExpense {
		cmd.Category = category
		if cmd.Category == "" {
			cmd.Category = core.DefaultCategory
		}
	}
	return cmd, true
}

// thousandsGrouped matches "1.500" or "12.000.000": in chat a dot followed
// by exactly three digits groups thousands rather than marking cents.
var thousandsGrouped = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)

func parseAmountToken(raw string) (core.Money, bool) {
	s := strings.TrimPrefix(strings.ToLower(raw), "r$")
	s = strings.TrimRightFunc(s, func(r rune) bool { return !unicode.IsDigit(r) })
	if s == "" || !unicode.IsDigit(rune(s[0])) {
		return core.Money{}, false
	}
	if thousandsGrouped.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
	}
	m, err := core.ParseAmount(s)
	if err != nil {
		return core.Money{}, false
	}
	return m, true
}

func tokenize(msg string) []token {
	fields := strings.Fields(msg)
	out := make([]token, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".!?;:")
		if f == "" {
			continue
		}
		out = append(out, token{raw: f, folded: core.Fold(f)})
	}
	return out
}

func indexOf(toks []token, words []string) int {
	for i, t := range toks {
		if slices.Contains(words, t.folded) {
			return i
		}
	}
	return -1
}

func trimLeading(toks []token, words []string) []token {
	for len(toks) > 0 && slices.Contains(words, toks[0].folded) {
		toks = toks[1:]
	}
	return toks
}

func trimFillers(toks []token) []token {
	for len(toks) > 0 && slices.Contains(fillers, toks[0].folded) {
		toks = toks[1:]
	}
	for len(toks) > 0 && slices.Contains(fillers, toks[len(toks)-1].folded) {
		toks = toks[:len(toks)-1]
	}
	return toks
}

func joinRaw(toks []token) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = t.raw
	}
	return strings.Join(parts, " ")
}
