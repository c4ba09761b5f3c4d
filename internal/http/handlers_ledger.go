package http

import (
	"net/http"

	"financas/internal/core"
	applog "financas/internal/log"
)

// ledgerBodyLimit bounds every non-upload JSON body.
const ledgerBodyLimit = 64 << 10

type entryRequest struct {
	Descricao string     `json:"descricao"`
	Categoria string     `json:"categoria"`
	Valor     flexAmount `json:"valor"`
	Data      string     `json:"data"`
}

type debtRequest struct {
	Descricao  string     `json:"descricao"`
	Valor      flexAmount `json:"valor"`
	Vencimento string     `json:"vencimento"`
}

type fixedRequest struct {
	Nome  string     `json:"nome"`
	Valor flexAmount `json:"valor"`
}

func (s *Server) handleListAll(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	listing, err := s.svc.Ledger.List(r.Context(), p)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(listing))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	rep, err := s.svc.Ledger.Report(r.Context(), p)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(rep))
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	chart, err := s.svc.Ledger.Chart(r.Context(), p)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newChartResponse(chart))
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	p, err := periodFromQuery(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	doc, err := s.svc.Ledger.ReportPDF(r.Context(), p)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeFile(w, "application/pdf", "relatorio.pdf", false, doc)
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	s.addEntry(w, r, core.KindIncome)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	s.addEntry(w, r, core.KindExpense)
}

func (s *Server) addEntry(w http.ResponseWriter, r *http.Request, kind core.EntryKind) {
	var req entryRequest
	if err := decodeJSON(w, r, ledgerBodyLimit, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	amount, err := req.Valor.parse("valor")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	date, err := parseOptionalDate("data", req.Data)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	e, err := s.svc.Ledger.AddEntry(r.Context(), core.Entry{
		Kind:        kind,
		Description: sanitizeInput(req.Descricao),
		Category:    sanitizeInput(req.Categoria),
		Amount:      amount,
		Date:        date,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Entry created",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldEntryKind, e.Kind,
		applog.FieldAmountCents, e.Amount.Cents,
		"id", e.ID)
	writeJSON(w, http.StatusOK, okResponse{OK: true, ID: e.ID})
}

func (s *Server) handleAddDebt(w http.ResponseWriter, r *http.Request) {
	var req debtRequest
	if err := decodeJSON(w, r, ledgerBodyLimit, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	amount, err := req.Valor.parse("valor")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	due, err := parseOptionalDate("vencimento", req.Vencimento)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	d, err := s.svc.Ledger.AddDebt(r.Context(), core.Debt{
		Description: sanitizeInput(req.Descricao),
		Amount:      amount,
		DueDate:     due,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Debt created",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldEntryKind, core.KindDebt,
		applog.FieldAmountCents, d.Amount.Cents,
		"id", d.ID)
	writeJSON(w, http.StatusOK, okResponse{OK: true, ID: d.ID})
}

func (s *Server) handleListFixed(w http.ResponseWriter, r *http.Request) {
	charges, err := s.svc.Ledger.FixedCharges(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	out := make(map[string]float64, len(charges))
	for _, f := range charges {
		out[f.Name] = f.Monthly.Reais()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSaveFixed(w http.ResponseWriter, r *http.Request) {
	var req fixedRequest
	if err := decodeJSON(w, r, ledgerBodyLimit, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	amount, err := req.Valor.parse("valor")
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	saved, err := s.svc.Ledger.SaveFixedCharge(r.Context(), req.Nome, amount)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fixedResultView{Nome: req.Nome, Salvo: saved, Ignorado: !saved})
}

// handleSaveFixedBatch saves every charge independently; one failure does
// not undo the others.
func (s *Server) handleSaveFixedBatch(w http.ResponseWriter, r *http.Request) {
	var req map[string]flexAmount
	if err := decodeJSON(w, r, ledgerBodyLimit, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	charges := make(map[string]core.Money, len(req))
	var invalid []fixedResultView
	for name, raw := range req {
		amount, err := raw.parse("valor")
		if err != nil {
			invalid = append(invalid, fixedResultView{Nome: name, Error: err.Error()})
			continue
		}
		charges[name] = amount
	}

	resp := newFixedBatchResponse(s.svc.Ledger.SaveFixedCharges(r.Context(), charges))
	if len(invalid) > 0 {
		resp.OK = false
		resp.Resultados = append(resp.Resultados, invalid...)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := s.svc.Ledger.DeleteEntry(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := s.svc.Ledger.DeleteDebt(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
