package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/report"
	"financas/internal/services"
)

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{OK: false, Error: msg})
}

// handleServiceError maps domain errors to status codes. Anything unknown is
// logged and reported as a generic 500.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation  *core.ValidationError
		tooLarge    *core.FileTooLargeError
		unsupported *core.UnsupportedFormatError
		notFound    *core.NotFoundError
	)
	logger := applog.FromContext(r.Context())

	switch {
	case errors.As(err, &validation):
		logger.DebugContext(r.Context(), "Validation failed", applog.FieldError, err)
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &tooLarge):
		logger.WarnContext(r.Context(), "Upload too large", applog.FieldError, err)
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &unsupported):
		logger.WarnContext(r.Context(), "Unsupported upload", applog.FieldError, err)
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.As(err, &notFound):
		logger.DebugContext(r.Context(), "Not found", applog.FieldError, err)
		writeError(w, http.StatusNotFound, err.Error())
	default:
		logger.ErrorContext(r.Context(), "Request failed", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "erro interno, tente novamente")
	}
}

type okResponse struct {
	OK bool  `json:"ok"`
	ID int64 `json:"id,omitempty"`
}

type recordView struct {
	ID         int64   `json:"id"`
	Descricao  string  `json:"descricao"`
	Valor      float64 `json:"valor"`
	Categoria  string  `json:"categoria,omitempty"`
	Vencimento string  `json:"vencimento,omitempty"`
	Data       string  `json:"data,omitempty"`
}

type listResponse struct {
	Entradas []recordView `json:"entradas"`
	Gastos   []recordView `json:"gastos"`
	Dividas  []recordView `json:"dividas"`
}

func newListResponse(l services.Listing) listResponse {
	out := listResponse{
		Entradas: make([]recordView, 0, len(l.Incomes)),
		Gastos:   make([]recordView, 0, len(l.Expenses)),
		Dividas:  make([]recordView, 0, len(l.Debts)),
	}
	for _, e := range l.Incomes {
		out.Entradas = append(out.Entradas, entryView(e))
	}
	for _, e := range l.Expenses {
		out.Gastos = append(out.Gastos, entryView(e))
	}
	for _, d := range l.Debts {
		out.Dividas = append(out.Dividas, recordView{
			ID:         d.ID,
			Descricao:  d.Description,
			Valor:      d.Amount.Reais(),
			Vencimento: d.DueDate.String(),
			Data:       d.CreatedDate.String(),
		})
	}
	return out
}

func entryView(e core.Entry) recordView {
	return recordView{
		ID:        e.ID,
		Descricao: e.Description,
		Valor:     e.Amount.Reais(),
		Categoria: e.Category,
		Data:      e.Date.String(),
	}
}

type categoryView struct {
	Categoria  string  `json:"categoria"`
	Valor      float64 `json:"valor"`
	Percentual float64 `json:"percentual"`
}

type summaryResponse struct {
	Saldo      float64        `json:"saldo"`
	Entradas   float64        `json:"entradas"`
	Gastos     float64        `json:"gastos"`
	Fixas      float64        `json:"fixas"`
	Dividas    float64        `json:"dividas"`
	Categorias []categoryView `json:"categorias"`
	Dicas      []string       `json:"dicas"`
}

func newSummaryResponse(r services.Report) summaryResponse {
	s := r.Summary
	out := summaryResponse{
		Saldo:      s.Balance.Reais(),
		Entradas:   s.TotalIncome.Reais(),
		Gastos:     s.TotalExpense.Reais(),
		Fixas:      s.TotalFixed.Reais(),
		Dividas:    s.TotalDebt.Reais(),
		Categorias: make([]categoryView, 0, len(s.ByCategory)),
		Dicas:      r.Tips,
	}
	if out.Dicas == nil {
		out.Dicas = []string{}
	}
	for _, c := range s.ByCategory {
		out.Categorias = append(out.Categorias, categoryView{
			Categoria:  c.Category,
			Valor:      c.Amount.Reais(),
			Percentual: c.Percentage.InexactFloat64(),
		})
	}
	return out
}

type chartResponse struct {
	Labels  []string  `json:"labels"`
	Valores []float64 `json:"valores"`
}

func newChartResponse(c report.Chart) chartResponse {
	return chartResponse{Labels: c.Labels, Valores: c.Values}
}

type fixedResultView struct {
	Nome     string `json:"nome"`
	Salvo    bool   `json:"salvo"`
	Ignorado bool   `json:"ignorado,omitempty"`
	Error    string `json:"error,omitempty"`
}

type fixedBatchResponse struct {
	OK         bool              `json:"ok"`
	Resultados []fixedResultView `json:"resultados"`
}

func newFixedBatchResponse(results []services.FixedChargeResult) fixedBatchResponse {
	out := fixedBatchResponse{OK: true, Resultados: make([]fixedResultView, 0, len(results))}
	for _, r := range results {
		v := fixedResultView{Nome: r.Name, Salvo: r.Saved, Ignorado: r.Skipped}
		if r.Err != nil {
			out.OK = false
			v.Error = r.Err.Error()
		}
		out.Resultados = append(out.Resultados, v)
	}
	return out
}

const uploadStampLayout = "2006-01-02 15:04:05"

type attachmentView struct {
	ID          int64  `json:"id"`
	Descricao   string `json:"descricao"`
	Tipo        string `json:"tipo"`
	MesAno      string `json:"mes_ano"`
	ArquivoNome string `json:"arquivo_nome"`
	DataUpload  string `json:"data_upload"`
}

func newAttachmentView(a core.Attachment) attachmentView {
	return attachmentView{
		ID:          a.ID,
		Descricao:   a.Description,
		Tipo:        string(a.Owner),
		MesAno:      a.Period,
		ArquivoNome: a.FileName,
		DataUpload:  formatStamp(a.UploadedAt),
	}
}

type analysisView struct {
	DataDetectada string   `json:"data_detectada,omitempty"`
	ValorLiquido  *float64 `json:"valor_liquido,omitempty"`
	ValorBruto    *float64 `json:"valor_bruto,omitempty"`
	Erros         []string `json:"erros,omitempty"`
}

func newAnalysisView(a core.PayslipAnalysis) analysisView {
	v := analysisView{Erros: a.Warnings}
	if a.DetectedDate != nil {
		v.DataDetectada = a.DetectedDate.String()
	}
	if a.NetAmount != nil {
		net := a.NetAmount.Reais()
		v.ValorLiquido = &net
	}
	if a.GrossAmount != nil {
		gross := a.GrossAmount.Reais()
		v.ValorBruto = &gross
	}
	return v
}

type payslipView struct {
	ID          int64        `json:"id"`
	Mes         string       `json:"mes"`
	ArquivoNome string       `json:"arquivo_nome"`
	DataUpload  string       `json:"data_upload"`
	Status      string       `json:"status"`
	Analise     analysisView `json:"analise"`
}

func newPayslipView(p core.Payslip) payslipView {
	return payslipView{
		ID:          p.ID,
		Mes:         p.MonthLabel,
		ArquivoNome: p.FileName,
		DataUpload:  formatStamp(p.UploadedAt),
		Status:      string(p.Status),
		Analise:     newAnalysisView(p.Analysis),
	}
}

type payslipUploadResponse struct {
	OK      bool         `json:"ok"`
	ID      int64        `json:"id"`
	Analise analysisView `json:"analise"`
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(uploadStampLayout)
}
