package http

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/phpdave11/gofpdf"

	"financas/internal/metrics"
	"financas/internal/payslip"
	"financas/internal/services"
	"financas/internal/storage/memory"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	srv   *Server
	store *memory.Store
}

func newTestServer(t *testing.T, opts Options) *testEnv {
	t.Helper()
	store := memory.New()
	m := metrics.New()
	ledger := services.NewLedgerService(store,
		services.WithClock(func() time.Time { return fixedNow }),
		services.WithMetrics(m))
	if opts.Metrics == nil {
		opts.Metrics = m
	}
	if opts.Ready == nil {
		opts.Ready = store.Ping
	}
	srv := NewServer(":0", Services{
		Ledger:      ledger,
		Attachments: services.NewAttachmentService(store, m),
		Payslips:    services.NewPayslipService(store, payslip.NewAnalyzer(), m),
		Chat:        services.NewChatService(ledger, m),
	}, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{srv: srv, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthReadyAndMetrics(t *testing.T) {
	env := newTestServer(t, Options{})

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rec := env.do(t, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rec.Code)
		}
	}
	if rec := env.do(t, http.MethodGet, "/metrics", nil); !strings.Contains(rec.Body.String(), "financas_http_request_duration_seconds") {
		t.Errorf("metrics output missing request histogram")
	}
}

func TestReady_Unavailable(t *testing.T) {
	env := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("db down") }})
	rec := env.do(t, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestAddAndListAll(t *testing.T) {
	env := newTestServer(t, Options{})

	steps := []struct {
		path string
		body any
	}{
		{"/add_entrada", map[string]any{"descricao": "Salário", "valor": 3000}},
		{"/add_gasto", map[string]any{"descricao": "Aluguel", "valor": "1000,00", "categoria": "moradia"}},
		{"/add_gasto", map[string]any{"descricao": "Mercado", "valor": 500, "categoria": "alimentação"}},
		{"/add_divida", map[string]any{"descricao": "Cartão", "valor": 200.5, "vencimento": "2024-03-13"}},
	}
	for _, s := range steps {
		rec := env.do(t, http.MethodPost, s.path, s.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", s.path, rec.Code, rec.Body.String())
		}
		if ok := decode[okResponse](t, rec); !ok.OK || ok.ID == 0 {
			t.Fatalf("%s response = %+v", s.path, ok)
		}
	}

	list := decode[listResponse](t, env.do(t, http.MethodGet, "/list_all", nil))
	if len(list.Entradas) != 1 || len(list.Gastos) != 2 || len(list.Dividas) != 1 {
		t.Fatalf("list = %+v", list)
	}
	if list.Gastos[0].Descricao != "Mercado" {
		t.Errorf("expenses should be newest first, got %q", list.Gastos[0].Descricao)
	}
	if list.Gastos[1].Valor != 1000 || list.Gastos[1].Data != "2024-03-10" {
		t.Errorf("aluguel = %+v", list.Gastos[1])
	}
	if d := list.Dividas[0]; d.Vencimento != "2024-03-13" || d.Data != "2024-03-10" || d.Valor != 200.5 {
		t.Errorf("debt = %+v", d)
	}

	sum := decode[summaryResponse](t, env.do(t, http.MethodGet, "/consultar", nil))
	if sum.Entradas != 3000 || sum.Gastos != 1500 || sum.Dividas != 200.5 || sum.Saldo != 1299.5 {
		t.Errorf("summary = %+v", sum)
	}
	pct := map[string]float64{}
	for _, c := range sum.Categorias {
		pct[c.Categoria] = c.Percentual
	}
	if len(pct) != 2 || pct["moradia"] != 66.7 || pct["alimentação"] != 33.3 {
		t.Errorf("categories = %+v", sum.Categorias)
	}
	foundDue := false
	for _, d := range sum.Dicas {
		if strings.Contains(d, "Cartão") {
			foundDue = true
		}
	}
	if !foundDue {
		t.Errorf("expected a due-debt tip, got %v", sum.Dicas)
	}

	chart := decode[chartResponse](t, env.do(t, http.MethodGet, "/grafico_dados", nil))
	if len(chart.Labels) != 2 || len(chart.Valores) != 2 {
		t.Errorf("chart = %+v", chart)
	}
}

func TestListAll_PeriodFilter(t *testing.T) {
	env := newTestServer(t, Options{})
	env.do(t, http.MethodPost, "/add_gasto", map[string]any{"descricao": "Fev", "valor": 10, "data": "2024-02-15"})
	env.do(t, http.MethodPost, "/add_gasto", map[string]any{"descricao": "Abr", "valor": 10, "data": "2024-04-02"})

	list := decode[listResponse](t, env.do(t, http.MethodGet, "/list_all?data_inicio=2024-04-01&data_fim=2024-04-31", nil))
	if len(list.Gastos) != 1 || list.Gastos[0].Descricao != "Abr" {
		t.Fatalf("filtered = %+v", list.Gastos)
	}

	rec := env.do(t, http.MethodGet, "/consultar?data_inicio=2024-05-01&data_fim=2024-04-01", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("inverted period status=%d", rec.Code)
	}
	if e := decode[errorResponse](t, rec); e.OK || e.Error == "" {
		t.Errorf("error body = %+v", e)
	}
}

func TestAddEntry_Validation(t *testing.T) {
	env := newTestServer(t, Options{})

	tests := []struct {
		name string
		path string
		body any
	}{
		{"non numeric amount", "/add_entrada", map[string]any{"descricao": "x", "valor": "abc"}},
		{"negative amount", "/add_gasto", map[string]any{"descricao": "x", "valor": -1}},
		{"missing amount", "/add_gasto", map[string]any{"descricao": "x"}},
		{"empty description", "/add_entrada", map[string]any{"descricao": "  ", "valor": 1}},
		{"bad date", "/add_divida", map[string]any{"descricao": "x", "valor": 1, "vencimento": "13/03/2024"}},
		{"malformed json", "/add_entrada", "{not json"},
		{"trailing data", "/add_entrada", `{"descricao":"x","valor":1} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
			}
			if e := decode[errorResponse](t, rec); e.OK || e.Error == "" {
				t.Errorf("error body = %+v", e)
			}
		})
	}
}

func TestFixedCharges(t *testing.T) {
	env := newTestServer(t, Options{})

	rec := env.do(t, http.MethodPost, "/fixas", map[string]any{"nome": "gas", "valor": 80})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if v := decode[fixedResultView](t, rec); !v.Salvo {
		t.Errorf("save = %+v", v)
	}

	rec = env.do(t, http.MethodPost, "/fixas/lote", map[string]any{"Internet": 100, "Energia": 0, "Piscina": 10, "Pensão": "x"})
	batch := decode[fixedBatchResponse](t, rec)
	if batch.OK {
		t.Errorf("batch with failures reported ok")
	}
	byName := map[string]fixedResultView{}
	for _, r := range batch.Resultados {
		byName[r.Nome] = r
	}
	if !byName["Internet"].Salvo || !byName["Energia"].Ignorado || byName["Piscina"].Error == "" || byName["Pensão"].Error == "" {
		t.Errorf("results = %+v", batch.Resultados)
	}

	fixed := decode[map[string]float64](t, env.do(t, http.MethodGet, "/fixas", nil))
	if len(fixed) != 2 || fixed["Internet"] != 100 || fixed["Gás"] != 80 {
		t.Errorf("fixas = %v", fixed)
	}

	rec = env.do(t, http.MethodPost, "/fixas", map[string]any{"nome": "Piscina", "valor": 1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown charge status=%d", rec.Code)
	}
}

func TestDeleteByID(t *testing.T) {
	env := newTestServer(t, Options{})
	entry := decode[okResponse](t, env.do(t, http.MethodPost, "/add_gasto", map[string]any{"descricao": "Pão", "valor": 5}))
	debt := decode[okResponse](t, env.do(t, http.MethodPost, "/add_divida", map[string]any{"descricao": "Boleto", "valor": 5}))

	tests := []struct {
		path string
		want int
	}{
		{"/lancamentos/" + itoa(entry.ID), http.StatusOK},
		{"/lancamentos/" + itoa(entry.ID), http.StatusNotFound},
		{"/dividas/" + itoa(debt.ID), http.StatusOK},
		{"/dividas/999", http.StatusNotFound},
		{"/dividas/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if rec := env.do(t, http.MethodDelete, tt.path, nil); rec.Code != tt.want {
			t.Errorf("DELETE %s status=%d want %d", tt.path, rec.Code, tt.want)
		}
	}
}

func TestChat(t *testing.T) {
	env := newTestServer(t, Options{})

	rec := env.do(t, http.MethodPost, "/chat", map[string]any{"msg": "gastei 25,50 com pizza categoria lazer"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if reply := decode[chatResponse](t, rec); !strings.HasPrefix(reply.Resposta, "✅") {
		t.Errorf("reply = %q", reply.Resposta)
	}

	list := decode[listResponse](t, env.do(t, http.MethodGet, "/list_all", nil))
	if len(list.Gastos) != 1 || list.Gastos[0].Categoria != "lazer" || list.Gastos[0].Valor != 25.5 {
		t.Fatalf("chat did not create the expense: %+v", list.Gastos)
	}

	reply := decode[chatResponse](t, env.do(t, http.MethodPost, "/chat", map[string]any{"msg": "apagar pizza"}))
	if !strings.HasPrefix(reply.Resposta, "✅") {
		t.Errorf("delete reply = %q", reply.Resposta)
	}

	if rec := env.do(t, http.MethodPost, "/chat", map[string]any{"msg": "   "}); rec.Code != http.StatusBadRequest {
		t.Errorf("empty message status=%d", rec.Code)
	}
}

func TestReportPDF(t *testing.T) {
	env := newTestServer(t, Options{})
	env.do(t, http.MethodPost, "/add_entrada", map[string]any{"descricao": "Salário", "valor": 100})

	rec := env.do(t, http.MethodGet, "/relatorio.pdf", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Errorf("body is not a PDF")
	}
}

func TestRateLimitAppliesToWritesOnly(t *testing.T) {
	env := newTestServer(t, Options{RateLimitPerMinute: 1})

	env.do(t, http.MethodPost, "/add_entrada", map[string]any{"descricao": "a", "valor": 1})
	rec := env.do(t, http.MethodPost, "/add_entrada", map[string]any{"descricao": "b", "valor": 1})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second write status=%d", rec.Code)
	}
	for i := 0; i < 3; i++ {
		if rec := env.do(t, http.MethodGet, "/list_all", nil); rec.Code != http.StatusOK {
			t.Fatalf("read status=%d", rec.Code)
		}
	}
}

func TestSecurityHeadersAndUnknownRoute(t *testing.T) {
	env := newTestServer(t, Options{})
	rec := env.do(t, http.MethodGet, "/nao-existe", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("missing security headers")
	}
	if rec := env.do(t, http.MethodGet, "/add_entrada", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET on POST route status=%d", rec.Code)
	}
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func encodeFile(data []byte) string {
	return "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(data)
}

func payslipPDF(t *testing.T, lines ...string) []byte {
	t.Helper()
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	for _, l := range lines {
		doc.Cell(0, 8, l)
		doc.Ln(8)
	}
	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("render fixture: %v", err)
	}
	return buf.Bytes()
}
