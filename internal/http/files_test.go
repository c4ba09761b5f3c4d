package http

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
)

func TestAttachments_UploadListDownload(t *testing.T) {
	env := newTestServer(t, Options{})
	receipt := []byte("recibo de energia")

	uploads := []map[string]any{
		{"tipo": "fixa", "descricao": "Energia", "mes_ano": "03/2024", "arquivo_nome": `C:\docs\energia.txt`, "arquivo_dados": encodeFile(receipt)},
		{"tipo": "divida", "descricao": "Cartão", "mes_ano": "04/2024", "arquivo_nome": "cartao.pdf", "arquivo_dados": encodeFile([]byte("x"))},
	}
	var firstID int64
	for i, u := range uploads {
		rec := env.do(t, http.MethodPost, "/upload_comprovante", u)
		if rec.Code != http.StatusOK {
			t.Fatalf("upload %d status=%d body=%s", i, rec.Code, rec.Body.String())
		}
		if i == 0 {
			firstID = decode[okResponse](t, rec).ID
		}
	}

	type listBody struct {
		Comprovantes []attachmentView `json:"comprovantes"`
	}
	march := decode[listBody](t, env.do(t, http.MethodGet, "/listar_comprovantes/03/2024", nil))
	if len(march.Comprovantes) != 1 {
		t.Fatalf("march = %+v", march)
	}
	if a := march.Comprovantes[0]; a.Tipo != "fixa" || a.ArquivoNome != "energia.txt" || a.DataUpload == "" {
		t.Errorf("attachment view = %+v", a)
	}
	if all := decode[listBody](t, env.do(t, http.MethodGet, "/listar_comprovantes/todos", nil)); len(all.Comprovantes) != 2 {
		t.Errorf("todos = %d attachments", len(all.Comprovantes))
	}

	rec := env.do(t, http.MethodGet, "/download_comprovante/"+itoa(firstID), nil)
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), receipt) {
		t.Fatalf("download status=%d body=%q", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") || !strings.Contains(cd, "energia.txt") {
		t.Errorf("content disposition = %q", cd)
	}

	if rec := env.do(t, http.MethodGet, "/download_comprovante/999", nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing attachment status=%d", rec.Code)
	}
}

func TestAttachments_Rejections(t *testing.T) {
	env := newTestServer(t, Options{MaxUploadBytes: 16})

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"unknown owner", map[string]any{"tipo": "outro", "descricao": "x", "mes_ano": "03/2024", "arquivo_dados": encodeFile([]byte("a"))}, http.StatusBadRequest},
		{"missing period", map[string]any{"tipo": "fixa", "descricao": "x", "arquivo_dados": encodeFile([]byte("a"))}, http.StatusBadRequest},
		{"empty file", map[string]any{"tipo": "fixa", "descricao": "x", "mes_ano": "03/2024", "arquivo_dados": ""}, http.StatusBadRequest},
		{"bad base64", map[string]any{"tipo": "fixa", "descricao": "x", "mes_ano": "03/2024", "arquivo_dados": "%%%"}, http.StatusBadRequest},
		{"too large", map[string]any{"tipo": "fixa", "descricao": "x", "mes_ano": "03/2024", "arquivo_dados": encodeFile(bytes.Repeat([]byte("a"), 17))}, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/upload_comprovante", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	type listBody struct {
		Comprovantes []attachmentView `json:"comprovantes"`
	}
	if all := decode[listBody](t, env.do(t, http.MethodGet, "/listar_comprovantes/todos", nil)); len(all.Comprovantes) != 0 {
		t.Errorf("rejected uploads were stored: %+v", all.Comprovantes)
	}
}

func TestUpload_BodyOverLimit(t *testing.T) {
	env := newTestServer(t, Options{MaxUploadBytes: 16})
	huge := strings.Repeat("A", int(uploadBodyLimit(16))+1)
	rec := env.do(t, http.MethodPost, "/upload_contracheque", `{"mes":"03/2024","arquivo_dados":"`+huge+`"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestPayslips_Lifecycle(t *testing.T) {
	env := newTestServer(t, Options{})
	doc := payslipPDF(t,
		"Data de pagamento: 05/03/2024",
		"Total de vencimentos: 5.000,00",
		"Valor liquido: 3.875,40")

	rec := env.do(t, http.MethodPost, "/upload_contracheque", map[string]any{
		"mes": "Março/2024", "arquivo_nome": "marco.pdf", "arquivo_dados": encodeFile(doc),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status=%d body=%s", rec.Code, rec.Body.String())
	}
	up := decode[payslipUploadResponse](t, rec)
	if up.Analise.ValorLiquido == nil || *up.Analise.ValorLiquido != 3875.40 {
		t.Errorf("net = %v", up.Analise.ValorLiquido)
	}
	if up.Analise.ValorBruto == nil || *up.Analise.ValorBruto != 5000 {
		t.Errorf("gross = %v", up.Analise.ValorBruto)
	}
	if up.Analise.DataDetectada != "2024-03-05" {
		t.Errorf("date = %q", up.Analise.DataDetectada)
	}

	type listBody struct {
		Contracheques []payslipView `json:"contracheques"`
	}
	list := decode[listBody](t, env.do(t, http.MethodGet, "/listar_contracheques/todos", nil))
	if len(list.Contracheques) != 1 || list.Contracheques[0].Mes != "Março/2024" || list.Contracheques[0].Status != "analyzed" {
		t.Fatalf("list = %+v", list.Contracheques)
	}

	id := itoa(up.ID)
	view := env.do(t, http.MethodGet, "/visualizar_contracheque/"+id, nil)
	if view.Code != http.StatusOK || !bytes.Equal(view.Body.Bytes(), doc) {
		t.Fatalf("view status=%d", view.Code)
	}
	if cd := view.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "inline") {
		t.Errorf("view disposition = %q", cd)
	}
	if ct := view.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("view content type = %q", ct)
	}
	if dl := env.do(t, http.MethodGet, "/download_contracheque/"+id, nil); !strings.HasPrefix(dl.Header().Get("Content-Disposition"), "attachment") {
		t.Errorf("download disposition = %q", dl.Header().Get("Content-Disposition"))
	}

	again := env.do(t, http.MethodPost, "/reanalisar_contracheque/"+id, nil)
	if again.Code != http.StatusOK {
		t.Fatalf("reanalyze status=%d body=%s", again.Code, again.Body.String())
	}
	if r := decode[payslipUploadResponse](t, again); r.Analise.ValorLiquido == nil || *r.Analise.ValorLiquido != 3875.40 {
		t.Errorf("reanalyzed net = %v", r.Analise.ValorLiquido)
	}

	if rec := env.do(t, http.MethodDelete, "/deletar_contracheque/"+id, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/download_contracheque/"+id, nil); rec.Code != http.StatusNotFound {
		t.Errorf("download after delete status=%d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/deletar_contracheque/"+id, nil); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status=%d", rec.Code)
	}
}

func TestPayslips_Rejections(t *testing.T) {
	env := newTestServer(t, Options{})

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"not a pdf", map[string]any{"mes": "03/2024", "arquivo_nome": "foto.png", "arquivo_dados": encodeFile([]byte("\x89PNG\r\n"))}, http.StatusUnsupportedMediaType},
		{"missing month", map[string]any{"arquivo_nome": "a.pdf", "arquivo_dados": encodeFile(payslipPDF(t, "x"))}, http.StatusBadRequest},
		{"missing file", map[string]any{"mes": "03/2024"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := env.do(t, http.MethodPost, "/upload_contracheque", tt.body); rec.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}
