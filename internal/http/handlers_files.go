package http

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"financas/internal/core"
	applog "financas/internal/log"
)

type attachmentRequest struct {
	Tipo        string `json:"tipo"`
	Descricao   string `json:"descricao"`
	MesAno      string `json:"mes_ano"`
	ArquivoNome string `json:"arquivo_nome"`
	ArquivoDado string `json:"arquivo_dados"`
}

type payslipRequest struct {
	Mes         string `json:"mes"`
	ArquivoNome string `json:"arquivo_nome"`
	ArquivoDado string `json:"arquivo_dados"`
}

// checkFileSize applies the configured limit, which may be tighter than
// the hard cap the services enforce.
func (s *Server) checkFileSize(data []byte) error {
	if len(data) > s.maxUploadBytes {
		return &core.FileTooLargeError{Size: int64(len(data)), Limit: int64(s.maxUploadBytes)}
	}
	return nil
}

func (s *Server) handleUploadAttachment(w http.ResponseWriter, r *http.Request) {
	var req attachmentRequest
	if err := decodeJSON(w, r, uploadBodyLimit(s.maxUploadBytes), &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	data, err := decodeFileData(req.ArquivoDado)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := s.checkFileSize(data); err != nil {
		handleServiceError(w, r, err)
		return
	}

	a, err := s.svc.Attachments.Upload(r.Context(), core.Attachment{
		Owner:       core.OwnerKind(strings.ToLower(strings.TrimSpace(req.Tipo))),
		Description: sanitizeInput(req.Descricao),
		Period:      sanitizeInput(req.MesAno),
		FileName:    cleanFileName(req.ArquivoNome),
		Data:        data,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Attachment stored",
		applog.FieldOperation, applog.OpUpload,
		applog.FieldAttachment, a.ID)
	writeJSON(w, http.StatusOK, okResponse{OK: true, ID: a.ID})
}

// handleListAttachments serves /listar_comprovantes/{mes_ano}. The period
// itself contains a slash ("03/2024"), hence the wildcard route.
func (s *Server) handleListAttachments(w http.ResponseWriter, r *http.Request) {
	period := chi.URLParam(r, "*")
	list, err := s.svc.Attachments.List(r.Context(), period)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	out := make([]attachmentView, 0, len(list))
	for _, a := range list {
		out = append(out, newAttachmentView(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"comprovantes": out})
}

func (s *Server) handleDownloadAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	a, err := s.svc.Attachments.Fetch(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeFile(w, contentTypeFor(a.FileName), a.FileName, false, a.Data)
}

func (s *Server) handleUploadPayslip(w http.ResponseWriter, r *http.Request) {
	var req payslipRequest
	if err := decodeJSON(w, r, uploadBodyLimit(s.maxUploadBytes), &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	data, err := decodeFileData(req.ArquivoDado)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := s.checkFileSize(data); err != nil {
		handleServiceError(w, r, err)
		return
	}

	p, err := s.svc.Payslips.Upload(r.Context(), sanitizeInput(req.Mes), cleanFileName(req.ArquivoNome), data)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Payslip stored",
		applog.FieldOperation, applog.OpUpload,
		applog.FieldPayslip, p.ID,
		"status", p.Status)
	writeJSON(w, http.StatusOK, payslipUploadResponse{OK: true, ID: p.ID, Analise: newAnalysisView(p.Analysis)})
}

func (s *Server) handleListPayslips(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Payslips.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	out := make([]payslipView, 0, len(list))
	for _, p := range list {
		out = append(out, newPayslipView(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"contracheques": out})
}

func (s *Server) handleDownloadPayslip(w http.ResponseWriter, r *http.Request) {
	s.servePayslip(w, r, false)
}

func (s *Server) handleViewPayslip(w http.ResponseWriter, r *http.Request) {
	s.servePayslip(w, r, true)
}

func (s *Server) servePayslip(w http.ResponseWriter, r *http.Request, inline bool) {
	id, err := idParam(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	p, err := s.svc.Payslips.Fetch(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeFile(w, "application/pdf", p.FileName, inline, p.Data)
}

func (s *Server) handleReanalyzePayslip(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	p, err := s.svc.Payslips.Reanalyze(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payslipUploadResponse{OK: true, ID: p.ID, Analise: newAnalysisView(p.Analysis)})
}

func (s *Server) handleDeletePayslip(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if err := s.svc.Payslips.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// writeFile sends raw bytes. inline lets the browser render the file
// instead of saving it.
func writeFile(w http.ResponseWriter, contentType, name string, inline bool, data []byte) {
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	if name == "" {
		name = "arquivo"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": name}))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// cleanFileName keeps only the base name a browser sent.
func cleanFileName(name string) string {
	name = sanitizeInput(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
