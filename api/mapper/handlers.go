package mapper

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"WarrenFinSaas/api/constants"
	"WarrenFinSaas/internal/aiclient"
	"WarrenFinSaas/internal/config"
	"WarrenFinSaas/internal/logger"
	"WarrenFinSaas/internal/mapper"
	"WarrenFinSaas/internal/session"
	"WarrenFinSaas/internal/sheet"
)

// Handler carries the shared collaborators for all mapper routes.
type Handler struct {
	sessions *session.Manager
	ai       *aiclient.Client
	engine   *mapper.Engine
	store    *Store
}

type accountsResponse struct {
	StatementID        string                `json:"statementId"`
	FileName           string                `json:"fileName"`
	Structure          mapper.SheetStructure `json:"structure"`
	Accounts           []*mapper.AccountNode `json:"accounts"`
	UncategorizedCount int                   `json:"uncategorizedCount"`
}

type validationResponse struct {
	UncategorizedCount int  `json:"uncategorizedCount"`
	TotalAccounts      int  `json:"totalAccounts"`
	ActiveAccounts     int  `json:"activeAccounts"`
	CanSave            bool `json:"canSave"`
}

// AnalyzeStatement accepts a multipart spreadsheet upload, opens a mapping
// session for it and runs the full analysis pass. The response is the
// complete editable account collection.
func (h *Handler) AnalyzeStatement(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, constants.ErrMissingFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, config.MaxUploadBytes+1))
	if err != nil {
		http.Error(w, "Failed to read uploaded file", http.StatusBadRequest)
		return
	}
	if len(data) > config.MaxUploadBytes {
		http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}

	raw, err := sheet.ReadWorkbook(data, header.Filename, r.FormValue("sheetName"))
	if err != nil {
		http.Error(w, "Unreadable spreadsheet: "+err.Error(), http.StatusBadRequest)
		return
	}

	sess := h.sessions.Create(header.Filename, raw)
	token := sess.BeginAnalysis()
	structure, nodes := h.analyze(r.Context(), sess)
	if !sess.ApplyAnalysis(token, structure, nodes) {
		http.Error(w, "analysis superseded by a newer request", http.StatusConflict)
		return
	}
	logger.Audit("mapper: analyzed " + header.Filename + " session " + sess.ID)
	respondJSON(w, http.StatusOK, h.accountsPayload(sess))
}

// ReanalyzeStatement reruns the analysis pass over the session's original
// sheet, discarding all manual edits. Concurrent reanalyze calls race on the
// session's analysis token; only the newest result lands.
func (h *Handler) ReanalyzeStatement(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	sess.Reset()
	token := sess.BeginAnalysis()
	structure, nodes := h.analyze(r.Context(), sess)
	if !sess.ApplyAnalysis(token, structure, nodes) {
		http.Error(w, "analysis superseded by a newer request", http.StatusConflict)
		return
	}
	respondJSON(w, http.StatusOK, h.accountsPayload(sess))
}

// GetAccounts returns the session's current structure and account nodes.
func (h *Handler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.accountsPayload(sess))
}

// ToggleAccountActive flips a row's inclusion flag.
func (h *Handler) ToggleAccountActive(w http.ResponseWriter, r *http.Request) {
	h.editNode(w, r, func(n *mapper.AccountNode) error {
		mapper.ToggleActive(n)
		return nil
	})
}

// ReclassifyAccount moves a row to a new category and subcategory.
func (h *Handler) ReclassifyAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category    string `json:"category"`
		Subcategory string `json:"subcategory"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Category == "" {
		http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	h.editNode(w, r, func(n *mapper.AccountNode) error {
		return mapper.Reclassify(n, req.Category, req.Subcategory)
	})
}

// ChangeAccountType moves a row between the detail/total/calculated/header
// types.
func (h *Handler) ChangeAccountType(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Type == "" {
		http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	h.editNode(w, r, func(n *mapper.AccountNode) error {
		return mapper.ChangeType(n, mapper.NodeType(req.Type))
	})
}

// GetValidation reports the save-gate state of the session.
func (h *Handler) GetValidation(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var resp validationResponse
	sess.WithNodes(func(nodes []*mapper.AccountNode) {
		resp.UncategorizedCount = mapper.UncategorizedCount(nodes)
		resp.TotalAccounts = len(nodes)
		for _, n := range nodes {
			if n.IsActive {
				resp.ActiveAccounts++
			}
		}
	})
	resp.CanSave = resp.UncategorizedCount == 0
	respondJSON(w, http.StatusOK, resp)
}

// SaveStatement finalizes the session and persists it. The save is refused
// while any active row is still uncategorized; a successful save deletes
// the session.
func (h *Handler) SaveStatement(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		EntityName    string `json:"entityName"`
		StatementDate string `json:"statementDate"`
	}
	if r.Body != nil {
		// Body is optional; malformed JSON is still a client error.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			http.Error(w, constants.ErrInvalidJSONShort, http.StatusBadRequest)
			return
		}
	}

	var (
		uncategorized int
		finalized     []*mapper.AccountNode
		summary       mapper.MappingSummary
	)
	structure := sess.Structure()
	sess.WithNodes(func(nodes []*mapper.AccountNode) {
		uncategorized = mapper.UncategorizedCount(nodes)
		if uncategorized == 0 {
			finalized, summary = mapper.Finalize(structure, nodes)
		}
	})
	if uncategorized > 0 {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":              "uncategorized accounts remain",
			"uncategorizedCount": uncategorized,
		})
		return
	}

	statementID, err := h.store.SaveStatement(r.Context(), SavedStatement{
		SessionID:     sess.ID,
		FileName:      sess.FileName,
		EntityName:    req.EntityName,
		StatementDate: req.StatementDate,
		Summary:       summary,
		Accounts:      finalized,
	})
	if err != nil {
		logger.Audit("mapper: save failed for session " + sess.ID + ": " + err.Error())
		http.Error(w, constants.ErrDB+": "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.sessions.Delete(sess.ID)
	logger.Audit("mapper: saved statement " + statementID + " from session " + sess.ID)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"statementId":   statementID,
		"savedAccounts": len(finalized),
		"summary":       summary,
	})
}

// BulkReclassifySaved rewrites categories on an already-saved statement in
// one round trip. Row indexes and categories pair up positionally.
func (h *Handler) BulkReclassifySaved(w http.ResponseWriter, r *http.Request) {
	statementID := mux.Vars(r)["id"]
	var req struct {
		RowIndexes []int64  `json:"rowIndexes"`
		Categories []string `json:"categories"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.RowIndexes) == 0 {
		http.Error(w, constants.ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	for _, c := range req.Categories {
		if !mapper.IsCanonical(c) {
			http.Error(w, mapper.ErrUnknownCategory.Error()+": "+c, http.StatusBadRequest)
			return
		}
	}
	if err := h.store.BulkReclassify(r.Context(), statementID, req.RowIndexes, req.Categories); err != nil {
		http.Error(w, constants.ErrDB+": "+err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"updated": len(req.RowIndexes)})
}

// analyze runs one full analysis pass: AI structure detection when the
// endpoint is configured and healthy, local detection otherwise. It never
// fails; the degraded local path is a supported mode.
func (h *Handler) analyze(ctx context.Context, sess *session.MappingSession) (mapper.SheetStructure, []*mapper.AccountNode) {
	raw := sess.Sheet()

	var structure mapper.SheetStructure
	var classifications map[string]mapper.Classification
	if res, err := h.ai.AnalyzeStructure(ctx, sampleRows(raw, config.AISampleRows), sess.FileName); err == nil {
		structure = res.Structure
		classifications = res.Classifications
	} else if err != aiclient.ErrDisabled {
		logger.Audit("mapper: ai analysis unavailable, using local detection: " + err.Error())
	}

	if len(structure.PeriodColumns) == 0 {
		structure.PeriodColumns = mapper.DetectPeriodColumns(raw)
	}
	if structure.DataStartRow <= 0 {
		headerRow := mapper.DetectHeaderRow(raw)
		structure.DataStartRow = headerRow + 1
		if headerRow < 0 {
			structure.DataStartRow = 1
		}
	}
	if structure.StatementType == "" {
		structure.StatementType = mapper.StatementProfitLoss
	}

	nodes := h.engine.BuildAccountNodes(raw, structure, classifications)
	return structure, nodes
}

func (h *Handler) accountsPayload(sess *session.MappingSession) accountsResponse {
	resp := accountsResponse{
		StatementID: sess.ID,
		FileName:    sess.FileName,
		Structure:   sess.Structure(),
	}
	sess.WithNodes(func(nodes []*mapper.AccountNode) {
		resp.Accounts = nodes
		resp.UncategorizedCount = mapper.UncategorizedCount(nodes)
	})
	return resp
}

// session resolves the {id} path variable; it writes the error response
// itself when the session is missing.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.MappingSession, bool) {
	id := mux.Vars(r)["id"]
	sess, ok := h.sessions.Get(id)
	if !ok {
		http.Error(w, constants.ErrSessionNotFound, http.StatusNotFound)
		return nil, false
	}
	return sess, true
}

// editNode resolves the {row} path variable and applies one edit under the
// session lock, returning the updated node.
func (h *Handler) editNode(w http.ResponseWriter, r *http.Request, edit func(*mapper.AccountNode) error) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	row, err := strconv.Atoi(mux.Vars(r)["row"])
	if err != nil {
		http.Error(w, "row must be an integer", http.StatusBadRequest)
		return
	}

	var (
		updated *mapper.AccountNode
		editErr error
	)
	sess.WithNodes(func(nodes []*mapper.AccountNode) {
		n := mapper.FindNode(nodes, row)
		if n == nil {
			return
		}
		if editErr = edit(n); editErr == nil {
			updated = n
		}
	})
	if editErr != nil {
		http.Error(w, editErr.Error(), http.StatusBadRequest)
		return
	}
	if updated == nil {
		http.Error(w, constants.ErrAccountNotFound, http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func sampleRows(raw sheet.RawSheet, n int) [][]string {
	if len(raw) <= n {
		return raw
	}
	return raw[:n]
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
