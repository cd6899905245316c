package mapper

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"WarrenFinSaas/internal/aiclient"
	"WarrenFinSaas/internal/logger"
	"WarrenFinSaas/internal/mapper"
	"WarrenFinSaas/internal/session"
)

// StartMapperService wires the statement-mapping HTTP surface and blocks on
// ListenAndServe. All routes are session-scoped: the statement id in the
// path is the mapping session id handed out by the analyze endpoint.
func StartMapperService(cfg map[string]interface{}, db *sql.DB, pgxPool *pgxpool.Pool, sessions *session.Manager) {
	tax, err := mapper.LoadTaxonomy(taxonomyPath(cfg))
	if err != nil {
		log.Printf("Mapper Service: taxonomy overlay rejected, using defaults: %v", err)
		tax = mapper.DefaultTaxonomy()
	}

	h := &Handler{
		sessions: sessions,
		ai:       aiclient.NewClientFromEnv(),
		engine:   mapper.NewEngine(tax),
		store:    NewStore(db, pgxPool),
	}

	r := h.Routes()

	port := servicePort(cfg)
	logger.Audit("Mapper Service started on :" + port)
	log.Println("Mapper Service started on :" + port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Mapper Service failed: %v", err)
	}
}

// Routes builds the mapper route table.
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/mapper/statements/analyze", h.AnalyzeStatement).Methods("POST")
	r.HandleFunc("/mapper/statements/{id}/reanalyze", h.ReanalyzeStatement).Methods("POST")
	r.HandleFunc("/mapper/statements/{id}/accounts", h.GetAccounts).Methods("GET")
	r.HandleFunc("/mapper/statements/{id}/accounts/{row}/active", h.ToggleAccountActive).Methods("POST")
	r.HandleFunc("/mapper/statements/{id}/accounts/{row}/category", h.ReclassifyAccount).Methods("POST")
	r.HandleFunc("/mapper/statements/{id}/accounts/{row}/type", h.ChangeAccountType).Methods("POST")
	r.HandleFunc("/mapper/statements/{id}/validation", h.GetValidation).Methods("GET")
	r.HandleFunc("/mapper/statements/{id}/save", h.SaveStatement).Methods("POST")
	r.HandleFunc("/mapper/saved/{id}/categories", h.BulkReclassifySaved).Methods("POST")
	r.HandleFunc("/mapper/health", func(w http.ResponseWriter, req *http.Request) {
		w.Write([]byte("Mapper Service OK"))
	}).Methods("GET")
	return r
}

func servicePort(cfg map[string]interface{}) string {
	switch v := cfg["port"].(type) {
	case string:
		if v != "" {
			return v
		}
	case int:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%d", int(v))
	}
	if p := os.Getenv("MAPPER_PORT"); p != "" {
		return p
	}
	return "7010"
}

func taxonomyPath(cfg map[string]interface{}) string {
	if v, ok := cfg["taxonomy_file"].(string); ok && v != "" {
		return v
	}
	return os.Getenv("MAPPER_TAXONOMY_FILE")
}
