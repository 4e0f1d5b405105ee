package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"genbi/internal/domain"
	"genbi/internal/middleware"
	"genbi/internal/service/pipeline"
	"genbi/internal/service/security"
)

// Handler carries the HTTP surface's collaborators.
type Handler struct {
	issuer      *middleware.TokenIssuer
	credentials domain.CredentialStore
	runner      *pipeline.Runner
	suggester   *pipeline.Suggester
	refresher   pipeline.Refresher
	searcher    domain.SchemaSearcher
	principals  *security.PrincipalService
	grants      *security.GrantService
	audit       domain.AuditRepository
	database    string
	logger      *slog.Logger
}

// HandlerParams collects the Handler's collaborators.
type HandlerParams struct {
	Issuer      *middleware.TokenIssuer
	Credentials domain.CredentialStore
	Runner      *pipeline.Runner
	Suggester   *pipeline.Suggester
	Refresher   pipeline.Refresher
	Searcher    domain.SchemaSearcher
	Principals  *security.PrincipalService
	Grants      *security.GrantService
	Audit       domain.AuditRepository
	Database    string
}

func NewHandler(p HandlerParams, logger *slog.Logger) *Handler {
	return &Handler{
		issuer:      p.Issuer,
		credentials: p.Credentials,
		runner:      p.Runner,
		suggester:   p.Suggester,
		refresher:   p.Refresher,
		searcher:    p.Searcher,
		principals:  p.Principals,
		grants:      p.Grants,
		audit:       p.Audit,
		database:    p.Database,
		logger:      logger.With("component", "api"),
	}
}

// RouterOptions tune the outermost middleware.
type RouterOptions struct {
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Router builds the chi router with the full middleware stack.
func (h *Handler) Router(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(120 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if opts.RateLimitRPS > 0 {
		r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: opts.RateLimitRPS,
			Burst:             opts.RateLimitBurst,
		}))
	}

	r.Get("/healthz", h.health)
	r.Post("/v1/auth/token", h.issueToken)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(h.issuer))

		r.Post("/v1/query", h.query)
		r.Get("/v1/schema", h.schema)
		r.Get("/v1/suggest", h.suggest)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Post("/v1/admin/refresh", h.refreshSchema)
			r.Get("/v1/audit", h.listAudit)
			r.Post("/v1/admin/principals", h.createPrincipal)
			r.Get("/v1/admin/principals", h.listPrincipals)
			r.Delete("/v1/admin/principals/{id}", h.deletePrincipal)
			r.Post("/v1/admin/grants", h.addGrant)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type tokenRequest struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" || req.Secret == "" {
		writeError(w, domain.ErrValidation("name and secret are required"))
		return
	}

	principal, err := h.credentials.Authenticate(r.Context(), req.Name, req.Secret)
	if err != nil {
		writeError(w, err)
		return
	}

	token, expires, err := h.issuer.Issue(principal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, ExpiresAt: expires})
}

type queryRequest struct {
	Question string `json:"question"`
}

type queryResponse struct {
	Status         string          `json:"status"`
	SQL            string          `json:"sql,omitempty"`
	Confidence     float64         `json:"confidence,omitempty"`
	Intent         string          `json:"intent,omitempty"`
	Columns        []string        `json:"columns,omitempty"`
	Rows           [][]interface{} `json:"rows,omitempty"`
	DeniedResource string          `json:"denied_resource,omitempty"`
	ReasonCode     string          `json:"reason_code,omitempty"`
	Message        string          `json:"message,omitempty"`
	Error          string          `json:"error,omitempty"`
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFromContext(r.Context())

	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, domain.ErrValidation("question is required"))
		return
	}

	result := h.runner.Run(r.Context(), principal, req.Question)

	resp := queryResponse{
		Status:     result.Status,
		SQL:        result.SQL,
		Confidence: result.Confidence,
	}
	if result.Intent != nil {
		resp.Intent = result.Intent.Category
	}

	switch result.Status {
	case domain.AuditExecuted:
		if result.Rows != nil {
			resp.Columns = result.Rows.Columns
			resp.Rows = result.Rows.Rows
		}
		resp.Message = result.Decision.Message
		writeJSON(w, http.StatusOK, resp)
	case domain.AuditDenied:
		resp.DeniedResource = result.Decision.DeniedResource
		resp.ReasonCode = result.Decision.ReasonCode
		resp.Message = result.Decision.Message
		writeJSON(w, http.StatusForbidden, resp)
	default:
		resp.Error = result.Error
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	}
}

type schemaColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type schemaTable struct {
	Name    string         `json:"name"`
	Columns []schemaColumn `json:"columns"`
}

type schemaResponse struct {
	Database string        `json:"database"`
	BuiltAt  time.Time     `json:"built_at"`
	Tables   []schemaTable `json:"tables"`
}

// schema lists the snapshot filtered down to what the caller may query:
// only granted tables, and within them only granted columns.
func (h *Handler) schema(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFromContext(r.Context())

	snap := h.searcher.Snapshot()
	if snap == nil {
		writeError(w, domain.ErrNotFound("schema index has not been built"))
		return
	}

	var grant *domain.PermissionGrant
	if !principal.IsAdmin {
		g, err := h.grants.Load(r.Context(), principal.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		grant = g
		if !grant.AllowsDatabase(h.database) {
			writeJSON(w, http.StatusOK, schemaResponse{
				Database: snap.Database, BuiltAt: snap.BuiltAt, Tables: []schemaTable{},
			})
			return
		}
	}

	resp := schemaResponse{Database: snap.Database, BuiltAt: snap.BuiltAt, Tables: []schemaTable{}}
	for i := range snap.Elements {
		e := &snap.Elements[i]
		if e.Kind != domain.ElementTable {
			continue
		}
		if grant != nil && !grant.AllowsTable(e.QualifiedName) {
			continue
		}
		table := schemaTable{Name: e.QualifiedName, Columns: []schemaColumn{}}
		allColumns := grant == nil || grant.AllowsColumn(e.QualifiedName, domain.Wildcard)
		for _, c := range e.Columns {
			if !allColumns && !grant.AllowsColumn(e.QualifiedName, c.Name) {
				continue
			}
			table.Columns = append(table.Columns, schemaColumn{Name: c.Name, Type: c.DataType})
		}
		resp.Tables = append(resp.Tables, table)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.PrincipalFromContext(r.Context())

	var grant *domain.PermissionGrant
	if !principal.IsAdmin {
		g, err := h.grants.Load(r.Context(), principal.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		grant = g
	}

	suggestions := h.suggester.Suggest(principal, grant)
	if suggestions == nil {
		suggestions = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}

func (h *Handler) refreshSchema(w http.ResponseWriter, r *http.Request) {
	if err := h.refresher.Refresh(r.Context()); err != nil {
		h.logger.Error("manual schema refresh failed", "error", err)
		writeError(w, err)
		return
	}
	snap := h.searcher.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "refreshed",
		"elements": len(snap.Elements),
		"built_at": snap.BuiltAt,
	})
}

type auditEntryResponse struct {
	ID            string    `json:"id"`
	PrincipalName string    `json:"principal_name"`
	Question      string    `json:"question"`
	CandidateSQL  *string   `json:"candidate_sql,omitempty"`
	Status        string    `json:"status"`
	ReasonCode    *string   `json:"reason_code,omitempty"`
	ErrorMessage  *string   `json:"error_message,omitempty"`
	Confidence    *float64  `json:"confidence,omitempty"`
	DurationMs    *int64    `json:"duration_ms,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	filter := domain.AuditFilter{}
	if v := r.URL.Query().Get("principal"); v != "" {
		filter.PrincipalName = &v
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := strings.ToUpper(v)
		filter.Status = &status
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	entries, total, err := h.audit.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryResponse{
			ID:            e.ID,
			PrincipalName: e.PrincipalName,
			Question:      e.Question,
			CandidateSQL:  e.CandidateSQL,
			Status:        e.Status,
			ReasonCode:    e.ReasonCode,
			ErrorMessage:  e.ErrorMessage,
			Confidence:    e.Confidence,
			DurationMs:    e.DurationMs,
			CreatedAt:     e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": out, "total": total})
}

type createPrincipalRequest struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Secret  string `json:"secret"`
	IsAdmin bool   `json:"is_admin"`
}

type principalResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

func principalToResponse(p *domain.Principal) principalResponse {
	return principalResponse{
		ID: p.ID, Name: p.Name, Type: p.Type, IsAdmin: p.IsAdmin, CreatedAt: p.CreatedAt,
	}
}

func (h *Handler) createPrincipal(w http.ResponseWriter, r *http.Request) {
	var req createPrincipalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.principals.Create(r.Context(), &domain.CreatePrincipalRequest{
		Name: req.Name, Type: req.Type, Secret: req.Secret, IsAdmin: req.IsAdmin,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, principalToResponse(p))
}

func (h *Handler) listPrincipals(w http.ResponseWriter, r *http.Request) {
	list, err := h.principals.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]principalResponse, 0, len(list))
	for i := range list {
		out = append(out, principalToResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"principals": out})
}

func (h *Handler) deletePrincipal(w http.ResponseWriter, r *http.Request) {
	if err := h.principals.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addGrantRequest struct {
	Principal string   `json:"principal"`
	Databases []string `json:"databases"`
	Tables    []string `json:"tables"`
	Columns   []string `json:"columns"`
}

func (h *Handler) addGrant(w http.ResponseWriter, r *http.Request) {
	var req addGrantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Principal == "" {
		writeError(w, domain.ErrValidation("principal is required"))
		return
	}

	err := h.grants.Grant(r.Context(), req.Principal, &domain.PermissionGrant{
		Databases: req.Databases,
		Tables:    req.Tables,
		Columns:   req.Columns,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "granted"})
}
