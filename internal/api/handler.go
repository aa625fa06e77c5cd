package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vaultfolio/vaultfolio/internal/domain"
	"github.com/vaultfolio/vaultfolio/internal/export"
	"github.com/vaultfolio/vaultfolio/internal/store"
)

// ReportBuilder builds valued portfolio reports for a set of identity links.
type ReportBuilder interface {
	Build(ctx context.Context, links []domain.IdentityLink) (domain.PortfolioReport, error)
}

// LinkStore resolves identities to vault accounts and consumes link codes.
type LinkStore interface {
	LinksForIdentity(ctx context.Context, identity string) ([]domain.IdentityLink, error)
	ClaimLinkCode(ctx context.Context, code, identity string) (domain.IdentityLink, error)
}

// OverrideStore persists operator symbol → market id overrides.
type OverrideStore interface {
	SetOverride(ctx context.Context, symbol, marketID string) error
}

// Handler provides the HTTP endpoints for the portfolio API.
type Handler struct {
	reports   ReportBuilder
	links     LinkStore
	overrides OverrideStore
}

// NewHandler creates a new API handler.
func NewHandler(reports ReportBuilder, links LinkStore, overrides OverrideStore) *Handler {
	return &Handler{reports: reports, links: links, overrides: overrides}
}

// GetPortfolio handles GET /api/v1/portfolio/{identity}.
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	rep, identity, ok := h.buildReport(w, r)
	if !ok {
		return
	}
	slog.Info("portfolio report served", "identity", identity,
		"lines", len(rep.Lines), "skipped", len(rep.Skipped), "workspaceErrors", len(rep.WorkspaceErrors))
	writeJSON(w, http.StatusOK, rep)
}

// ExportPortfolio handles GET /api/v1/portfolio/{identity}/export.
func (h *Handler) ExportPortfolio(w http.ResponseWriter, r *http.Request) {
	rep, identity, ok := h.buildReport(w, r)
	if !ok {
		return
	}

	f, err := export.Workbook(identity, rep)
	if err != nil {
		slog.Error("failed to render portfolio workbook", "identity", identity, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "portfolio-"+identity+".xlsx"))
	if err := f.Write(w); err != nil {
		slog.Warn("failed to write workbook response", "identity", identity, "error", err)
	}
}

// buildReport resolves the identity's links and builds the report, writing
// the error response itself when anything fails.
func (h *Handler) buildReport(w http.ResponseWriter, r *http.Request) (domain.PortfolioReport, string, bool) {
	identity := r.PathValue("identity")
	if identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required")
		return domain.PortfolioReport{}, "", false
	}

	links, err := h.links.LinksForIdentity(r.Context(), identity)
	if err != nil {
		slog.Error("failed to resolve identity links", "identity", identity, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return domain.PortfolioReport{}, "", false
	}
	if len(links) == 0 {
		writeError(w, http.StatusNotFound, "no linked vault accounts for identity")
		return domain.PortfolioReport{}, "", false
	}

	rep, err := h.reports.Build(r.Context(), links)
	if err != nil {
		slog.Error("failed to build portfolio report", "identity", identity, "error", err)
		writeError(w, http.StatusBadGateway, "pricing data unavailable")
		return domain.PortfolioReport{}, "", false
	}
	return rep, identity, true
}

type claimLinkRequest struct {
	Code     string `json:"code"`
	Identity string `json:"identity"`
}

// ClaimLink handles POST /api/v1/link.
func (h *Handler) ClaimLink(w http.ResponseWriter, r *http.Request) {
	var req claimLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Code == "" || req.Identity == "" {
		writeError(w, http.StatusBadRequest, "code and identity are required")
		return
	}

	link, err := h.links.ClaimLinkCode(r.Context(), req.Code, req.Identity)
	if errors.Is(err, store.ErrLinkCodeInvalid) {
		writeError(w, http.StatusNotFound, "link code invalid or expired")
		return
	}
	if err != nil {
		slog.Error("failed to claim link code", "identity", req.Identity, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	slog.Info("link code claimed", "identity", req.Identity,
		"workspace", link.Workspace, "vaultAccountId", link.VaultAccountID)
	writeJSON(w, http.StatusOK, link)
}

type setOverrideRequest struct {
	MarketID string `json:"marketId"`
}

// SetOverride handles PUT /api/v1/overrides/{symbol}.
func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	var req setOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.MarketID == "" {
		writeError(w, http.StatusBadRequest, "marketId is required")
		return
	}

	if err := h.overrides.SetOverride(r.Context(), symbol, req.MarketID); err != nil {
		slog.Error("failed to save market id override", "symbol", symbol, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"symbol": symbol, "marketId": req.MarketID})
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
