package handler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/guaupro/landing/internal/handler/dto"
	"github.com/guaupro/landing/internal/model"
	"github.com/guaupro/landing/internal/repository"
)

const (
	defaultLeadPageSize = 20
	maxLeadPageSize     = 100
	adminQueryTimeout   = 5 * time.Second
	csvDateLayout       = "2006-01-02"
)

var leadCSVHeader = []string{"Email", "Name", "Business Type", "Pet Volume", "Company", "Phone", "Created At"}

// LeadReader reads waitlist leads for the admin endpoints.
type LeadReader interface {
	ListLeads(ctx context.Context, filter repository.LeadFilter, cursor string, limit int) ([]*model.Lead, string, error)
	ForEachLead(ctx context.Context, fn func(*model.Lead) error) error
	LeadStats(ctx context.Context) (*model.LeadStats, error)
}

// LeadHandler provides admin endpoints over the waitlist.
type LeadHandler struct {
	leads  LeadReader
	logger *slog.Logger
	now    func() time.Time
}

// NewLeadHandler creates a new LeadHandler.
func NewLeadHandler(leads LeadReader, logger *slog.Logger) *LeadHandler {
	return &LeadHandler{
		leads:  leads,
		logger: logger,
		now:    time.Now,
	}
}

// List handles GET /api/v1/admin/leads
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := defaultLeadPageSize
	if l := query.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxLeadPageSize {
			limit = parsed
		}
	}

	var filter repository.LeadFilter
	if bt := query.Get("business_type"); bt != "" {
		filter.BusinessType = model.BusinessType(bt)
		if !filter.BusinessType.IsValid() {
			writeFieldError(w, http.StatusBadRequest, "INVALID_FILTER", "Unknown business type", "business_type")
			return
		}
	}
	for _, bound := range []struct {
		param string
		dst   **time.Time
	}{
		{"created_after", &filter.CreatedAfter},
		{"created_before", &filter.CreatedBefore},
	} {
		raw := query.Get(bound.param)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeFieldError(w, http.StatusBadRequest, "INVALID_FILTER", "Timestamps must be RFC 3339", bound.param)
			return
		}
		*bound.dst = &t
	}

	ctx, cancel := context.WithTimeout(r.Context(), adminQueryTimeout)
	defer cancel()

	leads, nextCursor, err := h.leads.ListLeads(ctx, filter, query.Get("cursor"), limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			writeError(w, http.StatusBadRequest, "INVALID_CURSOR", "Invalid pagination cursor")
			return
		}
		h.logger.Error("failed to list leads", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list leads")
		return
	}

	writeJSON(w, http.StatusOK, dto.ToLeadListResponse(leads, nextCursor))
}

// Stats handles GET /api/v1/admin/leads/stats
func (h *LeadHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), adminQueryTimeout)
	defer cancel()

	stats, err := h.leads.LeadStats(ctx)
	if err != nil {
		h.logger.Error("failed to compute lead stats", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute lead stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Export handles GET /api/v1/admin/leads/export.csv
// Rows are streamed newest first. Every field is double-quoted.
func (h *LeadHandler) Export(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("waitlist-leads-%s.csv", h.now().UTC().Format(csvDateLayout))

	bw := bufio.NewWriter(w)
	started := false
	start := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		w.WriteHeader(http.StatusOK)
		writeCSVRow(bw, leadCSVHeader)
	}

	err := h.leads.ForEachLead(r.Context(), func(lead *model.Lead) error {
		start()
		writeCSVRow(bw, leadCSVRecord(lead))
		return nil
	})
	if err != nil && !started {
		h.logger.Error("failed to export leads", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to export leads")
		return
	}
	if err != nil {
		// Headers are already out; the truncated file is all we can send.
		h.logger.Error("lead export aborted", "error", err)
	}

	start()
	if err := bw.Flush(); err != nil {
		h.logger.Warn("failed to flush lead export", "error", err)
	}
}

func leadCSVRecord(lead *model.Lead) []string {
	return []string{
		csvText(lead.Email),
		csvText(lead.FullName),
		string(lead.BusinessType),
		string(lead.PetVolume),
		csvText(model.Deref(lead.CompanyName)),
		csvText(model.Deref(lead.Phone)),
		lead.CreatedAt.UTC().Format(csvDateLayout),
	}
}

// csvText prefixes form input that a spreadsheet would read as a formula.
func csvText(field string) string {
	if field == "" {
		return field
	}
	switch field[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + field
	}
	return field
}

// writeCSVRow writes one record with every field quoted.
func writeCSVRow(w *bufio.Writer, fields []string) {
	for i, field := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(field, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}
