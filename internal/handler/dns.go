package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/flavor-entertainers/booking-platform/internal/middleware"
	"github.com/flavor-entertainers/booking-platform/internal/model"
)

// DNSStore persists the Do-Not-Serve list.
type DNSStore interface {
	Create(ctx context.Context, e model.DoNotServeEntry) (uint64, error)
	List(ctx context.Context, status string) ([]model.DoNotServeEntry, error)
	GetByID(ctx context.Context, id uint64) (model.DoNotServeEntry, error)
	SetStatus(ctx context.Context, id uint64, status string, reviewer uint64) error
	Delete(ctx context.Context, id uint64) error
}

// DNSHandler serves Do-Not-Serve submissions and reviews.
type DNSHandler struct {
	Entries DNSStore
}

func NewDNSHandler(s DNSStore) *DNSHandler { return &DNSHandler{Entries: s} }

type dnsReq struct {
	ClientName  string `json:"client_name" validate:"max=255"`
	ClientEmail string `json:"client_email" validate:"omitempty,email,max=255"`
	ClientPhone string `json:"client_phone" validate:"max=32"`
	Reason      string `json:"reason" validate:"required,max=2000"`
}

func (r *dnsReq) Normalize() {
	r.ClientName = strings.TrimSpace(r.ClientName)
	r.ClientEmail = strings.ToLower(strings.TrimSpace(r.ClientEmail))
	r.ClientPhone = strings.TrimSpace(r.ClientPhone)
	r.Reason = strings.TrimSpace(r.Reason)
}

// Submit handles POST /v1/dns and POST /v1/admin/dns.  Performer reports
// wait for review; entries added by an admin apply immediately.
func (h *DNSHandler) Submit(c echo.Context) error {
	var req dnsReq
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	if strings.TrimSpace(req.ClientEmail) == "" && strings.TrimSpace(req.ClientPhone) == "" {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "client_email or client_phone is required"})
	}
	uid, _ := middleware.UserID(c)
	e := model.DoNotServeEntry{
		ClientName:  strings.TrimSpace(req.ClientName),
		ClientEmail: req.ClientEmail,
		ClientPhone: req.ClientPhone,
		Reason:      strings.TrimSpace(req.Reason),
		SubmittedBy: uid,
		Status:      model.DNSPending,
	}
	if middleware.Role(c) == model.RoleAdmin {
		e.Status = model.DNSApproved
		e.ReviewedBy = &uid
	}
	ctx := c.Request().Context()
	id, err := h.Entries.Create(ctx, e)
	if err != nil {
		return writeError(c, err)
	}
	created, err := h.Entries.GetByID(ctx, id)
	if err != nil {
		e.ID = id
		created = e
	}
	return c.JSON(http.StatusCreated, created)
}

// List handles GET /v1/admin/dns?status=.
func (h *DNSHandler) List(c echo.Context) error {
	status := strings.ToUpper(strings.TrimSpace(c.QueryParam("status")))
	switch status {
	case "", model.DNSPending, model.DNSApproved, model.DNSRejected:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
	}
	out, err := h.Entries.List(c.Request().Context(), status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Review returns a handler that sets the entry in :id to status.
func (h *DNSHandler) Review(status string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return writeError(c, err)
		}
		reviewer, _ := middleware.UserID(c)
		ctx := c.Request().Context()
		if err := h.Entries.SetStatus(ctx, id, status, reviewer); err != nil {
			return writeError(c, err)
		}
		e, err := h.Entries.GetByID(ctx, id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, e)
	}
}

// Delete handles DELETE /v1/admin/dns/:id.
func (h *DNSHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Entries.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
