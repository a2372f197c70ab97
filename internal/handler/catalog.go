package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/flavor-entertainers/booking-platform/internal/middleware"
	"github.com/flavor-entertainers/booking-platform/internal/model"
	"github.com/flavor-entertainers/booking-platform/internal/repository"
)

// PerformerStore is the performer persistence used by the catalog.
type PerformerStore interface {
	List(ctx context.Context, f model.PerformerFilter) ([]model.Performer, error)
	GetByID(ctx context.Context, id uint64) (model.Performer, error)
	GetByUserID(ctx context.Context, userID uint64) (model.Performer, error)
	Create(ctx context.Context, p model.Performer) (uint64, error)
	Update(ctx context.Context, p model.Performer) error
	Delete(ctx context.Context, id uint64) error
}

// ServiceStore is the service catalog persistence.
type ServiceStore interface {
	List(ctx context.Context, activeOnly bool) ([]model.Service, error)
	GetByID(ctx context.Context, id uint64) (model.Service, error)
	Create(ctx context.Context, s model.Service) (uint64, error)
	Update(ctx context.Context, s model.Service) error
	Deactivate(ctx context.Context, id uint64) error
}

// CatalogHandler serves performers and services.
type CatalogHandler struct {
	Performers PerformerStore
	Services   ServiceStore
}

func NewCatalogHandler(p PerformerStore, s ServiceStore) *CatalogHandler {
	return &CatalogHandler{Performers: p, Services: s}
}

// adminPerformer exposes the phone number hidden from public listings.
type adminPerformer struct {
	model.Performer
	Phone string `json:"phone"`
}

// ---- services ----

// ListServices handles GET /v1/services (active services only).
func (h *CatalogHandler) ListServices(c echo.Context) error {
	out, err := h.Services.List(c.Request().Context(), true)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// AdminListServices handles GET /v1/admin/services, inactive included.
func (h *CatalogHandler) AdminListServices(c echo.Context) error {
	out, err := h.Services.List(c.Request().Context(), false)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type serviceReq struct {
	Name               string `json:"name" validate:"required,max=128"`
	Category           string `json:"category" validate:"required,max=64"`
	Description        string `json:"description" validate:"max=2000"`
	RateCents          int64  `json:"rate_cents" validate:"gt=0"`
	RateType           string `json:"rate_type" validate:"required,oneof=HOURLY FLAT"`
	MinDurationMinutes int    `json:"min_duration_minutes" validate:"gte=0,lte=1440"`
	IsActive           *bool  `json:"is_active"`
}

func (r serviceReq) model(id uint64) model.Service {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return model.Service{
		ID:                 id,
		Name:               strings.TrimSpace(r.Name),
		Category:           strings.TrimSpace(r.Category),
		Description:        r.Description,
		RateCents:          r.RateCents,
		RateType:           r.RateType,
		MinDurationMinutes: r.MinDurationMinutes,
		IsActive:           active,
	}
}

// CreateService handles POST /v1/admin/services.
func (h *CatalogHandler) CreateService(c echo.Context) error {
	var req serviceReq
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	ctx := c.Request().Context()
	id, err := h.Services.Create(ctx, req.model(0))
	if err != nil {
		return writeError(c, err)
	}
	s, err := h.Services.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusCreated, req.model(id))
	}
	return c.JSON(http.StatusCreated, s)
}

// UpdateService handles PUT /v1/admin/services/:id.
func (h *CatalogHandler) UpdateService(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req serviceReq
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	s := req.model(id)
	if err := h.Services.Update(c.Request().Context(), s); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// DeactivateService handles DELETE /v1/admin/services/:id.  Services are
// never removed because bookings reference them.
func (h *CatalogHandler) DeactivateService(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Services.Deactivate(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- performers ----

// ListPerformers handles GET /v1/performers?status=&category=&location=.
func (h *CatalogHandler) ListPerformers(c echo.Context) error {
	f := model.PerformerFilter{
		Status:   strings.TrimSpace(c.QueryParam("status")),
		Category: strings.TrimSpace(c.QueryParam("category")),
		Location: strings.TrimSpace(c.QueryParam("location")),
	}
	out, err := h.Performers.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// GetPerformer handles GET /v1/performers/:id.
func (h *CatalogHandler) GetPerformer(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	p, err := h.Performers.GetByID(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// AdminListPerformers handles GET /v1/admin/performers.
func (h *CatalogHandler) AdminListPerformers(c echo.Context) error {
	out, err := h.Performers.List(c.Request().Context(), model.PerformerFilter{})
	if err != nil {
		return writeError(c, err)
	}
	views := make([]adminPerformer, 0, len(out))
	for _, p := range out {
		views = append(views, adminPerformer{Performer: p, Phone: p.Phone})
	}
	return c.JSON(http.StatusOK, views)
}

// performerReq is used for creates and partial updates.  Nil fields are
// left unchanged on update.
type performerReq struct {
	UserID     *uint64  `json:"user_id" validate:"omitempty,gt=0"`
	StageName  *string  `json:"stage_name" validate:"omitnil,min=1,max=128"`
	Bio        *string  `json:"bio" validate:"omitempty,max=4000"`
	Location   *string  `json:"location" validate:"omitempty,max=128"`
	Phone      *string  `json:"phone" validate:"omitempty,max=32"`
	PhotoURL   *string  `json:"photo_url" validate:"omitempty,url,max=512"`
	Status     *string  `json:"status" validate:"omitempty,oneof=AVAILABLE BUSY OFFLINE"`
	ServiceIDs []uint64 `json:"service_ids" validate:"omitempty,max=50,dive,gt=0"`
}

func (r performerReq) apply(p *model.Performer) {
	if r.StageName != nil {
		p.StageName = strings.TrimSpace(*r.StageName)
	}
	if r.Bio != nil {
		p.Bio = *r.Bio
	}
	if r.Location != nil {
		p.Location = strings.TrimSpace(*r.Location)
	}
	if r.Phone != nil {
		p.Phone = strings.TrimSpace(*r.Phone)
	}
	if r.PhotoURL != nil {
		p.PhotoURL = *r.PhotoURL
	}
	if r.Status != nil {
		p.Status = *r.Status
	}
	p.ServiceIDs = nil
	if r.ServiceIDs != nil {
		p.ServiceIDs = append([]uint64{}, r.ServiceIDs...)
	}
}

// CreatePerformer handles POST /v1/admin/performers.
func (h *CatalogHandler) CreatePerformer(c echo.Context) error {
	var req performerReq
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	if req.StageName == nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "fields": map[string]string{"stage_name": "required"}})
	}
	p := model.Performer{UserID: req.UserID, Status: model.PerformerAvailable}
	req.apply(&p)
	ctx := c.Request().Context()
	id, err := h.Performers.Create(ctx, p)
	if err != nil {
		return writeError(c, err)
	}
	created, err := h.Performers.GetByID(ctx, id)
	if err != nil {
		p.ID = id
		created = p
	}
	return c.JSON(http.StatusCreated, adminPerformer{Performer: created, Phone: created.Phone})
}

// UpdatePerformer handles PATCH /v1/admin/performers/:id.
func (h *CatalogHandler) UpdatePerformer(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	return h.patchPerformer(c, func(ctx context.Context) (model.Performer, error) {
		return h.Performers.GetByID(ctx, id)
	}, true)
}

// UpdateOwnProfile handles PATCH /v1/performer/profile: a performer edits
// their own profile and availability.  The linked services and account
// are managed by admins.
func (h *CatalogHandler) UpdateOwnProfile(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return h.patchPerformer(c, func(ctx context.Context) (model.Performer, error) {
		return h.Performers.GetByUserID(ctx, uid)
	}, false)
}

// GetOwnProfile handles GET /v1/performer/profile.
func (h *CatalogHandler) GetOwnProfile(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	p, err := h.Performers.GetByUserID(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, adminPerformer{Performer: p, Phone: p.Phone})
}

func (h *CatalogHandler) patchPerformer(c echo.Context, load func(context.Context) (model.Performer, error), admin bool) error {
	var req performerReq
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}
	if !admin {
		req.ServiceIDs = nil
		req.UserID = nil
	}
	ctx := c.Request().Context()
	p, err := load(ctx)
	if err != nil {
		return writeError(c, err)
	}
	keep := p.ServiceIDs
	req.apply(&p)
	if err := h.Performers.Update(ctx, p); err != nil {
		return writeError(c, err)
	}
	if p.ServiceIDs == nil {
		p.ServiceIDs = keep
	}
	return c.JSON(http.StatusOK, adminPerformer{Performer: p, Phone: p.Phone})
}

// DeletePerformer handles DELETE /v1/admin/performers/:id.
func (h *CatalogHandler) DeletePerformer(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	err = h.Performers.Delete(c.Request().Context(), id)
	if errors.Is(err, repository.ErrConflict) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "performer has bookings; set status OFFLINE instead"})
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
