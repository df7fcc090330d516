package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/salon-management/internal/middleware"
	"github.com/iliyamo/salon-management/internal/model"
	"github.com/iliyamo/salon-management/internal/service"
	"github.com/iliyamo/salon-management/internal/utils"
)

// SalonManager is the part of service.SalonService the salon endpoints use.
type SalonManager interface {
	Create(ctx context.Context, actor *utils.Claims, in service.CreateSalonInput) (*model.Salon, error)
	Get(ctx context.Context, id string) (*model.Salon, error)
	List(ctx context.Context, f model.SalonFilter) (*model.SalonPage, error)
	Update(ctx context.Context, actor *utils.Claims, id string, u model.SalonUpdate) (*model.Salon, error)
	SoftDelete(ctx context.Context, actor *utils.Claims, id string) error
	HardDelete(ctx context.Context, id string) error
}

// SalonHandler serves the admin salon directory.
type SalonHandler struct {
	Salons SalonManager
	Logger *slog.Logger
}

func NewSalonHandler(salons SalonManager, logger *slog.Logger) *SalonHandler {
	if salons == nil {
		panic("nil salon service passed to NewSalonHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SalonHandler{Salons: salons, Logger: logger.With("component", "http")}
}

// flexInt accepts both 12 and "12"; admin consoles send counts as strings.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*n = flexInt(v)
	return nil
}

type ownerReq struct {
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	InvitationSent bool   `json:"invitationSent"`
}

type createSalonReq struct {
	Name          string     `json:"name"`
	BusinessType  string     `json:"businessType"`
	VTANumber     string     `json:"vtaNumber"`
	EmployeeCount flexInt    `json:"employeeCount"`
	Email         string     `json:"email"`
	PhoneNumber   string     `json:"phoneNumber"`
	Country       string     `json:"country"`
	Province      string     `json:"province"`
	City          string     `json:"city"`
	ZipCode       string     `json:"zipCode"`
	TrialPeriod   string     `json:"trialPeriod"`
	InitialPlan   string     `json:"initialPlan"`
	Owners        []ownerReq `json:"owners"`
}

// updateSalonReq is the PATCH body.  Absent fields stay untouched; email and
// vtaNumber are not accepted.
type updateSalonReq struct {
	Name          *string    `json:"name"`
	BusinessType  *string    `json:"businessType"`
	EmployeeCount *flexInt   `json:"employeeCount"`
	PhoneNumber   *string    `json:"phoneNumber"`
	Country       *string    `json:"country"`
	Province      *string    `json:"province"`
	City          *string    `json:"city"`
	ZipCode       *string    `json:"zipCode"`
	Status        *string    `json:"status"`
	Plan          *string    `json:"plan"`
	TrialEndsAt   *time.Time `json:"trialEndsAt"`
}

func (r updateSalonReq) toUpdate() model.SalonUpdate {
	u := model.SalonUpdate{
		Name:         r.Name,
		BusinessType: r.BusinessType,
		PhoneNumber:  r.PhoneNumber,
		Country:      r.Country,
		Province:     r.Province,
		City:         r.City,
		ZipCode:      r.ZipCode,
		TrialEndsAt:  r.TrialEndsAt,
	}
	if r.EmployeeCount != nil {
		n := int(*r.EmployeeCount)
		u.EmployeeCount = &n
	}
	if r.Status != nil {
		st := model.SalonStatus(*r.Status)
		u.Status = &st
	}
	if r.Plan != nil {
		p := model.Plan(*r.Plan)
		u.Plan = &p
	}
	return u
}

// Create: POST /iam/admin/salons/create
func (h *SalonHandler) Create(c echo.Context) error {
	var req createSalonReq
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	in := service.CreateSalonInput{
		Name:          req.Name,
		BusinessType:  req.BusinessType,
		VTANumber:     req.VTANumber,
		EmployeeCount: int(req.EmployeeCount),
		Email:         req.Email,
		PhoneNumber:   req.PhoneNumber,
		Country:       req.Country,
		Province:      req.Province,
		City:          req.City,
		ZipCode:       req.ZipCode,
		TrialPeriod:   req.TrialPeriod,
		InitialPlan:   req.InitialPlan,
	}
	for _, o := range req.Owners {
		in.Owners = append(in.Owners, model.NewOwner{
			FirstName:      o.FirstName,
			LastName:       o.LastName,
			Email:          o.Email,
			InvitationSent: o.InvitationSent,
		})
	}
	actor, _ := middleware.ClaimsFrom(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	salon, err := h.Salons.Create(ctx, actor, in)
	if err != nil {
		return fail(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, salon)
}

// List: GET /iam/admin/salons?page=&limit=&search=&status=&plan=&country=&province=&city=&refresh=
func (h *SalonHandler) List(c echo.Context) error {
	f := model.SalonFilter{
		Search:   c.QueryParam("search"),
		Status:   c.QueryParam("status"),
		Plan:     c.QueryParam("plan"),
		Country:  c.QueryParam("country"),
		Province: c.QueryParam("province"),
		City:     c.QueryParam("city"),
	}
	// Malformed numbers fall back to the defaults applied by normalization.
	f.Page, _ = strconv.Atoi(strings.TrimSpace(c.QueryParam("page")))
	f.Limit, _ = strconv.Atoi(strings.TrimSpace(c.QueryParam("limit")))
	f.Refresh, _ = strconv.ParseBool(strings.TrimSpace(c.QueryParam("refresh")))

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	page, err := h.Salons.List(ctx, f)
	if err != nil {
		return fail(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Get: GET /iam/admin/salons/:id
func (h *SalonHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	salon, err := h.Salons.Get(ctx, c.Param("id"))
	if err != nil {
		return fail(c, h.Logger, err)
	}
	// Invitation ids unlock set-password; owners and employees never see them.
	if claims, ok := middleware.ClaimsFrom(c); !ok || model.Role(claims.Role) != model.RolePlatformAdmin {
		return c.JSON(http.StatusOK, salon.WithoutInvitationIDs())
	}
	return c.JSON(http.StatusOK, salon)
}

// Update: PATCH /iam/admin/salons/update/:id
func (h *SalonHandler) Update(c echo.Context) error {
	var req updateSalonReq
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	u := req.toUpdate()
	if u.Empty() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no updatable fields"})
	}
	actor, _ := middleware.ClaimsFrom(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	salon, err := h.Salons.Update(ctx, actor, c.Param("id"), u)
	if err != nil {
		return fail(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, salon)
}

// Delete: DELETE /iam/admin/salons/delete/:id (soft delete)
func (h *SalonHandler) Delete(c echo.Context) error {
	actor, _ := middleware.ClaimsFrom(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Salons.SoftDelete(ctx, actor, c.Param("id")); err != nil {
		return fail(c, h.Logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HardDelete: DELETE /iam/admin/salons/hard-delete/:id
func (h *SalonHandler) HardDelete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Salons.HardDelete(ctx, c.Param("id")); err != nil {
		return fail(c, h.Logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}
