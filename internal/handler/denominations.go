package handler

import (
	"net/http"

	"tillpoint/internal/apierror"
	"tillpoint/internal/dto"
	"tillpoint/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DenominationHandler struct{ svc service.DenominationService }

func NewDenominationHandler(svc service.DenominationService) *DenominationHandler {
	return &DenominationHandler{svc: svc}
}

// List godoc
// @Summary List denominations in display order
// @Tags denominations
// @Produce json
// @Security BearerAuth
// @Param include_inactive query bool false "Include deactivated denominations"
// @Success 200 {array} dto.DenominationResponse
// @Router /v1/denominations [get]
func (h *DenominationHandler) List(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"
	resp, err := h.svc.List(c.Request.Context(), includeInactive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary Create a denomination
// @Tags denominations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateDenominationRequest true "Denomination"
// @Success 201 {object} dto.DenominationResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/denominations [post]
func (h *DenominationHandler) Create(c *gin.Context) {
	var req dto.CreateDenominationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Update godoc
// @Summary Update a denomination's value, label, or display order
// @Tags denominations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Denomination ID"
// @Param body body dto.UpdateDenominationRequest true "Fields to update"
// @Success 200 {object} dto.DenominationResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/denominations/{id} [patch]
func (h *DenominationHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	var req dto.UpdateDenominationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Deactivate godoc
// @Summary Deactivate a denomination (soft delete)
// @Tags denominations
// @Security BearerAuth
// @Param id path string true "Denomination ID"
// @Success 204
// @Failure 404 {object} apierror.APIError
// @Router /v1/denominations/{id} [delete]
func (h *DenominationHandler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return
	}
	if err := h.svc.Deactivate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reorder godoc
// @Summary Reassign display order for a batch of denominations
// @Tags denominations
// @Accept json
// @Security BearerAuth
// @Param body body dto.ReorderRequest true "New display orders"
// @Success 204
// @Failure 404 {object} apierror.APIError
// @Router /v1/denominations/reorder [put]
func (h *DenominationHandler) Reorder(c *gin.Context) {
	var req dto.ReorderRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.Reorder(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
