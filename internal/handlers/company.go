package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskflow/internal/services"
	"github.com/monocle-dev/taskflow/internal/utils"
)

type CreateCompanyRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Email       string `json:"email" binding:"omitempty,email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

type UpdateCompanyRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Phone       *string `json:"phone"`
	Address     *string `json:"address"`
	IsActive    *bool   `json:"isActive"`
}

type CompanyHandler struct {
	companies *services.CompanyService
	log       *slog.Logger
}

func NewCompanyHandler(companies *services.CompanyService, log *slog.Logger) *CompanyHandler {
	return &CompanyHandler{companies: companies, log: log}
}

func (h *CompanyHandler) Create(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	var body CreateCompanyRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx, "Invalid request")
		return
	}

	company, err := h.companies.Create(ctx.Request.Context(), caller, services.CompanyInput{
		Name:        body.Name,
		Description: body.Description,
		Email:       body.Email,
		Phone:       body.Phone,
		Address:     body.Address,
	})
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"success": true, "company": company})
}

func (h *CompanyHandler) List(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	search := ctx.Query("search")

	isActive, err := utils.ParseActiveFilter(ctx.Query("isActive"))
	if err != nil {
		badRequest(ctx, err.Error())
		return
	}

	returnType, err := services.ParseReturnType(ctx.Query("returnType"))
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	list, err := h.companies.List(ctx.Request.Context(), caller, services.ListCompaniesParams{
		Search:     search,
		IsActive:   isActive,
		ReturnType: returnType,
	})
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	activeFilter := "all"
	if isActive != nil {
		activeFilter = ctx.Query("isActive")
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":   true,
		"count":     list.Count,
		"companies": list.Companies,
		"userRole":  caller.Role,
		"filters": gin.H{
			"search":     search,
			"isActive":   activeFilter,
			"returnType": list.ReturnType,
		},
	})
}

func (h *CompanyHandler) Get(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	company, err := h.companies.Get(ctx.Request.Context(), caller, id)
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "company": company})
}

func (h *CompanyHandler) Update(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var body UpdateCompanyRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx, "Invalid request")
		return
	}

	company, err := h.companies.Update(ctx.Request.Context(), caller, id, services.CompanyPatch{
		Name:        body.Name,
		Description: body.Description,
		Email:       body.Email,
		Phone:       body.Phone,
		Address:     body.Address,
		IsActive:    body.IsActive,
	})
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "company": company})
}

func (h *CompanyHandler) Delete(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := h.companies.Delete(ctx.Request.Context(), caller, id); err != nil {
		writeError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "message": "Company deleted successfully"})
}

func (h *CompanyHandler) Stats(ctx *gin.Context) {
	caller, ok := currentUser(ctx)
	if !ok {
		return
	}

	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	report, err := h.companies.Stats(ctx.Request.Context(), caller, id)
	if err != nil {
		writeError(ctx, h.log, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true, "stats": report})
}
