package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/monocle-dev/taskflow/internal/models"
	"github.com/monocle-dev/taskflow/internal/stats"
	"github.com/monocle-dev/taskflow/internal/types"
	"github.com/monocle-dev/taskflow/internal/visibility"
	"gorm.io/gorm"
)

type ReturnType string

const (
	ReturnFull     ReturnType = "full"
	ReturnDetailed ReturnType = "detailed"
	ReturnMinimal  ReturnType = "minimal"
	ReturnDropdown ReturnType = "dropdown"
)

func ParseReturnType(s string) (ReturnType, error) {
	switch rt := ReturnType(strings.ToLower(strings.TrimSpace(s))); rt {
	case "":
		return ReturnFull, nil
	case ReturnFull, ReturnDetailed, ReturnMinimal, ReturnDropdown:
		return rt, nil
	}
	return "", types.Errorf(types.ErrValidation, "Unknown returnType %q", s)
}

type CompanyInput struct {
	Name        string
	Description string
	Email       string
	Phone       string
	Address     string
}

// CompanyPatch holds the fields to change; nil means leave as is.
type CompanyPatch struct {
	Name        *string
	Description *string
	Email       *string
	Phone       *string
	Address     *string
	IsActive    *bool
}

type ListCompaniesParams struct {
	Search     string
	IsActive   *bool
	ReturnType ReturnType
}

type CompanySummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	IsActive  bool   `json:"isActive"`
	UserCount int64  `json:"userCount"`
	CreatedBy string `json:"createdBy"`
}

type CompanyOption struct {
	Label    string `json:"label"`
	Value    string `json:"value"`
	IsActive bool   `json:"isActive"`
}

// CompanyList is the result of a listing. Companies holds []models.Company,
// []CompanySummary or []CompanyOption depending on ReturnType.
type CompanyList struct {
	Count      int
	Companies  any
	ReturnType ReturnType
}

type CompanyService struct {
	db    *gorm.DB
	log   *slog.Logger
	stats *stats.Aggregator
}

func NewCompanyService(db *gorm.DB, log *slog.Logger) *CompanyService {
	return &CompanyService{db: db, log: log, stats: stats.NewAggregator(db)}
}

func creatorColumns(tx *gorm.DB) *gorm.DB {
	return tx.Select("id", "name", "email")
}

func (s *CompanyService) Create(ctx context.Context, caller types.Identity, in CompanyInput) (models.Company, error) {
	if caller.Role != models.RoleAdmin && caller.Role != models.RoleManager {
		return models.Company{}, types.Errorf(types.ErrForbidden, "Not authorized to create companies")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Company{}, types.Errorf(types.ErrValidation, "Company name is required")
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Company{}).Where("name = ?", name).Count(&existing).Error; err != nil {
		return models.Company{}, types.Internal("check company name", err)
	}

	if existing > 0 {
		return models.Company{}, types.Errorf(types.ErrConflict, "Company already exists")
	}

	company := models.Company{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Email:       strings.TrimSpace(in.Email),
		Phone:       strings.TrimSpace(in.Phone),
		Address:     strings.TrimSpace(in.Address),
		CreatedByID: caller.ID,
		IsActive:    true,
	}

	if err := s.db.WithContext(ctx).Create(&company).Error; err != nil {
		return models.Company{}, writeErr(err, "create company", "Company already exists")
	}

	s.log.Info("company created", "company_id", company.ID, "created_by", caller.ID)

	return company, nil
}

func (s *CompanyService) List(ctx context.Context, caller types.Identity, p ListCompaniesParams) (CompanyList, error) {
	if p.ReturnType == "" {
		p.ReturnType = ReturnFull
	}

	scope, err := visibility.For(caller)
	if err != nil {
		return CompanyList{}, err
	}

	tx, err := scope.Companies(s.db.WithContext(ctx).Model(&models.Company{}), visibility.CompanyFilter{
		Search:   p.Search,
		IsActive: p.IsActive,
	})
	if err != nil {
		return CompanyList{}, err
	}

	tx = tx.Preload("CreatedBy", creatorColumns).Order("companies.created_at DESC")

	if p.ReturnType == ReturnDetailed {
		tx = tx.
			Preload("Users", func(tx *gorm.DB) *gorm.DB {
				return tx.Select("id", "name", "email", "role", "is_active", "company_id")
			}).
			Preload("Tasks", func(tx *gorm.DB) *gorm.DB {
				return tx.Select("id", "title", "status", "priority", "progress", "company_id")
			})
	}

	var companies []models.Company
	if err := tx.Find(&companies).Error; err != nil {
		return CompanyList{}, types.Internal("list companies", err)
	}

	list := CompanyList{Count: len(companies), ReturnType: p.ReturnType}

	switch p.ReturnType {
	case ReturnMinimal:
		counts, err := s.userCounts(ctx, companies)
		if err != nil {
			return CompanyList{}, err
		}

		summaries := make([]CompanySummary, 0, len(companies))
		for _, c := range companies {
			createdBy := "Unknown"
			if c.CreatedBy != nil {
				createdBy = c.CreatedBy.Name
			}

			summaries = append(summaries, CompanySummary{
				ID:        c.ID,
				Name:      c.Name,
				Email:     c.Email,
				Phone:     c.Phone,
				IsActive:  c.IsActive,
				UserCount: counts[c.ID],
				CreatedBy: createdBy,
			})
		}
		list.Companies = summaries
	case ReturnDropdown:
		options := make([]CompanyOption, 0, len(companies))
		for _, c := range companies {
			options = append(options, CompanyOption{Label: c.Name, Value: c.ID, IsActive: c.IsActive})
		}
		list.Companies = options
	default:
		if companies == nil {
			companies = []models.Company{}
		}
		list.Companies = companies
	}

	return list, nil
}

func (s *CompanyService) userCounts(ctx context.Context, companies []models.Company) (map[string]int64, error) {
	counts := make(map[string]int64, len(companies))
	if len(companies) == 0 {
		return counts, nil
	}

	ids := make([]string, 0, len(companies))
	for _, c := range companies {
		ids = append(ids, c.ID)
	}

	var rows []struct {
		CompanyID string
		Count     int64
	}

	err := s.db.WithContext(ctx).Model(&models.User{}).
		Select("company_id, COUNT(*) AS count").
		Where("company_id IN ?", ids).
		Group("company_id").
		Scan(&rows).Error

	if err != nil {
		return nil, types.Internal("count company users", err)
	}

	for _, row := range rows {
		counts[row.CompanyID] = row.Count
	}

	return counts, nil
}

func (s *CompanyService) Get(ctx context.Context, caller types.Identity, id string) (models.Company, error) {
	scope, err := visibility.For(caller)
	if err != nil {
		return models.Company{}, err
	}

	tx, err := scope.Companies(s.db.WithContext(ctx).Model(&models.Company{}), visibility.CompanyFilter{})
	if err != nil {
		return models.Company{}, err
	}

	var company models.Company
	if err := tx.Preload("CreatedBy", creatorColumns).Where("companies.id = ?", id).First(&company).Error; err != nil {
		return models.Company{}, lookupErr(err, "Company")
	}

	return company, nil
}

// owned loads a company the caller may modify: admins may modify any, other
// callers only the companies they created.
func (s *CompanyService) owned(ctx context.Context, caller types.Identity, id, action string) (models.Company, error) {
	var company models.Company

	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&company).Error; err != nil {
		return models.Company{}, lookupErr(err, "Company")
	}

	if !caller.IsAdmin() && company.CreatedByID != caller.ID {
		return models.Company{}, types.Errorf(types.ErrForbidden, "Not authorized to %s this company", action)
	}

	return company, nil
}

func (s *CompanyService) Update(ctx context.Context, caller types.Identity, id string, patch CompanyPatch) (models.Company, error) {
	company, err := s.owned(ctx, caller, id, "update")
	if err != nil {
		return models.Company{}, err
	}

	updates := make(map[string]interface{})

	if name := trimmed(patch.Name); name != nil {
		if *name == "" {
			return models.Company{}, types.Errorf(types.ErrValidation, "Company name cannot be empty")
		}

		if *name != company.Name {
			var taken int64
			if err := s.db.WithContext(ctx).Model(&models.Company{}).Where("name = ? AND id <> ?", *name, company.ID).Count(&taken).Error; err != nil {
				return models.Company{}, types.Internal("check company name", err)
			}
			if taken > 0 {
				return models.Company{}, types.Errorf(types.ErrConflict, "Company already exists")
			}
		}

		updates["name"] = *name
	}

	if v := trimmed(patch.Description); v != nil {
		updates["description"] = *v
	}
	if v := trimmed(patch.Email); v != nil {
		updates["email"] = *v
	}
	if v := trimmed(patch.Phone); v != nil {
		updates["phone"] = *v
	}
	if v := trimmed(patch.Address); v != nil {
		updates["address"] = *v
	}
	if patch.IsActive != nil {
		updates["is_active"] = *patch.IsActive
	}

	if len(updates) == 0 {
		return models.Company{}, types.Errorf(types.ErrValidation, "No valid fields to update")
	}

	if err := s.db.WithContext(ctx).Model(&company).Updates(updates).Error; err != nil {
		return models.Company{}, writeErr(err, "update company", "Company already exists")
	}

	if err := s.db.WithContext(ctx).Preload("CreatedBy", creatorColumns).First(&company, "id = ?", company.ID).Error; err != nil {
		return models.Company{}, lookupErr(err, "Company")
	}

	return company, nil
}

func (s *CompanyService) Delete(ctx context.Context, caller types.Identity, id string) error {
	company, err := s.owned(ctx, caller, id, "delete")
	if err != nil {
		return err
	}

	var users int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("company_id = ?", company.ID).Count(&users).Error; err != nil {
		return types.Internal("count company users", err)
	}

	if users > 0 {
		return types.Errorf(types.ErrConflict, "Cannot delete company with active users. Remove users first.")
	}

	if err := s.db.WithContext(ctx).Delete(&company).Error; err != nil {
		return types.Internal("delete company", err)
	}

	s.log.Info("company deleted", "company_id", company.ID, "deleted_by", caller.ID)

	return nil
}

// Stats checks that the company exists inside the caller's scope before
// aggregating, since the aggregator would report zeros for unknown IDs.
func (s *CompanyService) Stats(ctx context.Context, caller types.Identity, id string) (stats.Report, error) {
	scope, err := visibility.For(caller)
	if err != nil {
		return stats.Report{}, err
	}

	tx, err := scope.Companies(s.db.WithContext(ctx).Model(&models.Company{}), visibility.CompanyFilter{})
	if err != nil {
		return stats.Report{}, err
	}

	var found int64
	if err := tx.Where("companies.id = ?", id).Count(&found).Error; err != nil {
		return stats.Report{}, types.Internal("find company", err)
	}

	if found == 0 {
		return stats.Report{}, types.Errorf(types.ErrNotFound, "Company not found")
	}

	report, err := s.stats.Compute(ctx, id)
	if err != nil {
		return stats.Report{}, types.Internal("company stats", err)
	}

	return report, nil
}
