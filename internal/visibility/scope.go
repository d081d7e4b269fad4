// Package visibility turns a caller's role into the query predicate that
// bounds what they can read or write.
package visibility

import (
	"strings"
	"unicode"

	"github.com/monocle-dev/taskflow/internal/models"
	"github.com/monocle-dev/taskflow/internal/types"
	"gorm.io/gorm"
)

type reach int

const (
	everything reach = iota // admin
	tenant                  // manager: one company
	self                    // staff: own rows only
)

// Scope is resolved once per request. The zero value is not usable; build
// one with For.
type Scope struct {
	reach     reach
	userID    string
	companyID string
}

type CompanyFilter struct {
	Search   string
	IsActive *bool
}

type TaskFilter struct {
	Search     string
	Status     models.TaskStatus
	Priority   models.Priority
	CompanyID  string
	AssignedTo string
}

type UserFilter struct {
	Search    string
	Role      models.Role
	IsActive  *bool
	CompanyID string
}

func For(id types.Identity) (Scope, error) {
	switch id.Role {
	case models.RoleAdmin:
		return Scope{reach: everything, userID: id.ID}, nil
	case models.RoleManager:
		if id.CompanyID == "" {
			return Scope{}, types.Errorf(types.ErrForbidden, "Manager is not assigned to a company")
		}
		return Scope{reach: tenant, userID: id.ID, companyID: id.CompanyID}, nil
	case models.RoleStaff:
		return Scope{reach: self, userID: id.ID, companyID: id.CompanyID}, nil
	}

	return Scope{}, types.Errorf(types.ErrForbidden, "Unknown role %q", id.Role)
}

// CoversCompany reports whether the caller may see data of companyID.
func (s Scope) CoversCompany(companyID string) bool {
	switch s.reach {
	case everything:
		return true
	case tenant, self:
		return s.companyID != "" && s.companyID == companyID
	}
	return false
}

// Companies narrows tx to the companies the caller may manage. Staff never
// manage companies.
func (s Scope) Companies(tx *gorm.DB, f CompanyFilter) (*gorm.DB, error) {
	switch s.reach {
	case everything:
	case tenant:
		tx = tx.Where("companies.id = ?", s.companyID)
	default:
		return nil, types.Errorf(types.ErrForbidden, "Not authorized to manage companies")
	}

	if f.Search != "" {
		cond, args := containsFold(f.Search, "companies.name")
		tx = tx.Where(cond, args...)
	}

	if f.IsActive != nil {
		tx = tx.Where("companies.is_active = ?", *f.IsActive)
	}

	return tx, nil
}

func (s Scope) Tasks(tx *gorm.DB, f TaskFilter) *gorm.DB {
	switch s.reach {
	case tenant:
		tx = tx.Where("tasks.company_id = ?", s.companyID)
	case self:
		tx = tx.Where("tasks.assigned_to_id = ?", s.userID)
	}

	if f.Search != "" {
		cond, args := containsFold(f.Search, "tasks.title")
		tx = tx.Where(cond, args...)
	}
	if f.Status != "" {
		tx = tx.Where("tasks.status = ?", f.Status)
	}
	if f.Priority != "" {
		tx = tx.Where("tasks.priority = ?", f.Priority)
	}
	if f.CompanyID != "" {
		tx = tx.Where("tasks.company_id = ?", f.CompanyID)
	}
	if f.AssignedTo != "" {
		tx = tx.Where("tasks.assigned_to_id = ?", f.AssignedTo)
	}

	return tx
}

func (s Scope) Users(tx *gorm.DB, f UserFilter) *gorm.DB {
	switch s.reach {
	case tenant:
		tx = tx.Where("users.company_id = ?", s.companyID)
	case self:
		tx = tx.Where("users.id = ?", s.userID)
	}

	if f.Search != "" {
		cond, args := containsFold(f.Search, "users.name", "users.email")
		tx = tx.Where(cond, args...)
	}
	if f.Role != "" {
		tx = tx.Where("users.role = ?", f.Role)
	}
	if f.IsActive != nil {
		tx = tx.Where("users.is_active = ?", *f.IsActive)
	}
	if f.CompanyID != "" {
		tx = tx.Where("users.company_id = ?", f.CompanyID)
	}

	return tx
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// LikePattern builds a "contains" pattern for LIKE ... ESCAPE '!'.
func LikePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(term)) + "%"
}

// containsFold matches term anywhere in any of columns, ignoring case.
// Both sides go through SQL LOWER so they fold alike on every driver. sqlite's
// LOWER leaves non-ASCII letters alone, so the term is tried in lower and
// upper case: "émile" then matches a stored "Émile" through "ÉMILE".
func containsFold(term string, columns ...string) (string, []interface{}) {
	patterns := []string{LikePattern(strings.ToLower(term))}
	if strings.IndexFunc(term, func(r rune) bool { return r > unicode.MaxASCII }) >= 0 {
		patterns = append(patterns, LikePattern(strings.ToUpper(term)))
	}

	var (
		conds []string
		args  []interface{}
	)
	for _, col := range columns {
		for _, p := range patterns {
			conds = append(conds, "LOWER("+col+") LIKE LOWER(?) ESCAPE '!'")
			args = append(args, p)
		}
	}

	return "(" + strings.Join(conds, " OR ") + ")", args
}
