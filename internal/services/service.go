package services

import (
	"errors"
	"strings"
	"time"

	"github.com/monocle-dev/taskflow/internal/types"
	"gorm.io/gorm"
)

// Notifier is told about every committed change to a company's tasks so
// connected dashboards can refresh.
type Notifier interface {
	CompanyChanged(companyID string)
}

type nopNotifier struct{}

func (nopNotifier) CompanyChanged(string) {}

func orNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

// lookupErr turns a failed single-row lookup into NotFound or Internal.
func lookupErr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Errorf(types.ErrNotFound, "%s not found", what)
	}
	return types.Internal("find "+strings.ToLower(what), err)
}

func writeErr(err error, op, conflictMsg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return types.Errorf(types.ErrConflict, "%s", conflictMsg)
	}
	return types.Internal(op, err)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

type clock func() time.Time
