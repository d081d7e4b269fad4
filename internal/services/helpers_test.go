package services

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/monocle-dev/taskflow/internal/models"
	"github.com/monocle-dev/taskflow/internal/testutil"
	"gorm.io/gorm"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingNotifier struct {
	mu      sync.Mutex
	changed []string
}

func (n *recordingNotifier) CompanyChanged(companyID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, companyID)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.changed)
}

// tenant seeds company C1 with a manager m1 and staff s1/s2, plus a second
// company C2 with manager m2, and an admin.
type tenant struct {
	admin, m1, m2, s1, s2 models.User
}

func seedTenant(t *testing.T, conn *gorm.DB) tenant {
	t.Helper()

	testutil.MustCompany(t, conn, models.Company{BaseModel: models.BaseModel{ID: "C1"}, Name: "Acme", CreatedByID: "m1", IsActive: true})
	testutil.MustCompany(t, conn, models.Company{BaseModel: models.BaseModel{ID: "C2"}, Name: "Globex", CreatedByID: "admin", IsActive: true})

	return tenant{
		admin: testutil.MustUser(t, conn, models.User{BaseModel: models.BaseModel{ID: "admin"}, Name: "Ada", Role: models.RoleAdmin, IsActive: true}),
		m1:    testutil.MustUser(t, conn, models.User{BaseModel: models.BaseModel{ID: "m1"}, Name: "Maria", Role: models.RoleManager, CompanyID: testutil.Ptr("C1"), IsActive: true}),
		m2:    testutil.MustUser(t, conn, models.User{BaseModel: models.BaseModel{ID: "m2"}, Name: "Mike", Role: models.RoleManager, CompanyID: testutil.Ptr("C2"), IsActive: true}),
		s1:    testutil.MustUser(t, conn, models.User{BaseModel: models.BaseModel{ID: "s1"}, Name: "Sam", Role: models.RoleStaff, CompanyID: testutil.Ptr("C1"), IsActive: true}),
		s2:    testutil.MustUser(t, conn, models.User{BaseModel: models.BaseModel{ID: "s2"}, Name: "Sid", Role: models.RoleStaff, CompanyID: testutil.Ptr("C1"), IsActive: true}),
	}
}

func wantKind(t *testing.T, err, kind error) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}
