package auth

import (
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/comunidade-central/accessctl/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)

	// every connection to :memory: is its own database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...), "failed to migrate test database")

	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// closeDB makes every further query fail.
func closeDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
}

// fixture is a database seeded with the ADMIN scenario roles.
type fixture struct {
	db        *gorm.DB
	svc       *Service
	admin     *models.Role
	inscrito  *models.Role
	visitante *models.Role
	recorder  *memRecorder
}

func newFixture(t *testing.T, opts ...ServiceOption) *fixture {
	t.Helper()

	db := setupTestDB(t)
	rec := &memRecorder{}

	opts = append([]ServiceOption{WithDecisionRecorder(rec, true)}, opts...)
	svc := NewService(db, opts...)

	ctx := context.Background()

	for _, code := range []string{PermAdministrar, PermCentralAccess, PermManageCourses} {
		_, err := svc.Roles.CreatePermission(ctx, code, "")
		require.NoError(t, err)
	}

	admin, err := svc.Roles.CreateRole(ctx, RoleSpec{
		Name: RoleAdmin, IsSystem: true, Permissions: []string{PermAdministrar, PermManageCourses},
	})
	require.NoError(t, err)

	inscrito, err := svc.Roles.CreateRole(ctx, RoleSpec{
		Name: RoleInscrito, IsSystem: true, Permissions: []string{PermCentralAccess},
	})
	require.NoError(t, err)

	visitante, err := svc.Roles.CreateRole(ctx, RoleSpec{Name: RoleVisitante})
	require.NoError(t, err)

	return &fixture{
		db:        db,
		svc:       svc,
		admin:     admin,
		inscrito:  inscrito,
		visitante: visitante,
		recorder:  rec,
	}
}

func (f *fixture) countAssignments(t *testing.T, userID string, roleID uint) int64 {
	t.Helper()

	var n int64
	require.NoError(t, f.db.Model(&models.UserRole{}).
		Where("user_id = ? AND role_id = ?", userID, roleID).Count(&n).Error)

	return n
}

type recorded struct {
	userID   string
	req      Requirement
	decision Decision
}

// memRecorder keeps reported decisions in memory.
type memRecorder struct {
	mu      sync.Mutex
	entries []recorded
}

func (r *memRecorder) Record(_ context.Context, userID string, req Requirement, d Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, recorded{userID: userID, req: req, decision: d})
}

func (r *memRecorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]recorded(nil), r.entries...)
}

// countingResolver counts calls to the wrapped resolver.
type countingResolver struct {
	next  Resolver
	mu    sync.Mutex
	calls int
}

func (r *countingResolver) Grants(ctx context.Context, userID string) (Grants, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()

	return r.next.Grants(ctx, userID)
}

func (r *countingResolver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calls
}
