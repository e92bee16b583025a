package requirement

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/comunidade-central/accessctl/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	// Migrate the schema
	err = db.AutoMigrate(&models.ResourceRequirement{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

// seedRequirements inserts test data into the database.
func seedRequirements(t *testing.T, db *gorm.DB, reqs []models.ResourceRequirement) {
	t.Helper()

	for _, req := range reqs {
		err := db.Create(&req).Error
		require.NoError(t, err, "failed to seed test data")
	}
}

func TestGet(t *testing.T) {
	db := setupTestDB(t)

	testCases := []struct {
		name          string
		dbParam       *gorm.DB
		resourceType  string
		resourceID    string
		seedData      []models.ResourceRequirement
		expectedError error
		expectedKind  models.RequirementKind
	}{
		{
			name:          "nil database",
			dbParam:       nil,
			resourceType:  "course",
			resourceID:    "1",
			expectedError: ErrDBNil,
		},
		{
			name:          "empty resource",
			dbParam:       db,
			resourceType:  "course",
			expectedError: ErrResourceEmpty,
		},
		{
			name:          "requirement not found",
			dbParam:       db,
			resourceType:  "course",
			resourceID:    "404",
			expectedError: ErrRequirementNotFound,
		},
		{
			name:         "successful get",
			dbParam:      db,
			resourceType: "course",
			resourceID:   "1",
			seedData: []models.ResourceRequirement{
				{ResourceType: "course", ResourceID: "1", Kind: models.RequirementRoles, Roles: []string{"INSCRITO"}},
			},
			expectedKind: models.RequirementRoles,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Clean database for each test
			if tc.dbParam != nil {
				tc.dbParam.Exec("DELETE FROM resource_requirements")
			}

			if tc.seedData != nil {
				seedRequirements(t, tc.dbParam, tc.seedData)
			}

			req, err := Get(tc.dbParam, tc.resourceType, tc.resourceID)

			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, req)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.expectedKind, req.Kind)
				assert.Equal(t, []string{"INSCRITO"}, []string(req.Roles))
			}
		})
	}
}

func TestList(t *testing.T) {
	db := setupTestDB(t)

	seedRequirements(t, db, []models.ResourceRequirement{
		{ResourceType: "poll", ResourceID: "2", Kind: models.RequirementPublic},
		{ResourceType: "course", ResourceID: "2", Kind: models.RequirementPermission, Permission: "central_access"},
		{ResourceType: "course", ResourceID: "1", Kind: models.RequirementPublic},
	})

	all, err := List(db, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "course", all[0].ResourceType)
	assert.Equal(t, "1", all[0].ResourceID)

	courses, err := List(db, "course")
	require.NoError(t, err)
	assert.Len(t, courses, 2)

	_, err = List(nil, "")
	require.ErrorIs(t, err, ErrDBNil)
}

func TestSet(t *testing.T) {
	testCases := []struct {
		name          string
		input         models.ResourceRequirement
		expectedError error
		expectedRoles []string
	}{
		{
			name:          "empty resource",
			input:         models.ResourceRequirement{Kind: models.RequirementPublic},
			expectedError: ErrResourceEmpty,
		},
		{
			name:          "unknown kind",
			input:         models.ResourceRequirement{ResourceType: "course", ResourceID: "1", Kind: "group"},
			expectedError: ErrInvalidKind,
		},
		{
			name: "permission kind without code",
			input: models.ResourceRequirement{
				ResourceType: "course", ResourceID: "1", Kind: models.RequirementPermission,
			},
			expectedError: ErrInvalidKind,
		},
		{
			name: "roles kind with permission",
			input: models.ResourceRequirement{
				ResourceType: "course", ResourceID: "1", Kind: models.RequirementRoles,
				Roles: []string{"ADMIN"}, Permission: "administrar",
			},
			expectedError: ErrInvalidKind,
		},
		{
			name: "roles are normalised",
			input: models.ResourceRequirement{
				ResourceType: "course", ResourceID: "1", Kind: models.RequirementRoles,
				Roles: []string{" inscrito", "Admin", " "},
			},
			expectedRoles: []string{"INSCRITO", "ADMIN"},
		},
		{
			name: "public drops roles",
			input: models.ResourceRequirement{
				ResourceType: "course", ResourceID: "1", Kind: models.RequirementPublic,
				Roles: []string{"ADMIN"},
			},
			expectedRoles: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db := setupTestDB(t)

			req, err := Set(db, tc.input)

			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, req)

				return
			}

			require.NoError(t, err)

			stored, err := Get(db, tc.input.ResourceType, tc.input.ResourceID)
			require.NoError(t, err)
			assert.Equal(t, req.ID, stored.ID)

			if tc.expectedRoles == nil {
				assert.Empty(t, stored.Roles)
			} else {
				assert.Equal(t, tc.expectedRoles, []string(stored.Roles))
			}
		})
	}
}

func TestSetReplacesExisting(t *testing.T) {
	db := setupTestDB(t)

	first, err := Set(db, models.ResourceRequirement{
		ResourceType: "poll", ResourceID: "7", Kind: models.RequirementRoles, Roles: []string{"INSCRITO"},
	})
	require.NoError(t, err)

	second, err := Set(db, models.ResourceRequirement{
		ResourceType: "poll", ResourceID: "7", Kind: models.RequirementPermission, Permission: "manage_polls",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.RequirementPermission, second.Kind)
	assert.Empty(t, second.Roles)

	var count int64
	require.NoError(t, db.Model(&models.ResourceRequirement{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)

	seedRequirements(t, db, []models.ResourceRequirement{
		{ResourceType: "course", ResourceID: "1", Kind: models.RequirementPublic},
	})

	require.NoError(t, Delete(db, "course", "1"))
	require.ErrorIs(t, Delete(db, "course", "1"), ErrRequirementNotFound)
	require.ErrorIs(t, Delete(db, "", "1"), ErrResourceEmpty)
	require.ErrorIs(t, Delete(nil, "course", "1"), ErrDBNil)
}
