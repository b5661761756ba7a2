package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowzingo/members-api/internal/domain/entity"
)

func courseFixture() *entity.Product {
	p := testProduct()
	p.UnlockAfterDays = 7
	p.Modules = []entity.Module{
		{ID: uuid.NewString(), ProductID: p.ID, Name: "Boas-vindas", OrderIndex: 0, UnlockAfterDays: 0,
			Lessons: []entity.Lesson{{ID: uuid.NewString(), Name: "Intro", VideoType: entity.VideoTypeYouTube, VideoURL: "https://youtu.be/abc", OrderIndex: 0}}},
		{ID: uuid.NewString(), ProductID: p.ID, Name: "Semana 1", OrderIndex: 1, UnlockAfterDays: -1,
			Lessons: []entity.Lesson{{ID: uuid.NewString(), Name: "Aula 1", VideoURL: "https://vimeo.com/1", VideoType: entity.VideoTypeVimeo, OrderIndex: 0}}},
		{ID: uuid.NewString(), ProductID: p.ID, Name: "Bonus", OrderIndex: 2, UnlockAfterDays: 30},
	}
	return p
}

func TestGetCourseAppliesDripPerModule(t *testing.T) {
	p := courseFixture()
	svc := NewCatalogService(newFakeProductRepo(p), quietLogger())

	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	granted := now.AddDate(0, 0, -10)
	member := &entity.User{
		ID:            uuid.NewString(),
		ProductIDs:    []string{p.ID},
		ProductGrants: map[string]time.Time{p.ID: granted},
	}

	view, err := svc.GetCourse(context.Background(), member, p.ID)
	require.NoError(t, err)
	require.Len(t, view.Modules, 3)

	// delay 0: open immediately
	assert.True(t, view.Modules[0].Unlock.IsUnlocked)
	assert.Equal(t, "https://youtu.be/abc", view.Modules[0].Lessons[0].VideoURL)

	// -1 inherits the product delay of 7, granted 10 days ago: open
	assert.True(t, view.Modules[1].Unlock.IsUnlocked)

	// module override of 30 days: locked, content withheld
	locked := view.Modules[2].Unlock
	assert.False(t, locked.IsUnlocked)
	assert.Equal(t, 20, locked.DaysRemaining)
}

func TestGetCourseLockedModuleHidesLessonContent(t *testing.T) {
	p := courseFixture()
	p.Modules[0].UnlockAfterDays = 15
	svc := NewCatalogService(newFakeProductRepo(p), quietLogger())

	now := time.Now()
	granted := now.AddDate(0, 0, -1)
	member := &entity.User{
		ID:            uuid.NewString(),
		ProductIDs:    []string{p.ID},
		ProductGrants: map[string]time.Time{p.ID: granted},
	}

	view, err := svc.GetCourse(context.Background(), member, p.ID)
	require.NoError(t, err)

	lesson := view.Modules[0].Lessons[0]
	assert.Equal(t, "Intro", lesson.Name)
	assert.Empty(t, lesson.VideoURL)
	assert.Empty(t, lesson.Files)
}

func TestGetCourseDeniesUnentitledMember(t *testing.T) {
	p := courseFixture()
	svc := NewCatalogService(newFakeProductRepo(p), quietLogger())

	member := &entity.User{ID: uuid.NewString()}
	_, err := svc.GetCourse(context.Background(), member, p.ID)
	assert.ErrorIs(t, err, ErrNoAccess)
}

func TestGetCourseAdminBypassesDripAndEntitlement(t *testing.T) {
	p := courseFixture()
	svc := NewCatalogService(newFakeProductRepo(p), quietLogger())

	admin := &entity.User{ID: uuid.NewString(), IsAdmin: true}
	view, err := svc.GetCourse(context.Background(), admin, p.ID)
	require.NoError(t, err)
	for _, m := range view.Modules {
		assert.True(t, m.Unlock.IsUnlocked, "module %s", m.Name)
	}
}

func TestListCoursesHidesHiddenFromUnentitled(t *testing.T) {
	visible := testProduct()
	hidden := testProduct()
	hidden.ID = uuid.NewString()
	hidden.Name = "Turma Fechada"
	hidden.WebhookSecret = "sec-hidden"
	hidden.IsHidden = true

	svc := NewCatalogService(newFakeProductRepo(visible, hidden), quietLogger())

	outsider := &entity.User{ID: uuid.NewString()}
	courses, err := svc.ListCourses(context.Background(), outsider)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, visible.ID, courses[0].ID)
	assert.False(t, courses[0].HasAccess)

	entitled := &entity.User{ID: uuid.NewString(), ProductIDs: []string{hidden.ID}}
	courses, err = svc.ListCourses(context.Background(), entitled)
	require.NoError(t, err)
	assert.Len(t, courses, 2)

	admin := &entity.User{ID: uuid.NewString(), IsAdmin: true}
	courses, err = svc.ListCourses(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, courses, 2)
}

func TestDuplicateProductStartsInactiveWithoutSecret(t *testing.T) {
	p := courseFixture()
	svc := NewCatalogService(newFakeProductRepo(p), quietLogger())

	cp, err := svc.DuplicateProduct(context.Background(), p.ID, "Curso Completo (2)")
	require.NoError(t, err)
	assert.Equal(t, "Curso Completo (2)", cp.Name)
	assert.False(t, cp.IsActive)
	assert.Empty(t, cp.WebhookSecret)
	assert.NotEqual(t, p.ID, cp.ID)
}

func TestRotateWebhookSecret(t *testing.T) {
	p := testProduct()
	svc := NewCatalogService(newFakeProductRepo(p), quietLogger())

	old := p.WebhookSecret
	updated, err := svc.RotateWebhookSecret(context.Background(), p.ID)
	require.NoError(t, err)
	assert.NotEqual(t, old, updated.WebhookSecret)
	assert.Len(t, updated.WebhookSecret, 48)
}
