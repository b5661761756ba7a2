package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowzingo/members-api/internal/domain/entity"
)

func TestAttachLessonsEveryModuleKeepsItsLessons(t *testing.T) {
	p := &entity.Product{ID: "p1", Name: "Course"}
	for _, id := range []string{"m1", "m2", "m3"} {
		p.Modules = append(p.Modules, entity.Module{ID: id, ProductID: "p1"})
	}
	lessons := []entity.Lesson{
		{ID: "l1", ModuleID: "m1", Name: "Intro"},
		{ID: "l2", ModuleID: "m2", Name: "Setup"},
		{ID: "l3", ModuleID: "m3", Name: "Wrap"},
		{ID: "l4", ModuleID: "m3", Name: "Extra"},
	}

	attachLessons([]*entity.Product{p}, lessons)

	require.Len(t, p.Modules, 3)
	assert.Len(t, p.Modules[0].Lessons, 1)
	assert.Len(t, p.Modules[1].Lessons, 1)
	require.Len(t, p.Modules[2].Lessons, 2)
	assert.Equal(t, "Intro", p.Modules[0].Lessons[0].Name)
	assert.Equal(t, "Setup", p.Modules[1].Lessons[0].Name)
	assert.Equal(t, "Wrap", p.Modules[2].Lessons[0].Name)
}

func TestAttachLessonsSpansProducts(t *testing.T) {
	p1 := &entity.Product{ID: "p1", Modules: []entity.Module{{ID: "a", ProductID: "p1"}}}
	p2 := &entity.Product{ID: "p2", Modules: []entity.Module{{ID: "b", ProductID: "p2"}}}

	attachLessons([]*entity.Product{p1, p2}, []entity.Lesson{
		{ID: "l1", ModuleID: "b", Name: "Only"},
	})

	assert.Empty(t, p1.Modules[0].Lessons)
	require.Len(t, p2.Modules[0].Lessons, 1)
	assert.Equal(t, "Only", p2.Modules[0].Lessons[0].Name)
}
