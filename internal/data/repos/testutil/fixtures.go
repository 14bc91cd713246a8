package testutil

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/pathatlas-backend/internal/domain"
)

func MustJSON(tb testing.TB, v any) datatypes.JSON {
	tb.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		tb.Fatalf("marshal fixture: %v", err)
	}
	return datatypes.JSON(raw)
}

func SeedCategory(tb testing.TB, gdb *gorm.DB, name string, depth int, origin string) *types.Category {
	tb.Helper()
	row := &types.Category{
		ID:     uuid.New(),
		Name:   name,
		Depth:  depth,
		IsLeaf: true,
		Origin: origin,
	}
	if err := gdb.Create(row).Error; err != nil {
		tb.Fatalf("seed category %q: %v", name, err)
	}
	return row
}

func SeedEdge(tb testing.TB, gdb *gorm.DB, childID, parentID uuid.UUID) *types.CategoryEdge {
	tb.Helper()
	row := &types.CategoryEdge{
		ID:         uuid.New(),
		ChildID:    childID,
		ParentID:   parentID,
		Kind:       types.EdgeIsA,
		Confidence: 1,
	}
	if err := gdb.Create(row).Error; err != nil {
		tb.Fatalf("seed edge: %v", err)
	}
	return row
}

func SeedItem(tb testing.TB, gdb *gorm.DB, name string, proposals []types.CategoryProposal) *types.Item {
	tb.Helper()
	row := &types.Item{
		ID:   uuid.New(),
		Name: name,
	}
	if len(proposals) > 0 {
		row.ProposedCategories = MustJSON(tb, proposals)
	}
	if err := gdb.Create(row).Error; err != nil {
		tb.Fatalf("seed item %q: %v", name, err)
	}
	return row
}

func SeedAssignment(tb testing.TB, gdb *gorm.DB, itemID, categoryID uuid.UUID, method string) *types.Assignment {
	tb.Helper()
	row := &types.Assignment{
		ID:         uuid.New(),
		ItemID:     itemID,
		CategoryID: categoryID,
		Method:     method,
		Confidence: 1,
	}
	if err := gdb.Create(row).Error; err != nil {
		tb.Fatalf("seed assignment: %v", err)
	}
	return row
}
