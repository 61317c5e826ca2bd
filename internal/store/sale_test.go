package store

import (
	"errors"
	"testing"
)

func setupSaleTestDB(t *testing.T) (*SaleStore, *ProductStore, *TeamStore, *PointStore) {
	t.Helper()
	db := testDB(t)
	return NewSaleStore(db), NewProductStore(db), NewTeamStore(db), NewPointStore(db)
}

func TestSaleDecrementsInventoryAndAwardsPoints(t *testing.T) {
	ss, prods, ts, ps := setupSaleTestDB(t)

	team, _ := ts.Create("Red")
	shirt, _ := prods.Create("Team Shirt", 1500, 5, 10, true)

	sale, err := ss.Create(shirt.ID, team.ID, 3, nil)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale.Quantity != 3 {
		t.Errorf("quantity = %d, want 3", sale.Quantity)
	}

	got, _ := prods.GetByID(shirt.ID)
	if got.Inventory != 7 {
		t.Errorf("inventory = %d, want 7", got.Inventory)
	}

	// 3 units x 5 points each.
	total, _ := ps.TotalForTeam(team.ID)
	if total != 15 {
		t.Errorf("total = %d, want 15", total)
	}
}

func TestSaleInsufficientInventory(t *testing.T) {
	ss, prods, ts, ps := setupSaleTestDB(t)

	team, _ := ts.Create("Red")
	shirt, _ := prods.Create("Team Shirt", 1500, 5, 2, true)

	_, err := ss.Create(shirt.ID, team.ID, 3, nil)
	if !errors.Is(err, ErrInsufficientInventory) {
		t.Fatalf("err = %v, want ErrInsufficientInventory", err)
	}

	// Nothing changed: no sale, no points, inventory intact.
	got, _ := prods.GetByID(shirt.ID)
	if got.Inventory != 2 {
		t.Errorf("inventory = %d, want 2", got.Inventory)
	}
	total, _ := ps.TotalForTeam(team.ID)
	if total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
	sales, _ := ss.List(nil)
	if len(sales) != 0 {
		t.Errorf("expected 0 sales, got %d", len(sales))
	}
}

func TestSaleUnknownProduct(t *testing.T) {
	ss, _, ts, _ := setupSaleTestDB(t)

	team, _ := ts.Create("Red")
	sale, err := ss.Create(999, team.ID, 1, nil)
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if sale != nil {
		t.Error("expected nil for unknown product")
	}
}

func TestSaleDeleteRestores(t *testing.T) {
	ss, prods, ts, ps := setupSaleTestDB(t)

	team, _ := ts.Create("Red")
	shirt, _ := prods.Create("Team Shirt", 1500, 5, 10, true)
	sale, _ := ss.Create(shirt.ID, team.ID, 4, nil)

	if err := ss.Delete(sale.ID); err != nil {
		t.Fatalf("delete sale: %v", err)
	}

	got, _ := prods.GetByID(shirt.ID)
	if got.Inventory != 10 {
		t.Errorf("inventory = %d, want 10 after delete", got.Inventory)
	}
	total, _ := ps.TotalForTeam(team.ID)
	if total != 0 {
		t.Errorf("total = %d, want 0 after delete", total)
	}
}

func TestSaleStatsByTeam(t *testing.T) {
	ss, prods, ts, _ := setupSaleTestDB(t)

	red, _ := ts.Create("Red")
	blue, _ := ts.Create("Blue")
	shirt, _ := prods.Create("Team Shirt", 1500, 5, 100, true)

	ss.Create(shirt.ID, red.ID, 2, nil)
	ss.Create(shirt.ID, red.ID, 3, nil)
	ss.Create(shirt.ID, blue.ID, 1, nil)

	stats, err := ss.StatsByTeam()
	if err != nil {
		t.Fatalf("stats by team: %v", err)
	}
	if stats[red.ID].Quantity != 5 || stats[red.ID].Count != 2 {
		t.Errorf("red stats = %+v, want quantity 5 count 2", stats[red.ID])
	}
	if stats[blue.ID].Quantity != 1 || stats[blue.ID].Count != 1 {
		t.Errorf("blue stats = %+v, want quantity 1 count 1", stats[blue.ID])
	}
}
