package inventory

import "testing"

func TestScaleRequirementsOneRecipePerLine(t *testing.T) {
	recipe := []Requirement{
		{ItemID: "pork", Amount: 250, Unit: "g"},
		{ItemID: "broth", Amount: 0.5, Unit: "L"},
	}

	// A product save spends exactly one recipe: no line doubled, none skipped.
	single := ScaleRequirements(recipe, 1)
	if len(single) != len(recipe) {
		t.Fatalf("lines = %d, want %d", len(single), len(recipe))
	}
	for i := range recipe {
		if single[i] != recipe[i] {
			t.Fatalf("line %d = %+v, want %+v", i, single[i], recipe[i])
		}
	}

	batch := ScaleRequirements(recipe, 3)
	if batch[0].Amount != 750 || batch[1].Amount != 1.5 {
		t.Fatalf("scaled amounts = %v / %v, want 750 / 1.5", batch[0].Amount, batch[1].Amount)
	}

	if recipe[0].Amount != 250 {
		t.Fatal("scaling must not mutate the recipe")
	}

	if got := ScaleRequirements(recipe, 0); got[0].Amount != 250 {
		t.Fatalf("zero servings should fall back to one recipe, got %v", got[0].Amount)
	}
}
