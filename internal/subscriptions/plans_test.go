package subscriptions

import "testing"

func TestPlanTable(t *testing.T) {
	if err := ValidatePlans(); err != nil {
		t.Fatalf("ValidatePlans: %v", err)
	}

	want := map[string]struct {
		price int64
		days  int
	}{
		"one_month":  {120, 30},
		"six_months": {500, 182},
		"one_year":   {800, 365},
	}
	for key, w := range want {
		p, ok := PlanByKey(key)
		if !ok {
			t.Errorf("plan %q missing", key)
			continue
		}
		if p.Price != w.price {
			t.Errorf("plan %q price: got %d, want %d", key, p.Price, w.price)
		}
		if p.DurationDays != w.days {
			t.Errorf("plan %q duration: got %d, want %d", key, p.DurationDays, w.days)
		}
	}

	if _, ok := PlanByKey("lifetime"); ok {
		t.Error("unknown plan key should not resolve")
	}
}

func TestPlansOrdered(t *testing.T) {
	list := Plans()
	if len(list) != 3 {
		t.Fatalf("plans: got %d, want 3", len(list))
	}
	wantOrder := []string{"one_month", "six_months", "one_year"}
	for i, key := range wantOrder {
		if list[i].Key != key {
			t.Errorf("plan %d: got %q, want %q", i, list[i].Key, key)
		}
	}
}
