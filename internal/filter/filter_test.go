package filter

import (
	"strings"
	"testing"

	"github.com/sitescope-io/cctv-analytics/internal/chartspec"
)

func TestCompileEmptyGroups(t *testing.T) {
	params := NewParamSet(nil)
	sql, err := Compile(nil, params)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if sql != "" {
		t.Fatalf("expected empty clause for no groups, got %q", sql)
	}
}

func TestCompileSimpleEquals(t *testing.T) {
	params := NewParamSet(nil)
	groups := []chartspec.FilterGroup{
		{
			Logic: chartspec.LogicAND,
			Conditions: []chartspec.FilterEntry{
				{Condition: &chartspec.Condition{Field: "site_id", Op: chartspec.OpEquals, Value: "s1"}},
			},
		},
	}
	sql, err := Compile(groups, params)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(sql, "site_id = @site_id_0") {
		t.Fatalf("expected equals clause, got %q", sql)
	}
	if params.Values()["site_id_0"] != "s1" {
		t.Fatalf("expected param site_id_0=s1, got %v", params.Values())
	}
}

func TestCompileCoalescesNullableDemographicFields(t *testing.T) {
	params := NewParamSet(nil)
	groups := []chartspec.FilterGroup{
		{
			Logic: chartspec.LogicAND,
			Conditions: []chartspec.FilterEntry{
				{Condition: &chartspec.Condition{Field: "sex", Op: chartspec.OpEquals, Value: "F"}},
			},
		},
	}
	sql, err := Compile(groups, params)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(sql, "COALESCE(sex, 'Unknown') = @sex_0") {
		t.Fatalf("expected coalesced clause, got %q", sql)
	}
}

func TestCompileNestedGroups(t *testing.T) {
	params := NewParamSet(nil)
	groups := []chartspec.FilterGroup{
		{
			Logic: chartspec.LogicAND,
			Conditions: []chartspec.FilterEntry{
				{Condition: &chartspec.Condition{Field: "site_id", Op: chartspec.OpEquals, Value: "s1"}},
				{Group: &chartspec.FilterGroup{
					Logic: chartspec.LogicOR,
					Conditions: []chartspec.FilterEntry{
						{Condition: &chartspec.Condition{Field: "cam_id", Op: chartspec.OpEquals, Value: "c1"}},
						{Condition: &chartspec.Condition{Field: "cam_id", Op: chartspec.OpEquals, Value: "c2"}},
					},
				}},
			},
		},
	}
	sql, err := Compile(groups, params)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(sql, "AND") || !strings.Contains(sql, "OR") {
		t.Fatalf("expected both AND and OR in nested clause, got %q", sql)
	}
	if params.Values()["cam_id_0"] != "c1" || params.Values()["cam_id_1"] != "c2" {
		t.Fatalf("expected collision-avoided param names, got %v", params.Values())
	}
}

func TestCompileBetweenRequiresTwoValues(t *testing.T) {
	params := NewParamSet(nil)
	groups := []chartspec.FilterGroup{
		{
			Logic: chartspec.LogicAND,
			Conditions: []chartspec.FilterEntry{
				{Condition: &chartspec.Condition{Field: "age", Op: chartspec.OpBetween, Value: []interface{}{18}}},
			},
		},
	}
	if _, err := Compile(groups, params); err == nil {
		t.Fatalf("expected error for between with wrong arity")
	}
}

func TestCompileBetweenAssignsLowerUpperParams(t *testing.T) {
	params := NewParamSet(nil)
	groups := []chartspec.FilterGroup{
		{
			Logic: chartspec.LogicAND,
			Conditions: []chartspec.FilterEntry{
				{Condition: &chartspec.Condition{Field: "age", Op: chartspec.OpBetween, Value: []interface{}{18, 65}}},
			},
		},
	}
	sql, err := Compile(groups, params)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(sql, "age BETWEEN @age_0_lower AND @age_0_upper") {
		t.Fatalf("expected between clause, got %q", sql)
	}
	if params.Values()["age_0_lower"] != 18 || params.Values()["age_0_upper"] != 65 {
		t.Fatalf("expected lower/upper params, got %v", params.Values())
	}
}

func TestParamSetCollisionAvoidance(t *testing.T) {
	p := NewParamSet(nil)
	first := p.Add("site_id", "a")
	second := p.Add("site_id", "b")
	if first == second {
		t.Fatalf("expected distinct param names, got %q twice", first)
	}
}
