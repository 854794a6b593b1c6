package export

import (
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildUpsert(t *testing.T) {
	oid := primitive.NewObjectID()
	row := map[string]any{
		"_id":    oid,
		"title":  "Retrain operators",
		"status": "open",
	}
	mapping := map[string]string{
		"id":     "id",
		"title":  "title",
		"status": "status",
	}

	query, args := buildUpsert("capas", mapping, row)
	want := "INSERT INTO capas (id, status, title) VALUES ($1, $2, $3) ON CONFLICT (id) DO UPDATE SET status = $2, title = $3"
	if query != want {
		t.Errorf("query = %q, want %q", query, want)
	}
	if len(args) != 3 {
		t.Fatalf("args length = %d, want 3", len(args))
	}
	if args[0] != oid.Hex() {
		t.Errorf("id arg = %v, want hex string %s", args[0], oid.Hex())
	}
	if args[1] != "open" || args[2] != "Retrain operators" {
		t.Errorf("unexpected args %v", args)
	}
}

func TestBuildUpsertEmptyMapping(t *testing.T) {
	query, args := buildUpsert("capas", map[string]string{}, map[string]any{"a": 1})
	if query != "" || args != nil {
		t.Errorf("expected empty statement, got %q / %v", query, args)
	}
}

func TestBuildUpsertMissingField(t *testing.T) {
	query, args := buildUpsert("events", map[string]string{"severity": "severity"}, map[string]any{"title": "x"})
	if !strings.Contains(query, "severity") {
		t.Errorf("query = %q", query)
	}
	if len(args) != 1 || args[0] != nil {
		t.Errorf("missing field should yield nil arg, got %v", args)
	}
}

func TestValidateSetting(t *testing.T) {
	valid := func() *ExportSetting {
		return &ExportSetting{
			Name: "warehouse",
			Collections: []CollectionMapping{{
				Collection: "capas",
				Table:      "capas",
				Mapping:    map[string]string{"id": "id", "title": "title"},
			}},
			Warehouse: map[string]string{"host": "wh", "port": "5432", "database": "qms"},
		}
	}

	cases := []struct {
		name   string
		mutate func(*ExportSetting)
		ok     bool
	}{
		{"valid", func(*ExportSetting) {}, true},
		{"missing name", func(s *ExportSetting) { s.Name = "" }, false},
		{"no collections", func(s *ExportSetting) { s.Collections = nil }, false},
		{"empty mapping", func(s *ExportSetting) { s.Collections[0].Mapping = nil }, false},
		{"missing table", func(s *ExportSetting) { s.Collections[0].Table = "" }, false},
		{"missing warehouse host", func(s *ExportSetting) { delete(s.Warehouse, "host") }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setting := valid()
			tc.mutate(setting)
			err := validateSetting(setting)
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
