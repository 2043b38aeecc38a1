package main

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/rapport/internal/backfill"
)

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)

	got, err := parseDate("2024-03-01", loc)
	if err != nil {
		t.Fatalf("parseDate failed: %v", err)
	}
	if !got.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, loc)) {
		t.Errorf("got %v", got)
	}

	if got, err := parseDate("", loc); err != nil || !got.IsZero() {
		t.Errorf("empty date = %v, %v", got, err)
	}
	if _, err := parseDate("03/01/2024", loc); err == nil {
		t.Error("expected error for wrong layout")
	}
}

func TestImportFlags_Apply(t *testing.T) {
	owner := uuid.New()
	rel := uuid.New()

	tests := []struct {
		name     string
		flags    importFlags
		required bool
		wantErr  bool
	}{
		{"owner required", importFlags{}, true, true},
		{"owner optional", importFlags{}, false, false},
		{"bad owner", importFlags{owner: "x"}, false, true},
		{"bad relationship", importFlags{owner: owner.String(), relationship: "x"}, true, true},
		{"valid", importFlags{owner: owner.String(), relationship: rel.String(), format: "whatsapp", minMessages: 3}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg backfill.Config
			err := tt.flags.apply(&cfg, tt.required)
			if (err != nil) != tt.wantErr {
				t.Fatalf("apply() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.name == "valid" {
				if cfg.OwnerUUID != owner || cfg.RelationshipID != rel {
					t.Error("expected ids to be applied")
				}
				if cfg.FormatHint != "whatsapp" || cfg.MinMessages != 3 {
					t.Errorf("unexpected config %+v", cfg)
				}
			}
		})
	}
}
