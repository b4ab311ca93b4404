package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

// Конфигурация цикла уходит воркеру в партиции как JSONB.
func TestCycleConfig_JSONCarriesValidatedDataset(t *testing.T) {
	cfg := CycleConfig{
		Name:       "FirstCycle",
		Mode:       RunModeDistributed,
		Endpoint:   "amqp://localhost",
		TargetLumi: 6,
		Datasets: []InputDataset{{
			Type:    "ttbar",
			Version: "mc16",
			Lumi:    10,
			Files:   []FileEntry{{Path: "/data/a.cyc", Lumi: 4, Records: 100}},
			Streams: []StreamDescriptor{{
				Name:  "Events",
				Role:  RoleInput | RoleSynchronized,
				Roles: []string{"input", "synchronized"},
			}},
			Predicates:   []SelectionPredicate{{Stream: "Events", Expr: "gt .pt 20.0"}},
			MaxRecords:   20,
			SkipRecords:  80,
			TotalRecords: 100,
			Cacheable:    true,
		}},
		Properties: []Property{{Name: "MinPt", Values: []string{"1500"}}},
		OutputDir:  "/out",
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got CycleConfig
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// Roles — только для YAML, воркер получает разобранный Role.
	want := cfg
	want.Datasets = []InputDataset{cfg.Datasets[0].Clone()}
	want.Datasets[0].Streams[0].Roles = nil

	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
	if !got.Datasets[0].Streams[0].Role.Has(RoleSynchronized) {
		t.Error("expected synchronized role to survive")
	}
}
