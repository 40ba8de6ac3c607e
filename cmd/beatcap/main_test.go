package main

import (
	"testing"

	"github.com/petems/beatcap/internal/config"
)

func TestApplyLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		want    string
		wantErr bool
	}{
		{name: "unset keeps config", level: "", want: "info"},
		{name: "override", level: "debug", want: "debug"},
		{name: "alias", level: "warning", want: "warning"},
		{name: "unknown level rejected", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			err := applyLogLevel(cfg, tt.level)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.LogLevel != tt.want {
				t.Errorf("expected level %q, got %q", tt.want, cfg.LogLevel)
			}
		})
	}
}
