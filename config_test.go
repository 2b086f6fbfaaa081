package srpc

import "testing"

func TestDefaultConfigMatchesProtocolConstants(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Attempts != 7 {
		t.Errorf("Attempts = %d, want 7", cfg.Attempts)
	}
	if cfg.InitialTicks != 2 {
		t.Errorf("InitialTicks = %d, want 2", cfg.InitialTicks)
	}
	if cfg.FragmentSize != 1024 {
		t.Errorf("FragmentSize = %d, want 1024", cfg.FragmentSize)
	}
	if cfg.SeqnoLimit != 1_000_000_000 {
		t.Errorf("SeqnoLimit = %d, want 1e9", cfg.SeqnoLimit)
	}
}

func TestConfigYAMLRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Attempts = 5

	data, err := cfg.ToYAML()
	if err != nil {
		t.Fatalf("ToYAML: %v", err)
	}
	got, err := LoadConfigYAML(data)
	if err != nil {
		t.Fatalf("LoadConfigYAML: %v", err)
	}
	if got.Attempts != 5 {
		t.Errorf("round-tripped Attempts = %d, want 5", got.Attempts)
	}
	if got.FragmentSize != cfg.FragmentSize {
		t.Errorf("round-tripped FragmentSize = %d, want %d", got.FragmentSize, cfg.FragmentSize)
	}
}
