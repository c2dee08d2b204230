package decode

import (
	"encoding/json"
	"testing"
)

type samplePayload struct {
	Name    string   `json:"name"`
	Count   int      `json:"count"`
	Targets []string `json:"targets"`
}

func TestDecodeMapUsesJSONTags(t *testing.T) {
	var m map[string]any
	raw := `{"name":"dist","count":4,"targets":["u1","u2"]}`
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	p, err := DecodeMap[samplePayload](m)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Name != "dist" || p.Count != 4 || len(p.Targets) != 2 {
		t.Fatalf("decoded = %+v", p)
	}
}

func TestDecodeMapNarrowsJSONNumbers(t *testing.T) {
	// encoding/json hands numbers over as float64
	p, err := DecodeMap[samplePayload](map[string]any{"count": float64(7)})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Count != 7 {
		t.Fatalf("count = %d", p.Count)
	}
}

func TestDecodeMapNilPayload(t *testing.T) {
	if _, err := DecodeMap[samplePayload](nil); err == nil {
		t.Fatal("nil payload accepted")
	}
}
