package document

import "testing"

func TestID_Deterministic(t *testing.T) {
	a := ID("a.txt", "finance", 0)
	b := ID("a.txt", "finance", 0)
	if a != b {
		t.Fatalf("expected identical ids, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestID_Distinct(t *testing.T) {
	base := ID("a.txt", "finance", 0)
	variants := map[string]string{
		"filename":   ID("b.txt", "finance", 0),
		"category":   ID("a.txt", "legal", 0),
		"chunkIndex": ID("a.txt", "finance", 1),
		"boundary":   ID("a.txt|finance", "", 0),
	}
	for name, id := range variants {
		if id == base {
			t.Fatalf("%s change did not change the id", name)
		}
	}
}

func TestChunk_ID(t *testing.T) {
	c := Chunk{Filename: "a.txt", Category: "finance/2024", Index: 3}
	if c.ID() != ID("a.txt", "finance/2024", 3) {
		t.Fatalf("chunk id mismatch")
	}
}

func TestKey(t *testing.T) {
	if got := Key("finance/", "a.txt"); got != "finance/a.txt" {
		t.Fatalf("unexpected key %s", got)
	}
	if got := Key("", "a.txt"); got != "a.txt" {
		t.Fatalf("unexpected key %s", got)
	}
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint([]byte("hello"))
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	b, _ := Fingerprint([]byte("hello"))
	c, _ := Fingerprint([]byte("hello!"))
	if a != b {
		t.Fatalf("expected stable fingerprint")
	}
	if a == c {
		t.Fatalf("expected different fingerprint for different content")
	}
	if Checksum("hello") == "" {
		t.Fatalf("expected checksum")
	}
}
