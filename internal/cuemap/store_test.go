package cuemap

import "testing"

func TestStorePutGetDelete(t *testing.T) {
	st := NewStore()
	rec := NewRecord("hello world", []string{"go"}, 1000)
	st.Put(rec)

	got := st.Get(rec.ID)
	if got == nil || got.ID != rec.ID {
		t.Fatalf("expected to retrieve stored record, got %v", got)
	}
	if st.Get("missing") != nil {
		t.Error("expected nil for unknown id")
	}

	deleted := st.Delete(rec.ID)
	if deleted == nil || deleted.ID != rec.ID {
		t.Errorf("expected Delete to return the removed record")
	}
	if st.Get(rec.ID) != nil {
		t.Error("expected record gone after delete")
	}
}

func TestStoreLenAndAll(t *testing.T) {
	st := NewStore()
	for i := 0; i < 5; i++ {
		st.Put(NewRecord("content", []string{"cue"}, int64(i)))
	}
	if got := st.Len(); got != 5 {
		t.Errorf("expected 5 records, got %d", got)
	}
	if got := len(st.All()); got != 5 {
		t.Errorf("expected All() to return 5 records, got %d", got)
	}
}

func TestNormalizeCue(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantOK  bool
	}{
		{"  Go  ", "go", true},
		{"Machine Learning", "machinelearning", true},
		{"", "", false},
		{"   ", "", false},
		{"service:payment", "service:payment", true},
	}
	for _, c := range cases {
		got, ok := NormalizeCue(c.in)
		if ok != c.wantOK || got != c.want {
			t.Errorf("NormalizeCue(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.wantOK)
		}
	}
}
