package indexer

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewSplitter(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
		wantErr       bool
	}{
		{"defaults", DefaultChunkSize, DefaultChunkOverlap, false},
		{"no overlap", 10, 0, false},
		{"zero size", 0, 0, true},
		{"negative overlap", 10, -1, true},
		{"overlap equals size", 10, 10, true},
		{"overlap exceeds size", 10, 20, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSplitter(tt.size, tt.overlap)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSplitter(%d, %d) error = %v, wantErr %v", tt.size, tt.overlap, err, tt.wantErr)
			}
			if err == nil && (s.Size() != tt.size || s.Overlap() != tt.overlap) {
				t.Errorf("Size/Overlap = %d/%d", s.Size(), s.Overlap())
			}
		})
	}
}

func mustSplitter(t *testing.T, size, overlap int) *Splitter {
	t.Helper()
	s, err := NewSplitter(size, overlap)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	return s
}

func TestSplitter_SmallInputs(t *testing.T) {
	s := mustSplitter(t, DefaultChunkSize, DefaultChunkOverlap)

	if got := s.Split(""); got != nil {
		t.Errorf("Split(\"\") = %v, want nil", got)
	}
	if got := s.Split("   \n  "); len(got) != 0 {
		t.Errorf("Split(whitespace) = %v, want none", got)
	}

	got := s.Split("Hello world")
	if len(got) != 1 || got[0].Text != "Hello world" || got[0].Offset != 0 {
		t.Errorf("Split(\"Hello world\") = %+v, want one segment at 0", got)
	}
}

func TestSplitter_HardCut(t *testing.T) {
	s := mustSplitter(t, 100, 10)
	got := s.Split(strings.Repeat("a", 250))

	wantOffsets := []int{0, 90, 180}
	wantLens := []int{100, 100, 70}
	if len(got) != len(wantOffsets) {
		t.Fatalf("got %d segments, want %d", len(got), len(wantOffsets))
	}
	for i, seg := range got {
		if seg.Offset != wantOffsets[i] {
			t.Errorf("segment %d offset = %d, want %d", i, seg.Offset, wantOffsets[i])
		}
		if n := utf8.RuneCountInString(seg.Text); n != wantLens[i] {
			t.Errorf("segment %d length = %d, want %d", i, n, wantLens[i])
		}
	}
}

func TestSplitter_Windows(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("Sentence number ")
		b.WriteString(strings.Repeat("x", i%7+1))
		b.WriteString(" is right here. ")
		if i%9 == 8 {
			b.WriteString("\n\n")
		}
	}
	text := strings.TrimSpace(b.String())
	runes := []rune(text)

	tests := []struct {
		name          string
		size, overlap int
	}{
		{"small windows", 120, 30},
		{"no overlap", 200, 0},
		{"defaults", DefaultChunkSize, DefaultChunkOverlap},
		{"unicode safe", 75, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs := mustSplitter(t, tt.size, tt.overlap).Split(text)
			if len(segs) == 0 {
				t.Fatal("Split() returned no segments")
			}
			if segs[0].Offset != 0 {
				t.Errorf("first offset = %d, want 0", segs[0].Offset)
			}

			for i, seg := range segs {
				n := utf8.RuneCountInString(seg.Text)
				if n > tt.size {
					t.Errorf("segment %d has %d runes, max %d", i, n, tt.size)
				}
				if string(runes[seg.Offset:seg.Offset+n]) != seg.Text {
					t.Errorf("segment %d text does not match source at offset %d", i, seg.Offset)
				}
				if i == 0 {
					continue
				}
				prev := segs[i-1]
				prevEnd := prev.Offset + utf8.RuneCountInString(prev.Text)
				if seg.Offset <= prev.Offset {
					t.Errorf("segment %d offset %d not after %d", i, seg.Offset, prev.Offset)
				}
				if tt.overlap > 0 && seg.Offset >= prevEnd {
					t.Errorf("segment %d starts at %d, no overlap with previous ending at %d", i, seg.Offset, prevEnd)
				}
				if seg.Offset > prevEnd && strings.TrimSpace(string(runes[prevEnd:seg.Offset])) != "" {
					t.Errorf("text between segment %d and %d was dropped", i-1, i)
				}
			}

			last := segs[len(segs)-1]
			if last.Offset+utf8.RuneCountInString(last.Text) != len(runes) {
				t.Error("last segment does not reach the end of the text")
			}
		})
	}
}

func TestSplitter_PrefersSentenceBoundary(t *testing.T) {
	s := mustSplitter(t, 40, 5)
	segs := s.Split("The first sentence is here. The second one follows it closely.")
	if len(segs) < 2 {
		t.Fatalf("got %d segments, want at least 2", len(segs))
	}
	if segs[0].Text != "The first sentence is here." {
		t.Errorf("first segment = %q, want it to end at the sentence", segs[0].Text)
	}
}

func TestSplitter_Unicode(t *testing.T) {
	s := mustSplitter(t, 10, 2)
	text := strings.Repeat("héllo wörld ", 5)
	for i, seg := range s.Split(text) {
		if !utf8.ValidString(seg.Text) {
			t.Errorf("segment %d is not valid UTF-8", i)
		}
		if utf8.RuneCountInString(seg.Text) > 10 {
			t.Errorf("segment %d exceeds size: %q", i, seg.Text)
		}
	}
}
