package candidates

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ziadkadry99/scene-clarify/internal/scene"
)

func objectsScene() *scene.Scene {
	return &scene.Scene{
		Objects: []scene.Object{
			{ID: "o1", Name: "mug", Location: "left", Confidence: 0.4},
			{ID: "o2", Name: "bottle", Location: "top-left", Attributes: []string{"transparent", "blue cap", "tall"}, VisibleText: []string{"Coke", "Zero"}, Confidence: 0.9},
			{ID: "o3", Name: "bottle", Location: "right-middle", Confidence: 0.9},
			{ID: "o4", Name: "plate", Location: "center", Confidence: 0.7},
		},
	}
}

func TestSelectFallsBackToConfidence(t *testing.T) {
	s := objectsScene()

	tests := []struct {
		limit int
		want  []string
	}{
		{0, nil},
		{1, []string{"o2"}},
		{3, []string{"o2", "o3", "o4"}},
		{10, []string{"o2", "o3", "o4", "o1"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit=%d", tt.limit), func(t *testing.T) {
			picks := Select(s, tt.limit)
			var got []string
			for _, p := range picks {
				if p.Kind != scene.PickObject {
					t.Errorf("fallback picks must be objects, got %q", p.Kind)
				}
				got = append(got, p.Ref)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Select mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelectConfidenceOrderProperty(t *testing.T) {
	s := objectsScene()
	for k := 0; k <= len(s.Objects)+2; k++ {
		picks := Select(s, k)
		want := k
		if want > len(s.Objects) {
			want = len(s.Objects)
		}
		if len(picks) != want {
			t.Fatalf("Select(k=%d) returned %d picks, want %d", k, len(picks), want)
		}
		prev := 2.0
		for _, p := range picks {
			o, _ := s.Object(p.Ref)
			if o.Confidence > prev {
				t.Fatalf("Select(k=%d) not ordered by non-increasing confidence", k)
			}
			prev = o.Confidence
		}
	}
}

func TestSelectPrefersExplicitCandidates(t *testing.T) {
	s := objectsScene()
	s.Groups = []scene.Group{{Name: "left cluster", ObjectIDs: []string{"o1", "o2"}, SpatialSummary: "items on the left"}}
	s.Candidates = []scene.AmbiguityCandidate{
		{Type: scene.PickObject, Ref: "o1"},
		{Type: scene.PickGroup, Ref: "left cluster"},
		{Type: scene.PickObject, Ref: "o4"},
	}

	got := Select(s, 2)
	want := []scene.Pick{
		{Kind: scene.PickObject, Ref: "o1"},
		{Kind: scene.PickGroup, Ref: "left cluster"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Select mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectNilScene(t *testing.T) {
	if picks := Select(nil, 5); picks != nil {
		t.Errorf("expected nil picks, got %v", picks)
	}
}

func TestLabel(t *testing.T) {
	s := objectsScene()
	s.Groups = []scene.Group{{Name: "left cluster", SpatialSummary: "items on the left"}}

	tests := []struct {
		pick scene.Pick
		want string
	}{
		{scene.Pick{Kind: scene.PickObject, Ref: "o1"}, "mug (left)"},
		{scene.Pick{Kind: scene.PickObject, Ref: "o2"}, "bottle (top-left; transparent, blue cap; text: Coke)"},
		{scene.Pick{Kind: scene.PickGroup, Ref: "left cluster"}, "left cluster (items on the left)"},
		{scene.Pick{Kind: scene.PickObject, Ref: "o42"}, "o42"},
		{scene.Pick{Kind: scene.PickGroup, Ref: "nowhere"}, "nowhere"},
	}
	for _, tt := range tests {
		if got := Label(s, tt.pick); got != tt.want {
			t.Errorf("Label(%+v) = %q, want %q", tt.pick, got, tt.want)
		}
	}
}

func TestOptions(t *testing.T) {
	s := objectsScene()
	opts := Options(s, Select(s, 2))
	if len(opts) != 2 {
		t.Fatalf("expected 2 options, got %d", len(opts))
	}
	if opts[0].ID != "opt1" || opts[1].ID != "opt2" {
		t.Errorf("unexpected option ids %q, %q", opts[0].ID, opts[1].ID)
	}
	if opts[1].Label != "bottle (right-middle)" {
		t.Errorf("unexpected label %q", opts[1].Label)
	}
}

func TestResolve(t *testing.T) {
	s := objectsScene()
	s.Groups = []scene.Group{{Name: "left cluster", SpatialSummary: "items on the left"}}
	picks := []scene.Pick{
		{Kind: scene.PickObject, Ref: "o1"},
		{Kind: scene.PickObject, Ref: "o2"},
		{Kind: scene.PickObject, Ref: "o3"},
		{Kind: scene.PickGroup, Ref: "left cluster"},
	}

	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"unique name", "Tell me more about the mug.", "o1", true},
		{"plural name", "the mugs", "o1", true},
		{"id", "o3 please", "o3", true},
		{"location breaks tie", "the bottle on the left", "o2", true},
		{"location breaks tie right", "bottle, right side", "o3", true},
		{"ambiguous name", "the bottle", "", false},
		{"group", "what's in the left cluster?", "left cluster", true},
		{"nothing", "the window", "", false},
		{"empty", "   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(s, picks, tt.text)
			if ok != tt.wantOK {
				t.Fatalf("Resolve(%q) ok = %v, want %v (got %+v)", tt.text, ok, tt.wantOK, got)
			}
			if ok && got.Ref != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.text, got.Ref, tt.want)
			}
		})
	}
}

func TestMentions(t *testing.T) {
	tests := []struct {
		text, term string
		want       bool
	}{
		{"How many apples are there?", "apple", true},
		{"count the boxes", "box", true},
		{"the pineapple", "apple", false},
		{"the blue cap bottle", "blue cap", true},
		{"", "apple", false},
		{"apple", "", false},
	}
	for _, tt := range tests {
		if got := Mentions(tt.text, tt.term); got != tt.want {
			t.Errorf("Mentions(%q, %q) = %v, want %v", tt.text, tt.term, got, tt.want)
		}
	}
}
