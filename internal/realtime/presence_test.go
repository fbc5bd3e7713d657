package realtime

import (
	"reflect"
	"testing"
)

func TestPresence(t *testing.T) {
	p := NewPresence()

	if got := p.Start("g1", 3); !reflect.DeepEqual(got, []uint{3}) {
		t.Fatalf("start = %v", got)
	}
	p.Start("g1", 1)
	p.Start("g2", 3)
	if got := p.Typing("g1"); !reflect.DeepEqual(got, []uint{1, 3}) {
		t.Fatalf("typing g1 = %v, want [1 3]", got)
	}

	if got := p.Stop("g1", 1); !reflect.DeepEqual(got, []uint{3}) {
		t.Fatalf("stop = %v, want [3]", got)
	}
	if got := p.Stop("missing", 1); len(got) != 0 {
		t.Fatalf("stop on unknown group = %v", got)
	}

	p.Start("g3", 3)
	changed := p.Forget(3, []string{"g1", "g2", "missing"})
	want := map[string][]uint{"g1": {}, "g2": {}}
	if !reflect.DeepEqual(changed, want) {
		t.Fatalf("forget = %v, want %v", changed, want)
	}
	if got := p.Typing("g1"); len(got) != 0 {
		t.Fatalf("typing after forget = %v", got)
	}
	if got := p.Typing("g3"); !reflect.DeepEqual(got, []uint{3}) {
		t.Fatalf("forget touched an unlisted group: %v", got)
	}
}
