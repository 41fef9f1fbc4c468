package envutil

import (
	"reflect"
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("FLEET_TEST_INT", "abc")
	if got := Int("FLEET_TEST_INT", 7); got != 7 {
		t.Fatalf("want=7 got=%d", got)
	}
	t.Setenv("FLEET_TEST_INT", " 12 ")
	if got := Int("FLEET_TEST_INT", 7); got != 12 {
		t.Fatalf("want=12 got=%d", got)
	}
}

func TestBool(t *testing.T) {
	cases := map[string]bool{"yes": true, "OFF": false, "": true, "maybe": true}
	for raw, want := range cases {
		t.Setenv("FLEET_TEST_BOOL", raw)
		if got := Bool("FLEET_TEST_BOOL", true); got != want {
			t.Fatalf("%q: want=%v got=%v", raw, want, got)
		}
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("FLEET_TEST_DUR", "15")
	if got := Duration("FLEET_TEST_DUR", time.Second); got != 15*time.Second {
		t.Fatalf("seconds form: got=%v", got)
	}
	t.Setenv("FLEET_TEST_DUR", "250ms")
	if got := Duration("FLEET_TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("duration form: got=%v", got)
	}
}

func TestList(t *testing.T) {
	t.Setenv("FLEET_TEST_LIST", "a, b,,c ")
	if got := List("FLEET_TEST_LIST", nil); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("got %v", got)
	}
}

func TestFloat(t *testing.T) {
	t.Setenv("FLEET_TEST_FLOAT", "0.25")
	if got := Float("FLEET_TEST_FLOAT", 1); got != 0.25 {
		t.Fatalf("want=0.25 got=%v", got)
	}
	t.Setenv("FLEET_TEST_FLOAT", "half")
	if got := Float("FLEET_TEST_FLOAT", 1); got != 1 {
		t.Fatalf("want default got=%v", got)
	}
}

func TestMap(t *testing.T) {
	t.Setenv("FLEET_TEST_MAP", "x-api-key=abc, bad, =empty,tenant=fleet")
	got := Map("FLEET_TEST_MAP", nil)
	if !reflect.DeepEqual(got, map[string]string{"x-api-key": "abc", "tenant": "fleet"}) {
		t.Fatalf("got %v", got)
	}
	t.Setenv("FLEET_TEST_MAP", "bad")
	if got := Map("FLEET_TEST_MAP", map[string]string{"a": "b"}); got["a"] != "b" {
		t.Fatalf("want default got %v", got)
	}
}
