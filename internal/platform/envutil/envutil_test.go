package envutil

import (
	"reflect"
	"testing"
	"time"
)

func TestReaders(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "42")
	t.Setenv("ENVUTIL_BAD_INT", "x")
	t.Setenv("ENVUTIL_BOOL", "yes")
	t.Setenv("ENVUTIL_SECS", "15")
	t.Setenv("ENVUTIL_LIST", " a, ,b ,c")

	if got := Int("ENVUTIL_INT", 1); got != 42 {
		t.Fatalf("Int: got=%d want=42", got)
	}
	if got := Int("ENVUTIL_BAD_INT", 7); got != 7 {
		t.Fatalf("Int fallback: got=%d want=7", got)
	}
	if !Bool("ENVUTIL_BOOL", false) {
		t.Fatalf("Bool: want true")
	}
	if got := Seconds("ENVUTIL_SECS", time.Second); got != 15*time.Second {
		t.Fatalf("Seconds: got=%s", got)
	}
	if got := List("ENVUTIL_LIST", nil); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("List: got=%v", got)
	}
	if got := String("ENVUTIL_MISSING", "def"); got != "def" {
		t.Fatalf("String: got=%q", got)
	}
}
