package config

import (
	"testing"
	"time"

	"slipway/internal/platform/testkit"
)

func TestPrefixAndKeyComposition(t *testing.T) {
	root := New()
	if got := root.key("FOO"); got != "FOO" {
		t.Fatalf("root key = %q, want FOO", got)
	}

	api := root.Prefix("API_")
	if got := api.key("PORT"); got != "API_PORT" {
		t.Fatalf("api key = %q, want API_PORT", got)
	}

	nested := api.Prefix("PG_")
	if got := nested.key("DBURL"); got != "API_PG_DBURL" {
		t.Fatalf("nested key = %q, want API_PG_DBURL", got)
	}
}

func TestMustString(t *testing.T) {
	t.Setenv("CFG_NAME", "  slipway  ")
	c := New().Prefix("CFG_")

	if got := c.MustString("NAME"); got != "slipway" {
		t.Fatalf("MustString = %q, want slipway", got)
	}

	testkit.MustPanic(t, func() { c.MustString("MISSING") })

	t.Setenv("CFG_BLANK", "   ")
	testkit.MustPanic(t, func() { c.MustString("BLANK") })
}

func TestMustInt(t *testing.T) {
	t.Setenv("CFG_COUNT", "42")
	c := New().Prefix("CFG_")

	if got := c.MustInt("COUNT"); got != 42 {
		t.Fatalf("MustInt = %d, want 42", got)
	}

	testkit.MustPanic(t, func() { c.MustInt("MISSING") })

	t.Setenv("CFG_BAD", "forty-two")
	testkit.MustPanic(t, func() { c.MustInt("BAD") })
}

func TestMustDuration(t *testing.T) {
	t.Setenv("CFG_TIMEOUT", "250ms")
	c := New().Prefix("CFG_")

	if got := c.MustDuration("TIMEOUT"); got != 250*time.Millisecond {
		t.Fatalf("MustDuration = %v, want 250ms", got)
	}

	t.Setenv("CFG_BAD", "soon")
	testkit.MustPanic(t, func() { c.MustDuration("BAD") })
	testkit.MustPanic(t, func() { c.MustDuration("MISSING") })
}

func TestMustPort(t *testing.T) {
	t.Setenv("CFG_PORT", "4600")
	c := New().Prefix("CFG_")

	if got := c.MustPort("PORT"); got != ":4600" {
		t.Fatalf("MustPort = %q, want :4600", got)
	}

	t.Setenv("CFG_ZERO", "0")
	testkit.MustPanic(t, func() { c.MustPort("ZERO") })

	t.Setenv("CFG_HIGH", "70000")
	testkit.MustPanic(t, func() { c.MustPort("HIGH") })

	t.Setenv("CFG_WORDS", "http")
	testkit.MustPanic(t, func() { c.MustPort("WORDS") })
}

func TestRequire(t *testing.T) {
	t.Setenv("CFG_A", "1")
	t.Setenv("CFG_B", "2")
	c := New().Prefix("CFG_")

	c.Require("A", "B")

	testkit.MustPanic(t, func() { c.Require("A", "C") })
}

func TestMayString(t *testing.T) {
	c := New().Prefix("CFG_")

	if got := c.MayString("MISSING", "fallback"); got != "fallback" {
		t.Fatalf("MayString missing = %q", got)
	}

	t.Setenv("CFG_HOST", " search ")
	if got := c.MayString("HOST", "fallback"); got != "search" {
		t.Fatalf("MayString set = %q", got)
	}
}

func TestMayInt(t *testing.T) {
	c := New().Prefix("CFG_")

	if got := c.MayInt("MISSING", 7); got != 7 {
		t.Fatalf("MayInt missing = %d", got)
	}

	t.Setenv("CFG_RETRIES", "3")
	if got := c.MayInt("RETRIES", 7); got != 3 {
		t.Fatalf("MayInt set = %d", got)
	}

	t.Setenv("CFG_BAD", "three")
	if got := c.MayInt("BAD", 7); got != 7 {
		t.Fatalf("MayInt invalid = %d, want default", got)
	}
}

func TestMayBool(t *testing.T) {
	c := New().Prefix("CFG_")

	if got := c.MayBool("MISSING", true); !got {
		t.Fatal("MayBool missing should keep default")
	}

	t.Setenv("CFG_LEASES", "false")
	if got := c.MayBool("LEASES", true); got {
		t.Fatal("MayBool set = true, want false")
	}

	t.Setenv("CFG_BAD", "maybe")
	if got := c.MayBool("BAD", true); !got {
		t.Fatal("MayBool invalid should keep default")
	}
}

func TestMayDuration(t *testing.T) {
	c := New().Prefix("CFG_")

	if got := c.MayDuration("MISSING", time.Minute); got != time.Minute {
		t.Fatalf("MayDuration missing = %v", got)
	}

	t.Setenv("CFG_POLL", "2m")
	if got := c.MayDuration("POLL", time.Minute); got != 2*time.Minute {
		t.Fatalf("MayDuration set = %v", got)
	}

	t.Setenv("CFG_BAD", "later")
	if got := c.MayDuration("BAD", time.Minute); got != time.Minute {
		t.Fatalf("MayDuration invalid = %v, want default", got)
	}
}

func TestMayCSV(t *testing.T) {
	c := New().Prefix("CFG_")
	def := []string{"a"}

	if got := c.MayCSV("MISSING", def); len(got) != 1 || got[0] != "a" {
		t.Fatalf("MayCSV missing = %v", got)
	}

	t.Setenv("CFG_LIST", " one , two ,, three ")
	got := c.MayCSV("LIST", def)
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("MayCSV = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MayCSV[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	t.Setenv("CFG_EMPTYISH", " , , ")
	if got := c.MayCSV("EMPTYISH", def); len(got) != 1 || got[0] != "a" {
		t.Fatalf("MayCSV emptyish = %v, want default", got)
	}
}
