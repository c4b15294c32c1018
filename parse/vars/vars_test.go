package vars

import (
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

type endpoint struct {
	Host string
	Port int
	tag  string
}

func TestResolveWhole(t *testing.T) {
	variables := map[string]any{
		"a":    5,
		"name": "svc",
		"db":   map[string]any{"host": "localhost", "ports": []any{5432, 5433}},
		"list": []string{"x", "y"},
		"ep":   &endpoint{Host: "h", Port: 8080, tag: "hidden"},
		"nil":  nil,
	}

	convey.Convey("a whole-string reference keeps the variable's type", t, func() {
		for _, raw := range []string{"${a}", "$a", "{{a}}", " {{ a }} ", "${ a }"} {
			v, err := Resolve(raw, variables)
			convey.So(err, convey.ShouldBeNil)
			convey.So(v, convey.ShouldEqual, 5)
		}
		v, err := Resolve("${db}", variables)
		convey.So(err, convey.ShouldBeNil)
		convey.So(v, convey.ShouldResemble, variables["db"])
		v, err = Resolve("${nil}", variables)
		convey.So(err, convey.ShouldBeNil)
		convey.So(v, convey.ShouldBeNil)
	})

	convey.Convey("paths walk maps, slices and structs", t, func() {
		v, err := Resolve("$db.host", variables)
		convey.So(err, convey.ShouldBeNil)
		convey.So(v, convey.ShouldEqual, "localhost")
		v, err = Resolve("${db.ports[1]}", variables)
		convey.So(err, convey.ShouldBeNil)
		convey.So(v, convey.ShouldEqual, 5433)
		v, err = Resolve("{{db.ports.0}}", variables)
		convey.So(err, convey.ShouldBeNil)
		convey.So(v, convey.ShouldEqual, 5432)
		v, err = Resolve("${list[0]}", variables)
		convey.So(err, convey.ShouldBeNil)
		convey.So(v, convey.ShouldEqual, "x")
		v, err = Resolve(`${db["host"]}`, variables)
		convey.So(err, convey.ShouldBeNil)
		convey.So(v, convey.ShouldEqual, "localhost")
		v, err = Resolve("${ep.Port}", variables)
		convey.So(err, convey.ShouldBeNil)
		convey.So(v, convey.ShouldEqual, 8080)
		_, err = Resolve("${ep.tag}", variables)
		convey.So(IsUnresolved(err), convey.ShouldBeTrue)
	})
}

func TestResolveStrict(t *testing.T) {
	convey.Convey("missing paths are errors", t, func() {
		v, err := Resolve("${missing.path}", map[string]any{})
		convey.So(v, convey.ShouldBeNil)
		convey.So(err, convey.ShouldNotBeNil)
		uerr, ok := err.(*UnresolvedError)
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(uerr.Path, convey.ShouldEqual, "missing.path")

		_, err = Resolve("${a.b}", map[string]any{"a": 1})
		convey.So(IsUnresolved(err), convey.ShouldBeTrue)
		_, err = Resolve("${list[9]}", map[string]any{"list": []any{1}})
		convey.So(IsUnresolved(err), convey.ShouldBeTrue)
		_, err = Resolve("$x", nil)
		convey.So(IsUnresolved(err), convey.ShouldBeTrue)
	})

	convey.Convey("one missing reference fails the whole interpolation", t, func() {
		_, err := Resolve("${a}-${b}", map[string]any{"a": 1})
		convey.So(err, convey.ShouldNotBeNil)
		convey.So(err.Error(), convey.ShouldEqual, `unresolved variable "b"`)
	})
}

func TestResolvePartial(t *testing.T) {
	variables := map[string]any{
		"a":    5,
		"f":    1.5,
		"ok":   true,
		"obj":  map[string]any{"k": "v"},
		"host": "db.local",
	}

	convey.Convey("mixed content is interpolated into a string", t, func() {
		v, err := Resolve("x=${a}", variables)
		convey.So(err, convey.ShouldBeNil)
		convey.So(v, convey.ShouldEqual, "x=5")

		v, err = Resolve("$host:{{a}} ${f} ${ok}", variables)
		convey.So(err, convey.ShouldBeNil)
		convey.So(v, convey.ShouldEqual, "db.local:5 1.5 true")

		v, err = Resolve("cfg=${obj}", variables)
		convey.So(err, convey.ShouldBeNil)
		convey.So(v, convey.ShouldEqual, `cfg={"k":"v"}`)
	})

	convey.Convey("text without references is returned unchanged", t, func() {
		v, err := Resolve("  plain text ", variables)
		convey.So(err, convey.ShouldBeNil)
		convey.So(v, convey.ShouldEqual, "  plain text ")
		v, err = Resolve("costs 5$", variables)
		convey.So(err, convey.ShouldBeNil)
		convey.So(v, convey.ShouldEqual, "costs 5$")
	})

	convey.Convey("array literals resolve element by element", t, func() {
		v, err := Resolve("[${a}, two, ${host}]", variables)
		convey.So(err, convey.ShouldBeNil)
		convey.So(v, convey.ShouldResemble, []any{5, "two", "db.local"})
	})
}

func TestResolveFunc(t *testing.T) {
	variables := map[string]any{"s": "42", "n": 7}
	upper := func(s string) any { return strings.ToUpper(strings.TrimSpace(s)) }

	convey.Convey("literal only sees text without references", t, func() {
		v, err := ResolveFunc(" plain ", variables, upper)
		convey.So(err, convey.ShouldBeNil)
		convey.So(v, convey.ShouldEqual, "PLAIN")

		v, err = ResolveFunc("${s}", variables, upper)
		convey.So(err, convey.ShouldBeNil)
		convey.So(v, convey.ShouldEqual, "42")

		v, err = ResolveFunc("id-${n}", variables, upper)
		convey.So(err, convey.ShouldBeNil)
		convey.So(v, convey.ShouldEqual, "id-7")

		v, err = ResolveFunc("[a, $s, [b]]", variables, upper)
		convey.So(err, convey.ShouldBeNil)
		convey.So(v, convey.ShouldResemble, []any{"A", "42", []any{"B"}})
	})
}

func TestStringify(t *testing.T) {
	convey.Convey("stringify", t, func() {
		convey.So(Stringify(nil), convey.ShouldEqual, "null")
		convey.So(Stringify(int64(12)), convey.ShouldEqual, "12")
		convey.So(Stringify(1000000.0), convey.ShouldEqual, "1000000")
		convey.So(Stringify([]any{1, "a"}), convey.ShouldEqual, `[1,"a"]`)
	})
}
