package format

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/smartystreets/goconvey/convey"

	"github.com/dzjyyds666/mixconf/parse/toml"
	"github.com/dzjyyds666/mixconf/parse/vars"
	"github.com/dzjyyds666/mixconf/pkg/logx"
)

func TestResolveValue(t *testing.T) {
	variables := map[string]any{"port": "8080", "code": "007", "flag": "true", "hosts": []any{"a", "b"}, "n": 3}

	convey.Convey("ResolveValue", t, func() {
		convey.Convey("infers plain strings", func() {
			v, err := ResolveValue("42", nil)
			convey.So(err, convey.ShouldBeNil)
			convey.So(v, convey.ShouldEqual, int64(42))
		})

		convey.Convey("keeps the string a reference resolves to", func() {
			v, err := ResolveValue("${port}", variables)
			convey.So(err, convey.ShouldBeNil)
			convey.So(v, convey.ShouldEqual, "8080")
			v, err = ResolveValue("{{code}}", variables)
			convey.So(err, convey.ShouldBeNil)
			convey.So(v, convey.ShouldEqual, "007")
			v, err = ResolveValue("$flag", variables)
			convey.So(err, convey.ShouldBeNil)
			convey.So(v, convey.ShouldEqual, "true")
		})

		convey.Convey("interpolated text stays a string", func() {
			v, err := ResolveValue("${port}0", variables)
			convey.So(err, convey.ShouldBeNil)
			convey.So(v, convey.ShouldEqual, "80800")
		})

		convey.Convey("keeps non-string variables as they are", func() {
			v, err := ResolveValue("${hosts}", variables)
			convey.So(err, convey.ShouldBeNil)
			convey.So(v, convey.ShouldResemble, []any{"a", "b"})
			v, err = ResolveValue("$n", variables)
			convey.So(err, convey.ShouldBeNil)
			convey.So(v, convey.ShouldEqual, 3)
		})

		convey.Convey("infers array literal elements", func() {
			v, err := ResolveValue(`[1, "two", ${n}, [true], undefined, ${code}]`, variables)
			convey.So(err, convey.ShouldBeNil)
			convey.So(v, convey.ShouldResemble, []any{int64(1), "two", 3, []any{true}, nil, "007"})
		})
	})
}

func TestParseProperties(t *testing.T) {
	convey.Convey("properties", t, func() {
		convey.Convey("simple pairs are typed", func() {
			res, err := ParseProperties("name=foo\nage=30\n", Options{})
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Data, convey.ShouldResemble, map[string]any{"name": "foo", "age": int64(30)})
			convey.So(res.Warnings, convey.ShouldBeEmpty)
		})

		convey.Convey("key[] appends to one list", func() {
			res, err := ParseProperties("list[]=a\nlist[]=b\nnested.items[]=1\n", Options{})
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Data, convey.ShouldResemble, map[string]any{
				"list":   []any{"a", "b"},
				"nested": map[string]any{"items": []any{int64(1)}},
			})
		})

		convey.Convey("dotted keys nest and later values win", func() {
			res, err := ParseProperties("db.host = localhost\ndb.port = 5432\ndb.host = remote\nurl = http://x:80/a=b\n", Options{})
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Data, convey.ShouldResemble, map[string]any{
				"db":  map[string]any{"host": "remote", "port": int64(5432)},
				"url": "http://x:80/a=b",
			})
		})

		convey.Convey("keys with empty segments are stored as written", func() {
			res, err := ParseProperties("a..b=1\n=x\n.c[]=2\nd.e=3\n", Options{})
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Warnings, convey.ShouldBeEmpty)
			convey.So(res.Data, convey.ShouldResemble, map[string]any{
				"a..b": int64(1),
				"":     "x",
				".c":   []any{int64(2)},
				"d":    map[string]any{"e": int64(3)},
			})
		})

		convey.Convey("indented lines continue the value", func() {
			res, err := ParseProperties("motd = hello\n  world\n\tagain\nnext = 1\n", Options{})
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Data["motd"], convey.ShouldEqual, "hello\nworld\nagain")
			convey.So(res.Data["next"], convey.ShouldEqual, int64(1))
		})

		convey.Convey("lines without '=' become warnings with absolute numbers", func() {
			var buf bytes.Buffer
			opts := Options{FirstLine: 10, Logger: logx.NewZerolog(zerolog.New(&buf))}
			res, err := ParseProperties("a=1\njunk line\n# comment\nstill junk\nb=2", opts)
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Data, convey.ShouldResemble, map[string]any{"a": int64(1), "b": int64(2)})
			convey.So(res.Warnings, convey.ShouldResemble, []string{"Invalid line 11: junk line", "Invalid line 13: still junk"})
			convey.So(buf.String(), convey.ShouldContainSubstring, "Invalid line 11: junk line")
		})

		convey.Convey("variables are resolved and undefined values skipped", func() {
			res, err := ParseProperties("url=http://${host}:${port}\nport=${port}\ngone=undefined\nnone=null", Options{
				Variables: map[string]any{"host": "db", "port": 5432},
			})
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Data, convey.ShouldResemble, map[string]any{
				"url":  "http://db:5432",
				"port": 5432,
				"none": nil,
			})
		})

		convey.Convey("a missing variable fails the parse", func() {
			_, err := ParseProperties("a=1\nb=${nope}", Options{})
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(vars.IsUnresolved(err), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "line 2")
		})
	})
}

func TestParseTOML(t *testing.T) {
	convey.Convey("toml", t, func() {
		convey.Convey("tables and leaves are post-processed", func() {
			src := `
title = "42"
bare = hello
[server]
host = "${host}"
ports = [8001, "${port}"]
enabled = true
`
			res, err := ParseTOML(src, Options{Variables: map[string]any{"host": "example.org", "port": "8002"}})
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Data, convey.ShouldResemble, map[string]any{
				"title": int64(42),
				"bare":  "hello",
				"server": map[string]any{
					"host":    "example.org",
					"ports":   []any{int64(8001), "8002"},
					"enabled": true,
				},
			})
			convey.So(res.Warnings, convey.ShouldBeEmpty)
		})

		convey.Convey("syntax errors carry document line numbers", func() {
			_, err := ParseTOML("a = 1\nnot toml", Options{FirstLine: 5})
			serr, ok := err.(*toml.SyntaxError)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(serr.Line, convey.ShouldEqual, 6)
		})

		convey.Convey("unresolved variables are errors", func() {
			_, err := ParseTOML(`a = "${x}"`, Options{})
			convey.So(vars.IsUnresolved(err), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldEqual, `key "a": unresolved variable "x"`)
		})
	})
}

func TestParseYAML(t *testing.T) {
	convey.Convey("yaml", t, func() {
		convey.Convey("nested mappings with typed leaves", func() {
			res, err := ParseYAML("db:\n  host: localhost\n  port: 5432\n", Options{})
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Data, convey.ShouldResemble, map[string]any{
				"db": map[string]any{"host": "localhost", "port": int64(5432)},
			})
		})

		convey.Convey("quoted scalars and lists go through inference", func() {
			res, err := ParseYAML("version: \"7\"\nitems:\n  - a\n  - ${x}\n  - 2.5\n", Options{Variables: map[string]any{"x": true}})
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Data, convey.ShouldResemble, map[string]any{
				"version": int64(7),
				"items":   []any{"a", true, 2.5},
			})
		})

		convey.Convey("empty text is an empty document", func() {
			res, err := ParseYAML("# nothing\n", Options{})
			convey.So(err, convey.ShouldBeNil)
			convey.So(res.Data, convey.ShouldBeEmpty)
		})

		convey.Convey("a top-level list is rejected", func() {
			_, err := ParseYAML("- a\n- b\n", Options{})
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "not a mapping")
		})

		convey.Convey("malformed yaml is rejected", func() {
			_, err := ParseYAML("a: [1, 2\n", Options{})
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
