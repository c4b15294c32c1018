package logx

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/smartystreets/goconvey/convey"
)

func TestZerologAdapter(t *testing.T) {
	convey.Convey("zerolog adapter", t, func() {
		var buf bytes.Buffer
		l := NewZerolog(zerolog.New(&buf).Level(zerolog.DebugLevel))

		convey.Convey("writes key/value pairs as fields", func() {
			l.Warn("section failed", "start", 3, "format", "yaml")
			out := buf.String()
			convey.So(out, convey.ShouldContainSubstring, `"level":"warn"`)
			convey.So(out, convey.ShouldContainSubstring, `"start":3`)
			convey.So(out, convey.ShouldContainSubstring, `"format":"yaml"`)
			convey.So(out, convey.ShouldContainSubstring, `"message":"section failed"`)
		})

		convey.Convey("renders errors and pads odd pairs", func() {
			l.Error("boom", "err", errors.New("bad"), "dangling")
			out := buf.String()
			convey.So(out, convey.ShouldContainSubstring, `"err":"bad"`)
			convey.So(out, convey.ShouldContainSubstring, `"dangling":"!MISSING"`)
		})

		convey.Convey("respects the level", func() {
			quiet := NewZerolog(zerolog.New(&buf).Level(zerolog.WarnLevel))
			quiet.Debug("hidden")
			convey.So(buf.Len(), convey.ShouldEqual, 0)
		})
	})
}

func TestNilLogger(t *testing.T) {
	convey.Convey("helpers accept a nil logger", t, func() {
		convey.So(func() {
			Debug(nil, "a")
			Warn(nil, "b", "k", 1)
			Error(nil, "c")
		}, convey.ShouldNotPanic)
	})
}
