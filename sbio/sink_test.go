package sbio

import (
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/katanacrimson/SBAsset6/errs"
)

func TestMemSink(t *testing.T) {
	t.Parallel()

	Convey("MemSink", t, func() {
		s := NewMemSink()

		Convey("Write tracks position", func() {
			pos, err := s.Write([]byte("hello"))
			So(err, ShouldBeNil)
			So(pos, ShouldEqual, 5)
			pos, err = s.Write([]byte(" world"))
			So(err, ShouldBeNil)
			So(pos, ShouldEqual, 11)
			So(string(s.Bytes()), ShouldEqual, "hello world")
		})

		Convey("Patch overwrites without disturbing position", func() {
			_, err := s.Write([]byte("00000000"))
			So(err, ShouldBeNil)
			So(s.Patch([]byte("PATCH"), 1), ShouldBeNil)
			So(string(s.Bytes()), ShouldEqual, "0PATCH00")
			So(s.Position(), ShouldEqual, 8)
		})

		Convey("Patch out of range is InvalidArgument", func() {
			_, err := s.Write([]byte("abc"))
			So(err, ShouldBeNil)
			So(errs.Is(s.Patch([]byte("xx"), 2), errs.InvalidArgument), ShouldBeTrue)
		})
	})
}

func TestFileSink(t *testing.T) {
	t.Parallel()

	Convey("FileSink", t, func() {
		dir, err := os.MkdirTemp("", "sbio-sink-*")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)
		path := dir + "/out.bin"

		s, err := NewFileSink(path)
		So(err, ShouldBeNil)

		Convey("writes sequentially and patches in place", func() {
			_, err := s.Write([]byte("SBAsset6"))
			So(err, ShouldBeNil)
			_, err = s.Write([]byte{0, 0, 0, 0, 0, 0, 0, 0})
			So(err, ShouldBeNil)
			So(s.Patch([]byte{0, 0, 0, 0, 0, 0, 0, 42}, 8), ShouldBeNil)
			So(s.Position(), ShouldEqual, 16)
			So(s.Close(), ShouldBeNil)

			raw, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(raw, ShouldResemble, []byte{
				'S', 'B', 'A', 's', 's', 'e', 't', '6',
				0, 0, 0, 0, 0, 0, 0, 42,
			})
		})
	})
}
