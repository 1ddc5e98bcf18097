package sbon

import (
	"testing"

	. "github.com/luci/luci-go/common/testing/assertions"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/katanacrimson/SBAsset6/errs"
	"github.com/katanacrimson/SBAsset6/sbio"
)

func roundTrip(v Value) (Value, []byte) {
	sink := sbio.NewMemSink()
	if err := WriteDynamic(sink, v); err != nil {
		panic(err)
	}
	got, err := ReadDynamic(sbio.NewMemStream(sink.Bytes()))
	if err != nil {
		panic(err)
	}
	return got, sink.Bytes()
}

func TestDynamicValue(t *testing.T) {
	t.Parallel()

	Convey("scalar round trips", t, func() {
		got, _ := roundTrip(Null{})
		So(got, ShouldResemble, Null{})

		got, _ = roundTrip(Float(3.5))
		So(got, ShouldEqual, Float(3.5))

		got, _ = roundTrip(Bool(true))
		So(got, ShouldEqual, Bool(true))

		got, _ = roundTrip(Int(9999999999))
		So(got, ShouldEqual, Int(9999999999))

		got, _ = roundTrip(Str("hello"))
		So(got, ShouldEqual, Str("hello"))
	})

	Convey("list round trips and preserves order", t, func() {
		in := List{Int(1), Str("two"), Bool(false), List{Int(3)}}
		got, _ := roundTrip(in)
		So(valuesEqual(got, in), ShouldBeTrue)
	})

	Convey("map round trips and preserves insertion order", t, func() {
		m := NewMap()
		m.Set("key", Str("val"))
		m.Set("key2", Str("val2"))

		got, wire := roundTrip(m)

		gotMap, ok := got.(*Map)
		So(ok, ShouldBeTrue)
		So(gotMap.Keys(), ShouldResemble, []string{"key", "key2"})

		// tag 07, count 02, then the two (string key, tag5 string) pairs.
		So(wire[0], ShouldEqual, byte(TagMap))
		So(wire[1], ShouldEqual, byte(0x02))
	})

	Convey("duplicate map keys: last value wins, first position kept", t, func() {
		// build by hand: tag, count=2, ("k", int 1), ("k", int 2)
		sink := sbio.NewMemSink()
		_, _ = sink.Write([]byte{byte(TagMap)})
		So(WriteVarint(sink, 2), ShouldBeNil)
		So(WriteString(sink, "k"), ShouldBeNil)
		So(WriteDynamic(sink, Int(1)), ShouldBeNil)
		So(WriteString(sink, "k"), ShouldBeNil)
		So(WriteDynamic(sink, Int(2)), ShouldBeNil)

		got, err := ReadDynamic(sbio.NewMemStream(sink.Bytes()))
		So(err, ShouldBeNil)
		m := got.(*Map)
		So(m.Keys(), ShouldResemble, []string{"k"})
		v, _ := m.Get("k")
		So(v, ShouldEqual, Int(2))
	})

	Convey("bad bool byte is Malformed", t, func() {
		sink := sbio.NewMemSink()
		_, _ = sink.Write([]byte{byte(TagBool), 0x02})
		_, err := ReadDynamic(sbio.NewMemStream(sink.Bytes()))
		So(errs.Is(err, errs.Malformed), ShouldBeTrue)
		So(err, ShouldErrLike, "bad bool byte")
	})

	Convey("unknown tag is Malformed", t, func() {
		sink := sbio.NewMemSink()
		_, _ = sink.Write([]byte{0x09})
		_, err := ReadDynamic(sbio.NewMemStream(sink.Bytes()))
		So(errs.Is(err, errs.Malformed), ShouldBeTrue)
	})

	Convey("nesting past the depth limit is Malformed", t, func() {
		sink := sbio.NewMemSink()
		d := &Decoder{MaxDepth: 2}
		// build a 5-deep nested list by hand: [[[[[]]]]]
		var v Value = List{}
		for i := 0; i < 4; i++ {
			v = List{v}
		}
		So(WriteDynamic(sink, v), ShouldBeNil)
		_, err := d.ReadDynamic(sbio.NewMemStream(sink.Bytes()))
		So(errs.Is(err, errs.Malformed), ShouldBeTrue)
		So(err, ShouldErrLike, "nesting depth exceeds limit")
	})
}
