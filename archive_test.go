package sbasset6

import (
	"context"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	. "github.com/luci/luci-go/common/testing/assertions"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/katanacrimson/SBAsset6/errs"
	"github.com/katanacrimson/SBAsset6/sbio"
	"github.com/katanacrimson/SBAsset6/sbio/sbon"
)

// minimalMetatable is the exact 68-byte block from spec.md §6: "INDEX" +
// metadata {priority: 9999999999} + one entry
// "/universe_server.config.patch" @ offset 0x10 length 0x57.
var minimalMetatable = []byte{
	0x49, 0x4E, 0x44, 0x45, 0x58, // "INDEX"
	0x01, 0x08, 0x70, 0x72, 0x69, 0x6F, 0x72, 0x69, 0x74, 0x79, // map size 1, key len 8 "priority"
	0x04, 0xCA, 0xC0, 0xDF, 0x8F, 0x7E, // tag 4 (int), varint 9999999999
	0x01, // file count = 1
	0x1D, 0x2F, 0x75, 0x6E, 0x69, 0x76, 0x65, 0x72, 0x73, 0x65, 0x5F, 0x73, 0x65, 0x72, 0x76, 0x65,
	0x72, 0x2E, 0x63, 0x6F, 0x6E, 0x66, 0x69, 0x67, 0x2E, 0x70, 0x61, 0x74, 0x63, 0x68, // varint 29 + "/universe_server.config.patch"
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, // offset 0x10
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x57, // length 0x57
}

func TestReadHeader(t *testing.T) {
	t.Parallel()

	Convey("readHeader", t, func() {
		Convey("E1: decodes the metatable offset", func() {
			buf := []byte{0x53, 0x42, 0x41, 0x73, 0x73, 0x65, 0x74, 0x36, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x67}
			off, err := readHeader(sbio.NewMemStream(buf))
			So(err, ShouldBeNil)
			So(off, ShouldEqual, 0x67)
		})

		Convey("E2: rejects a non-matching magic", func() {
			buf := []byte{0x42, 0x41, 0x44, 0x45, 0x52, 0x52, 0x4F, 0x52, 0, 0, 0, 0, 0, 0, 0, 0}
			_, err := readHeader(sbio.NewMemStream(buf))
			So(errs.Is(err, errs.NotAnArchive), ShouldBeTrue)
			So(err, ShouldErrLike, "File does not appear to be SBAsset6 format.")
		})
	})
}

func TestReadMetatable(t *testing.T) {
	t.Parallel()

	Convey("readMetatable", t, func() {
		Convey("E3: decodes metadata and entries", func() {
			buf := append([]byte{0x00}, minimalMetatable...) // any leading byte, offset 1
			s := sbio.NewMemStream(buf)
			So(s.SeekAbsolute(1), ShouldBeNil)

			metadata, entries, err := readMetatable(context.Background(), s, sbon.DefaultMaxDepth)
			So(err, ShouldBeNil)

			priority, ok := metadata.Get("priority")
			So(ok, ShouldBeTrue)
			So(priority, ShouldEqual, sbon.Int(9999999999))

			So(entries, ShouldResemble, []FileTableEntry{
				{Path: "/universe_server.config.patch", Offset: 0x10, Length: 0x57},
			})
		})

		Convey("rejects a missing INDEX marker", func() {
			s := sbio.NewMemStream([]byte("NOTANINDEXmarker"))
			_, _, err := readMetatable(context.Background(), s, sbon.DefaultMaxDepth)
			So(errs.Is(err, errs.CorruptMetatable), ShouldBeTrue)
		})

		Convey("tolerates duplicate virtual paths, keeping both entries in order", func() {
			sink := sbio.NewMemSink()
			_, err := sink.Write([]byte(indexMarker))
			So(err, ShouldBeNil)
			So(sbon.WriteVarint(sink, 0), ShouldBeNil) // empty metadata map
			So(sbon.WriteVarint(sink, 2), ShouldBeNil)
			So(sbon.WriteString(sink, "/dup"), ShouldBeNil)
			_, err = sink.Write(putBEUint64(0))
			So(err, ShouldBeNil)
			_, err = sink.Write(putBEUint64(1))
			So(err, ShouldBeNil)
			So(sbon.WriteString(sink, "/dup"), ShouldBeNil)
			_, err = sink.Write(putBEUint64(1))
			So(err, ShouldBeNil)
			_, err = sink.Write(putBEUint64(2))
			So(err, ShouldBeNil)

			s := sbio.NewMemStream(sink.Bytes())
			_, entries, err := readMetatable(context.Background(), s, sbon.DefaultMaxDepth)
			So(err, ShouldBeNil)
			So(entries, ShouldResemble, []FileTableEntry{
				{Path: "/dup", Offset: 0, Length: 1},
				{Path: "/dup", Offset: 1, Length: 2},
			})
		})
	})
}

func buildMinimalMetadata() *sbon.Map {
	m := sbon.NewMap()
	m.Set("priority", sbon.Int(9999999999))
	return m
}

func TestMetatableRoundTrip(t *testing.T) {
	t.Parallel()

	Convey("E4: building then reading reproduces the exact byte layout", t, func() {
		sink := sbio.NewMemSink()
		_, err := sink.Write([]byte(indexMarker))
		So(err, ShouldBeNil)
		meta := buildMinimalMetadata()
		So(sbon.WriteVarint(sink, uint64(meta.Len())), ShouldBeNil)
		for _, k := range meta.Keys() {
			v, _ := meta.Get(k)
			So(sbon.WriteString(sink, k), ShouldBeNil)
			So(sbon.WriteDynamic(sink, v), ShouldBeNil)
		}
		So(sbon.WriteVarint(sink, 1), ShouldBeNil)
		So(sbon.WriteString(sink, "/universe_server.config.patch"), ShouldBeNil)
		_, err = sink.Write(putBEUint64(0x10))
		So(err, ShouldBeNil)
		_, err = sink.Write(putBEUint64(0x57))
		So(err, ShouldBeNil)

		So(sink.Bytes(), ShouldResemble, minimalMetatable)

		buf := append([]byte{0xFF}, sink.Bytes()...)
		s := sbio.NewMemStream(buf)
		So(s.SeekAbsolute(1), ShouldBeNil)
		metadata, entries, err := readMetatable(context.Background(), s, sbon.DefaultMaxDepth)
		So(err, ShouldBeNil)
		v, _ := metadata.Get("priority")
		So(v, ShouldEqual, sbon.Int(9999999999))
		So(entries, ShouldResemble, []FileTableEntry{
			{Path: "/universe_server.config.patch", Offset: 0x10, Length: 0x57},
		})
	})
}

func TestSaveLoadFidelity(t *testing.T) {
	t.Parallel()

	Convey("Save and Load", t, func() {
		dir, err := os.MkdirTemp("", "sbasset6-*")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)
		pakPath := filepath.Join(dir, "archive.pak")

		Convey("E7: fresh archive with 20 host-file entries round-trips", func() {
			a := New(pakPath)
			contents := map[string][]byte{}
			for i := 0; i < 20; i++ {
				name := filepath.Join(dir, "src"+string(rune('a'+i)))
				data := []byte("payload number " + string(rune('0'+i%10)) + " of 20")
				So(os.WriteFile(name, data, 0644), ShouldBeNil)
				vp := "/entry" + string(rune('a'+i))
				a.Table().Set(vp, FromPath{Path: name})
				contents[vp] = data
			}
			a.Metadata().Set("priority", sbon.Int(9999999999))

			saved, err := a.Save()
			So(err, ShouldBeNil)
			So(saved.IsLoaded(), ShouldBeTrue)

			loaded, err := Load(pakPath)
			So(err, ShouldBeNil)
			defer loaded.Close()

			priority, ok := loaded.Metadata().Get("priority")
			So(ok, ShouldBeTrue)
			So(priority, ShouldEqual, sbon.Int(9999999999))

			So(len(loaded.Table().List()), ShouldEqual, 20)
			for vp, want := range contents {
				got, err := loaded.Table().Get(vp)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, want)
			}
		})

		Convey("E6: non-UTF-8 binary payload survives byte-for-byte", func() {
			a := New(pakPath)
			payload := []byte{0x4F, 0x67, 0x67, 0x53, 0x00, 0xFF, 0xC3, 0x28, 0x00, 0x80}
			a.Table().Set("/sound.ogg", FromBuffer{Data: payload})

			_, err := a.Save()
			So(err, ShouldBeNil)

			loaded, err := Load(pakPath)
			So(err, ShouldBeNil)
			defer loaded.Close()

			got, err := loaded.Table().Get("/sound.ogg")
			So(err, ShouldBeNil)
			So(got, ShouldResemble, payload)
			So(sha256.Sum256(got), ShouldResemble, sha256.Sum256(payload))
		})

		Convey("E8: modify metadata and one entry's source, then re-save", func() {
			a := New(pakPath)
			a.Table().Set("/a", FromBuffer{Data: []byte("original a")})
			a.Table().Set("/b", FromBuffer{Data: []byte("original b")})
			_, err := a.Save()
			So(err, ShouldBeNil)

			loaded, err := Load(pakPath)
			So(err, ShouldBeNil)

			loaded.Metadata().Set("test", sbon.Str("success"))
			replacement := filepath.Join(dir, "replacement")
			So(os.WriteFile(replacement, []byte("new b contents"), 0644), ShouldBeNil)
			loaded.Table().Set("/b", FromPath{Path: replacement})

			_, err = loaded.Save()
			So(err, ShouldBeNil)

			reloaded, err := Load(pakPath)
			So(err, ShouldBeNil)
			defer reloaded.Close()

			test, ok := reloaded.Metadata().Get("test")
			So(ok, ShouldBeTrue)
			So(test, ShouldEqual, sbon.Str("success"))

			got, err := reloaded.Table().Get("/b")
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, "new b contents")

			got, err = reloaded.Table().Get("/a")
			So(err, ShouldBeNil)
			So(string(got), ShouldEqual, "original a")
		})

		Convey("empty archive round-trips", func() {
			a := New(pakPath)
			_, err := a.Save()
			So(err, ShouldBeNil)

			loaded, err := Load(pakPath)
			So(err, ShouldBeNil)
			defer loaded.Close()
			So(loaded.Table().List(), ShouldBeEmpty)
		})

		Convey("save is permitted from Fresh without a prior load", func() {
			a := New(pakPath)
			So(a.IsLoaded(), ShouldBeFalse)
			saved, err := a.Save()
			So(err, ShouldBeNil)
			So(saved.IsLoaded(), ShouldBeTrue)
		})
	})
}

func TestClose(t *testing.T) {
	t.Parallel()

	Convey("Close", t, func() {
		dir, err := os.MkdirTemp("", "sbasset6-close-*")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)
		pakPath := filepath.Join(dir, "archive.pak")

		a := New(pakPath)
		_, err = a.Save()
		So(err, ShouldBeNil)

		So(a.IsLoaded(), ShouldBeTrue)
		So(a.Close(), ShouldBeNil)
		So(a.IsLoaded(), ShouldBeFalse)

		Convey("idempotent", func() {
			So(a.Close(), ShouldBeNil)
		})

		Convey("ReadWindow on an unloaded archive is NotLoaded", func() {
			_, err := a.ReadWindow(0, 1)
			So(errs.Is(err, errs.NotLoaded), ShouldBeTrue)
		})
	})
}
