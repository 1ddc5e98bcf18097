package errs

import (
	"fmt"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestKindError(t *testing.T) {
	t.Parallel()

	Convey("Wrap/Is", t, func() {
		Convey("nil error wraps to nil", func() {
			So(Wrap(NotFound, nil), ShouldBeNil)
		})

		Convey("round trips through Is", func() {
			err := Wrap(NotFound, fmt.Errorf("no such path"))
			So(Is(err, NotFound), ShouldBeTrue)
			So(Is(err, IOError), ShouldBeFalse)
		})

		Convey("survives an extra fmt.Errorf %w layer", func() {
			inner := Wrap(OutOfBounds, fmt.Errorf("read past end"))
			outer := fmt.Errorf("resolving source: %w", inner)
			So(Is(outer, OutOfBounds), ShouldBeTrue)
		})

		Convey("unrelated error is not any Kind", func() {
			So(Is(fmt.Errorf("plain"), InvalidArgument), ShouldBeFalse)
		})
	})

	Convey("Kind.String", t, func() {
		So(InvalidArgument.String(), ShouldEqual, "InvalidArgument")
		So(Kind(99).String(), ShouldEqual, "Unknown")
	})
}
