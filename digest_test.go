package sbasset6

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"golang.org/x/crypto/blake2b"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/katanacrimson/SBAsset6/errs"
)

func TestDigest(t *testing.T) {
	t.Parallel()

	Convey("Digest", t, func() {
		dir, err := os.MkdirTemp("", "sbasset6-digest-*")
		So(err, ShouldBeNil)
		defer os.RemoveAll(dir)
		pakPath := filepath.Join(dir, "archive.pak")

		payload := []byte("the bytes of one entry")
		a := New(pakPath)
		a.Table().Set("/entry", FromBuffer{Data: payload})

		Convey("fails InvalidArgument when no DigestScheme was configured", func() {
			_, err := a.Save()
			So(err, ShouldBeNil)

			_, err = a.Digest("/entry")
			So(errs.Is(err, errs.InvalidArgument), ShouldBeTrue)
		})

		Convey("DigestSHA256 hashes the resolved bytes with go-digest", func() {
			_, err := a.Save(WithDigestScheme(DigestSHA256))
			So(err, ShouldBeNil)

			got, err := a.Digest("/entry")
			So(err, ShouldBeNil)
			So(got, ShouldEqual, digest.FromBytes(payload))
		})

		Convey("DigestBLAKE2b hashes the resolved bytes with blake2b", func() {
			_, err := a.Save(WithDigestScheme(DigestBLAKE2b))
			So(err, ShouldBeNil)

			got, err := a.Digest("/entry")
			So(err, ShouldBeNil)

			sum := blake2b.Sum256(payload)
			So(string(got.Encoded()), ShouldEqual, hexString(sum[:]))
			So(got.Algorithm().String(), ShouldEqual, "blake2b-256")
		})

		Convey("an unknown virtual path still fails NotFound, not the digest-scheme check", func() {
			_, err := a.Save(WithDigestScheme(DigestSHA256))
			So(err, ShouldBeNil)

			_, err = a.Digest("/missing")
			So(errs.Is(err, errs.NotFound), ShouldBeTrue)
		})
	})
}

func hexString(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexdigits[c>>4]
		out[i*2+1] = hexdigits[c&0xf]
	}
	return string(out)
}
