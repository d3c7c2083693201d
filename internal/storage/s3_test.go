package storage

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestS3Storage_ObjectKey(t *testing.T) {
	s := &s3Storage{config: S3Config{Bucket: "layouts", Prefix: "home"}}

	for key, want := range map[string]string{
		"reference/home-diff.png":                      "home/reference/home-diff.png",
		"s3://layouts/home/reference/home-current.png": "home/reference/home-current.png",
	} {
		if diff := cmp.Diff(want, s.objectKey(key)); diff != "" {
			t.Errorf("objectKey(%q) (-want +got):\n%s", key, diff)
		}
	}
}
