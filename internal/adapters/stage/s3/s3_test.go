package s3

import "testing"

func TestSplitURI(t *testing.T) {
	cases := []struct {
		in     string
		bucket string
		prefix string
	}{
		{"s3://stage-bucket/exports/docs/2025-06-30/02-00/", "stage-bucket", "exports/docs/2025-06-30/02-00/"},
		{"s3://b/k", "b", "k"},
		{"s3://b/", "b", ""},
	}
	for _, tc := range cases {
		bucket, prefix, err := SplitURI(tc.in)
		if err != nil {
			t.Fatalf("SplitURI(%q): %v", tc.in, err)
		}
		if bucket != tc.bucket || prefix != tc.prefix {
			t.Fatalf("SplitURI(%q) = %q %q want %q %q", tc.in, bucket, prefix, tc.bucket, tc.prefix)
		}
	}
}

func TestSplitURIRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"http://bucket/key",
		"s3://",
		"s3://bucket-without-slash",
	} {
		if _, _, err := SplitURI(in); err == nil {
			t.Fatalf("SplitURI(%q) should fail", in)
		}
	}
}
