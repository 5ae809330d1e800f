package change

import (
	"testing"
	"time"
)

func TestParseFilename(t *testing.T) {
	cases := []struct {
		name        string
		base        string
		wantName    string
		wantCreated *time.Time
	}{
		{
			name:        "timestamped commit file",
			base:        "20240101120000.addUsers.commit.js",
			wantName:    "addUsers",
			wantCreated: timePtr(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
		},
		{
			name:     "no timestamp prefix",
			base:     "addUsers.commit.js",
			wantName: "addUsers.commit.js",
		},
		{
			name:     "single segment",
			base:     "addUsers",
			wantName: "addUsers",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			created, name := ParseFilename(tc.base)
			if name != tc.wantName {
				t.Errorf("name = %q, want %q", name, tc.wantName)
			}
			if tc.wantCreated == nil {
				if created != nil {
					t.Errorf("created = %v, want nil", created)
				}
				return
			}
			if created == nil || !created.Equal(*tc.wantCreated) {
				t.Errorf("created = %v, want %v", created, tc.wantCreated)
			}
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestChangeKeyEquality(t *testing.T) {
	a := Change{File: "/a.js", Name: "a"}
	b := Change{File: "/a.js", Name: "a", Description: "different description"}
	c := Change{File: "/a.js", Name: "b"}

	if !a.SameKey(b) {
		t.Errorf("expected a and b to share a key")
	}
	if a.SameKey(c) {
		t.Errorf("expected a and c to have different keys")
	}
}
