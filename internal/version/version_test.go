package version

import "testing"

func TestDefaultsForLocalBuild(t *testing.T) {
	if got := String(); got != "version=dev commit=unknown date=unknown" {
		t.Fatalf("unexpected default build info %q", got)
	}
}

func TestLinkerOverrides(t *testing.T) {
	cases := []struct {
		name    string
		version string
		commit  string
		date    string
		want    string
	}{
		{
			name:    "release",
			version: "v1.4.0",
			commit:  "3f2c1ab",
			date:    "2024-05-01T10:00:00Z",
			want:    "version=v1.4.0 commit=3f2c1ab date=2024-05-01T10:00:00Z",
		},
		{
			name:    "snapshot without date",
			version: "v1.4.1-rc.1",
			commit:  "deadbee",
			date:    "unknown",
			want:    "version=v1.4.1-rc.1 commit=deadbee date=unknown",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			restore := override(tc.version, tc.commit, tc.date)
			defer restore()

			v, c, d := Info()
			if v != tc.version || c != tc.commit || d != tc.date {
				t.Fatalf("Info() = %q %q %q", v, c, d)
			}
			if GetVersion() != v || GetCommit() != c || GetDate() != d {
				t.Fatal("getters disagree with Info()")
			}
			if got := String(); got != tc.want {
				t.Fatalf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func override(v, c, d string) func() {
	prevVersion, prevCommit, prevDate := version, commit, date
	version, commit, date = v, c, d
	return func() {
		version, commit, date = prevVersion, prevCommit, prevDate
	}
}
