package vulnrules

import "testing"

func TestFromDatasource(t *testing.T) {
	for _, tc := range []struct {
		ds   string
		want Ecosystem
		ok   bool
	}{
		{"npm", Npm, true},
		{"crate", CratesIO, true},
		{"go", Go, true},
		{"pypi", PyPI, true},
		{"rubygems", RubyGems, true},
		{"deb", Debian, true},
		{"apk", Alpine, true},
		{"rpm", AlmaLinux, true},
		{"docker", "", false},
		{"git-refs", "", false},
		{"", "", false},
	} {
		got, ok := FromDatasource(tc.ds)
		if got != tc.want || ok != tc.ok {
			t.Errorf("FromDatasource(%q) = %q, %v; want %q, %v", tc.ds, got, ok, tc.want, tc.ok)
		}
	}
}

func TestBase(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"Alpine:v3.17", "Alpine"},
		{"Debian:11", "Debian"},
		{"npm", "npm"},
		{"", ""},
	} {
		if got := Base(tc.in); got != tc.want {
			t.Errorf("Base(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
